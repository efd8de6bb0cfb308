package acquire

import "fmt"

// Reason classifies an acquisition failure.
type Reason string

const (
	ReasonUnreachable Reason = "provider_unreachable"
	ReasonNoStream    Reason = "no_audio_stream"
	ReasonDownload    Reason = "download_failed"
	ReasonUndersized  Reason = "undersized_artifact"
	ReasonCanceled    Reason = "canceled"
)

// AcquisitionError is the single error type Acquire returns.
type AcquisitionError struct {
	ContentID string
	Reason    Reason
	Err       error
}

func (e *AcquisitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("acquire %s: %s", e.ContentID, e.Reason)
	}
	return fmt.Sprintf("acquire %s: %s: %v", e.ContentID, e.Reason, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }
