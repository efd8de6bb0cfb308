package repository

import (
	"context"
	"time"

	"LiveFM/core/events"
	"LiveFM/logger"
	"LiveFM/model"
)

// HistoryRecorder writes song state changes from the event bus into the
// request history.
type HistoryRecorder struct {
	repo RequestHistoryRepository
}

// NewHistoryRecorder creates a recorder backed by repo.
func NewHistoryRecorder(repo RequestHistoryRepository) *HistoryRecorder {
	return &HistoryRecorder{repo: repo}
}

// Record stores a freshly enqueued request.
func (h *HistoryRecorder) Record(ctx context.Context, req model.SongRequest) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := h.repo.Create(ctx, req); err != nil {
		logger.Warn("failed to record request",
			logger.String("requestId", req.RequestID),
			logger.ErrorField(err))
	}
}

// Run applies song events until ctx is done or sub closes.
func (h *HistoryRecorder) Run(ctx context.Context, sub *events.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			// Queued rows are written by Record with the full request.
			if ev.ContentID == "" || ev.State == "" || ev.State == model.StateQueued {
				continue
			}
			h.apply(ctx, ev)
		}
	}
}

func (h *HistoryRecorder) apply(ctx context.Context, ev events.Event) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := h.repo.UpdateState(ctx, ev.ContentID, ev.State); err != nil {
		logger.Warn("failed to update request history",
			logger.String("contentId", ev.ContentID),
			logger.String("state", string(ev.State)),
			logger.ErrorField(err))
	}
}

// Recent returns the latest requests, newest first.
func (h *HistoryRecorder) Recent(ctx context.Context, limit int) ([]*model.RequestHistory, error) {
	return h.repo.Recent(ctx, limit)
}
