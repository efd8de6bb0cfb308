package broadcast

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"LiveFM/logger"
)

func encoderName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0111 != 0
}

// LocateEncoder resolves the ffmpeg binary: the configured override first,
// then each well-known install directory, then $PATH.
func LocateEncoder(override string, wellKnownDirs []string) (string, error) {
	if override != "" {
		if isExecutable(override) {
			return override, nil
		}
		logger.Warn("configured ffmpeg path is not executable, searching",
			logger.String("path", override))
	}
	for _, dir := range wellKnownDirs {
		candidate := filepath.Join(dir, encoderName())
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	if path, err := exec.LookPath(encoderName()); err == nil {
		return path, nil
	}
	return "", ErrEncoderNotFound
}
