package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobePath returns the ffprobe command to execute.
//
// A configured command found on PATH wins. Otherwise an ffprobe sitting next
// to the ffmpeg on PATH is used, since static builds ship the pair in one
// directory that is not always on PATH itself. When neither resolves the
// configured name is returned unchanged so callers report it as missing.
func ResolveFFprobePath(configured string) string {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		configured = "ffprobe"
	}
	if resolved, err := exec.LookPath(configured); err == nil {
		return resolved
	}
	if ffmpegPath, err := exec.LookPath(executableName("ffmpeg")); err == nil {
		candidate := filepath.Join(filepath.Dir(ffmpegPath), executableName("ffprobe"))
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			return candidate
		}
	}
	return configured
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
