// Package system wraps the host: file limits, ffmpeg capability probes,
// media lookups and worker sizing.
package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// InitResourceLimits raises the open file limit. Every encoder run keeps a
// few pipes open and the server holds sqlite handles on top of that.
func InitResourceLimits(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn("read file limit", zap.Error(err))
		return
	}

	want := uint64(2048)
	if want > rLimit.Max {
		want = rLimit.Max
	}
	if rLimit.Cur >= want {
		return
	}
	rLimit.Cur = want
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Warn("raise file limit", zap.Error(err))
		return
	}
	log.Debug("open file limit raised", zap.Uint64("limit", rLimit.Cur))
}

// FindLatest returns the most recently modified file in dir whose name ends
// with one of exts (case-insensitive).
func FindLatest(dir string, exts ...string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time
	for _, f := range files {
		if f.IsDir() || !hasExt(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files in %s", strings.Join(exts, "/"), dir)
	}
	return latestFile, nil
}

func hasExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

var audioExts = []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"}

func FindLatestAudio(dir string) (string, error) {
	return FindLatest(dir, audioExts...)
}

// GetAudioDuration asks ffprobe for the container duration in seconds.
func GetAudioDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return duration, nil
}

var (
	listingMu sync.Mutex
	listings  = map[string]string{}
)

// ffmpegListing runs `ffmpeg -hide_banner -<what>` once per process.
func ffmpegListing(what string) string {
	listingMu.Lock()
	defer listingMu.Unlock()
	if out, ok := listings[what]; ok {
		return out
	}
	out, err := exec.Command("ffmpeg", "-hide_banner", "-"+what).CombinedOutput()
	if err != nil {
		out = nil
	}
	listings[what] = string(out)
	return listings[what]
}

// CheckFilterSupport reports whether the local ffmpeg build has filter name.
func CheckFilterSupport(name string) bool {
	for _, line := range strings.Split(ffmpegListing("filters"), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}

// GetBestH264Encoder prefers hardware encoders and falls back to libx264.
// The second result holds extra encoder arguments.
func GetBestH264Encoder() (string, string) {
	encoders := []struct {
		name string
		args string
	}{
		{"h264_videotoolbox", ""},
		{"h264_nvenc", ""},
	}

	listing := ffmpegListing("encoders")
	for _, enc := range encoders {
		if strings.Contains(listing, enc.name) {
			return enc.name, enc.args
		}
	}
	return "libx264", ""
}
