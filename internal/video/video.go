// Package video streams rendered frames into ffmpeg.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

var ErrSinkClosed = errors.New("video: sink closed")

// Params describes one encode.
type Params struct {
	Width, Height int
	FPS           int
	Frames        int
	Output        string

	Encoder     string
	EncoderArgs string
	Quality     int
	AudioPath   string
	AudioFilter string
	VideoFilter string
}

func (p Params) Duration() float64 {
	if p.FPS <= 0 {
		return 0
	}
	return float64(p.Frames) / float64(p.FPS)
}

// FrameSink accepts frames in presentation order.
type FrameSink interface {
	WriteFrame(img image.Image) error
	// Close flushes the stream and waits for the encoder.
	Close() error
}

type FrameEncoder interface {
	Start(ctx context.Context, p Params) (FrameSink, error)
}

// FFmpegEncoder runs one ffmpeg process per video reading rawvideo RGBA on
// stdin.
type FFmpegEncoder struct {
	Binary string
	Logger *zap.Logger
}

func (e *FFmpegEncoder) Start(ctx context.Context, p Params) (FrameSink, error) {
	if p.Width <= 0 || p.Height <= 0 || p.FPS <= 0 {
		return nil, fmt.Errorf("invalid video params %dx%d@%d", p.Width, p.Height, p.FPS)
	}
	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}

	args := e.buildFFmpegArgs(p)
	log.Debug("starting ffmpeg", zap.Strings("args", args))
	cmd := exec.CommandContext(ctx, bin, args...)
	sink := &ffmpegSink{cmd: cmd, width: p.Width, height: p.Height}
	cmd.Stdout = &sink.out
	cmd.Stderr = &sink.out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	sink.stdin = stdin
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return sink, nil
}

func (e *FFmpegEncoder) buildFFmpegArgs(p Params) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", fmt.Sprintf("%d", p.FPS),
		"-i", "-",
	}
	if p.AudioPath != "" {
		args = append(args, "-i", p.AudioPath)
	}
	if p.VideoFilter != "" {
		args = append(args, "-vf", p.VideoFilter)
	}
	args = append(args, "-map", "0:v")
	if p.AudioPath != "" {
		if p.AudioFilter != "" {
			args = append(args, "-af", p.AudioFilter)
		}
		args = append(args, "-map", "1:a", "-c:a", "aac", "-b:a", "192k")
	}

	encoder := p.Encoder
	if encoder == "" {
		encoder = "libx264"
	}
	args = append(args,
		"-t", fmt.Sprintf("%f", p.Duration()),
		"-r", fmt.Sprintf("%d", p.FPS),
		"-pix_fmt", "yuv420p",
		"-c:v", encoder,
	)
	args = append(args, QualityArgs(encoder, p.Quality)...)
	if p.EncoderArgs != "" {
		args = append(args, strings.Fields(p.EncoderArgs)...)
	}
	args = append(args, "-movflags", "+faststart", p.Output)
	return args
}

// QualityArgs maps one quality knob onto each encoder's own scale.
func QualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// no -q:v on every build; bitrate in kbit/s, 75 -> 7.5 Mbit/s
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default:
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

type ffmpegSink struct {
	cmd           *exec.Cmd
	stdin         io.WriteCloser
	out           bytes.Buffer
	width, height int
	scratch       *image.RGBA
	closed        bool
}

func (s *ffmpegSink) WriteFrame(img image.Image) error {
	if s.closed {
		return ErrSinkClosed
	}
	if err := writeRawRGBA(s.stdin, img, s.width, s.height, &s.scratch); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	return nil
}

func (s *ffmpegSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w\n%s", err, tail(s.out.String(), 2000))
	}
	return nil
}

// writeRawRGBA writes img as tightly packed w*h*4 bytes, converting through
// scratch when img is not already a packed RGBA of that size.
func writeRawRGBA(w io.Writer, img image.Image, width, height int, scratch **image.RGBA) error {
	rgba, ok := img.(*image.RGBA)
	want := image.Rect(0, 0, width, height)
	if !ok || rgba.Rect != want || rgba.Stride != width*4 {
		if *scratch == nil {
			*scratch = image.NewRGBA(want)
		}
		rgba = *scratch
		draw.Draw(rgba, want, image.Transparent, image.Point{}, draw.Src)
		draw.Draw(rgba, want, img, img.Bounds().Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
