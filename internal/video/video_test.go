package video

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgsWithAudio(t *testing.T) {
	e := &FFmpegEncoder{}
	args := e.buildFFmpegArgs(Params{
		Width: 1080, Height: 1920, FPS: 30, Frames: 450,
		Output:      "out.mp4",
		Encoder:     "h264_nvenc",
		Quality:     23,
		AudioPath:   "melody.wav",
		AudioFilter: "volume=0.3",
	})
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-f rawvideo -pixel_format rgba -video_size 1080x1920 -framerate 30 -i - -i melody.wav")
	assert.Contains(t, joined, "-af volume=0.3 -map 1:a")
	assert.Contains(t, joined, "-t 15.000000")
	assert.Contains(t, joined, "-c:v h264_nvenc -cq 23")
	assert.Equal(t, "out.mp4", args[len(args)-1])
}

func TestBuildArgsSilent(t *testing.T) {
	e := &FFmpegEncoder{}
	args := e.buildFFmpegArgs(Params{Width: 1080, Height: 1080, FPS: 30, Frames: 180, Output: "o.mp4", Quality: 20})
	joined := strings.Join(args, " ")

	assert.NotContains(t, joined, "1:a")
	assert.NotContains(t, joined, "-af")
	assert.Contains(t, joined, "-c:v libx264 -crf 20 -preset medium")
}

func TestQualityArgs(t *testing.T) {
	tests := []struct {
		encoder string
		want    []string
	}{
		{"h264_videotoolbox", []string{"-b:v", "7500k"}},
		{"h264_nvenc", []string{"-cq", "75"}},
		{"libx264", []string{"-crf", "75", "-preset", "medium"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QualityArgs(tt.encoder, 75), tt.encoder)
	}
}

func TestWriteRawRGBA(t *testing.T) {
	var buf bytes.Buffer
	var scratch *image.RGBA

	packed := image.NewRGBA(image.Rect(0, 0, 2, 2))
	packed.Set(0, 0, color.RGBA{R: 9, A: 255})
	require.NoError(t, writeRawRGBA(&buf, packed, 2, 2, &scratch))
	assert.Equal(t, packed.Pix, buf.Bytes())
	assert.Nil(t, scratch)

	buf.Reset()
	sub := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	sub.Set(1, 1, color.NRGBA{G: 255, A: 255})
	require.NoError(t, writeRawRGBA(&buf, sub, 2, 2, &scratch))
	require.Len(t, buf.Bytes(), 16)
	assert.Equal(t, []byte{0, 255, 0, 255}, buf.Bytes()[12:])
}
