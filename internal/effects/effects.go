// Package effects builds ffmpeg filter expressions for the encode step.
package effects

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/acoeffic/readon/internal/motion"
	"github.com/acoeffic/readon/internal/system"
)

// VideoEffect produces an ffmpeg video filter appended after the frame
// input. An empty string means no filter.
type VideoEffect interface {
	VideoFilter(fps int) string
}

// Fade applies a template's volume envelope to the soundtrack.
type Fade struct {
	Envelope motion.Envelope
}

func (f Fade) AudioFilter(fps int) string {
	return VolumeFilter(f.Envelope, fps)
}

// VolumeFilter renders env as a frame-evaluated volume expression in t
// seconds. Between breakpoints it is linear, so it equals Envelope.Volume
// at every frame.
func VolumeFilter(env motion.Envelope, fps int) string {
	if fps <= 0 {
		fps = 30
	}
	pts := env.Points()
	if len(pts) == 0 {
		return "volume=0:eval=frame"
	}
	f := float64(fps)

	// innermost: past the last breakpoint the level holds
	expr := num(pts[len(pts)-1].Volume)
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		seg := num(p.Volume)
		if i > 0 {
			prev := pts[i-1]
			t0, t1 := prev.Frame/f, p.Frame/f
			if t1 > t0 {
				seg = fmt.Sprintf("%s+(%s)*(t-%s)/%s",
					num(prev.Volume), num(p.Volume-prev.Volume), num(t0), num(t1-t0))
			}
		}
		expr = fmt.Sprintf("if(lte(t,%s),%s,%s)", num(p.Frame/f), seg, expr)
	}
	return fmt.Sprintf("volume='%s':eval=frame", expr)
}

func num(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FrameCounter stamps the frame number in the corner, for checking timing
// against the template's stages. It is a no-op when ffmpeg lacks drawtext.
type FrameCounter struct{}

func (FrameCounter) VideoFilter(fps int) string {
	if !system.CheckFilterSupport("drawtext") {
		return ""
	}
	return "drawtext=text='%{frame_num}':start_number=0:x=10:y=10:fontsize=28:fontcolor=yellow:box=1:boxcolor=black@0.5"
}

// Chain joins non-empty filters with commas.
func Chain(filters ...string) string {
	out := filters[:0:0]
	for _, f := range filters {
		if f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, ",")
}
