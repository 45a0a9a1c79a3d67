package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/acoeffic/readon/internal/analyzer"
	"github.com/acoeffic/readon/internal/compositions"
	"github.com/acoeffic/readon/internal/config"
	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/motion"
	"github.com/acoeffic/readon/internal/scene"
	"github.com/acoeffic/readon/internal/video"
)

// indexTemplate paints frame i's index into the background colour and
// takes longer on some frames so workers finish out of order.
type indexTemplate struct{}

func (indexTemplate) Render(frame int) *scene.Tree {
	time.Sleep(time.Duration(frame*7%5) * time.Millisecond)
	t := scene.New(compositions.LogicalWidth, compositions.StoryHeight, 1)
	t.Fill(scene.SolidPaint(color.NRGBA{R: uint8(frame), G: uint8(frame >> 8), A: 255}))
	return t
}

func (indexTemplate) Stages() []compositions.Stage { return nil }

func (indexTemplate) Audio() motion.Envelope { return motion.NewEnvelope(0.3, 30, 40, 60) }

func (indexTemplate) Resources() []compositions.Resource { return nil }

type recordingSink struct {
	mu     sync.Mutex
	frames []int
	size   image.Rectangle
	failAt int
	closed bool
}

func (s *recordingSink) WriteFrame(img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.frames) == s.failAt {
		return errors.New("pipe closed")
	}
	c := img.(*image.RGBA).RGBAAt(0, 0)
	s.frames = append(s.frames, int(c.R)|int(c.G)<<8)
	s.size = img.Bounds()
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

type fakeEncoder struct {
	sink   *recordingSink
	params video.Params
}

func (e *fakeEncoder) Start(ctx context.Context, p video.Params) (video.FrameSink, error) {
	e.params = p
	return e.sink, nil
}

func testProject(t *testing.T, frames int, sink *recordingSink) (*Project, *fakeEncoder) {
	t.Helper()
	enc := &fakeEncoder{sink: sink}
	c := compositions.Composition{ID: "Index", Width: 1080, Height: 1920, FPS: 30, DurationInFrames: frames}
	p := NewProject(config.Render{Width: 36, Height: 64, Workers: 4, Encoder: "libx264", Quality: 23}, c, nil, enc)
	p.Template = indexTemplate{}
	p.Fonts = fonts.New(fonts.Options{})
	p.Logger = zaptest.NewLogger(t)
	return p, enc
}

func TestRunWritesFramesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{}
	p, enc := testProject(t, 60, sink)
	stats, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "out.mp4"))
	require.NoError(t, err)

	want := make([]int, 60)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, sink.frames)
	assert.True(t, sink.closed)
	assert.Equal(t, image.Rect(0, 0, 36, 64), sink.size)
	assert.Equal(t, 60, stats.Frames)
	assert.Equal(t, 4, stats.Workers)

	assert.Equal(t, 36, enc.params.Width)
	assert.Equal(t, 64, enc.params.Height)
	assert.Equal(t, 60, enc.params.Frames)
	assert.Empty(t, enc.params.AudioFilter)
}

func TestRunAudioFilter(t *testing.T) {
	defer goleak.VerifyNone(t)

	p, enc := testProject(t, 10, &recordingSink{})
	p.Config.AudioPath = "melody.wav"
	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "out.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "melody.wav", enc.params.AudioPath)
	assert.Contains(t, enc.params.AudioFilter, "volume='if(lte(t,0)")
}

func TestRunStopsOnSinkError(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{failAt: 5}
	p, _ := testProject(t, 60, sink)
	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "out.mp4"))
	require.ErrorContains(t, err, "frame 5: pipe closed")
	assert.Len(t, sink.frames, 5)
	assert.True(t, sink.closed)
}

func TestRunCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _ := testProject(t, 60, &recordingSink{})
	_, err := p.Run(ctx, filepath.Join(t.TempDir(), "out.mp4"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScale(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		square        bool
		want          float64
	}{
		{"story full", 1080, 1920, false, 3},
		{"square in story box", 1080, 1920, true, 3},
		{"height bound", 1080, 960, false, 1.5},
		{"odd width rounds down to even", 999, 1920, false, 998.0 / 360},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := compositions.Composition{Width: 1080, Height: 1920}
			if tt.square {
				c.Height = 1080
			}
			p := &Project{Config: config.Render{Width: tt.width, Height: tt.height}, Composition: c}
			assert.InDelta(t, tt.want, p.Scale(), 1e-9)
		})
	}
}

func TestRenderStill(t *testing.T) {
	p, _ := testProject(t, 30, &recordingSink{})
	path := filepath.Join(t.TempDir(), "stills", "frame.png")
	require.NoError(t, p.RenderStill(context.Background(), 12, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 36, 64), img.Bounds())
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(12), r>>8)

	assert.ErrorIs(t, p.RenderStill(context.Background(), 30, path), ErrFrameRange)
}

type coverFunc func(ctx context.Context, ref string) (image.Image, error)

func (f coverFunc) Load(ctx context.Context, ref string) (image.Image, error) { return f(ctx, ref) }

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 40, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func bookProject(t *testing.T, in compositions.BookFinishedInput, covers coverFunc) *Project {
	t.Helper()
	c, err := compositions.Lookup("BookFinished")
	require.NoError(t, err)
	p := NewProject(config.Render{Width: 36, Height: 64, ResourceTimeout: time.Second}, c, &in, &fakeEncoder{})
	p.Fonts = nil
	p.Covers = covers
	p.Detector = analyzer.NewPaletteDetector()
	p.Logger = zaptest.NewLogger(t)
	return p
}

func TestPrepareFillsPaletteFromCover(t *testing.T) {
	in := compositions.DefaultBookFinished
	in.CoverURL = "https://covers.example/dune.jpg"
	in.DominantColor, in.SecondaryColor = "", ""

	var asked string
	p := bookProject(t, in, func(ctx context.Context, ref string) (image.Image, error) {
		asked = ref
		return solid(color.RGBA{R: 0x20, G: 0x60, B: 0xA0, A: 255}), nil
	})
	require.NoError(t, p.Prepare(context.Background()))
	require.NotNil(t, p.Template)
	assert.Equal(t, in.CoverURL, asked)

	got := p.Props.(*compositions.BookFinishedInput)
	assert.NotEmpty(t, got.DominantColor)
	assert.NotEqual(t, compositions.DefaultDominantColor, got.DominantColor)
	assert.NotEmpty(t, got.SecondaryColor)
}

func TestPrepareKeepsExplicitColours(t *testing.T) {
	in := compositions.DefaultBookFinished
	in.CoverURL = "https://covers.example/dune.jpg"
	p := bookProject(t, in, func(ctx context.Context, ref string) (image.Image, error) {
		return solid(color.RGBA{B: 255, A: 255}), nil
	})
	require.NoError(t, p.Prepare(context.Background()))
	assert.Equal(t, in.DominantColor, p.Props.(*compositions.BookFinishedInput).DominantColor)
}

func TestPrepareFallsBackWithoutCover(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := compositions.DefaultBookFinished
	in.CoverURL = "https://covers.example/missing.jpg"
	p := bookProject(t, in, func(ctx context.Context, ref string) (image.Image, error) {
		return nil, errors.New("status 404")
	})
	require.NoError(t, p.Prepare(context.Background()))
	require.NotNil(t, p.Template)
	// the placeholder cover spells out the author
	cover, ok := p.Template.Render(60).Find("cover")
	require.True(t, ok)
	assert.Contains(t, cover.Texts(), "FRANK HERBERT")
}

func TestPrepareDoesNotWaitForeverOnCover(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := compositions.DefaultBookFinished
	in.CoverURL = "https://covers.example/slow.jpg"
	p := bookProject(t, in, func(ctx context.Context, ref string) (image.Image, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	p.Config.ResourceTimeout = 20 * time.Millisecond
	p.Config.CoverTimeout = 100 * time.Millisecond

	start := time.Now()
	require.NoError(t, p.Prepare(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
	assert.NotNil(t, p.Template)
}

func TestPrepareRejectsWrongProps(t *testing.T) {
	c, err := compositions.Lookup("YearlyWrapped")
	require.NoError(t, err)
	p := NewProject(config.Render{}, c, &compositions.ReadingSessionInput{}, &fakeEncoder{})
	p.Fonts = nil
	assert.ErrorIs(t, p.Prepare(context.Background()), compositions.ErrPropsType)
}

func TestPrepareFreezesFontsAtTheDeadline(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".ttf") {
			_, _ = w.Write(goregular.TTF)
			return
		}
		time.Sleep(300 * time.Millisecond)
		fmt.Fprintf(w, "@font-face { font-style: normal; font-weight: 400; src: url(%s/inter.ttf) format('truetype'); }", srv.URL)
	}))
	defer srv.Close()

	reg := fonts.New(fonts.Options{
		Endpoint: srv.URL + "/css2",
		Logger:   zaptest.NewLogger(t),
		Families: []fonts.Family{{Name: fonts.Inter, Query: "Inter:wght@400"}},
	})
	fallback := reg.Font(fonts.Inter, 400, false)

	p := bookProject(t, compositions.DefaultBookFinished, nil)
	p.Covers = nil
	p.Fonts = reg
	p.Config.ResourceTimeout = 50 * time.Millisecond
	require.NoError(t, p.Prepare(context.Background()))
	require.NotNil(t, p.Template)
	assert.False(t, reg.Loaded())

	// the web font lands after rendering has started
	require.Eventually(t, reg.Loaded, 5*time.Second, 10*time.Millisecond)
	assert.NotSame(t, fallback, reg.Font(fonts.Inter, 400, false))
	assert.Same(t, fallback, p.faces.Font(fonts.Inter, 400, false))

	path := filepath.Join(t.TempDir(), "still.png")
	require.NoError(t, p.RenderStill(context.Background(), 60, path))
	assert.Same(t, fallback, p.faces.Font(fonts.Inter, 400, false))
}
