package compositions

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acoeffic/readon/internal/motion"
)

func build(t *testing.T, id string, props any) Template {
	t.Helper()
	c, err := Lookup(id)
	require.NoError(t, err)
	if props == nil {
		props = c.DefaultProps()
	}
	tmpl, err := c.New(props, Assets{})
	require.NoError(t, err)
	return tmpl
}

func TestRegistry(t *testing.T) {
	want := map[string]struct {
		w, h, frames int
	}{
		"BookFinished":         {1080, 1920, 180},
		"BookFinishedSquare":   {1080, 1080, 180},
		"MonthlyWrapped":       {1080, 1920, 450},
		"MonthlyWrappedSquare": {1080, 1080, 450},
		"ReadingSession":       {1080, 1920, 450},
		"ReadingSessionSquare": {1080, 1080, 450},
		"YearlyWrapped":        {1080, 1920, 450},
		"YearlyWrappedSquare":  {1080, 1080, 450},
	}
	all := Registry()
	require.Len(t, all, len(want))
	for _, c := range all {
		w, ok := want[c.ID]
		require.True(t, ok, c.ID)
		assert.Equal(t, w.w, c.Width, c.ID)
		assert.Equal(t, w.h, c.Height, c.ID)
		assert.Equal(t, w.frames, c.DurationInFrames, c.ID)
		assert.Equal(t, 30, c.FPS)
	}

	_, err := Lookup("Nope")
	assert.ErrorIs(t, err, ErrUnknownComposition)
}

func TestTreesOnlyContainStagedElements(t *testing.T) {
	for _, c := range Registry() {
		tmpl := build(t, c.ID, nil)
		ids := map[string]bool{}
		for _, s := range tmpl.Stages() {
			ids[s.ID] = true
		}
		for _, frame := range []int{0, 60, 150, 300, c.DurationInFrames - 1} {
			tree := tmpl.Render(frame)
			assert.Equal(t, OutputScale, tree.Scale)
			w, h := tree.PixelSize()
			assert.Equal(t, c.Width, w, c.ID)
			assert.Equal(t, c.Height, h, c.ID)
			for _, id := range tree.IDs() {
				assert.True(t, ids[id], "%s frame %d renders unstaged %q", c.ID, frame, id)
			}
		}
	}
}

func TestSquareSkipsStoryOnlyElements(t *testing.T) {
	cases := map[string][]string{
		"ReadingSessionSquare": {"title", "author", "divider", "progress", "footer-line"},
		"MonthlyWrappedSquare": {"month", "year", "line", "vs", "footer-line"},
		"YearlyWrappedSquare":  {"year", "line", "name", "badge", "footer-line"},
	}
	for id, storyOnly := range cases {
		tmpl := build(t, id, nil)
		tree := tmpl.Render(449)
		for _, el := range storyOnly {
			_, found := tree.Find(el)
			assert.False(t, found, "%s renders %q", id, el)
			_, staged := Timeline(tmpl.Stages()).Lookup(el)
			assert.False(t, staged, "%s stages %q", id, el)
		}
	}
}

func TestMonthlyWithoutTopBook(t *testing.T) {
	with := DefaultMonthlyWrapped()
	without := DefaultMonthlyWrapped()
	without.TopBook = nil

	a := build(t, "MonthlyWrapped", &with)
	b := build(t, "MonthlyWrapped", &without)

	assert.Empty(t, cmp.Diff(a.Stages(), b.Stages()))

	ta, tb := a.Render(260), b.Render(260)
	_, ok := tb.Find("book")
	assert.False(t, ok)
	_, ok = ta.Find("book")
	assert.True(t, ok)

	fa, _ := ta.Find("footer")
	fb, _ := tb.Find("footer")
	assert.Empty(t, cmp.Diff(*fa, *fb))
}

func TestMonthlyVsHiddenWhenZero(t *testing.T) {
	in := DefaultMonthlyWrapped()
	in.VsLastMonthPercent = 0
	tree := build(t, "MonthlyWrapped", in).Render(300)
	_, ok := tree.Find("vs")
	assert.False(t, ok)

	in.VsLastMonthPercent = -5
	tree = build(t, "MonthlyWrapped", in).Render(300)
	vs, ok := tree.Find("vs")
	require.True(t, ok)
	assert.Equal(t, []string{"↓ 5%", "vs avril"}, vs.Texts())
}

// statValue reads the value text of a stat cell; cells with an emoji carry
// it as their first text run.
func statValue(t *testing.T, tmpl Template, frame int, id string) string {
	t.Helper()
	el, ok := tmpl.Render(frame).Find(id)
	require.True(t, ok, id)
	texts := el.Texts()
	require.Len(t, texts, 3)
	return texts[1]
}

func gridValue(t *testing.T, tmpl Template, frame int, id string) string {
	t.Helper()
	el, ok := tmpl.Render(frame).Find(id)
	require.True(t, ok, id)
	texts := el.Texts()
	require.Len(t, texts, 2)
	return texts[0]
}

func TestCountersHitTheirEndpoints(t *testing.T) {
	rs := build(t, "ReadingSession", nil)
	assert.Equal(t, "0", statValue(t, rs, 80, "stat-pages"))
	assert.Equal(t, "0 min", statValue(t, rs, 0, "stat-duration"))
	assert.Equal(t, "36", statValue(t, rs, 130, "stat-pages"))
	assert.Equal(t, "45 min", statValue(t, rs, 130, "stat-duration"))
	assert.Equal(t, "36", statValue(t, rs, 449, "stat-pages"))

	bf := build(t, "BookFinishedSquare", nil)
	assert.Equal(t, "0", gridValue(t, bf, 80, "stat-pages"))
	assert.Equal(t, "688", gridValue(t, bf, 110, "stat-pages"))
	assert.Equal(t, "31", gridValue(t, bf, 179, "stat-sessions"))
	assert.Equal(t, "3 Déc → 2 Fév", gridValue(t, bf, 0, "stat-period"))

	mw := build(t, "MonthlyWrapped", nil)
	assert.Equal(t, "0min", statValue(t, mw, 75, "stat-time"))
	assert.Equal(t, "24h40", statValue(t, mw, 125, "stat-time"))
	assert.Equal(t, "12j", statValue(t, mw, 125, "stat-flow"))

	yw := build(t, "YearlyWrapped", nil)
	assert.Equal(t, "Top 0%", statValue(t, yw, 120, "stat-rank"))
	assert.Equal(t, "247h", statValue(t, yw, 175, "stat-time"))
	assert.Equal(t, "Top 3%", statValue(t, yw, 175, "stat-rank"))
}

func TestCountMonotonic(t *testing.T) {
	tl := Timeline{counterStage("counters", 80, 130)}
	prev := 0
	for f := 0; f <= 200; f++ {
		v := tl.Count("counters", float64(f), 1480)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
	assert.Equal(t, 1480, prev)
}

func TestRenderIsPure(t *testing.T) {
	for _, c := range Registry() {
		tmpl := build(t, c.ID, nil)
		a := tmpl.Render(97)
		b := build(t, c.ID, nil).Render(97)
		assert.Empty(t, cmp.Diff(a, b), c.ID)
	}
}

func TestCardFadesIn(t *testing.T) {
	tree := build(t, "YearlyWrapped", nil).Render(0)
	for _, e := range tree.Elements {
		assert.Zero(t, e.Opacity, e.ID)
	}
	tree = build(t, "YearlyWrapped", nil).Render(20)
	assert.True(t, tree.Visible("card"))
}

func TestEndGlow(t *testing.T) {
	rs := build(t, "ReadingSession", nil)
	assert.False(t, rs.Render(420).Visible("end-glow"))
	assert.True(t, rs.Render(421).Visible("end-glow"))
}

func TestAudioEnvelopes(t *testing.T) {
	bf := build(t, "BookFinished", nil).Audio()
	assert.InDelta(t, 0, bf.Volume(0), 1e-9)
	assert.InDelta(t, 0.25, bf.Volume(15), 1e-9)
	assert.InDelta(t, 0.125, bf.Volume(165), 1e-9)
	assert.InDelta(t, 0, bf.Volume(180), 1e-9)

	for _, id := range []string{"ReadingSession", "MonthlyWrapped", "YearlyWrappedSquare"} {
		env := build(t, id, nil).Audio()
		assert.InDelta(t, 0.15, env.Volume(15), 1e-9, id)
		assert.InDelta(t, 0.3, env.Volume(200), 1e-9, id)
		assert.InDelta(t, 0, env.Volume(450), 1e-9, id)
	}
}

func TestBookFinishedCover(t *testing.T) {
	in := DefaultBookFinished
	c, err := Lookup("BookFinished")
	require.NoError(t, err)

	tmpl, err := c.New(in, Assets{})
	require.NoError(t, err)
	assert.Empty(t, tmpl.Resources())
	cover, ok := tmpl.Render(60).Find("cover")
	require.True(t, ok)
	assert.Contains(t, cover.Texts(), "FRANK HERBERT")

	in.CoverURL = "https://covers.example/dune.jpg"
	img := image.NewRGBA(image.Rect(0, 0, 4, 6))
	tmpl, err = c.New(in, Assets{Cover: img})
	require.NoError(t, err)
	assert.Equal(t, []Resource{{Label: "cover", URL: in.CoverURL}}, tmpl.Resources())
	cover, _ = tmpl.Render(60).Find("cover")
	assert.Empty(t, cover.Texts())
}

func TestNewRejectsForeignProps(t *testing.T) {
	c, err := Lookup("YearlyWrapped")
	require.NoError(t, err)
	_, err = c.New(DefaultReadingSession, Assets{})
	assert.ErrorIs(t, err, ErrPropsType)

	var nilProps *YearlyWrappedInput
	_, err = c.New(nilProps, Assets{})
	assert.ErrorIs(t, err, ErrPropsType)
}

func TestCompositionForcesFormat(t *testing.T) {
	c, err := Lookup("ReadingSessionSquare")
	require.NoError(t, err)
	props := c.NewProps().(*ReadingSessionInput)
	assert.Equal(t, Square, props.Format)

	in := DefaultReadingSession
	in.Format = Story
	tmpl, err := c.New(in, Assets{})
	require.NoError(t, err)
	assert.Equal(t, SquareHeight, tmpl.Render(0).Height)
}

func TestYearlyDefaultName(t *testing.T) {
	in := DefaultYearlyWrapped()
	in.UserName = ""
	el, ok := build(t, "YearlyWrapped", in).Render(100).Find("name")
	require.True(t, ok)
	assert.Equal(t, []string{"Lecteur"}, el.Texts())
}

func TestSpringStagesSettle(t *testing.T) {
	for _, c := range Registry() {
		for _, s := range build(t, c.ID, nil).Stages() {
			if s.Kind == StageSpring {
				assert.Greater(t, s.End, s.Start, "%s %s", c.ID, s.ID)
			}
		}
	}
}

func TestReadingSessionSharedAnimations(t *testing.T) {
	tmpl := build(t, "ReadingSession", nil)

	// stat cells fade up 12px over their window
	for _, frame := range []int{75, 85, 95} {
		cell, ok := tmpl.Render(frame).Find("stat-pages")
		require.True(t, ok)
		o, y := motion.FadeUp(float64(frame), 75, 20, 12)
		assert.InDelta(t, o, cell.Opacity, 1e-9, "frame %d", frame)
		assert.InDelta(t, y, cell.TranslateY, 1e-9, "frame %d", frame)
	}

	tl := Timeline(tmpl.Stages())
	assert.Equal(t, 0.0, tl.Grow("bar", 140))
	assert.Equal(t, motion.BarGrow(160, 140, 35), tl.Grow("bar", 160))
	assert.Equal(t, 1.0, tl.Grow("bar", 175))

	glow, ok := tmpl.Render(430).Find("end-glow")
	require.True(t, ok)
	assert.InDelta(t, motion.Pulse(10, 0.06, 0.15, 0, 0.04), glow.Opacity, 1e-9)
	glow, _ = tmpl.Render(400).Find("end-glow")
	assert.Equal(t, 0.0, glow.Opacity)
}
