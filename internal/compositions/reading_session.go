package compositions

import (
	"fmt"

	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/motion"
	"github.com/acoeffic/readon/internal/particles"
	"github.com/acoeffic/readon/internal/prng"
	"github.com/acoeffic/readon/internal/scene"
)

// 15 s, long enough for the 420-450 fade-out and end glow.
const readingSessionFrames = 450

var sessionEmojiSpring = motion.SpringConfig{Damping: 12, Stiffness: 200, Mass: 1, To: 1}

func readingSessionTimeline(f Format) Timeline {
	common := Timeline{
		fadeStage("card", 0, 20),
		static("particles"),
		static("top-glow"),
		springStage("emoji", 20, sessionEmojiSpring),
		counterStage("counters", 80, 130),
		fadeStage("end-glow", 420, 450),
	}
	if f == Square {
		return append(common,
			fadeStage("header", 10, 30),
			fadeStage("line", 40, 60),
			fadeStage("stat-pages", 65, 85),
			fadeStage("stat-duration", 70, 90),
			fadeStage("stat-pace", 75, 95),
			fadeStage("stat-progress", 80, 100),
			fadeStage("footer", 140, 160),
		)
	}
	return append(common,
		fadeStage("header", 10, 30),
		fadeStage("line", 30, 50),
		fadeStage("title", 40, 60),
		fadeStage("author", 50, 70),
		fadeStage("stat-pages", 75, 95),
		fadeStage("stat-duration", 80, 100),
		fadeStage("stat-pace", 85, 105),
		fadeStage("stat-progress", 90, 110),
		fadeStage("divider", 75, 95),
		fadeStage("progress", 130, 150),
		counterStage("bar", 140, 175),
		fadeStage("footer-line", 180, 200),
		fadeStage("footer", 190, 210),
	)
}

type ReadingSession struct {
	in    ReadingSessionInput
	tl    Timeline
	field *particles.Field
}

func NewReadingSession(in ReadingSessionInput) *ReadingSession {
	in.Normalize()
	h := logicalHeight(in.Format)
	return &ReadingSession{
		in:    in,
		tl:    readingSessionTimeline(in.Format),
		field: particles.NewField(35, SessionColors.Accent, prng.SumSeed(in.BookTitle), LogicalWidth, h),
	}
}

func (r *ReadingSession) Stages() []Stage { return r.tl }

func (r *ReadingSession) Audio() motion.Envelope {
	return motion.NewEnvelope(0.3, 30, readingSessionFrames-30, readingSessionFrames)
}

func (r *ReadingSession) Resources() []Resource { return nil }

func (r *ReadingSession) Render(frame int) *scene.Tree {
	f := float64(frame)
	t := newTree(r.in.Format)
	w, h := t.Width, t.Height
	accent := SessionColors.Accent

	bg := scene.Radial(0.5, 0.2, 1.2, 1.2, stop(0, tint(SessionColors.GlowCenter, 1)), stop(1, tint(SessionColors.Dark, 1)))
	t.Add(
		card(w, h, bg, tintByte(accent, 0x0F)),
		r.field.Element("particles", f),
		topGlow(w, 200, tintByte(accent, 0x1F)),
		endGlow(w, h, accent, f, 420, 0.06, 0.04),
	)

	if r.in.Format == Square {
		r.square(t, f)
	} else {
		r.story(t, f)
	}
	fadeAll(t, r.tl.Opacity("card", f))
	return t
}

func (r *ReadingSession) stats(f float64) (pages, duration string) {
	return fmt.Sprint(r.tl.Count("counters", f, r.in.PagesRead)),
		FormatDuration(r.tl.Count("counters", f, r.in.DurationMinutes))
}

func (r *ReadingSession) story(t *scene.Tree, f float64) {
	tl, in := r.tl, r.in
	accent := SessionColors.Accent
	cx := t.Width / 2

	t.Add(reveal(tl, "header", f,
		scene.Text(cx, 34, "SESSION DE LECTURE", tracked(style(fonts.JetBrainsMono, 9, 400, tintByte(accent, 0x80)), 5))))

	s := springAt(f, 20, sessionEmojiSpring)
	t.Add(scene.NewElement("emoji", emoji(cx, 80, 32, "📚")).Scaled(s, scene.Point{X: cx, Y: 80}))

	t.Add(scene.NewElement("line", accentLine(cx, 110, tl.Lerp("line", f, 0, 60), tintByte(accent, 0x80))))

	title := scene.NewElement("title",
		scene.Text(cx, 137, in.BookTitle, maxWidth(style(fonts.LibreBaskerville, 20, 700, white(1)), 310)))
	t.Add(title.Fade(tl.Opacity("title", f)).Move(0, tl.Lerp("title", f, 15, 0)))

	if in.BookAuthor != "" {
		t.Add(reveal(tl, "author", f,
			scene.Text(cx, 165, in.BookAuthor, maxWidth(italic(style(fonts.LibreBaskerville, 12, 400, white(0.5))), 310))))
	}

	pages, duration := r.stats(f)
	look := statLook{
		emojiSize: 16,
		value:     style(fonts.JetBrainsMono, 14, 700, white(1)),
		label:     style(fonts.JetBrainsMono, 9, 400, white(0.35)),
		valueDY:   20,
		labelDY:   16,
	}
	left, right := 102.0, 258.0
	cells := []struct {
		statCell
		x, y float64
	}{
		{statCell{"stat-pages", "📖", pages, "pages"}, left, 185},
		{statCell{"stat-pace", "⚡", FormatPace(in.PagesRead, in.DurationMinutes), "rythme"}, left, 251},
		{statCell{"stat-duration", "⏱️", duration, "de lecture"}, right, 185},
		{statCell{"stat-progress", "📌", fmt.Sprintf("p.%d→%d", in.StartPage, in.EndPage), "progression"}, right, 251},
	}
	for _, c := range cells {
		t.Add(rise(tl, c.id, f, 12, c.shapes(c.x, c.y, look)...))
	}
	t.Add(reveal(tl, "divider", f, scene.Box(cx-0.5, 206, 1, 80).Filled(tintByte(accent, 0x14))))

	// progress box
	fill := tl.Grow("bar", f)
	const boxTop, boxH, trackL, trackR = 323.0, 36.0, 100.0, 260.0
	mid := boxTop + boxH/2
	mono := style(fonts.JetBrainsMono, 12, 400, white(0.5))
	shapes := []scene.Shape{
		scene.Box(24, boxTop, t.Width-48, boxH).Rounded(14).Filled(white(0.04)),
		scene.Text(40, mid, fmt.Sprintf("Page %d", in.StartPage), leftAligned(mono)),
		scene.Box(trackL, mid-1.5, trackR-trackL, 3).Rounded(1.5).Filled(white(0.08)),
	}
	if fill > 0 {
		grad := scene.Linear(90, stop(0, tintByte(accent, 0x4D)), stop(1, tint(accent, 1)))
		shapes = append(shapes, scene.Box(trackL, mid-1.5, (trackR-trackL)*fill, 3).Rounded(1.5).Painted(grad))
	}
	end := rightAligned(style(fonts.JetBrainsMono, 12, 600, white(1)))
	shapes = append(shapes, scene.Text(t.Width-40, mid, fmt.Sprintf("Page %d", in.EndPage), end).
		WithOpacity(motion.Anim(fill, 0.5, 1, 0, 1)))
	t.Add(reveal(tl, "progress", f, shapes...))

	t.Add(scene.NewElement("footer-line", plainLine(cx, 594, tl.Lerp("footer-line", f, 0, 30), tintByte(accent, 0x40))))
	t.Add(reveal(tl, "footer", f,
		scene.Text(cx, 606, "LEXDAY", tracked(style(fonts.JetBrainsMono, 9, 400, tintByte(accent, 0x40)), 3))))
}

func (r *ReadingSession) square(t *scene.Tree, f float64) {
	tl, in := r.tl, r.in
	accent := SessionColors.Accent
	cx := t.Width / 2

	header := []scene.Shape{
		scene.Text(100, 34, in.BookTitle, maxWidth(leftAligned(style(fonts.LibreBaskerville, 16, 700, white(1))), 236)),
	}
	if in.BookAuthor != "" {
		header = append(header,
			scene.Text(100, 56, in.BookAuthor, maxWidth(leftAligned(italic(style(fonts.LibreBaskerville, 11, 400, white(0.5)))), 236)))
	}
	t.Add(reveal(tl, "header", f, header...))

	s := springAt(f, 20, sessionEmojiSpring)
	t.Add(scene.NewElement("emoji", emoji(58, 44, 28, "📚")).
		Scaled(s, scene.Point{X: 58, Y: 44}).
		Fade(tl.Opacity("header", f)))

	t.Add(scene.NewElement("line", accentLine(cx, 88, tl.Lerp("line", f, 0, 40), tintByte(accent, 0x80))))

	pages, duration := r.stats(f)
	look := statLook{
		emojiSize: 16,
		value:     style(fonts.JetBrainsMono, 13, 700, white(1)),
		label:     style(fonts.JetBrainsMono, 8, 400, white(0.3)),
		valueDY:   22,
		labelDY:   16,
	}
	cells := []statCell{
		{"stat-pages", "📖", pages, "pages"},
		{"stat-duration", "⏱️", duration, "duree"},
		{"stat-pace", "⚡", FormatPace(in.PagesRead, in.DurationMinutes), "rythme"},
		{"stat-progress", "📌", fmt.Sprintf("%d→%d", in.StartPage, in.EndPage), "pages"},
	}
	colW := (t.Width - 48) / float64(len(cells))
	for i, c := range cells {
		x := 24 + colW*(float64(i)+0.5)
		t.Add(rise(tl, c.id, f, 10, c.shapes(x, 150, look)...))
	}

	t.Add(reveal(tl, "footer", f,
		scene.Text(cx, 331, "LEXDAY", tracked(style(fonts.JetBrainsMono, 8, 400, tintByte(accent, 0x40)), 3))))
}
