package compositions

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/motion"
	"github.com/acoeffic/readon/internal/particles"
	"github.com/acoeffic/readon/internal/prng"
	"github.com/acoeffic/readon/internal/scene"
)

const yearlyFrames = 450

var badgeSpring = motion.SpringConfig{Damping: 12, Stiffness: 180, Mass: 1, To: 1}

func yearlyTimeline(f Format) Timeline {
	common := Timeline{
		fadeStage("card", 0, 20),
		static("particles"),
		static("top-glow"),
		fadeStage("header", 5, 25),
		counterStage("counters", 120, 175),
		fadeStage("end-glow", 420, 450),
	}
	if f == Square {
		return append(common,
			fadeStage("stat-time", 50, 70),
			fadeStage("stat-books", 58, 78),
			fadeStage("stat-flow", 66, 86),
			fadeStage("stat-rank", 74, 94),
			fadeStage("book", 110, 135),
			fadeStage("sessions", 120, 145),
			fadeStage("footer", 160, 180),
		)
	}
	return append(common,
		fadeStage("year", 15, 45),
		fadeStage("line", 55, 70),
		fadeStage("name", 70, 90),
		springStage("badge", 85, badgeSpring),
		fadeStage("stat-time", 115, 140),
		fadeStage("stat-books", 125, 150),
		fadeStage("stat-flow", 135, 160),
		fadeStage("stat-rank", 145, 170),
		fadeStage("book", 185, 210),
		fadeStage("footer-line", 220, 240),
		fadeStage("footer", 230, 250),
	)
}

type YearlyWrapped struct {
	in    YearlyWrappedInput
	tl    Timeline
	field *particles.Field
}

func NewYearlyWrapped(in YearlyWrappedInput) *YearlyWrapped {
	in.Normalize()
	count := 40
	if in.Format == Square {
		count = 25
	}
	return &YearlyWrapped{
		in:    in,
		tl:    yearlyTimeline(in.Format),
		field: particles.NewField(count, YearlyColors.Gold, prng.SumSeed(in.Name()), LogicalWidth, logicalHeight(in.Format)),
	}
}

func (y *YearlyWrapped) Stages() []Stage { return y.tl }

func (y *YearlyWrapped) Audio() motion.Envelope {
	return motion.NewEnvelope(0.3, 30, yearlyFrames-30, yearlyFrames)
}

func (y *YearlyWrapped) Resources() []Resource { return nil }

type yearlyCounts struct {
	hours, books, flow, sessions, rank int
}

func (y *YearlyWrapped) counts(f float64) yearlyCounts {
	c := func(v int) int { return y.tl.Count("counters", f, v) }
	return yearlyCounts{
		hours:    c(y.in.TotalMinutes / 60),
		books:    c(y.in.BooksFinished),
		flow:     c(y.in.BestFlow),
		sessions: c(y.in.TotalSessions),
		rank:     c(y.in.PercentileRank),
	}
}

func goldGradient() scene.Paint {
	return scene.Linear(180, stop(0, tint(YearlyColors.Cream, 1)), stop(1, tint(YearlyColors.Gold, 1)))
}

func (y *YearlyWrapped) Render(frame int) *scene.Tree {
	f := float64(frame)
	t := newTree(y.in.Format)
	w, h := t.Width, t.Height
	gold := YearlyColors.Gold

	cy, glowH, glowA := 0.2, 200.0, uint8(0x26)
	if y.in.Format == Square {
		cy, glowH, glowA = 0.3, 120, 0x1F
	}
	bg := scene.Radial(0.5, cy, 1.2, 1.2, stop(0, tint(YearlyColors.GlowCenter, 1)), stop(1, tint(YearlyColors.DeepBg, 1)))
	t.Add(
		card(w, h, bg, tintByte(gold, 0x0F)),
		y.field.Element("particles", f),
		topGlow(w, glowH, tintByte(YearlyColors.Bordeaux, glowA)),
		endGlow(w, h, gold, f, 420, 0.04, 0.03),
	)
	if y.in.Format == Square {
		y.square(t, f)
	} else {
		y.story(t, f)
	}
	fadeAll(t, y.tl.Opacity("card", f))
	return t
}

func (y *YearlyWrapped) story(t *scene.Tree, f float64) {
	tl, in, gold := y.tl, y.in, YearlyColors.Gold
	cx := t.Width / 2
	c := y.counts(f)

	t.Add(reveal(tl, "header", f,
		scene.Text(cx, 41, "LEXDAY WRAPPED", tracked(style(fonts.JetBrainsMono, 9, 400, tintByte(gold, 0x66)), 5))))

	t.Add(reveal(tl, "year", f,
		scene.Text(cx, 90, fmt.Sprint(in.Year), filledWith(style(fonts.LibreBaskerville, 56, 700, tint(gold, 1)), goldGradient()))).
		Scaled(tl.Lerp("year", f, 0.85, 1), scene.Point{X: cx, Y: 90}))

	t.Add(scene.NewElement("line", accentLine(cx, 140, tl.Lerp("line", f, 0, 60), tintByte(gold, 0x80))))

	t.Add(reveal(tl, "name", f,
		scene.Text(cx, 174, in.Name(), maxWidth(style(fonts.LibreBaskerville, 22, 400, white(1)), 312))).
		Move(0, tl.Lerp("name", f, 10, 0)))

	// pill width follows the monospace badge text
	pillW := 16*2 + 16 + 8 + float64(utf8.RuneCountInString(in.ReaderType))*6.6
	pillW = math.Min(pillW, t.Width-48)
	grad := scene.Linear(90, stop(0, tintByte(YearlyColors.Bordeaux, 0x38)), stop(1, tintByte(gold, 0x1A)))
	bs := springAt(f, 85, badgeSpring)
	left := cx - pillW/2
	t.Add(scene.NewElement("badge",
		scene.Box(left, 198, pillW, 34).Rounded(17).Painted(grad).Stroked(tintByte(gold, 0x1F), 1),
		emoji(left+24, 215, 16, in.ReaderEmoji),
		scene.Text(left+40, 215, in.ReaderType, leftAligned(style(fonts.JetBrainsMono, 11, 400, tint(gold, 1)))),
	).Scaled(bs, scene.Point{X: cx, Y: 215}).Fade(math.Min(bs, 1)))

	look := statLook{
		emojiSize: 20,
		value:     filledWith(style(fonts.LibreBaskerville, 20, 700, tint(gold, 1)), goldGradient()),
		label:     tracked(style(fonts.JetBrainsMono, 8, 400, white(0.3)), 1),
		valueDY:   32,
		labelDY:   19,
	}
	cells := []statCell{
		{"stat-time", "⏱️", fmt.Sprintf("%dh", c.hours), "LECTURE"},
		{"stat-books", "📚", fmt.Sprint(c.books), "LIVRES"},
		{"stat-flow", "🔥", fmt.Sprintf("%dj", c.flow), "FLOW"},
		{"stat-rank", "🏆", fmt.Sprintf("Top %d%%", c.rank), "CLASSEMENT"},
	}
	const cellW, cellH, gap, gridTop = 151.0, 100.0, 10.0, 254.0
	for i, cell := range cells {
		x := 24 + float64(i%2)*(cellW+gap)
		top := gridTop + float64(i/2)*(cellH+gap)
		box := scene.Box(x, top, cellW, cellH).Rounded(14).Filled(white(0.03)).Stroked(white(0.05), 1)
		t.Add(rise(tl, cell.id, f, 12, cell.shapes(x+cellW/2, top+14, look, box)...))
	}

	if b := in.TopBook(); b != nil {
		const top, h = 480.0, 60.0
		bg := scene.Linear(90, stop(0, tintByte(gold, 0x0D)), stop(1, clearOf(tint(gold, 1))))
		book := scene.NewElement("book",
			scene.Box(24, top, t.Width-48, h).Rounded(14).Painted(bg).Stroked(tintByte(gold, 0x12), 1),
			emoji(56, top+h/2, 28, "📖"),
			scene.Text(84, top+16, "LIVRE DE L'ANNEE", leftAligned(tracked(style(fonts.JetBrainsMono, 7, 400, white(0.3)), 2))),
			scene.Text(84, top+32, b.Title, maxWidth(leftAligned(style(fonts.LibreBaskerville, 16, 700, tint(gold, 1))), 236)),
			scene.Text(84, top+48, b.Author, maxWidth(leftAligned(style(fonts.JetBrainsMono, 9, 400, white(0.35))), 236)),
		)
		t.Add(book.Fade(tl.Opacity("book", f)).Move(0, tl.Lerp("book", f, 12, 0)))
	}

	t.Add(scene.NewElement("footer-line", accentLine(cx, 585, tl.Lerp("footer-line", f, 0, 30), tintByte(gold, 0x80))))
	t.Add(reveal(tl, "footer", f,
		scene.Text(cx, 598, "LEXDAY", tracked(style(fonts.JetBrainsMono, 9, 400, tintByte(gold, 0x40)), 3))))
}

func (y *YearlyWrapped) square(t *scene.Tree, f float64) {
	tl, in, gold := y.tl, y.in, YearlyColors.Gold
	c := y.counts(f)
	right := t.Width - 24

	badge := ShortBadge(in.ReaderType)
	badgeW := float64(utf8.RuneCountInString(badge)) * 5.4
	t.Add(reveal(tl, "header", f,
		scene.Text(24, 30, "WRAPPED", leftAligned(tracked(style(fonts.JetBrainsMono, 8, 400, tintByte(gold, 0x59)), 4))),
		scene.Text(24, 62, fmt.Sprint(in.Year), filledWith(leftAligned(style(fonts.LibreBaskerville, 40, 700, tint(gold, 1))), goldGradient())),
		scene.Text(right, 40, in.Name(), maxWidth(rightAligned(style(fonts.LibreBaskerville, 18, 400, white(1))), 180)),
		scene.Text(right, 62, badge, rightAligned(style(fonts.JetBrainsMono, 9, 400, tintByte(gold, 0x80)))),
		emoji(right-badgeW-10, 62, 12, in.ReaderEmoji),
	))

	look := statLook{
		emojiSize: 16,
		value:     style(fonts.LibreBaskerville, 16, 700, tint(gold, 1)),
		label:     tracked(style(fonts.JetBrainsMono, 7, 400, white(0.25)), 1),
		valueDY:   24,
		labelDY:   16,
	}
	cells := []statCell{
		{"stat-time", "⏱️", fmt.Sprintf("%dh", c.hours), "LECTURE"},
		{"stat-books", "📚", fmt.Sprint(c.books), "LIVRES"},
		{"stat-flow", "🔥", fmt.Sprintf("%dj", c.flow), "FLOW"},
		{"stat-rank", "🏆", fmt.Sprintf("Top %d%%", c.rank), "TOP"},
	}
	const boxW, boxH, top = 72.0, 73.0, 98.0
	for i, cell := range cells {
		x := 24 + float64(i)*78 + 3
		box := scene.Box(x, top, boxW, boxH).Rounded(12).Filled(white(0.03)).Stroked(white(0.05), 1)
		t.Add(rise(tl, cell.id, f, 8, cell.shapes(x+boxW/2, top+10, look, box)...))
	}

	const rowTop, rowH = 185.0, 111.0
	boxX, boxWd := 24.0, t.Width-48
	if b := in.TopBook(); b != nil {
		const bookW = 181.0
		bg := scene.Linear(135, stop(0, tintByte(gold, 0x0D)), stop(1, clearOf(tint(gold, 1))))
		t.Add(rise(tl, "book", f, 10,
			scene.Box(24, rowTop, bookW, rowH).Rounded(14).Painted(bg).Stroked(tintByte(gold, 0x12), 1),
			scene.Text(38, rowTop+34, "LIVRE DE L'ANNEE", leftAligned(tracked(style(fonts.JetBrainsMono, 7, 400, white(0.3)), 2))),
			emoji(50, rowTop+62, 24, "📖"),
			scene.Text(70, rowTop+55, b.Title, maxWidth(leftAligned(style(fonts.LibreBaskerville, 15, 700, tint(gold, 1))), bookW-60)),
			scene.Text(70, rowTop+72, b.Author, maxWidth(leftAligned(style(fonts.JetBrainsMono, 9, 400, white(0.35))), bookW-60)),
		))
		boxX, boxWd = 24+bookW+10, t.Width-48-bookW-10
	}
	mid := boxX + boxWd/2
	t.Add(rise(tl, "sessions", f, 10,
		scene.Box(boxX, rowTop, boxWd, rowH).Rounded(14).Filled(white(0.02)),
		scene.Text(mid, rowTop+48, FormatThousands(c.sessions), style(fonts.LibreBaskerville, 28, 700, white(1))),
		scene.Text(mid, rowTop+74, "SESSIONS", tracked(style(fonts.JetBrainsMono, 8, 400, white(0.3)), 1)),
	))

	t.Add(reveal(tl, "footer", f,
		scene.Box(24, 306, t.Width-48, 1).Filled(white(0.05)),
		scene.Text(t.Width/2, 326, "LEXDAY — STRAVA FOR BOOKS", tracked(style(fonts.JetBrainsMono, 8, 400, tintByte(gold, 0x38)), 4)),
	))
}
