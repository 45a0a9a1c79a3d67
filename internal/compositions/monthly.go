package compositions

import (
	"fmt"

	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/motion"
	"github.com/acoeffic/readon/internal/particles"
	"github.com/acoeffic/readon/internal/scene"
)

// 15 s, long enough for the closing stages.
const monthlyFrames = 450

var monthEmojiSpring = motion.SpringConfig{Damping: 12, Stiffness: 200, Mass: 1, To: 1}

func monthlyTimeline(f Format) Timeline {
	common := Timeline{
		fadeStage("card", 0, 20),
		static("particles"),
		static("top-glow"),
		fadeStage("header", 5, 25),
		springStage("emoji", 15, monthEmojiSpring),
		counterStage("counters", 75, 125),
		fadeStage("end-glow", 420, 450),
	}
	if f == Square {
		return append(common,
			fadeStage("stat-time", 40, 60),
			fadeStage("stat-books", 48, 68),
			fadeStage("stat-flow", 56, 76),
			fadeStage("stat-sessions", 64, 84),
			fadeStage("book", 100, 125),
			fadeStage("flow", 110, 135),
			fadeStage("footer", 150, 170),
		)
	}
	return append(common,
		fadeStage("month", 25, 45),
		fadeStage("year", 35, 55),
		fadeStage("line", 55, 70),
		fadeStage("stat-time", 70, 90),
		fadeStage("stat-books", 80, 100),
		fadeStage("stat-flow", 90, 110),
		fadeStage("stat-sessions", 100, 120),
		fadeStage("book", 140, 165),
		fadeStage("vs", 180, 205),
		fadeStage("footer-line", 220, 240),
		fadeStage("footer", 230, 250),
	)
}

type MonthlyWrapped struct {
	in    MonthlyWrappedInput
	tl    Timeline
	theme MonthTheme
	field *particles.Field
}

func NewMonthlyWrapped(in MonthlyWrappedInput) *MonthlyWrapped {
	in.Normalize()
	theme := ThemeForMonth(in.Month)
	count := 30
	if in.Format == Square {
		count = 20
	}
	return &MonthlyWrapped{
		in:    in,
		tl:    monthlyTimeline(in.Format),
		theme: theme,
		field: particles.NewField(count, theme.Accent, MonthlySeed(in.Month, in.Year), LogicalWidth, logicalHeight(in.Format)),
	}
}

// MonthlySeed keys the particle field on the calendar month.
func MonthlySeed(month, year int) int64 {
	return int64(month*1000 + year)
}

func (m *MonthlyWrapped) Stages() []Stage { return m.tl }

func (m *MonthlyWrapped) Audio() motion.Envelope {
	return motion.NewEnvelope(0.3, 30, monthlyFrames-30, monthlyFrames)
}

func (m *MonthlyWrapped) Resources() []Resource { return nil }

type monthlyCounts struct {
	minutes, sessions, books, flow int
}

func (m *MonthlyWrapped) counts(f float64) monthlyCounts {
	c := func(v int) int { return m.tl.Count("counters", f, v) }
	return monthlyCounts{
		minutes:  c(m.in.TotalMinutes),
		sessions: c(m.in.Sessions),
		books:    c(m.in.BooksFinished),
		flow:     c(m.in.LongestFlow),
	}
}

func (m *MonthlyWrapped) Render(frame int) *scene.Tree {
	f := float64(frame)
	t := newTree(m.in.Format)
	w, h := t.Width, t.Height
	accent := m.theme.Accent

	cy, glowH := 0.25, 180.0
	if m.in.Format == Square {
		cy, glowH = 0.35, 100
	}
	bg := scene.Radial(0.5, cy, 1.2, 1.2, stop(0, tint(m.theme.Gradient[1], 1)), stop(1, tint(m.theme.Gradient[0], 1)))
	t.Add(
		card(w, h, bg, tintByte(accent, 0x14)),
		m.field.Element("particles", f),
		topGlow(w, glowH, tintByte(accent, 0x1A)),
		endGlow(w, h, accent, f, 420, 0.04, 0.03),
	)
	if m.in.Format == Square {
		m.square(t, f)
	} else {
		m.story(t, f)
	}
	fadeAll(t, m.tl.Opacity("card", f))
	return t
}

func (m *MonthlyWrapped) cells(c monthlyCounts) []statCell {
	return []statCell{
		{"stat-time", "⏱️", FormatClock(c.minutes), "LECTURE"},
		{"stat-books", "📚", fmt.Sprint(c.books), "LIVRES"},
		{"stat-flow", "🔥", fmt.Sprintf("%dj", c.flow), "FLOW"},
		{"stat-sessions", "🎯", fmt.Sprint(c.sessions), "SESSIONS"},
	}
}

func (m *MonthlyWrapped) story(t *scene.Tree, f float64) {
	tl, in, accent := m.tl, m.in, m.theme.Accent
	cx := t.Width / 2

	t.Add(reveal(tl, "header", f,
		scene.Text(cx, 41, "LEXDAY WRAPPED", tracked(style(fonts.Inter, 9, 500, tintByte(accent, 0x80)), 5))))

	s := springAt(f, 15, monthEmojiSpring)
	t.Add(scene.NewElement("emoji", emoji(cx, 76, 36, m.theme.Emoji)).Scaled(s, scene.Point{X: cx, Y: 76}))

	t.Add(reveal(tl, "month", f, scene.Text(cx, 126, MonthName(in.Month), style(fonts.Poppins, 40, 700, tint(accent, 1)))).
		Scaled(tl.Lerp("month", f, 0.8, 1), scene.Point{X: cx, Y: 126}))
	t.Add(reveal(tl, "year", f, scene.Text(cx, 160, fmt.Sprint(in.Year), style(fonts.Inter, 14, 400, white(0.3)))))

	t.Add(scene.NewElement("line", accentLine(cx, 184, tl.Lerp("line", f, 0, 50), tintByte(accent, 0x80))))

	look := statLook{
		emojiSize: 18,
		value:     style(fonts.Poppins, 20, 700, tint(accent, 1)),
		label:     tracked(style(fonts.Inter, 8, 500, white(0.3)), 1),
		valueDY:   26,
		labelDY:   19,
	}
	const cellW, cellH, gap, gridTop = 151.0, 86.0, 10.0, 208.0
	for i, c := range m.cells(m.counts(f)) {
		x := 24 + float64(i%2)*(cellW+gap)
		top := gridTop + float64(i/2)*(cellH+gap)
		box := scene.Box(x, top, cellW, cellH).Rounded(14).Filled(white(0.04)).Stroked(white(0.06), 1)
		t.Add(rise(tl, c.id, f, 12, c.shapes(x+cellW/2, top+12, look, box)...))
	}

	if b := in.TopBook; b != nil {
		const top, h = 406.0, 58.0
		grad := scene.Linear(90, stop(0, tintByte(accent, 0x0F)), stop(1, clearOf(tint(accent, 1))))
		book := scene.NewElement("book",
			scene.Box(24, top, t.Width-48, h).Rounded(14).Painted(grad).Stroked(tintByte(accent, 0x14), 1),
			emoji(53, top+h/2, 26, "📖"),
			scene.Text(78, top+13, "LIVRE DU MOIS", leftAligned(tracked(style(fonts.Inter, 7, 600, white(0.3)), 2))),
			scene.Text(78, top+29, b.Title, maxWidth(leftAligned(style(fonts.Poppins, 15, 600, tint(accent, 1))), 240)),
			scene.Text(78, top+45, b.Author+" • "+FormatClock(b.TotalMinutes),
				maxWidth(leftAligned(style(fonts.Inter, 9, 400, white(0.35))), 240)),
		)
		t.Add(book.Fade(tl.Opacity("book", f)).Move(0, tl.Lerp("book", f, 15, 0)))
	}

	if in.VsLastMonthPercent != 0 {
		const top, h = 478.0, 38.0
		vc := white(0.4)
		if in.VsLastMonthPercent > 0 {
			vc = tint(accent, 1)
		}
		t.Add(reveal(tl, "vs", f,
			scene.Box(60, top, t.Width-120, h).Rounded(12).Filled(white(0.03)),
			scene.Text(cx-3, top+h/2, VsLastMonth(in.VsLastMonthPercent), rightAligned(style(fonts.Poppins, 14, 700, vc))),
			scene.Text(cx+3, top+h/2, "vs "+PreviousMonthName(in.Month), leftAligned(style(fonts.Inter, 11, 400, white(0.3)))),
		))
	}

	t.Add(scene.NewElement("footer-line", accentLine(cx, 585, tl.Lerp("footer-line", f, 0, 30), tintByte(accent, 0x40))))
	t.Add(reveal(tl, "footer", f,
		scene.Text(cx, 598, "LEXDAY", tracked(style(fonts.Inter, 9, 500, tintByte(accent, 0x40)), 3))))
}

func (m *MonthlyWrapped) square(t *scene.Tree, f float64) {
	tl, in, accent := m.tl, m.in, m.theme.Accent
	counts := m.counts(f)

	t.Add(reveal(tl, "header", f,
		scene.Text(24, 30, "WRAPPED", leftAligned(tracked(style(fonts.Inter, 8, 600, tintByte(accent, 0x66)), 4))),
		scene.Text(56, 56, MonthName(in.Month), leftAligned(style(fonts.Poppins, 28, 700, tint(accent, 1)))),
		scene.Text(t.Width-24, 56, fmt.Sprint(in.Year), rightAligned(style(fonts.Inter, 14, 400, white(0.3)))),
	))
	s := springAt(f, 15, monthEmojiSpring)
	t.Add(scene.NewElement("emoji", emoji(38, 56, 24, m.theme.Emoji)).
		Scaled(s, scene.Point{X: 38, Y: 56}).
		Fade(tl.Opacity("header", f)))

	look := statLook{
		emojiSize: 14,
		value:     style(fonts.Poppins, 15, 700, tint(accent, 1)),
		label:     tracked(style(fonts.Inter, 7, 500, white(0.25)), 1),
		valueDY:   22,
		labelDY:   15,
	}
	const boxW, boxH, top = 72.0, 71.0, 92.0
	for i, c := range m.cells(counts) {
		x := 24 + float64(i)*78 + 3
		box := scene.Box(x, top, boxW, boxH).Rounded(12).Filled(white(0.04)).Stroked(white(0.06), 1)
		t.Add(rise(tl, c.id, f, 8, c.shapes(x+boxW/2, top+10, look, box)...))
	}

	const rowTop, rowH = 177.0, 119.0
	flowX, flowW := 24.0, t.Width-48
	if b := in.TopBook; b != nil {
		const bookW = 181.0
		grad := scene.Linear(135, stop(0, tintByte(accent, 0x0F)), stop(1, clearOf(tint(accent, 1))))
		t.Add(rise(tl, "book", f, 10,
			scene.Box(24, rowTop, bookW, rowH).Rounded(14).Painted(grad).Stroked(tintByte(accent, 0x14), 1),
			scene.Text(38, rowTop+38, "LIVRE DU MOIS", leftAligned(tracked(style(fonts.Inter, 7, 600, white(0.3)), 2))),
			emoji(49, rowTop+63, 22, "📖"),
			scene.Text(68, rowTop+56, b.Title, maxWidth(leftAligned(style(fonts.Poppins, 14, 600, tint(accent, 1))), bookW-58)),
			scene.Text(68, rowTop+73, b.Author, maxWidth(leftAligned(style(fonts.Inter, 9, 400, white(0.35))), bookW-58)),
		))
		flowX, flowW = 24+bookW+10, t.Width-48-bookW-10
	}
	mid := flowX + flowW/2
	label := tracked(style(fonts.Inter, 8, 500, white(0.3)), 1)
	t.Add(rise(tl, "flow", f, 10,
		scene.Box(flowX, rowTop, flowW, rowH).Rounded(14).Filled(white(0.03)),
		scene.Text(mid, rowTop+48, fmt.Sprintf("%dj", counts.flow), style(fonts.Poppins, 28, 700, tint(accent, 1))),
		scene.Text(mid, rowTop+74, "MEILLEUR", label),
		scene.Text(mid, rowTop+85, "FLOW", label),
	))

	t.Add(reveal(tl, "footer", f,
		scene.Box(24, 306, t.Width-48, 1).Filled(white(0.05)),
		scene.Text(t.Width/2, 325, "LEXDAY — STRAVA FOR BOOKS", tracked(style(fonts.Inter, 8, 500, tintByte(accent, 0x40)), 4)),
	))
}
