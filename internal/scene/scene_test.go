package scene

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeLookup(t *testing.T) {
	tr := New(360, 640, 3)
	tr.Add(
		NewElement("header", Text(180, 40, "SESSION DE LECTURE", TextStyle{Size: 10})),
		NewElement("title").Fade(0),
	)

	ids := tr.IDs()
	assert.Equal(t, []string{"header", "title"}, ids)

	e, ok := tr.Find("header")
	require.True(t, ok)
	assert.Equal(t, []string{"SESSION DE LECTURE"}, e.Texts())

	assert.True(t, tr.Visible("header"))
	assert.False(t, tr.Visible("title"))
	assert.False(t, tr.Visible("missing"))

	w, h := tr.PixelSize()
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1920, h)
}

func TestShapeBuilders(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	c := Circle(10, 20, 5).Filled(red).WithOpacity(0.5)
	assert.Equal(t, KindCircle, c.Kind)
	require.NotNil(t, c.Fill)
	assert.Equal(t, red, c.Fill.Color)
	assert.Equal(t, 0.5, c.Opacity)

	l := Line(0, 0, 10, 10).Stroked(red, 0.5)
	assert.Equal(t, 0.5, l.Width)
	assert.Len(t, l.Points, 2)
	assert.Equal(t, "line", l.Kind.String())

	r := Box(0, 0, 10, 10).Rounded(3)
	assert.Equal(t, 3.0, r.Radius)
	assert.False(t, r.Box.Empty())
	assert.True(t, Rect{}.Empty())
}

func TestElementTransforms(t *testing.T) {
	e := NewElement("cover").Move(0, 10).Move(5, 0).Scaled(0.8, Point{X: 180, Y: 200})
	assert.Equal(t, 5.0, e.TranslateX)
	assert.Equal(t, 10.0, e.TranslateY)
	assert.Equal(t, 0.8, e.Scale)
	assert.Equal(t, 1.0, e.Opacity)
}

func TestWrapWords(t *testing.T) {
	assert.Nil(t, WrapWords("", 10, 2))
	assert.Equal(t, []string{"short text"}, WrapWords("short text", 20, 2))
	assert.Equal(t, []string{"one two", "three four five six"}, WrapWords("one two three four five six", 8, 2))
	assert.Equal(t, []string{"one two three"}, WrapWords("one two three", 3, 1))
}
