package renderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acoeffic/readon/internal/compositions"
	"github.com/acoeffic/readon/internal/fonts"
	"github.com/acoeffic/readon/internal/scene"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

func newRasterizer(t *testing.T) *Rasterizer {
	t.Helper()
	r := NewRasterizer(fonts.New(fonts.Options{}))
	t.Cleanup(r.Close)
	return r
}

func drawTree(t *testing.T, tree *scene.Tree) *image.RGBA {
	t.Helper()
	w, h := tree.PixelSize()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	newRasterizer(t).Draw(tree, dst)
	return dst
}

func rgba(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestSolidShapes(t *testing.T) {
	tree := scene.New(100, 100, 1)
	tree.Fill(scene.SolidPaint(black))
	tree.Add(
		scene.NewElement("box", scene.Box(10, 10, 30, 30).Filled(red)),
		scene.NewElement("dot", scene.Circle(70, 70, 10).Filled(blue)),
	)
	img := drawTree(t, tree)

	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgba(img, 25, 25))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, rgba(img, 70, 70))
	assert.Equal(t, color.RGBA{A: 255}, rgba(img, 5, 5))
	assert.Equal(t, color.RGBA{A: 255}, rgba(img, 70, 85))
}

func TestScaleMapsLogicalToPixels(t *testing.T) {
	tree := scene.New(10, 10, 3)
	tree.Add(scene.NewElement("box", scene.Box(2, 2, 2, 2).Filled(red)))
	img := drawTree(t, tree)

	assert.Equal(t, image.Rect(0, 0, 30, 30), img.Bounds())
	assert.Equal(t, uint8(255), rgba(img, 9, 9).R)
	assert.Equal(t, uint8(0), rgba(img, 13, 13).A)
}

func TestStrokedCircleLeavesCentre(t *testing.T) {
	tree := scene.New(100, 100, 1)
	tree.Add(scene.NewElement("ring", scene.Circle(50, 50, 30).Stroked(red, 4)))
	img := drawTree(t, tree)

	assert.Equal(t, uint8(0), rgba(img, 50, 50).A)
	assert.Equal(t, uint8(255), rgba(img, 80, 50).R)
}

func TestRoundedStrokeKeepsInterior(t *testing.T) {
	tree := scene.New(100, 100, 1)
	tree.Add(scene.NewElement("card", scene.Box(10, 10, 80, 80).Rounded(12).Stroked(blue, 2)))
	img := drawTree(t, tree)

	assert.Equal(t, uint8(0), rgba(img, 50, 50).A)
	assert.Equal(t, uint8(255), rgba(img, 50, 10).B)
	// the rounded corner stays empty
	assert.Equal(t, uint8(0), rgba(img, 11, 11).A)
}

func TestLinearGradient(t *testing.T) {
	tree := scene.New(100, 10, 1)
	tree.Add(scene.NewElement("bar", scene.Box(0, 0, 100, 10).Painted(scene.Linear(90,
		scene.Stop{Offset: 0, Color: red},
		scene.Stop{Offset: 1, Color: blue},
	))))
	img := drawTree(t, tree)

	left, right := rgba(img, 1, 5), rgba(img, 98, 5)
	assert.Greater(t, left.R, left.B)
	assert.Greater(t, right.B, right.R)
}

func TestRadialGradientFadesOut(t *testing.T) {
	tree := scene.New(100, 100, 1)
	tree.Add(scene.NewElement("glow", scene.Box(0, 0, 100, 100).Painted(scene.Radial(0.5, 0.5, 0.5, 0.5,
		scene.Stop{Offset: 0, Color: red},
		scene.Stop{Offset: 1, Color: color.NRGBA{R: 255}},
	))))
	img := drawTree(t, tree)

	assert.Greater(t, rgba(img, 50, 50).A, uint8(240))
	assert.Equal(t, uint8(0), rgba(img, 1, 1).A)
}

func TestOpacityAndHiddenElements(t *testing.T) {
	tree := scene.New(20, 20, 1)
	tree.Add(
		scene.NewElement("half", scene.Box(0, 0, 10, 20).Filled(red)).Fade(0.5),
		scene.NewElement("gone", scene.Box(10, 0, 10, 20).Filled(red)).Fade(0),
		scene.NewElement("spring", scene.Box(10, 0, 10, 20).Filled(blue)).Scaled(0, scene.Point{X: 15, Y: 10}),
	)
	img := drawTree(t, tree)

	assert.InDelta(t, 128, int(rgba(img, 5, 10).A), 2)
	assert.Equal(t, uint8(0), rgba(img, 15, 10).A)
}

func TestElementTransform(t *testing.T) {
	tree := scene.New(100, 100, 1)
	tree.Add(scene.NewElement("moved", scene.Box(0, 0, 10, 10).Filled(red)).Move(50, 50))
	tree.Add(scene.NewElement("grown", scene.Box(10, 80, 10, 10).Filled(blue)).Scaled(2, scene.Point{X: 15, Y: 85}))
	img := drawTree(t, tree)

	assert.Equal(t, uint8(0), rgba(img, 5, 5).A)
	assert.Equal(t, uint8(255), rgba(img, 55, 55).R)
	assert.Equal(t, uint8(255), rgba(img, 7, 85).B)
}

func TestStrokedLines(t *testing.T) {
	tree := scene.New(100, 100, 1)
	tree.Add(scene.NewElement("l", scene.Polyline([]scene.Point{{X: 10, Y: 50}, {X: 50, Y: 50}, {X: 50, Y: 90}}).Stroked(red, 4)))
	img := drawTree(t, tree)

	assert.Equal(t, uint8(255), rgba(img, 30, 50).R)
	assert.Equal(t, uint8(255), rgba(img, 50, 70).R)
	// the corner where both segments overlap is still solid
	assert.Equal(t, uint8(255), rgba(img, 50, 50).A)
	assert.Equal(t, uint8(0), rgba(img, 30, 70).A)
}

func inked(img *image.RGBA) int {
	n := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			n++
		}
	}
	return n
}

func TestText(t *testing.T) {
	tree := scene.New(200, 40, 1)
	st := scene.TextStyle{Family: fonts.Inter, Size: 20, Weight: 700, Color: red, Align: scene.AlignCenter}
	tree.Add(scene.NewElement("t", scene.Text(100, 20, "LexDay", st)))
	img := drawTree(t, tree)
	assert.Greater(t, inked(img), 50)

	// glyph ink sits around the anchor line
	assert.Greater(t, inkedRows(img, 10, 30), inkedRows(img, 0, 5)+inkedRows(img, 35, 40))
}

func inkedRows(img *image.RGBA, from, to int) int {
	n := 0
	for y := from; y < to; y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			if img.RGBAAt(x, y).A > 0 {
				n++
			}
		}
	}
	return n
}

func TestEmojiWithoutFontIsSkipped(t *testing.T) {
	tree := scene.New(50, 50, 1)
	tree.Add(scene.NewElement("e", scene.Text(25, 25, "📚", scene.TextStyle{Size: 30, Color: red})))
	assert.Zero(t, inked(drawTree(t, tree)))
}

func TestRunFitsMaxWidth(t *testing.T) {
	r := newRasterizer(t)
	st := scene.TextStyle{Family: fonts.LibreBaskerville, Size: 16}
	g := r.run("The Unbearable Lightness of Being", st, 16)
	full := g.width()
	fitted := g.fit(full / 2)
	assert.LessOrEqual(t, fitted.width(), full/2)
	assert.Equal(t, '…', fitted.runes[len(fitted.runes)-1])
	assert.Equal(t, g.runes, g.fit(full+1).runes)
}

func TestImageShape(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	tree := scene.New(40, 40, 1)
	tree.Add(scene.NewElement("cover", scene.Picture(10, 10, 20, 20, src).Rounded(4)))
	img := drawTree(t, tree)

	assert.Equal(t, color.RGBA{255, 255, 255, 255}, rgba(img, 20, 20))
	assert.Equal(t, uint8(0), rgba(img, 10, 10).A)
	assert.Equal(t, uint8(0), rgba(img, 5, 5).A)
}

func TestRenderComposition(t *testing.T) {
	c, err := compositions.Lookup("MonthlyWrappedSquare")
	require.NoError(t, err)
	tmpl, err := c.New(c.DefaultProps(), compositions.Assets{})
	require.NoError(t, err)

	tree := tmpl.Render(200)
	tree.Scale = 0.5
	r := newRasterizer(t)
	img := r.RenderFrame(tree)
	assert.Equal(t, image.Rect(0, 0, 180, 180), img.Bounds())
	assert.Greater(t, inked(img), 180*180/2)

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, img))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}
