package director

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acoeffic/readon/internal/compositions"
)

func TestPropsRoundTrip(t *testing.T) {
	in := compositions.DefaultBookFinished
	in.Title = "Dune"
	doc, err := NewPropsDocument("BookFinishedSquare", &in)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "dune.yaml")
	require.NoError(t, WriteProps(doc, path))

	read, err := ReadProps(path)
	require.NoError(t, err)
	c, props, err := DecodeProps(read)
	require.NoError(t, err)
	assert.Equal(t, "BookFinishedSquare", c.ID)
	got, ok := props.(*compositions.BookFinishedInput)
	require.True(t, ok)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, in.PagesRead, got.PagesRead)
}

func TestDecodePropsFromHandWrittenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monthly.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: "1.0"
composition: MonthlyWrapped
props:
  month: 3
  year: 2025
  totalMinutes: 640
  topBook:
    title: Dune
    author: Frank Herbert
    totalMinutes: 300
`), 0o644))

	doc, err := ReadProps(path)
	require.NoError(t, err)
	_, props, err := DecodeProps(doc)
	require.NoError(t, err)
	in := props.(*compositions.MonthlyWrappedInput)
	assert.Equal(t, 3, in.Month)
	assert.Equal(t, 640, in.TotalMinutes)
	require.NotNil(t, in.TopBook)
	assert.Equal(t, "Dune", in.TopBook.Title)
}

func TestDecodePropsDefaults(t *testing.T) {
	c, props, err := DecodeProps(&PropsDocument{Composition: "YearlyWrapped"})
	require.NoError(t, err)
	assert.Equal(t, c.DefaultProps(), props)
}

func TestDecodePropsErrors(t *testing.T) {
	_, _, err := DecodeProps(&PropsDocument{})
	assert.ErrorIs(t, err, ErrNoComposition)

	_, _, err = DecodeProps(&PropsDocument{Composition: "Nope"})
	assert.ErrorIs(t, err, compositions.ErrUnknownComposition)

	_, _, err = DecodeJSONProps("ReadingSession", []byte(`{"pagesRead": "many"}`))
	assert.ErrorContains(t, err, "decode ReadingSession props")
}

func TestDecodeJSONProps(t *testing.T) {
	_, props, err := DecodeJSONProps("ReadingSession", []byte(`{"bookTitle":"Dune","pagesRead":42}`))
	require.NoError(t, err)
	in := props.(*compositions.ReadingSessionInput)
	assert.Equal(t, "Dune", in.BookTitle)
	assert.Equal(t, 42, in.PagesRead)
}

func TestReadPlan(t *testing.T) {
	dir := t.TempDir()
	doc, err := NewPropsDocument("ReadingSession", compositions.DefaultReadingSession)
	require.NoError(t, err)
	require.NoError(t, WriteProps(doc, filepath.Join(dir, "session.yaml")))

	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(`
version: "1.0"
jobs:
  - props_file: session.yaml
    composition: ReadingSessionSquare
    output: out/session.mp4
  - composition: YearlyWrapped
    output: out/yearly.png
    still: 120
    props:
      year: 2024
      userName: Alice
`), 0o644))

	plan, err := ReadPlan(planPath)
	require.NoError(t, err)
	require.Len(t, plan.Jobs, 2)
	assert.Equal(t, filepath.Join(dir, "out/session.mp4"), plan.Jobs[0].Output)

	c, props, err := plan.Jobs[0].Resolve()
	require.NoError(t, err)
	assert.Equal(t, "ReadingSessionSquare", c.ID)
	assert.Equal(t, compositions.DefaultReadingSession.BookTitle, props.(*compositions.ReadingSessionInput).BookTitle)

	c, props, err = plan.Jobs[1].Resolve()
	require.NoError(t, err)
	assert.Equal(t, "YearlyWrapped", c.ID)
	require.NotNil(t, plan.Jobs[1].Still)
	assert.Equal(t, 120, *plan.Jobs[1].Still)
	assert.Equal(t, "Alice", props.(*compositions.YearlyWrappedInput).Name())
}

func TestGeneratePropsPath(t *testing.T) {
	path := GeneratePropsPath("props", "BookFinished")
	assert.True(t, strings.HasPrefix(path, filepath.Join("props", "BookFinished_")))
	assert.True(t, strings.HasSuffix(path, ".yaml"))
}

func TestFindLatestProps(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	for i, name := range []string{"a.yaml", "b.yml", "c.yaml"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("composition: ReadingSession\n"), 0o644))
		mod := now.Add(time.Duration(i-1) * time.Hour)
		if name == "b.yml" {
			mod = now.Add(2 * time.Hour)
		}
		require.NoError(t, os.Chtimes(p, mod, mod))
	}
	got, err := FindLatestProps(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.yml"), got)

	_, err = FindLatestProps(t.TempDir())
	assert.Error(t, err)
}
