// Package compositions holds the four LexDay video templates. Every template
// is a pure function of its input and the frame number; the registry pairs
// each one with its canvas, duration and sample data.
package compositions

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/acoeffic/readon/internal/motion"
	"github.com/acoeffic/readon/internal/scene"
)

var (
	ErrUnknownComposition = errors.New("unknown composition")
	ErrPropsType          = errors.New("props do not match composition")
)

// Template renders one frame of a composition.
type Template interface {
	Render(frame int) *scene.Tree
	Stages() []Stage
	Audio() motion.Envelope
	Resources() []Resource
}

// Resource is an external asset that must be resolved before rendering.
type Resource struct {
	Label string
	URL   string
}

// Assets carries resolved resources into a template.
type Assets struct {
	Cover image.Image
}

type Kind string

const (
	KindReadingSession Kind = "reading-session"
	KindBookFinished   Kind = "book-finished"
	KindMonthlyWrapped Kind = "monthly-wrapped"
	KindYearlyWrapped  Kind = "yearly-wrapped"
)

// Composition is one renderable video id.
type Composition struct {
	ID               string
	Template         Kind
	Format           Format
	Width            int
	Height           int
	FPS              int
	DurationInFrames int
}

// Seconds is the video length.
func (c Composition) Seconds() float64 {
	return float64(c.DurationInFrames) / float64(c.FPS)
}

// NewProps returns a pointer to an empty input of the right type, ready to
// be decoded into.
func (c Composition) NewProps() any {
	switch c.Template {
	case KindReadingSession:
		return &ReadingSessionInput{Format: c.Format}
	case KindBookFinished:
		return &BookFinishedInput{Format: c.Format}
	case KindMonthlyWrapped:
		return &MonthlyWrappedInput{Format: c.Format}
	case KindYearlyWrapped:
		return &YearlyWrappedInput{Format: c.Format}
	}
	return nil
}

// DefaultProps is the sample data shown in previews, in this composition's format.
func (c Composition) DefaultProps() any {
	switch c.Template {
	case KindReadingSession:
		p := DefaultReadingSession
		p.Format = c.Format
		return &p
	case KindBookFinished:
		p := DefaultBookFinished
		p.Format = c.Format
		return &p
	case KindMonthlyWrapped:
		p := DefaultMonthlyWrapped()
		p.Format = c.Format
		return &p
	case KindYearlyWrapped:
		p := DefaultYearlyWrapped()
		p.Format = c.Format
		return &p
	}
	return nil
}

// New builds the template. props may be the input value or a pointer to it;
// its format is forced to the composition's.
func (c Composition) New(props any, assets Assets) (Template, error) {
	switch c.Template {
	case KindReadingSession:
		if in, ok := deref[ReadingSessionInput](props); ok {
			in.Format = c.Format
			return NewReadingSession(in), nil
		}
	case KindBookFinished:
		if in, ok := deref[BookFinishedInput](props); ok {
			in.Format = c.Format
			return NewBookFinished(in, assets), nil
		}
	case KindMonthlyWrapped:
		if in, ok := deref[MonthlyWrappedInput](props); ok {
			in.Format = c.Format
			return NewMonthlyWrapped(in), nil
		}
	case KindYearlyWrapped:
		if in, ok := deref[YearlyWrappedInput](props); ok {
			in.Format = c.Format
			return NewYearlyWrapped(in), nil
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownComposition, c.ID)
	}
	return nil, fmt.Errorf("%w: %s got %T", ErrPropsType, c.ID, props)
}

func deref[T any](v any) (T, bool) {
	switch p := v.(type) {
	case T:
		return p, true
	case *T:
		if p != nil {
			return *p, true
		}
	}
	var zero T
	return zero, false
}

var registry = func() map[string]Composition {
	out := make(map[string]Composition)
	add := func(id string, kind Kind, frames int) {
		out[id] = Composition{ID: id, Template: kind, Format: Story, Width: 1080, Height: 1920, FPS: FPS, DurationInFrames: frames}
		sq := id + "Square"
		out[sq] = Composition{ID: sq, Template: kind, Format: Square, Width: 1080, Height: 1080, FPS: FPS, DurationInFrames: frames}
	}
	add("ReadingSession", KindReadingSession, readingSessionFrames)
	add("BookFinished", KindBookFinished, bookFinishedFrames)
	add("MonthlyWrapped", KindMonthlyWrapped, monthlyFrames)
	add("YearlyWrapped", KindYearlyWrapped, yearlyFrames)
	return out
}()

// Registry lists every composition, sorted by id.
func Registry() []Composition {
	out := make([]Composition, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func Lookup(id string) (Composition, error) {
	c, ok := registry[id]
	if !ok {
		return Composition{}, fmt.Errorf("%w: %q", ErrUnknownComposition, id)
	}
	return c, nil
}
