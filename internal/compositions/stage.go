package compositions

import "github.com/acoeffic/readon/internal/motion"

type StageKind int

const (
	// StageStatic elements are always present and never revealed.
	StageStatic StageKind = iota
	StageFade
	StageSpring
	// StageCounter windows drive numbers, not elements.
	StageCounter
)

// Stage is one row of a template's reveal table. For springs Start is the
// release frame and End the frame the spring has settled.
type Stage struct {
	ID    string
	Start float64
	End   float64
	Kind  StageKind
}

func static(id string) Stage { return Stage{ID: id, Kind: StageStatic} }
func fadeStage(id string, s, e float64) Stage { return Stage{ID: id, Start: s, End: e, Kind: StageFade} }
func counterStage(id string, s, e float64) Stage {
	return Stage{ID: id, Start: s, End: e, Kind: StageCounter}
}

func springStage(id string, start float64, cfg motion.SpringConfig) Stage {
	return Stage{ID: id, Start: start, End: start + float64(motion.SpringSettleFrame(FPS, cfg)), Kind: StageSpring}
}

// Timeline is an ordered reveal table.
type Timeline []Stage

func (tl Timeline) Lookup(id string) (Stage, bool) {
	for _, s := range tl {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}

// At returns the stage for id. Templates only ask for ids of their own
// tables, so a miss is a programming error.
func (tl Timeline) At(id string) Stage {
	s, ok := tl.Lookup(id)
	if !ok {
		panic("compositions: no stage " + id)
	}
	return s
}

// Opacity is the clamped ease-out reveal of a fade stage.
func (tl Timeline) Opacity(id string, frame float64) float64 {
	s := tl.At(id)
	return motion.Anim(frame, s.Start, s.End, 0, 1)
}

// Lerp maps frame through the stage window onto [from, to].
func (tl Timeline) Lerp(id string, frame, from, to float64) float64 {
	s := tl.At(id)
	return motion.Anim(frame, s.Start, s.End, from, to)
}

// Progress is the eased 0..1 progress through a stage.
func (tl Timeline) Progress(id string, frame float64) float64 {
	s := tl.At(id)
	return motion.Progress(frame, s.Start, s.End)
}

// Grow is the fill of a bar whose growth spans the stage.
func (tl Timeline) Grow(id string, frame float64) float64 {
	s := tl.At(id)
	return motion.BarGrow(frame, s.Start, s.End-s.Start)
}

// Count is target scaled by the counter's progress and rounded: 0 up to
// the window start, exactly target from its end on.
func (tl Timeline) Count(id string, frame float64, target int) int {
	return motion.Counter(float64(target), tl.Progress(id, frame))
}

func (tl Timeline) IDs() []string {
	out := make([]string, 0, len(tl))
	for _, s := range tl {
		out = append(out, s.ID)
	}
	return out
}
