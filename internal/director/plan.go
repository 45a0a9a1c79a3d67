package director

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/acoeffic/readon/internal/compositions"
)

// RenderPlan is a batch of renders.
type RenderPlan struct {
	Version string `yaml:"version"`
	Jobs    []Job  `yaml:"jobs"`
}

// Job renders one composition. Props are inline or come from PropsFile,
// resolved relative to the plan. Still selects a single PNG frame instead
// of a video.
type Job struct {
	Composition string    `yaml:"composition"`
	Props       yaml.Node `yaml:"props,omitempty"`
	PropsFile   string    `yaml:"props_file,omitempty"`
	Output      string    `yaml:"output"`
	Still       *int      `yaml:"still,omitempty"`
}

func ReadPlan(path string) (*RenderPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var plan RenderPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range plan.Jobs {
		j := &plan.Jobs[i]
		if j.PropsFile != "" && !filepath.IsAbs(j.PropsFile) {
			j.PropsFile = filepath.Join(base, j.PropsFile)
		}
		if j.Output != "" && !filepath.IsAbs(j.Output) {
			j.Output = filepath.Join(base, j.Output)
		}
	}
	return &plan, nil
}

// Resolve returns the job's composition and typed props.
func (j Job) Resolve() (compositions.Composition, any, error) {
	if j.PropsFile == "" {
		if j.Composition == "" {
			return compositions.Composition{}, nil, ErrNoComposition
		}
		return decodeNode(j.Composition, &j.Props)
	}
	doc, err := ReadProps(j.PropsFile)
	if err != nil {
		return compositions.Composition{}, nil, err
	}
	// the job may retarget a props file to the other format
	if j.Composition != "" {
		doc.Composition = j.Composition
	}
	return DecodeProps(doc)
}
