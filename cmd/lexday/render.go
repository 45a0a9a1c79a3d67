package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/acoeffic/readon/internal/analyzer"
	"github.com/acoeffic/readon/internal/compositions"
	"github.com/acoeffic/readon/internal/director"
	"github.com/acoeffic/readon/internal/effects"
	"github.com/acoeffic/readon/internal/engine"
	"github.com/acoeffic/readon/internal/system"
	"github.com/acoeffic/readon/internal/video"
)

var (
	renderProps    string
	renderOut      string
	renderAudio    string
	renderAudioDir string
	renderWorkers  int
	renderStats    bool
	renderDebug    bool
	renderPlan     string
	renderDetector string

	stillFrame int
)

var compositionsCmd = &cobra.Command{
	Use:   "compositions",
	Short: "List the registered compositions",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFORMAT\tSIZE\tFPS\tFRAMES\tSECONDS")
		for _, c := range compositions.Registry() {
			fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\t%d\t%.1f\n",
				c.ID, c.Format, c.Width, c.Height, c.FPS, c.DurationInFrames, c.Seconds())
		}
		return tw.Flush()
	},
}

var propsCmd = &cobra.Command{
	Use:   "props",
	Short: "Write and inspect props documents",
}

var propsWriteCmd = &cobra.Command{
	Use:   "write <composition> [path]",
	Short: "Write a composition's sample props as YAML",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := compositions.Lookup(args[0])
		if err != nil {
			return err
		}
		doc, err := director.NewPropsDocument(c.ID, c.DefaultProps())
		if err != nil {
			return err
		}
		path := director.GeneratePropsPath(cfg.Render.PropsDir, c.ID)
		if len(args) == 2 {
			path = args[1]
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := director.WriteProps(doc, path); err != nil {
			return err
		}
		fmt.Printf("[*] Props written: %s\n", path)
		return nil
	},
}

var propsShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Decode a props document (the latest one by default) and print it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		c, props, err := loadProps("", path)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(props)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s (%dx%d, %d frames)\n%s", c.ID, c.Width, c.Height, c.DurationInFrames, out)
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render [composition]",
	Short: "Render a composition to video, or every job of a plan",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRender,
}

var stillCmd = &cobra.Command{
	Use:   "still <composition>",
	Short: "Render one frame as PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, props, err := loadProps(args[0], renderProps)
		if err != nil {
			return err
		}
		out := renderOut
		if out == "" {
			out = filepath.Join(cfg.Render.OutputDir, fmt.Sprintf("%s_%d.png", c.ID, stillFrame))
		}
		p, err := newProject(c, props)
		if err != nil {
			return err
		}
		if err := p.RenderStill(ctx, stillFrame, out); err != nil {
			return err
		}
		fmt.Printf("[*] Still written: %s\n", out)
		return nil
	},
}

func init() {
	propsCmd.AddCommand(propsWriteCmd, propsShowCmd)

	for _, cmd := range []*cobra.Command{renderCmd, stillCmd} {
		cmd.Flags().StringVar(&renderProps, "props", "", `Props document ("latest" picks the newest in the props dir)`)
		cmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output path (default: timestamped file in the output dir)")
		cmd.Flags().StringVar(&renderDetector, "detector", "", "Cover palette detector: palette or none (default from config)")
	}
	renderCmd.Flags().StringVar(&renderAudio, "audio", "", "Soundtrack, faded with the template's envelope")
	renderCmd.Flags().StringVar(&renderAudioDir, "audio-dir", "", "Use the newest audio file in this directory")
	renderCmd.Flags().IntVar(&renderWorkers, "workers", 0, "Frame workers (0: sized from CPU and memory)")
	renderCmd.Flags().BoolVar(&renderStats, "stats", false, "Print a performance report and append it to benchmark.log")
	renderCmd.Flags().BoolVar(&renderDebug, "debug", false, "Stamp frame numbers on the video")
	renderCmd.Flags().StringVar(&renderPlan, "plan", "", "Render every job of a YAML plan")
	stillCmd.Flags().IntVar(&stillFrame, "frame", 0, "Frame to render")
}

// loadProps resolves the composition and its input. Without a props path
// the composition's sample data is used; id, when set, retargets the
// document. A .json path is a bare props object exported by the app.
func loadProps(id, path string) (compositions.Composition, any, error) {
	if path == "latest" || (path == "" && id == "") {
		latest, err := director.FindLatestProps(cfg.Render.PropsDir)
		if err != nil {
			return compositions.Composition{}, nil, err
		}
		path = latest
	}
	if path == "" {
		c, err := compositions.Lookup(id)
		if err != nil {
			return compositions.Composition{}, nil, err
		}
		return c, c.DefaultProps(), nil
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if id == "" {
			return compositions.Composition{}, nil, fmt.Errorf("%s: json props need a composition id", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return compositions.Composition{}, nil, err
		}
		return director.DecodeJSONProps(id, data)
	}
	doc, err := director.ReadProps(path)
	if err != nil {
		return compositions.Composition{}, nil, err
	}
	if id != "" {
		doc.Composition = id
	}
	return director.DecodeProps(doc)
}

func newProject(c compositions.Composition, props any) (*engine.Project, error) {
	rc := cfg.Render
	if renderWorkers > 0 {
		rc.Workers = renderWorkers
	}
	if renderDetector != "" {
		rc.Detector = renderDetector
	}
	detector, err := analyzer.NewDetector(rc.Detector)
	if err != nil {
		return nil, err
	}
	if renderAudio != "" {
		rc.AudioPath = renderAudio
	}
	rc.ShowStats = rc.ShowStats || renderStats
	rc.Debug = rc.Debug || renderDebug

	p := engine.NewProject(rc, c, props, &video.FFmpegEncoder{Logger: logger})
	p.Fonts = newFonts()
	p.Detector = detector
	p.Logger = logger
	if rc.Debug {
		p.Effects = append(p.Effects, effects.FrameCounter{})
	}
	return p, nil
}

func defaultOutput(id string) string {
	return filepath.Join(cfg.Render.OutputDir, fmt.Sprintf("%s_%s.mp4", id, time.Now().Format("2006-01-02_15-04-05")))
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	system.InitResourceLimits(logger)

	if renderAudio == "" && renderAudioDir != "" {
		latest, err := system.FindLatestAudio(renderAudioDir)
		if err != nil {
			return err
		}
		renderAudio = latest
		fmt.Printf("[*] Audio: %s\n", renderAudio)
	}

	if renderPlan != "" {
		return runPlan(ctx, renderPlan)
	}
	if len(args) == 0 && renderProps == "" {
		return errors.New("render needs a composition id, --props or --plan")
	}
	id := ""
	if len(args) == 1 {
		id = args[0]
	}
	c, props, err := loadProps(id, renderProps)
	if err != nil {
		return err
	}
	out := renderOut
	if out == "" {
		out = defaultOutput(c.ID)
	}
	return renderVideo(ctx, c, props, out)
}

func renderVideo(ctx context.Context, c compositions.Composition, props any, out string) error {
	p, err := newProject(c, props)
	if err != nil {
		return err
	}
	if p.Config.AudioPath != "" {
		checkAudio(ctx, p.Config.AudioPath, c.Seconds())
	}
	_, err = p.Run(ctx, out)
	return err
}

// checkAudio warns when the soundtrack ends before the video.
func checkAudio(ctx context.Context, path string, seconds float64) {
	d, err := system.GetAudioDuration(ctx, path)
	if err != nil {
		fmt.Printf("[!] Could not read audio duration: %v\n", err)
		return
	}
	if d < seconds {
		fmt.Printf("[!] Audio is %.2fs, the video runs %.2fs\n", d, seconds)
	}
}

func runPlan(ctx context.Context, path string) error {
	plan, err := director.ReadPlan(path)
	if err != nil {
		return err
	}
	fmt.Printf("[*] Plan %s: %d job(s)\n", path, len(plan.Jobs))
	for i, job := range plan.Jobs {
		c, props, err := job.Resolve()
		if err != nil {
			return fmt.Errorf("job %d: %w", i+1, err)
		}
		fmt.Printf("[>] Job %d/%d: %s\n", i+1, len(plan.Jobs), c.ID)

		if job.Still != nil {
			out := job.Output
			if out == "" {
				out = filepath.Join(cfg.Render.OutputDir, fmt.Sprintf("%s_%d.png", c.ID, *job.Still))
			}
			p, err := newProject(c, props)
			if err != nil {
				return err
			}
			if err := p.RenderStill(ctx, *job.Still, out); err != nil {
				return fmt.Errorf("job %d: %w", i+1, err)
			}
			continue
		}
		out := job.Output
		if out == "" {
			out = defaultOutput(c.ID)
		}
		if err := renderVideo(ctx, c, props, out); err != nil {
			logger.Error("plan job failed", zap.Int("job", i+1), zap.String("composition", c.ID), zap.Error(err))
			return fmt.Errorf("job %d: %w", i+1, err)
		}
	}
	return nil
}
