package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/canvasync/internal/engine"
	"github.com/roach88/canvasync/internal/fixture"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/surface"
	"github.com/roach88/canvasync/internal/surface/raster"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Output   string
	MediaDir string
	Time     float64
	Watch    bool
}

// RenderResult summarizes one render.
type RenderResult struct {
	Output       string              `json:"output"`
	Session      string              `json:"session"`
	Generation   int64               `json:"generation"`
	SampleTime   float64             `json:"sample_time"`
	Materialized int                 `json:"materialized"`
	Skipped      []engine.SkipReason `json:"skipped,omitempty"`
	Order        []string            `json:"order"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <fixture>",
		Short: "Render a scene fixture to a PNG preview",
		Long: `Materialize a scene fixture onto a raster canvas and write the
result as a PNG.

Media sources resolve relative to --media-dir (default: the fixture's
directory). With --watch the preview is re-rendered whenever the fixture
file changes, until interrupted.

Examples:
  canvasync render scene.yaml -o preview.png
  canvasync render scene.yaml -o preview.png --time 4.5
  canvasync render scene.yaml -o preview.png --watch --journal session.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "preview.png", "output PNG path")
	cmd.Flags().StringVar(&opts.MediaDir, "media-dir", "", "directory media sources resolve against")
	cmd.Flags().Float64Var(&opts.Time, "time", 0, "sample time in seconds (default: the fixture's sample_time)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "re-render when the fixture changes")
	cmd.Flags().String("journal", "", "record the session to a SQLite journal")
	cmd.Flags().Float64("width", 0, "surface width override")
	cmd.Flags().Float64("height", 0, "surface height override")

	return cmd
}

func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	var r *raster.Renderer
	s, err := openSession(opts.RootOptions, path, sessionOptions{
		mediaDir: opts.MediaDir,
		renderer: func(size model.Size) surface.Renderer {
			r = raster.New(int(size.Width), int(size.Height))
			return r
		},
	})
	if err != nil {
		return err
	}
	defer s.close()

	timeSet := cmd.Flags().Changed("time")
	renderOnce := func(ctx context.Context, scene *fixture.Scene) error {
		t := scene.SampleTime
		if timeSet {
			t = opts.Time
		}
		report, err := s.rebuild(ctx, scene, t)
		if err != nil {
			return WrapExitError(ExitFailure, "rebuild failed", err)
		}
		if err := r.WriteFile(opts.Output); err != nil {
			return WrapExitError(ExitFailure, "failed to write preview", err)
		}

		res := RenderResult{
			Output:       opts.Output,
			Session:      s.engine.Session(),
			Generation:   report.Generation,
			SampleTime:   report.SampleTime,
			Materialized: report.Materialized,
			Skipped:      report.Skipped,
			Order:        report.Order,
		}
		if f.JSON() {
			return f.Success(res)
		}
		f.Printf("✓ %s (generation %d, %d materialized, %d skipped)\n",
			res.Output, res.Generation, res.Materialized, len(res.Skipped))
		for _, sk := range res.Skipped {
			f.Printf("  skipped %s [%s] %s\n", sk.ElementID, sk.Code, sk.Message)
		}
		return nil
	}

	ctx := cmd.Context()
	if err := renderOnce(ctx, s.scene); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	f.VerboseLog("Watching %s", path)

	err = fixture.Watch(ctx, path, func(scene *fixture.Scene, err error) {
		if err != nil {
			slog.Warn("fixture reload failed", "path", path, "error", err)
			return
		}
		applySizeOverrides(opts.RootOptions, scene)
		if scene.Surface != s.scene.Surface || scene.Project != s.scene.Project {
			slog.Warn("surface or project size changed; restart render to apply",
				"surface", fmt.Sprintf("%vx%v", scene.Surface.Width, scene.Surface.Height))
		}
		if err := renderOnce(ctx, scene); err != nil {
			slog.Warn("re-render failed", "path", path, "error", err)
		}
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "watch failed", err)
	}
	return nil
}
