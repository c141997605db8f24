package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/roach88/canvasync/internal/engine"
	"github.com/roach88/canvasync/internal/fixture"
	"github.com/roach88/canvasync/internal/media"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/store"
	"github.com/roach88/canvasync/internal/surface"
)

// session is a live engine over one fixture with the resources it owns.
type session struct {
	scene  *fixture.Scene
	engine *engine.Engine
	scope  *media.Scope
	store  *store.Store
}

// sessionOptions configures openSession.
type sessionOptions struct {
	mediaDir string
	// renderer, when set, builds the canvas renderer for the final surface size.
	renderer func(size model.Size) surface.Renderer
}

// openSession loads fixturePath and builds an engine for it. Surface and
// project sizes from configuration override the fixture's.
func openSession(opts *RootOptions, fixturePath string, so sessionOptions) (*session, error) {
	scene, err := fixture.Load(fixturePath)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "invalid fixture", err)
	}
	applySizeOverrides(opts, scene)

	dir := so.mediaDir
	if dir == "" {
		dir = filepath.Dir(fixturePath)
	}
	s := &session{scene: scene, scope: media.NewScope(dir)}

	var engOpts []engine.EngineOption
	if so.renderer != nil {
		r := so.renderer(scene.Surface)
		engOpts = append(engOpts, engine.WithCanvas(surface.NewCanvas(surface.WithRenderer(r))))
	}
	if path := opts.Config().GetString(KeyJournal); path != "" {
		st, err := store.Open(path)
		if err != nil {
			s.close()
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		s.store = st
		engOpts = append(engOpts, engine.WithJournal(st))
	}

	eng, err := engine.New(engine.Config{
		Surface:    scene.Surface,
		Project:    scene.Project,
		Background: scene.Background,
	}, s.scope, engOpts...)
	if err != nil {
		s.close()
		return nil, WrapExitError(ExitFailure, "failed to create engine", err)
	}
	s.engine = eng
	slog.Debug("session opened", "session", eng.Session(), "fixture", fixturePath, "media_dir", dir)
	return s, nil
}

func applySizeOverrides(opts *RootOptions, scene *fixture.Scene) {
	v := opts.Config()
	override := func(key string, dst *float64) {
		if v.IsSet(key) {
			if f := v.GetFloat64(key); f > 0 {
				*dst = f
			}
		}
	}
	override(KeySurfaceWidth, &scene.Surface.Width)
	override(KeySurfaceHeight, &scene.Surface.Height)
	override(KeyProjectWidth, &scene.Project.Width)
	override(KeyProjectHeight, &scene.Project.Height)
}

// rebuild materializes the elements of scene active at t.
func (s *session) rebuild(ctx context.Context, scene *fixture.Scene, t float64) (engine.RebuildReport, error) {
	var visible []model.Element
	for _, el := range scene.Elements {
		if el.Active(t) {
			visible = append(visible, el)
		}
	}
	report, err := s.engine.RebuildScene(ctx, visible, t, engine.RebuildOptions{
		Captions:  scene.Captions,
		Watermark: scene.Watermark,
		Clean:     true,
	})
	if err != nil {
		return report, fmt.Errorf("rebuild at %v: %w", t, err)
	}
	return report, nil
}

func (s *session) close() {
	if s.engine != nil {
		s.engine.Close()
	}
	if err := s.scope.Close(); err != nil {
		slog.Warn("media scope close failed", "error", err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("journal close failed", "error", err)
		}
	}
}
