package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/canvasync/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	MediaDir string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve <fixture>",
		Short: "Serve a live session over WebSocket",
		Long: `Materialize a scene fixture and stream the session's updates to
WebSocket clients on /ws. Clients may send z-order commands
(front, back, forward, backward). /health reports liveness.

Runs until interrupted.

Examples:
  canvasync serve scene.yaml
  canvasync serve scene.yaml --port 9000 --journal session.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int("port", 8080, "port to listen on (0 picks a free port)")
	cmd.Flags().StringVar(&opts.MediaDir, "media-dir", "", "directory media sources resolve against")
	cmd.Flags().String("journal", "", "record the session to a SQLite journal")

	return cmd
}

func runServe(opts *ServeOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	s, err := openSession(opts.RootOptions, path, sessionOptions{mediaDir: opts.MediaDir})
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Addr: fmt.Sprintf(":%d", opts.Config().GetInt(KeyServePort)),
	}, s.engine)

	// Clients connected before the first rebuild receive its updates.
	if err := srv.Start(); err != nil {
		return WrapExitError(ExitCommandError, "failed to start server", err)
	}

	report, err := s.rebuild(ctx, s.scene, s.scene.SampleTime)
	if err != nil {
		_ = srv.Stop()
		return WrapExitError(ExitFailure, "rebuild failed", err)
	}
	f.Printf("Serving session %s on %s (%d materialized, %d skipped)\n",
		s.engine.Session(), srv.Addr(), report.Materialized, len(report.Skipped))

	<-ctx.Done()

	if err := srv.Stop(); err != nil {
		return WrapExitError(ExitCommandError, "failed to stop server", err)
	}
	f.Printf("Stopped.\n")
	return nil
}
