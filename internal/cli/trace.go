package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/canvasync/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Session string
	Element string
	Kind    string
}

// TraceResult is the journal view of one session.
type TraceResult struct {
	Session  string                `json:"session"`
	Rebuilds []store.RebuildRecord `json:"rebuilds"`
	Updates  []store.UpdateRecord  `json:"updates"`
	Stats    TraceStats            `json:"stats"`
}

// TraceStats summarizes a session.
type TraceStats struct {
	Rebuilds     int            `json:"rebuilds"`
	Updates      int            `json:"updates"`
	ByKind       map[string]int `json:"by_kind"`
	Materialized int            `json:"materialized"`
	Skipped      int            `json:"skipped"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the recorded rebuilds and updates of a session",
		Long: `Read a session journal written by render or serve and show its
rebuild reports and outbound updates in order.

Without --session the most recent session in the journal is shown.

Examples:
  canvasync trace --journal session.db
  canvasync trace --journal session.db --element title
  canvasync trace --journal session.db --kind zOrderChanged --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().String("journal", "", "path to the SQLite journal (or journal in config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (default: latest)")
	cmd.Flags().StringVar(&opts.Element, "element", "", "only updates for this element id")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only updates of this kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd)

	path := opts.Config().GetString(KeyJournal)
	if path == "" {
		return NewExitError(ExitCommandError, "no journal given: pass --journal or set journal in config")
	}

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	session := opts.Session
	if session == "" {
		session, err = st.LatestSession(ctx)
		if errors.Is(err, store.ErrNoSessions) {
			if f.JSON() {
				return f.Success(TraceResult{Rebuilds: []store.RebuildRecord{}, Updates: []store.UpdateRecord{}})
			}
			f.Printf("Journal has no sessions.\n")
			return nil
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find latest session", err)
		}
	}

	result, err := loadTrace(ctx, st, session, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if f.JSON() {
		return f.Success(result)
	}
	outputTraceText(f, result)
	return nil
}

func loadTrace(ctx context.Context, st *store.Store, session string, opts *TraceOptions) (TraceResult, error) {
	rebuilds, err := st.ListRebuilds(ctx, session)
	if err != nil {
		return TraceResult{}, err
	}

	var updates []store.UpdateRecord
	if opts.Element != "" {
		updates, err = st.ListElementUpdates(ctx, session, opts.Element)
	} else {
		updates, err = st.ListUpdates(ctx, session)
	}
	if err != nil {
		return TraceResult{}, err
	}
	if opts.Kind != "" {
		kept := updates[:0]
		for _, u := range updates {
			if string(u.Kind) == opts.Kind {
				kept = append(kept, u)
			}
		}
		updates = kept
	}

	if rebuilds == nil {
		rebuilds = []store.RebuildRecord{}
	}
	if updates == nil {
		updates = []store.UpdateRecord{}
	}

	stats := TraceStats{
		Rebuilds: len(rebuilds),
		Updates:  len(updates),
		ByKind:   make(map[string]int),
	}
	for _, r := range rebuilds {
		stats.Materialized += r.Materialized
		stats.Skipped += len(r.Skipped)
	}
	for _, u := range updates {
		stats.ByKind[string(u.Kind)]++
	}

	return TraceResult{Session: session, Rebuilds: rebuilds, Updates: updates, Stats: stats}, nil
}

func outputTraceText(f *OutputFormatter, r TraceResult) {
	f.Printf("Session: %s\n\n", r.Session)

	f.Printf("Rebuilds (%d):\n", len(r.Rebuilds))
	for _, rb := range r.Rebuilds {
		f.Printf("  gen %d  t=%.2f  materialized=%d  skipped=%d  order=[%s]\n",
			rb.Generation, rb.SampleTime, rb.Materialized, len(rb.Skipped), strings.Join(rb.Order, " "))
		for _, sk := range rb.Skipped {
			f.Printf("    skipped %s [%s] %s\n", sk.ElementID, sk.Code, sk.Message)
		}
	}

	f.Printf("\nUpdates (%d):\n", len(r.Updates))
	for _, u := range r.Updates {
		target := u.ElementID
		if target == "" {
			target = "-"
		}
		f.Printf("  [%d] %-24s %-12s %s\n", u.Seq, u.Kind, target, compact(u.Payload))
	}

	if len(r.Stats.ByKind) > 0 {
		kinds := make([]string, 0, len(r.Stats.ByKind))
		for k := range r.Stats.ByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		parts := make([]string, len(kinds))
		for i, k := range kinds {
			parts[i] = fmt.Sprintf("%s=%d", k, r.Stats.ByKind[k])
		}
		f.Printf("\nBy kind: %s\n", strings.Join(parts, " "))
	}
	if f.Verbose {
		f.Printf("Materialized total: %d, skipped total: %d\n", r.Stats.Materialized, r.Stats.Skipped)
	}
}

// compact shortens a payload for one-line display.
func compact(payload []byte) string {
	const limit = 80
	s := string(payload)
	if len(s) > limit {
		return s[:limit-3] + "..."
	}
	return s
}
