package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/viant/randvec/engine"
	"github.com/viant/randvec/service"
	"github.com/viant/randvec/vecadmin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// errNotFound marks a command whose requested vector does not exist. The
// structured error body has already been printed.
var errNotFound = errors.New("vector not found")

func newRootCmd() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:          "randvec",
		Short:        "Generate, store and sort vectors of unique random integers",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default ./configs/randvec.yaml)")
	pf.String("db-driver", "sqlite", "database driver: sqlite|mysql")
	pf.String("db-dsn", "./data/randvec.db", "sqlite path or mysql DSN")
	pf.String("sort-mode", "query", "sort mechanism that is timed: query|partition")
	pf.String("log-level", "info", "debug|info|warn|error")
	pf.String("log-file", "", "also write logs to this file")
	pf.String("metrics-file", "", "write Prometheus metrics to this textfile on exit")

	withApp := func(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, cmd, configFile)
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(ctx, a, cmd, args)
		}
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Generate and store a batch of vectors",
		Args:  cobra.NoArgs,
		RunE:  withApp(runBatch),
	}
	rf := runCmd.Flags()
	rf.Int("vector-length", 50000, "number of unique values per vector")
	rf.Int("upper-bound", 50000, "values are drawn from [0, upper-bound)")
	rf.Bool("reproducible", false, "use a fixed seed")
	rf.Int("runs", 3, "number of vectors to generate")

	verifyCmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Check that a stored vector has distinct values and, optionally, an exact length",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(verifyVector),
	}
	verifyCmd.Flags().Int("length", 0, "expected element count, 0 skips the count check")

	root.AddCommand(
		runCmd,
		&cobra.Command{
			Use:   "list",
			Short: "List stored vectors",
			Args:  cobra.NoArgs,
			RunE:  withApp(listVectors),
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a stored vector with its values",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(showVector),
		},
		&cobra.Command{
			Use:   "sort <id>...",
			Short: "Sort stored vectors and report the sort time",
			Args:  cobra.MinimumNArgs(1),
			RunE:  withApp(sortVectors),
		},
		verifyCmd,
	)
	return root
}

func runBatch(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	records, err := a.orchestrator().RunBatch(ctx, a.params())
	summaries := make([]service.Summary, len(records))
	for i, rec := range records {
		summaries[i] = service.Summary{
			ID:                 rec.ID,
			Name:               rec.Name,
			Description:        rec.Description,
			GenerationDuration: rec.GenerationDuration,
		}
	}
	if werr := writeJSON(cmd.OutOrStdout(), summaries); werr != nil && err == nil {
		err = werr
	}
	return err
}

func listVectors(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	list, err := svc.ListVectors(ctx)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), list)
}

func showVector(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, err := a.service()
	if err != nil {
		return err
	}
	detail, err := svc.VectorDetail(ctx, id)
	if err != nil {
		return writeFailure(cmd.OutOrStdout(), err)
	}
	return writeJSON(cmd.OutOrStdout(), detail)
}

// sortVectors sorts every requested vector concurrently; each sort uses its
// own store session.
func sortVectors(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	ids := make([]int64, len(args))
	for i, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids[i] = id
	}
	svc, err := a.service()
	if err != nil {
		return err
	}

	results := make([]any, len(ids))
	missing := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			sorted, err := svc.SortedDetail(gctx, id)
			switch {
			case service.IsNotFound(err):
				results[i] = service.NewErrorResponse(err)
				missing[i] = true
				return nil
			case err != nil:
				return fmt.Errorf("sort vector %d: %w", id, err)
			}
			a.log.Logger.Info("sort time", zap.Int64("id", id), zap.String("seconds", sorted.SortTime))
			results[i] = sorted
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var out any = results
	if len(results) == 1 {
		out = results[0]
	}
	if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	for _, m := range missing {
		if m {
			return errNotFound
		}
	}
	return nil
}

func verifyVector(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	length, err := cmd.Flags().GetInt("length")
	if err != nil {
		return err
	}
	var result string
	// A pinned in-memory database has no spare connection for the virtual
	// table's own queries.
	if a.cfg.DBDriver == engine.DriverSQLite && a.cfg.DBDSN != ":memory:" {
		result, err = verifySQL(ctx, a.store.DB(), id, length)
	} else {
		var n int
		if n, err = vecadmin.Verify(ctx, a.store.DB(), id, length); err == nil {
			result = fmt.Sprintf("verified:%d", n)
		}
	}
	if err != nil {
		return writeFailure(cmd.OutOrStdout(), err)
	}
	return writeJSON(cmd.OutOrStdout(), map[string]string{"result": result})
}

// verifySQL runs the check through the vec_admin virtual table.
func verifySQL(ctx context.Context, db *sql.DB, id int64, length int) (string, error) {
	op := strconv.FormatInt(id, 10)
	if length > 0 {
		op += ":" + strconv.Itoa(length)
	}
	if _, err := db.ExecContext(ctx, `CREATE VIRTUAL TABLE IF NOT EXISTS vec_admin USING vec_admin(op)`); err != nil {
		return "", err
	}
	var result string
	err := db.QueryRowContext(ctx, `SELECT op FROM vec_admin WHERE op MATCH ?`, op).Scan(&result)
	if err != nil {
		// Errors raised inside the virtual table come back as text only.
		if _, verr := vecadmin.Verify(ctx, db, id, length); verr != nil {
			return "", verr
		}
		return "", err
	}
	return result, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid vector id %q", s)
	}
	return id, nil
}

// writeFailure prints the client-visible body for err. Not-found results
// become errNotFound, anything else is returned unchanged.
func writeFailure(w io.Writer, err error) error {
	if werr := writeJSON(w, service.NewErrorResponse(err)); werr != nil {
		return werr
	}
	if service.IsNotFound(err) {
		return errNotFound
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
