package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	logpkg "github.com/kailas-cloud/vidsearch/internal/logger"
	"github.com/kailas-cloud/vidsearch/internal/metrics"
	chiTransport "github.com/kailas-cloud/vidsearch/internal/transport/chi"
)

var replOpts searchFlags

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Answer one query per input line",
	Long: `Load the catalog and model once, then read queries from stdin, one per line.
When ops.port is set, health and metrics are served alongside.`,
	Args: cobra.NoArgs,
	RunE: runREPL,
}

func init() {
	rootCmd.AddCommand(replCmd)
	addSearchFlags(replCmd, &replOpts)
}

func runREPL(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, globalConfig, globalLogger)
	if err != nil {
		return fail("Failed to initialize search", err)
	}
	defer a.Close()

	params, err := resolveParams(cmd, a.search.Params(), &replOpts)
	if err != nil {
		return fail("Invalid search parameters", err)
	}

	opsDone := startOps(ctx, a)

	runErr := answerLines(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), func(ctx context.Context, q string) error {
		ctx, usage := domain.NewContextWithUsage(ctx)
		results, err := a.search.SearchWithParams(ctx, q, params)
		if err != nil {
			return err
		}
		logpkg.FromContext(ctx).Debug("Query answered",
			zap.Int("results", len(results)),
			zap.Int("tokens", usage.TotalTokens),
		)
		return printResults(cmd.OutOrStdout(), results, replOpts.asJSON)
	})

	cancel()
	if opsErr := <-opsDone; opsErr != nil {
		globalLogger.Error("Ops server failed", zap.Error(opsErr))
	}
	if runErr != nil {
		return fail("Reading queries failed", runErr)
	}
	return nil
}

// startOps runs the ops server when configured. The returned channel yields its exit error.
func startOps(ctx context.Context, a *app) <-chan error {
	done := make(chan error, 1)
	port := globalConfig.Ops.Port
	if port <= 0 {
		done <- nil
		return done
	}

	metrics.RegisterOpsMetrics()
	srv := chiTransport.NewServer(chiTransport.ServerConfig{
		Port:            port,
		ReadTimeout:     time.Duration(globalConfig.Ops.ReadTimeoutSec) * time.Second,
		WriteTimeout:    time.Duration(globalConfig.Ops.WriteTimeoutSec) * time.Second,
		ShutdownTimeout: time.Duration(globalConfig.Ops.ShutdownSec) * time.Second,
	}, chiTransport.NewOpsRouter(a.health, globalLogger), globalLogger)

	go func() { done <- srv.Run(ctx) }()
	return done
}

// searchFunc answers one query.
type searchFunc func(ctx context.Context, query string) error

// answerLines runs fn for every non-blank line of r until EOF or ctx is done.
// Query errors are reported on w and do not stop the loop.
func answerLines(ctx context.Context, r io.Reader, w io.Writer, fn searchFunc) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		if _, err := fmt.Fprint(w, "> "); err != nil {
			return err
		}

		var line string
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(w)
			return nil
		case l, ok := <-lines:
			if !ok {
				_, _ = fmt.Fprintln(w)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}

		qctx := logpkg.WithFields(ctx, globalLogger, zap.String("query_id", uuid.NewString()))
		if err := fn(qctx, query); err != nil {
			logpkg.FromContext(qctx).Warn("Query failed", zap.String("query", query), zap.Error(err))
			if _, werr := fmt.Fprintf(w, "error: %v\n", err); werr != nil {
				return werr
			}
		}
	}
}
