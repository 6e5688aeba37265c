package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/request"
)

// searchFlags are shared by the search and repl commands.
type searchFlags struct {
	threshold float64
	topK      int
	asJSON    bool
}

var searchOpts searchFlags

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Run one semantic search",
	Long:  "Embed the query, rank the catalog and print the best matching videos.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addSearchFlags(searchCmd, &searchOpts)
}

func addSearchFlags(cmd *cobra.Command, f *searchFlags) {
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "Exclusive upper bound on combined distance (default from config)")
	cmd.Flags().IntVar(&f.topK, "top-k", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print results as JSON")
}

// resolveParams overrides the configured defaults with explicitly set flags.
func resolveParams(cmd *cobra.Command, defaults request.Params, f *searchFlags) (request.Params, error) {
	params := defaults
	var err error
	if cmd.Flags().Changed("threshold") {
		if params, err = params.WithThreshold(f.threshold); err != nil {
			return request.Params{}, err
		}
	}
	if cmd.Flags().Changed("top-k") {
		if params, err = params.WithTopK(f.topK); err != nil {
			return request.Params{}, err
		}
	}
	return params, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, globalConfig, globalLogger)
	if err != nil {
		return fail("Failed to initialize search", err)
	}
	defer a.Close()

	params, err := resolveParams(cmd, a.search.Params(), &searchOpts)
	if err != nil {
		return fail("Invalid search parameters", err)
	}

	query := strings.Join(args, " ")
	ctx, usage := domain.NewContextWithUsage(ctx)
	results, err := a.search.SearchWithParams(ctx, query, params)
	if err != nil {
		return fail("Search failed", err)
	}
	globalLogger.Debug("Search finished",
		zap.Int("results", len(results)),
		zap.Int("tokens", usage.TotalTokens),
		zap.Bool("embedded", usage.Used),
	)

	return printResults(cmd.OutOrStdout(), results, searchOpts.asJSON)
}
