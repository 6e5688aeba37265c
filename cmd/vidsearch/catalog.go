package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/vidsearch/internal/metrics"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print catalog statistics",
	Long:  "Load the configured catalog and print its size, embedding dimension and source.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		metrics.RegisterSearchMetrics()

		cat, err := loadCatalog(cmd.Context(), globalConfig, globalLogger)
		if err != nil {
			return fail("Failed to load catalog", err)
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "source:    %s\n", globalConfig.Catalog.Path)
		_, _ = fmt.Fprintf(out, "layout:    %s\n", globalConfig.Catalog.Layout)
		_, _ = fmt.Fprintf(out, "items:     %d\n", cat.Len())
		_, _ = fmt.Fprintf(out, "dimension: %d\n", cat.Dimension())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
