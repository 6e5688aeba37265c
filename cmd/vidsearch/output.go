package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
)

// printResults writes results either as a JSON array or as a numbered list.
func printResults(w io.Writer, results []result.Result, asJSON bool) error {
	if asJSON {
		if results == nil {
			results = []result.Result{}
		}
		enc := json.NewEncoder(w)
		return enc.Encode(results)
	}

	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No matching videos.")
		return err
	}
	for i, r := range results {
		if _, err := fmt.Fprintf(w, "%d. %s (%s)\n", i+1, r.Title(), r.VideoID()); err != nil {
			return err
		}
	}
	return nil
}
