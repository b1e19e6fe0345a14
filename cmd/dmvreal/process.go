package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func processCmd() *cobra.Command {
	var persist bool
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Process one document and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			a, err := buildApp(cmd.Context(), persist)
			if err != nil {
				return err
			}
			if a.store != nil {
				defer a.store.Close()
			}

			ext := filepath.Ext(path)
			res, err := a.processor.ProcessFile(cmd.Context(), path, filepath.Base(path), ext)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"session_id":         res.SessionID,
				"extraction_method":  res.Method,
				"extracted_data":     res.ExtractedData,
				"confidence_scores":  res.Confidence,
				"normalized_data":    res.NormalizedData,
				"validation_report":  res.ValidationReport,
				"processing_time_ms": res.ProcessingTimeMs,
			})
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "store the session and record")
	return cmd
}
