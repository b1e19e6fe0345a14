package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KCD1111/DMVREAL/internal/export"
)

func exportCmd() *cobra.Command {
	var out string
	var limit int
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recent license records to an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.store.Close()

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()

			svc := export.NewService(a.store, a.log)
			if err := svc.WriteRecent(cmd.Context(), f, limit); err != nil {
				return err
			}
			a.log.Info("export.written", "path", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "licenses.xlsx", "output file path")
	cmd.Flags().IntVar(&limit, "limit", 100, "number of recent sessions to export")
	return cmd
}
