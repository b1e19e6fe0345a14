// Package export renders extracted license records as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/KCD1111/DMVREAL/internal/store"
)

const sheetName = "Licenses"

var headers = []string{
	"Session ID", "First Name", "Last Name", "License Number",
	"Date of Birth", "Expiration Date", "Street Address", "City", "State",
	"Zip Code", "Sex", "Method", "Confidence", "Created At",
}

// Service writes workbooks from recent sessions.
type Service struct {
	store store.Store
	log   *slog.Logger
}

func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, log: logger}
}

// WriteRecent writes an XLSX of the licenses from the most recent sessions
// to w. limit bounds the session count.
func (s *Service) WriteRecent(ctx context.Context, w io.Writer, limit int) error {
	sessions, err := s.store.RecentSessions(ctx, limit)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	row := 2
	for _, sess := range sessions {
		lic, err := s.store.GetLicense(ctx, sess.ID)
		if err != nil {
			// Failed sessions have no license row.
			continue
		}
		values := []any{
			lic.SessionID, deref(lic.FirstName), deref(lic.LastName),
			deref(lic.LicenseNumber), deref(lic.DateOfBirth), deref(lic.ExpirationDate),
			deref(lic.StreetAddress), deref(lic.City), deref(lic.State),
			deref(lic.ZipCode), deref(lic.Sex), lic.ExtractionMethod,
			lic.OverallConfidence, lic.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
		row++
	}

	s.log.Info("export.xlsx.done", "rows", row-2)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
