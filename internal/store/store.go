// Package store persists OCR sessions and the license records extracted
// from them. Two backends exist: SQLite for single-box deployments and
// Postgres for shared ones. Both speak the same Store interface.
package store

import (
	"context"
	"time"

	"github.com/KCD1111/DMVREAL/constants"
)

// Session is one processed upload.
type Session struct {
	ID               string                  `json:"session_id"`
	Filename         string                  `json:"filename"`
	FileType         string                  `json:"file_type"`
	RawOCRText       string                  `json:"raw_ocr_text"`
	OCRConfidence    float64                 `json:"ocr_confidence"`
	ProcessingTimeMs int64                   `json:"processing_time_ms"`
	Status           constants.SessionStatus `json:"status"`
	ErrorMessage     string                  `json:"error_message,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// License is one extracted license record tied to a session. Field values
// are nullable because extraction may not find them.
type License struct {
	ID                string    `json:"license_id"`
	SessionID         string    `json:"session_id"`
	FirstName         *string   `json:"first_name"`
	LastName          *string   `json:"last_name"`
	LicenseNumber     *string   `json:"license_number"`
	DateOfBirth       *string   `json:"date_of_birth"`
	ExpirationDate    *string   `json:"expiration_date"`
	StreetAddress     *string   `json:"street_address"`
	City              *string   `json:"city"`
	State             *string   `json:"state"`
	ZipCode           *string   `json:"zip_code"`
	Sex               *string   `json:"sex"`
	ExtractionMethod  string    `json:"extraction_method"`
	OverallConfidence float64   `json:"overall_confidence"`
	ConfidenceJSON    string    `json:"-"`
	ValidationJSON    string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}

// Store is the persistence surface used by the pipeline and the HTTP API.
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	UpdateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	SaveLicense(ctx context.Context, l *License) error
	GetLicense(ctx context.Context, sessionID string) (*License, error)
	SearchByLicenseNumber(ctx context.Context, licenseNumber string) ([]*License, error)
	RecentSessions(ctx context.Context, limit int) ([]*Session, error)
	Close() error
}
