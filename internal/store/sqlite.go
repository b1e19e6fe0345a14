package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KCD1111/DMVREAL/constants"
	"github.com/KCD1111/DMVREAL/internal/common"
)

const sqliteDDL = `
CREATE TABLE IF NOT EXISTS ocr_sessions (
	id                 TEXT PRIMARY KEY,
	filename           TEXT NOT NULL,
	file_type          TEXT NOT NULL,
	raw_ocr_text       TEXT,
	ocr_confidence     REAL DEFAULT 0,
	processing_time_ms INTEGER DEFAULT 0,
	status             TEXT NOT NULL,
	error_message      TEXT,
	created_at         TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS extracted_licenses (
	id                 TEXT PRIMARY KEY,
	session_id         TEXT NOT NULL REFERENCES ocr_sessions(id),
	first_name         TEXT,
	last_name          TEXT,
	license_number     TEXT,
	date_of_birth      TEXT,
	expiration_date    TEXT,
	street_address     TEXT,
	city               TEXT,
	state              TEXT,
	zip_code           TEXT,
	sex                TEXT,
	extraction_method  TEXT NOT NULL,
	overall_confidence REAL DEFAULT 0,
	confidence_json    TEXT,
	validation_json    TEXT,
	created_at         TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_licenses_number ON extracted_licenses(license_number);
CREATE INDEX IF NOT EXISTS idx_licenses_session ON extracted_licenses(session_id);
`

// SQLite is the embedded single-file backend.
type SQLite struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc's driver is not safe for concurrent writes on one connection
	// pool without serialization.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	logger.Info("store.sqlite.ready", "path", path)
	return &SQLite{db: db, log: logger}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) CreateSession(ctx context.Context, sess *Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ocr_sessions
			(id, filename, file_type, raw_ocr_text, ocr_confidence, processing_time_ms, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Filename, sess.FileType, sess.RawOCRText, sess.OCRConfidence,
		sess.ProcessingTimeMs, string(sess.Status), sess.ErrorMessage, sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *SQLite) UpdateSession(ctx context.Context, sess *Session) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ocr_sessions
		SET raw_ocr_text = ?, ocr_confidence = ?, processing_time_ms = ?, status = ?, error_message = ?
		WHERE id = ?`,
		sess.RawOCRText, sess.OCRConfidence, sess.ProcessingTimeMs,
		string(sess.Status), sess.ErrorMessage, sess.ID)
	if err != nil {
		return fmt.Errorf("update session %s: %w", sess.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: session %s", common.ErrNotFound, sess.ID)
	}
	return nil
}

func (s *SQLite) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, file_type, raw_ocr_text, ocr_confidence, processing_time_ms, status, error_message, created_at
		FROM ocr_sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (s *SQLite) SaveLicense(ctx context.Context, l *License) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extracted_licenses
			(id, session_id, first_name, last_name, license_number, date_of_birth, expiration_date,
			 street_address, city, state, zip_code, sex, extraction_method, overall_confidence,
			 confidence_json, validation_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.SessionID, l.FirstName, l.LastName, l.LicenseNumber, l.DateOfBirth,
		l.ExpirationDate, l.StreetAddress, l.City, l.State, l.ZipCode, l.Sex,
		l.ExtractionMethod, l.OverallConfidence, l.ConfidenceJSON, l.ValidationJSON, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert license for session %s: %w", l.SessionID, err)
	}
	return nil
}

func (s *SQLite) GetLicense(ctx context.Context, sessionID string) (*License, error) {
	row := s.db.QueryRowContext(ctx, licenseSelect+` WHERE session_id = ? ORDER BY created_at DESC LIMIT 1`, sessionID)
	return scanLicense(row)
}

func (s *SQLite) SearchByLicenseNumber(ctx context.Context, licenseNumber string) ([]*License, error) {
	rows, err := s.db.QueryContext(ctx, licenseSelect+` WHERE license_number = ? ORDER BY created_at DESC`, licenseNumber)
	if err != nil {
		return nil, fmt.Errorf("search licenses: %w", err)
	}
	defer rows.Close()
	return collectLicenses(rows)
}

func (s *SQLite) RecentSessions(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, file_type, raw_ocr_text, ocr_confidence, processing_time_ms, status, error_message, created_at
		FROM ocr_sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

const licenseSelect = `
	SELECT id, session_id, first_name, last_name, license_number, date_of_birth, expiration_date,
	       street_address, city, state, zip_code, sex, extraction_method, overall_confidence,
	       confidence_json, validation_json, created_at
	FROM extracted_licenses`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*Session, error) {
	var sess Session
	var status string
	var errMsg, rawText sql.NullString
	err := r.Scan(&sess.ID, &sess.Filename, &sess.FileType, &rawText, &sess.OCRConfidence,
		&sess.ProcessingTimeMs, &status, &errMsg, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.Status = constants.SessionStatus(status)
	sess.RawOCRText = rawText.String
	sess.ErrorMessage = errMsg.String
	return &sess, nil
}

func scanLicense(r rowScanner) (*License, error) {
	var l License
	var confJSON, valJSON sql.NullString
	err := r.Scan(&l.ID, &l.SessionID, &l.FirstName, &l.LastName, &l.LicenseNumber,
		&l.DateOfBirth, &l.ExpirationDate, &l.StreetAddress, &l.City, &l.State,
		&l.ZipCode, &l.Sex, &l.ExtractionMethod, &l.OverallConfidence,
		&confJSON, &valJSON, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan license: %w", err)
	}
	l.ConfidenceJSON = confJSON.String
	l.ValidationJSON = valJSON.String
	return &l, nil
}

func collectLicenses(rows *sql.Rows) ([]*License, error) {
	var out []*License
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
