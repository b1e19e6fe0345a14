package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KCD1111/DMVREAL/constants"
	"github.com/KCD1111/DMVREAL/internal/common"
)

const postgresDDL = `
CREATE TABLE IF NOT EXISTS ocr_sessions (
	id                 TEXT PRIMARY KEY,
	filename           TEXT NOT NULL,
	file_type          TEXT NOT NULL,
	raw_ocr_text       TEXT,
	ocr_confidence     DOUBLE PRECISION DEFAULT 0,
	processing_time_ms BIGINT DEFAULT 0,
	status             TEXT NOT NULL,
	error_message      TEXT,
	created_at         TIMESTAMPTZ NOT NULL
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
	overall_confidence DOUBLE PRECISION DEFAULT 0,
	confidence_json    TEXT,
	validation_json    TEXT,
	created_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_licenses_number ON extracted_licenses(license_number);
CREATE INDEX IF NOT EXISTS idx_licenses_session ON extracted_licenses(session_id);
`

// Postgres backs multi-instance deployments with a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	logger.Info("store.postgres.ready")
	return &Postgres{pool: pool, log: logger}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) CreateSession(ctx context.Context, sess *Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO ocr_sessions
			(id, filename, file_type, raw_ocr_text, ocr_confidence, processing_time_ms, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sess.ID, sess.Filename, sess.FileType, sess.RawOCRText, sess.OCRConfidence,
		sess.ProcessingTimeMs, string(sess.Status), sess.ErrorMessage, sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}
	return nil
}

func (p *Postgres) UpdateSession(ctx context.Context, sess *Session) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE ocr_sessions
		SET raw_ocr_text = $1, ocr_confidence = $2, processing_time_ms = $3, status = $4, error_message = $5
		WHERE id = $6`,
		sess.RawOCRText, sess.OCRConfidence, sess.ProcessingTimeMs,
		string(sess.Status), sess.ErrorMessage, sess.ID)
	if err != nil {
		return fmt.Errorf("update session %s: %w", sess.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %s", common.ErrNotFound, sess.ID)
	}
	return nil
}

func (p *Postgres) GetSession(ctx context.Context, id string) (*Session, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, filename, file_type, raw_ocr_text, ocr_confidence, processing_time_ms, status, error_message, created_at
		FROM ocr_sessions WHERE id = $1`, id)
	sess, err := scanPgSession(row)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (p *Postgres) SaveLicense(ctx context.Context, l *License) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO extracted_licenses
			(id, session_id, first_name, last_name, license_number, date_of_birth, expiration_date,
			 street_address, city, state, zip_code, sex, extraction_method, overall_confidence,
			 confidence_json, validation_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		l.ID, l.SessionID, l.FirstName, l.LastName, l.LicenseNumber, l.DateOfBirth,
		l.ExpirationDate, l.StreetAddress, l.City, l.State, l.ZipCode, l.Sex,
		l.ExtractionMethod, l.OverallConfidence, l.ConfidenceJSON, l.ValidationJSON, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert license for session %s: %w", l.SessionID, err)
	}
	return nil
}

func (p *Postgres) GetLicense(ctx context.Context, sessionID string) (*License, error) {
	row := p.pool.QueryRow(ctx, pgLicenseSelect+` WHERE session_id = $1 ORDER BY created_at DESC LIMIT 1`, sessionID)
	return scanPgLicense(row)
}

func (p *Postgres) SearchByLicenseNumber(ctx context.Context, licenseNumber string) ([]*License, error) {
	rows, err := p.pool.Query(ctx, pgLicenseSelect+` WHERE license_number = $1 ORDER BY created_at DESC`, licenseNumber)
	if err != nil {
		return nil, fmt.Errorf("search licenses: %w", err)
	}
	defer rows.Close()

	var out []*License
	for rows.Next() {
		l, err := scanPgLicense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *Postgres) RecentSessions(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, filename, file_type, raw_ocr_text, ocr_confidence, processing_time_ms, status, error_message, created_at
		FROM ocr_sessions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanPgSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

const pgLicenseSelect = `
	SELECT id, session_id, first_name, last_name, license_number, date_of_birth, expiration_date,
	       street_address, city, state, zip_code, sex, extraction_method, overall_confidence,
	       confidence_json, validation_json, created_at
	FROM extracted_licenses`

func scanPgSession(row pgx.Row) (*Session, error) {
	var sess Session
	var status string
	var rawText, errMsg *string
	err := row.Scan(&sess.ID, &sess.Filename, &sess.FileType, &rawText, &sess.OCRConfidence,
		&sess.ProcessingTimeMs, &status, &errMsg, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.Status = constants.SessionStatus(status)
	if rawText != nil {
		sess.RawOCRText = *rawText
	}
	if errMsg != nil {
		sess.ErrorMessage = *errMsg
	}
	return &sess, nil
}

func scanPgLicense(row pgx.Row) (*License, error) {
	var l License
	var confJSON, valJSON *string
	err := row.Scan(&l.ID, &l.SessionID, &l.FirstName, &l.LastName, &l.LicenseNumber,
		&l.DateOfBirth, &l.ExpirationDate, &l.StreetAddress, &l.City, &l.State,
		&l.ZipCode, &l.Sex, &l.ExtractionMethod, &l.OverallConfidence,
		&confJSON, &valJSON, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan license: %w", err)
	}
	if confJSON != nil {
		l.ConfidenceJSON = *confJSON
	}
	if valJSON != nil {
		l.ValidationJSON = *valJSON
	}
	return &l, nil
}
