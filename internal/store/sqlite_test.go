package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KCD1111/DMVREAL/constants"
	"github.com/KCD1111/DMVREAL/internal/common"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func strptr(s string) *string { return &s }

func seedSession(t *testing.T, st *SQLite) *Session {
	t.Helper()
	sess := &Session{
		ID:       uuid.NewString(),
		Filename: "lic.png",
		FileType: constants.IMAGE,
		Status:   constants.SessionProcessing,
	}
	require.NoError(t, st.CreateSession(context.Background(), sess))
	return sess
}

func TestSQLiteSessions(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	sess := seedSession(t, st)

	t.Run("round trip", func(t *testing.T) {
		got, err := st.GetSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		assert.Equal(t, constants.SessionProcessing, got.Status)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("update", func(t *testing.T) {
		sess.Status = constants.SessionCompleted
		sess.RawOCRText = "DLN 123-456-789"
		sess.OCRConfidence = 0.82
		sess.ProcessingTimeMs = 420
		require.NoError(t, st.UpdateSession(ctx, sess))

		got, err := st.GetSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, constants.SessionCompleted, got.Status)
		assert.Equal(t, "DLN 123-456-789", got.RawOCRText)
		assert.InDelta(t, 0.82, got.OCRConfidence, 1e-9)
	})

	t.Run("update missing session", func(t *testing.T) {
		err := st.UpdateSession(ctx, &Session{ID: "nope"})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("get missing session", func(t *testing.T) {
		_, err := st.GetSession(ctx, "nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestSQLiteLicenses(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	sess := seedSession(t, st)
	lic := &License{
		ID:                uuid.NewString(),
		SessionID:         sess.ID,
		FirstName:         strptr("Maria"),
		LastName:          strptr("Garcia"),
		LicenseNumber:     strptr("S123456789"),
		DateOfBirth:       strptr("01/15/1990"),
		Sex:               strptr("F"),
		ExtractionMethod:  "rules",
		OverallConfidence: 0.75,
		ConfidenceJSON:    `{"first_name":0.9}`,
		ValidationJSON:    `{"missing_fields":[]}`,
	}
	require.NoError(t, st.SaveLicense(ctx, lic))

	t.Run("get by session", func(t *testing.T) {
		got, err := st.GetLicense(ctx, sess.ID)
		require.NoError(t, err)
		require.NotNil(t, got.FirstName)
		assert.Equal(t, "Maria", *got.FirstName)
		assert.Nil(t, got.City)
		assert.Equal(t, `{"first_name":0.9}`, got.ConfidenceJSON)
	})

	t.Run("search by number", func(t *testing.T) {
		found, err := st.SearchByLicenseNumber(ctx, "S123456789")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, lic.ID, found[0].ID)

		none, err := st.SearchByLicenseNumber(ctx, "UNKNOWN")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("missing license", func(t *testing.T) {
		_, err := st.GetLicense(ctx, "nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestSQLiteRecentSessions(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	for range 5 {
		seedSession(t, st)
	}

	got, err := st.RecentSessions(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	all, err := st.RecentSessions(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
