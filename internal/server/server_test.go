package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KCD1111/DMVREAL/internal/export"
	"github.com/KCD1111/DMVREAL/internal/extract"
	"github.com/KCD1111/DMVREAL/internal/normalize"
	"github.com/KCD1111/DMVREAL/internal/ocr"
	"github.com/KCD1111/DMVREAL/internal/pipeline"
	"github.com/KCD1111/DMVREAL/internal/schema"
	"github.com/KCD1111/DMVREAL/internal/store"
	"github.com/KCD1111/DMVREAL/internal/validate"
)

const licenseText = `DRIVER LICENSE
GARCIA MARIA
FN: MARIA
DLN 123-456-789
DOB 01/15/1990
Sex: F
EXP 01/15/2030
44 OAK AVE
AUSTIN, TX 78701`

// stubRunner returns canned tesseract output.
type stubRunner struct{ text string }

func (s stubRunner) Run(context.Context, string, ...string) ([]byte, error) {
	return []byte(s.text), nil
}
func (s stubRunner) LookPath(name string) (string, error) { return "/usr/bin/" + name, nil }

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := schema.Default()
	rules := extract.NewRuleExtractor(extract.Config{LicensePrefix: "S"}, nil)
	proc := pipeline.New(
		ocr.New(ocr.Config{}, stubRunner{text: licenseText}, nil),
		extract.NewChain(rules, nil, reg, nil),
		normalize.New(reg, nil),
		validate.New(reg, nil),
		reg, st, nil,
	)
	srv := New(Config{Addr: ":0"}, proc, st, export.NewService(st, nil), nil)
	return srv, st
}

func uploadRequest(t *testing.T, path, field, filename string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func doJSON(t *testing.T, h http.Handler, req *http.Request, wantStatus int) map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, wantStatus, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)
	h := srv.Handler()

	t.Run("health", func(t *testing.T) {
		out := doJSON(t, h, httptest.NewRequest(http.MethodGet, "/health", nil), http.StatusOK)
		assert.Equal(t, "ok", out["status"])
	})

	t.Run("process document then fetch session", func(t *testing.T) {
		out := doJSON(t, h, uploadRequest(t, "/process-document", "document", "lic.png"), http.StatusOK)
		assert.Equal(t, true, out["success"])
		sessionID, _ := out["session_id"].(string)
		require.NotEmpty(t, sessionID)

		norm, ok := out["normalized_data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "S123456789", norm["license_number"])
		assert.Equal(t, "Maria", norm["first_name"])

		rep, ok := out["validation_report"].(map[string]any)
		require.True(t, ok)
		assert.NotNil(t, rep["missing_fields"])

		got := doJSON(t, h, httptest.NewRequest(http.MethodGet, "/session/"+sessionID, nil), http.StatusOK)
		sess, ok := got["session"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "completed", sess["status"])
		assert.Contains(t, got, "license")
	})

	t.Run("legacy pdf field name", func(t *testing.T) {
		out := doJSON(t, h, uploadRequest(t, "/process-pdf", "pdf", "lic.jpg"), http.StatusOK)
		assert.Equal(t, true, out["success"])
	})

	t.Run("missing file field", func(t *testing.T) {
		out := doJSON(t, h, uploadRequest(t, "/process-document", "wrong", "lic.png"), http.StatusBadRequest)
		assert.Equal(t, false, out["success"])
	})

	t.Run("unsupported extension", func(t *testing.T) {
		doJSON(t, h, uploadRequest(t, "/process-document", "document", "lic.docx"), http.StatusBadRequest)
	})

	t.Run("search", func(t *testing.T) {
		doJSON(t, h, uploadRequest(t, "/process-document", "document", "lic2.png"), http.StatusOK)
		out := doJSON(t, h, httptest.NewRequest(http.MethodGet, "/search/S123456789", nil), http.StatusOK)
		count, _ := out["count"].(float64)
		assert.GreaterOrEqual(t, count, 1.0)

		empty := doJSON(t, h, httptest.NewRequest(http.MethodGet, "/search/UNKNOWN99", nil), http.StatusOK)
		assert.EqualValues(t, 0, empty["count"])
	})

	t.Run("recent sessions", func(t *testing.T) {
		out := doJSON(t, h, httptest.NewRequest(http.MethodGet, "/recent-sessions?limit=5", nil), http.StatusOK)
		assert.Equal(t, true, out["success"])

		doJSON(t, h, httptest.NewRequest(http.MethodGet, "/recent-sessions?limit=9999", nil), http.StatusBadRequest)
	})

	t.Run("session not found", func(t *testing.T) {
		doJSON(t, h, httptest.NewRequest(http.MethodGet, "/session/does-not-exist", nil), http.StatusNotFound)
	})

	t.Run("export workbook", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export.xlsx", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
		assert.NotZero(t, rec.Body.Len())
	})
}

func TestRawTextPreviewTruncated(t *testing.T) {
	t.Parallel()
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'a'
	}
	res := &pipeline.Result{RawText: string(long)}
	resp := toProcessResponse(res)
	assert.Len(t, resp.RawOCRText, rawTextPreviewLen)
}
