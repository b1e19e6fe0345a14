package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KCD1111/DMVREAL/internal/common"
)

// stubRunner fakes the external binaries. For pdftoppm it writes fake page
// files at the requested prefix; for tesseract it returns canned text.
type stubRunner struct {
	tesseractText string
	tesseractErr  error
	pdfPages      int
	missingTools  map[string]bool
	calls         []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.calls = append(s.calls, name)
	switch name {
	case "tesseract":
		if s.tesseractErr != nil {
			return nil, s.tesseractErr
		}
		return []byte(s.tesseractText), nil
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= s.pdfPages; i++ {
			path := prefix + "-" + string(rune('0'+i)) + ".png"
			if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case "sips", "magick", "convert", "heif-convert":
		return nil, nil
	}
	return nil, errors.New("unexpected tool " + name)
}

func (s *stubRunner) LookPath(name string) (string, error) {
	if s.missingTools[name] {
		return "", errors.New("not found")
	}
	return "/usr/bin/" + name, nil
}

func TestExtractFile(t *testing.T) {
	t.Parallel()

	t.Run("image via tesseract", func(t *testing.T) {
		t.Parallel()
		r := &stubRunner{tesseractText: "DLN 123-456-789\nDOB 01/15/1990"}
		e := New(Config{}, r, nil)
		res, err := e.ExtractFile(context.Background(), "/tmp/doc.png", "png")
		require.NoError(t, err)
		assert.Equal(t, "tesseract", res.Source)
		assert.Contains(t, res.Text, "123-456-789")
		assert.Greater(t, res.Confidence, 0.0)
	})

	t.Run("pdf rasterized page by page", func(t *testing.T) {
		t.Parallel()
		r := &stubRunner{tesseractText: "page text", pdfPages: 2}
		e := New(Config{}, r, nil)
		res, err := e.ExtractFile(context.Background(), "/tmp/doc.pdf", ".pdf")
		require.NoError(t, err)
		assert.Equal(t, "tesseract", res.Source)
		assert.Equal(t, "page text\npage text", res.Text)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()
		e := New(Config{}, &stubRunner{}, nil)
		_, err := e.ExtractFile(context.Background(), "/tmp/doc.docx", "docx")
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("empty image text", func(t *testing.T) {
		t.Parallel()
		r := &stubRunner{tesseractText: "   \n"}
		e := New(Config{}, r, nil)
		_, err := e.ExtractFile(context.Background(), "/tmp/doc.jpg", "jpg")
		assert.ErrorIs(t, err, common.ErrNoTextExtracted)
	})

	t.Run("heic converts before ocr", func(t *testing.T) {
		t.Parallel()
		r := &stubRunner{
			tesseractText: "converted text",
			missingTools:  map[string]bool{"magick": true, "convert": true, "heif-convert": true},
		}
		e := New(Config{}, r, nil)
		res, err := e.ExtractFile(context.Background(), filepath.Join(t.TempDir(), "doc.heic"), "heic")
		require.NoError(t, err)
		assert.Equal(t, "converted text", res.Text)
		assert.Contains(t, r.calls, "sips")
	})

	t.Run("tool check", func(t *testing.T) {
		t.Parallel()
		e := New(Config{}, &stubRunner{missingTools: map[string]bool{"tesseract": true}}, nil)
		assert.ErrorIs(t, e.CheckTools(), common.ErrCollaboratorUnavailable)
	})
}

func TestScoreText(t *testing.T) {
	t.Parallel()
	e := New(Config{}, &stubRunner{}, nil)

	assert.Zero(t, e.scoreText(""))

	garbage := e.scoreText("@@@ ### !!! %%% ^^^")
	structured := e.scoreText("DLN 123-456-789 DOB 01/15/1990 ALBANY NY 12210")
	assert.Greater(t, structured, garbage)
	assert.LessOrEqual(t, structured, 1.0)
}
