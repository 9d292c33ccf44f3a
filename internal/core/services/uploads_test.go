package services

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func newTestUploadStore(t *testing.T) *UploadStore {
	t.Helper()
	settings := domain.DefaultAppSettings().Upload
	settings.Dir = t.TempDir()
	return NewUploadStore(settings)
}

func incoming(name, content string) domain.IncomingFile {
	return domain.IncomingFile{Name: name, Size: int64(len(content)), Content: strings.NewReader(content)}
}

func TestUploadStore_Validate(t *testing.T) {
	u := newTestUploadStore(t)
	big := strings.Repeat("x", 512*1024+1)
	quarter := strings.Repeat("y", 500*1024)

	tests := []struct {
		name  string
		files []domain.IncomingFile
		want  error
	}{
		{"none", nil, domain.ErrInvalidInput},
		{"too many", []domain.IncomingFile{
			incoming("a.txt", "a"), incoming("b.txt", "b"), incoming("c.txt", "c"),
			incoming("d.txt", "d"), incoming("e.txt", "e"), incoming("f.txt", "f"),
		}, domain.ErrTooManyFiles},
		{"extension", []domain.IncomingFile{incoming("run.exe", "MZ")}, domain.ErrUnsupportedType},
		{"empty", []domain.IncomingFile{incoming("a.txt", "")}, domain.ErrEmptyFile},
		{"file too large", []domain.IncomingFile{incoming("a.txt", big)}, domain.ErrFileTooLarge},
		{"total too large", []domain.IncomingFile{
			incoming("a.txt", quarter), incoming("b.txt", quarter), incoming("c.txt", quarter),
			incoming("d.txt", quarter), incoming("e.txt", quarter),
		}, domain.ErrUploadTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, u.Validate(tt.files), tt.want)
		})
	}

	assert.NoError(t, u.Validate([]domain.IncomingFile{incoming("Guide.PDF", "%PDF"), incoming("notes.doc", "x")}))
}

func TestUploadStore_Save(t *testing.T) {
	u := newTestUploadStore(t)

	saved, err := u.Save("sess-1", []domain.IncomingFile{
		incoming("faq rates.txt", "Rates are 5%."),
		incoming("../../etc/policy.txt", "Policy text"),
	})

	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "faq rates.txt", saved[0].Filename)
	assert.Equal(t, "faq_rates.txt", filepath.Base(saved[0].Path))
	assert.Equal(t, "policy.txt", filepath.Base(saved[1].Path))
	assert.True(t, strings.HasPrefix(saved[0].Path, filepath.Join(u.settings.Dir, "sess-1")))
	assert.Equal(t, int64(13), saved[0].Size)
	assert.Equal(t, int64(24), domain.UploadedSize(saved))

	data, err := os.ReadFile(saved[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "Policy text", string(data))
	assert.Equal(t, []string{saved[0].Path, saved[1].Path}, domain.UploadedPaths(saved))
}

func TestUploadStore_SaveSeparatesBatches(t *testing.T) {
	u := newTestUploadStore(t)

	first, err := u.Save("s", []domain.IncomingFile{incoming("a.txt", "one")})
	require.NoError(t, err)
	second, err := u.Save("s", []domain.IncomingFile{incoming("a.txt", "two")})
	require.NoError(t, err)

	assert.NotEqual(t, first[0].Path, second[0].Path)
	data, _ := os.ReadFile(first[0].Path)
	assert.Equal(t, "one", string(data))
}

func TestUploadStore_SaveDuplicateNames(t *testing.T) {
	u := newTestUploadStore(t)

	saved, err := u.Save("s", []domain.IncomingFile{incoming("a.txt", "1"), incoming("A.txt", "2")})

	require.NoError(t, err)
	assert.Equal(t, "a.txt", filepath.Base(saved[0].Path))
	assert.Equal(t, "A-1.txt", filepath.Base(saved[1].Path))
}

func TestUploadStore_SaveUnderstatedSizeRollsBack(t *testing.T) {
	u := newTestUploadStore(t)
	big := bytes.Repeat([]byte("z"), 512*1024+10)

	_, err := u.Save("s", []domain.IncomingFile{
		incoming("ok.txt", "fine"),
		{Name: "liar.txt", Size: 10, Content: bytes.NewReader(big)},
	})

	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	entries, _ := os.ReadDir(filepath.Join(u.settings.Dir, "s"))
	assert.Empty(t, entries)
}

func TestUploadStore_SaveEmptyContent(t *testing.T) {
	u := newTestUploadStore(t)

	_, err := u.Save("s", []domain.IncomingFile{{Name: "a.txt", Size: 3, Content: strings.NewReader("")}})

	assert.ErrorIs(t, err, domain.ErrEmptyFile)
}

func TestUploadStore_Discard(t *testing.T) {
	u := newTestUploadStore(t)
	saved, err := u.Save("s", []domain.IncomingFile{incoming("a.txt", "1"), incoming("b.txt", "2")})
	require.NoError(t, err)

	u.Discard(saved)

	for _, f := range saved {
		assert.NoFileExists(t, f.Path)
		assert.NoDirExists(t, filepath.Dir(f.Path))
	}
	assert.NoDirExists(t, filepath.Join(u.settings.Dir, "s"))
}

func TestSecureFilename(t *testing.T) {
	tests := map[string]string{
		"My Report.pdf":      "My_Report.pdf",
		"../../etc/passwd":   "passwd",
		`C:\docs\guide.docx`: "guide.docx",
		".hidden.txt":        "hidden.txt",
		"résumé.txt":         "rsum.txt",
		"":                   "upload",
		"???":                "upload",
	}
	for in, want := range tests {
		assert.Equal(t, want, SecureFilename(in), in)
	}
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512KB", humanBytes(512*1024))
	assert.Equal(t, "2.0MB", humanBytes(2*1024*1024))
	assert.Equal(t, "10B", humanBytes(10))
}
