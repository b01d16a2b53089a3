package redline

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDocx(t *testing.T, path string, paragraphs ...string) {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "<w:p><w:r><w:t>%s</w:t></w:r></w:p>", p)
	}
	documentXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>` + body.String() + `</w:body>
</w:document>`

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestCreate_FallsBackToTextDiff(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "orig.docx")
	clean := filepath.Join(dir, "clean.docx")
	writeDocx(t, orig, "Shared first paragraph.", "We did this in order to test.")
	writeDocx(t, clean, "Shared first paragraph.", "We did this to test.")

	res := Create(context.Background(), orig, clean, filepath.Join(dir, "redline.docx"), Options{
		CompareBinary: filepath.Join(dir, "no-such-tool"),
	})

	assert.Equal(t, "text_diff", res.Backend)
	assert.Equal(t, "ok", res.Status)
	require.NotEmpty(t, res.Path)
	assert.True(t, strings.HasSuffix(res.Path, ".diff.txt"))

	raw, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	diff := string(raw)
	assert.Contains(t, diff, "-We did this in order to test.")
	assert.Contains(t, diff, "+We did this to test.")
}

func TestCreate_NoDifferences(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "orig.docx")
	clean := filepath.Join(dir, "clean.docx")
	writeDocx(t, orig, "Identical content.")
	writeDocx(t, clean, "Identical content.")

	res := Create(context.Background(), orig, clean, filepath.Join(dir, "redline.docx"), Options{
		PreferBackend: "text_diff",
	})

	require.Equal(t, "ok", res.Status)
	raw, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "no textual differences")
}

func TestCreate_UnknownPreferredBackendSkips(t *testing.T) {
	res := Create(context.Background(), "a.docx", "b.docx", "c.docx", Options{
		PreferBackend: "wordcompare",
	})
	assert.Equal(t, "none", res.Backend)
	assert.Equal(t, "skipped", res.Status)
	assert.Contains(t, res.Message, "unknown compare backend")
}
