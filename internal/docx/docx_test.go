package docx

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redpen/internal/ir"
)

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Edge Platform Overview</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Abstract</w:t></w:r></w:p>
<w:p><w:r><w:t>We present </w:t></w:r><w:r><w:t>a platform.</w:t></w:r></w:p>
<w:p/>
<w:p><w:r><w:t>References follow here.</w:t></w:r></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
</w:body>
</w:document>`

const testContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`

func writeTestDocx(t *testing.T, documentXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"[Content_Types].xml": testContentTypes,
		"word/document.xml":   documentXML,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func readEntry(t *testing.T, path, name string) string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(raw)
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return ""
}

func TestExtract(t *testing.T) {
	path := writeTestDocx(t, testDocumentXML)

	doc, inv, err := Extract(path)
	require.NoError(t, err)

	assert.Equal(t, "Edge Platform Overview", doc.Title)
	require.Len(t, doc.Blocks, 4)

	// The empty fourth paragraph is skipped but keeps its document index.
	assert.Equal(t, []int{0, 1, 2, 4},
		[]int{doc.Blocks[0].Ref.DocIndex, doc.Blocks[1].Ref.DocIndex, doc.Blocks[2].Ref.DocIndex, doc.Blocks[3].Ref.DocIndex})

	assert.Equal(t, ir.Heading, doc.Blocks[1].Ref.BlockType)
	assert.Equal(t, "Heading1", doc.Blocks[1].StyleName)

	// Runs concatenate into one block text.
	assert.Equal(t, "We present a platform.", doc.Blocks[2].Text)
	assert.NotEmpty(t, doc.Blocks[2].Anchor)

	assert.Equal(t, 1, inv.TableCount)
	assert.Equal(t, 3, inv.ParagraphCount)
	assert.Equal(t, []string{"Abstract"}, inv.Headings)
	assert.True(t, inv.HasAbstract)
	assert.True(t, inv.HasReferences)
	assert.False(t, inv.HasAuthors)
}

func TestExtract_MissingDocumentEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(testContentTypes))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, _, err = Extract(path)
	assert.Error(t, err)
}

func TestEmit_RoundTrip(t *testing.T) {
	inPath := writeTestDocx(t, testDocumentXML)
	doc, _, err := Extract(inPath)
	require.NoError(t, err)

	doc.Blocks[2].Text = "We present a rewritten platform."

	outPath := filepath.Join(t.TempDir(), "output.docx")
	require.NoError(t, Emit(inPath, doc, outPath))

	got, inv, err := Extract(outPath)
	require.NoError(t, err)
	require.Len(t, got.Blocks, 4)
	assert.Equal(t, "We present a rewritten platform.", got.Blocks[2].Text)
	assert.Equal(t, "References follow here.", got.Blocks[3].Text)
	assert.Equal(t, 1, inv.TableCount)

	// Untouched archive entries survive byte for byte.
	assert.Equal(t, testContentTypes, readEntry(t, outPath, "[Content_Types].xml"))
}

func TestEmit_RemovesMergedAwayParagraphs(t *testing.T) {
	inPath := writeTestDocx(t, testDocumentXML)
	doc, _, err := Extract(inPath)
	require.NoError(t, err)

	// Drop the references paragraph, as a multi-block rewrite would after
	// collapsing blocks.
	doc.Blocks = doc.Blocks[:3]

	outPath := filepath.Join(t.TempDir(), "output.docx")
	require.NoError(t, Emit(inPath, doc, outPath))

	got, inv, err := Extract(outPath)
	require.NoError(t, err)
	require.Len(t, got.Blocks, 3)
	assert.Equal(t, "We present a platform.", got.Blocks[2].Text)
	assert.False(t, inv.HasReferences)
	assert.Equal(t, 2, inv.ParagraphCount)
}

func TestInventory(t *testing.T) {
	doc := &ir.DocumentIR{Blocks: []ir.TextBlock{
		{Ref: ir.BlockRef{BlockType: ir.Heading}, Text: "Abstract", StyleName: "Heading1"},
		{Ref: ir.BlockRef{BlockType: ir.Paragraph}, Text: "Body text by the authors."},
	}}
	inv := Inventory(doc, 2)
	assert.Equal(t, 2, inv.TableCount)
	assert.Equal(t, 1, inv.ParagraphCount)
	assert.Equal(t, []string{"Abstract"}, inv.Headings)
	assert.True(t, inv.HasAbstract)
	assert.True(t, inv.HasAuthors)
	assert.False(t, inv.HasReferences)
}
