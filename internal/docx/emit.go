package docx

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"

	"redpen/internal/ir"
)

// Emit writes a copy of the original docx with the IR's block text applied.
// Blocks are matched positionally by their original paragraph index. A
// paragraph that carried text at extraction time but has no block in the IR
// was merged away by the pipeline and is removed from the document.
func Emit(originalPath string, doc *ir.DocumentIR, outPath string) error {
	r, err := zip.OpenReader(originalPath)
	if err != nil {
		return fmt.Errorf("open original docx: %w", err)
	}
	defer r.Close()

	root, err := parseDocumentXML(&r.Reader)
	if err != nil {
		return err
	}

	updates := make(map[int]string, len(doc.Blocks))
	for _, b := range doc.Blocks {
		updates[b.Ref.DocIndex] = b.Text
	}

	paras := xmlquery.Find(root, "//w:body/w:p")
	for i, p := range paras {
		original := paragraphText(p)
		text, ok := updates[i]
		if !ok {
			if original != "" {
				removeNode(p)
			}
			continue
		}
		if text != original {
			setParagraphText(p, text)
		}
	}

	return writeArchive(&r.Reader, outPath, root.OutputXML(false))
}

// setParagraphText puts the full text into the paragraph's first run and
// empties the rest. Run-level formatting beyond the first run is lost for
// edited paragraphs; untouched paragraphs keep all formatting.
func setParagraphText(p *xmlquery.Node, text string) {
	ts := xmlquery.Find(p, ".//w:t")
	if len(ts) == 0 {
		return
	}
	setText(ts[0], text)
	ensureSpacePreserve(ts[0])
	for _, t := range ts[1:] {
		setText(t, "")
	}
}

func setText(t *xmlquery.Node, s string) {
	for c := t.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.TextNode {
			c.Data = s
			return
		}
	}
	child := &xmlquery.Node{Type: xmlquery.TextNode, Data: s}
	child.Parent = t
	if t.LastChild != nil {
		t.LastChild.NextSibling = child
		child.PrevSibling = t.LastChild
	} else {
		t.FirstChild = child
	}
	t.LastChild = child
}

// ensureSpacePreserve keeps leading and trailing spaces of the new text from
// being stripped by Word.
func ensureSpacePreserve(t *xmlquery.Node) {
	for _, a := range t.Attr {
		if a.Name.Local == "space" {
			return
		}
	}
	t.SetAttr("xml:space", "preserve")
}

func removeNode(n *xmlquery.Node) {
	if n.Parent == nil {
		return
	}
	if n.Parent.FirstChild == n {
		n.Parent.FirstChild = n.NextSibling
	}
	if n.Parent.LastChild == n {
		n.Parent.LastChild = n.PrevSibling
	}
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	}
	n.Parent = nil
	n.PrevSibling = nil
	n.NextSibling = nil
}

// writeArchive copies every entry of the original archive into outPath,
// substituting the rewritten document part.
func writeArchive(zr *zip.Reader, outPath, documentXML string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output docx: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, f := range zr.File {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate})
		if err != nil {
			zw.Close()
			return err
		}
		if f.Name == documentEntry {
			if _, err := io.Copy(w, strings.NewReader(documentXML)); err != nil {
				zw.Close()
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			zw.Close()
			return err
		}
		_, err = io.Copy(w, rc)
		rc.Close()
		if err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize output docx: %w", err)
	}
	return nil
}
