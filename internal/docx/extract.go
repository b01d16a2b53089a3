// Package docx converts Word documents to and from the block IR. Only
// word/document.xml is touched; every other archive entry passes through
// byte for byte, so styles, numbering, images, and tables survive a round
// trip untouched.
package docx

import (
	"archive/zip"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"redpen/internal/ir"
)

const documentEntry = "word/document.xml"

// Extract reads a docx file into the IR plus a structure inventory of the
// original document.
func Extract(path string) (*ir.DocumentIR, ir.StructureInventory, error) {
	var inv ir.StructureInventory

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, inv, fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	root, err := parseDocumentXML(&r.Reader)
	if err != nil {
		return nil, inv, err
	}

	inv.TableCount = len(xmlquery.Find(root, "//w:tbl"))

	paras := xmlquery.Find(root, "//w:body/w:p")
	texts := make([]string, len(paras))
	styles := make([]string, len(paras))
	for i, p := range paras {
		texts[i] = paragraphText(p)
		styles[i] = paragraphStyle(p)
	}

	doc := &ir.DocumentIR{Metadata: map[string]string{"source": path}}
	pIdx, hIdx := 0, 0
	for i, txt := range texts {
		if txt == "" {
			continue
		}
		style := styles[i]
		if doc.Title == "" && style == "Title" {
			doc.Title = strings.TrimSpace(txt)
		}
		isHeading := strings.HasPrefix(strings.ToLower(style), "heading")
		bt := ir.Paragraph
		typeIdx := pIdx
		if isHeading {
			bt = ir.Heading
			typeIdx = hIdx
		}
		prev, next := "", ""
		if i > 0 {
			prev = texts[i-1]
		}
		if i+1 < len(texts) {
			next = texts[i+1]
		}
		doc.Blocks = append(doc.Blocks, ir.TextBlock{
			Ref:       ir.BlockRef{BlockType: bt, DocIndex: i, TypeIndex: typeIdx},
			StyleName: style,
			Text:      txt,
			Anchor:    ir.Anchor(prev, txt, next),
		})
		if isHeading {
			inv.Headings = append(inv.Headings, strings.TrimSpace(txt))
			inv.HeadingStyles = append(inv.HeadingStyles, style)
			hIdx++
		} else {
			pIdx++
		}
	}

	if doc.Title == "" {
		for _, b := range doc.Blocks {
			if strings.TrimSpace(b.Text) != "" {
				doc.Title = strings.TrimSpace(b.Text)
				break
			}
		}
	}

	inv.ParagraphCount = pIdx
	whole := strings.ToLower(doc.FullText())
	inv.HasAbstract = strings.Contains(whole, "abstract")
	inv.HasReferences = strings.Contains(whole, "references")
	inv.HasAuthors = strings.Contains(whole, "authors")
	return doc, inv, nil
}

// Inventory recomputes the structure inventory for an IR without rereading
// the file, for post-run comparison.
func Inventory(doc *ir.DocumentIR, tableCount int) ir.StructureInventory {
	inv := ir.StructureInventory{TableCount: tableCount}
	for _, b := range doc.Blocks {
		if b.Ref.BlockType == ir.Heading {
			inv.Headings = append(inv.Headings, strings.TrimSpace(b.Text))
			inv.HeadingStyles = append(inv.HeadingStyles, b.StyleName)
		} else {
			inv.ParagraphCount++
		}
	}
	whole := strings.ToLower(doc.FullText())
	inv.HasAbstract = strings.Contains(whole, "abstract")
	inv.HasReferences = strings.Contains(whole, "references")
	inv.HasAuthors = strings.Contains(whole, "authors")
	return inv
}

func parseDocumentXML(zr *zip.Reader) (*xmlquery.Node, error) {
	for _, f := range zr.File {
		if f.Name != documentEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", documentEntry, err)
		}
		defer rc.Close()
		root, err := xmlquery.Parse(rc)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", documentEntry, err)
		}
		return root, nil
	}
	return nil, fmt.Errorf("%s not found in archive", documentEntry)
}

// paragraphText concatenates the paragraph's text runs the way Word renders
// them, including tab and break placeholders.
func paragraphText(p *xmlquery.Node) string {
	var b strings.Builder
	for _, t := range xmlquery.Find(p, ".//w:t") {
		b.WriteString(t.InnerText())
	}
	return b.String()
}

func paragraphStyle(p *xmlquery.Node) string {
	if s := xmlquery.FindOne(p, "./w:pPr/w:pStyle"); s != nil {
		return s.SelectAttr("w:val")
	}
	return ""
}
