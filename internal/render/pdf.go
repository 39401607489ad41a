package render

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

type rgb struct{ r, g, b int }

var (
	titleColor    = rgb{48, 78, 150}
	headingColors = map[int]rgb{1: {94, 110, 220}, 2: {63, 81, 181}, 3: {94, 110, 220}}
	headingSizes  = map[int]float64{1: 18, 2: 16, 3: 14}
)

const (
	pdfMargin   = 25.0
	bodySize    = 11.0
	bodyLineMM  = 6.0
	listIndent  = 4.0
	bulletWidth = 7.0
)

// PDF renders the document as a Letter-sized PDF
func PDF(doc Document) ([]byte, error) {
	return renderPDF(doc, true)
}

func renderPDF(doc Document, compress bool) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetCompression(compress)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	setColor := func(c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }

	if doc.Title != "" {
		pdf.SetFont("Helvetica", "B", 20)
		setColor(titleColor)
		pdf.MultiCell(0, 10, tr(doc.Title), "", "C", false)
		pdf.Ln(6)
	}

	for _, b := range doc.Blocks {
		switch b.Kind {
		case BlockHeading:
			pdf.SetFont("Helvetica", "B", headingSizes[b.Level])
			setColor(headingColors[b.Level])
			pdf.MultiCell(0, headingSizes[b.Level]*0.5, tr(b.Text), "", "L", false)
			pdf.Ln(3)
		case BlockParagraph:
			pdf.SetFont("Helvetica", "", bodySize)
			setColor(rgb{0, 0, 0})
			pdf.MultiCell(0, bodyLineMM, tr(b.Text), "", "L", false)
			pdf.Ln(3)
		case BlockBulletList, BlockNumberedList:
			pdf.SetFont("Helvetica", "", bodySize)
			setColor(rgb{0, 0, 0})
			for i, item := range b.Items {
				label := "•"
				if b.Kind == BlockNumberedList {
					label = fmt.Sprintf("%d.", i+1)
				}
				pdf.SetX(pdfMargin + listIndent)
				pdf.CellFormat(bulletWidth, bodyLineMM, tr(label), "", 0, "L", false, 0, "")
				pdf.MultiCell(0, bodyLineMM, tr(item), "", "L", false)
			}
			pdf.Ln(3)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
