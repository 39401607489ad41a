// Package render turns the reading/writing study guide markdown into DOCX and PDF files.
//
// Both formats are produced from the same parsed Document, so they always contain
// the same ordered headings, paragraphs and list items.
package render

import (
	"regexp"
	"strings"
)

// BlockKind classifies one parsed block
type BlockKind int

const (
	BlockHeading BlockKind = iota
	BlockParagraph
	BlockBulletList
	BlockNumberedList
)

// Block is one heading, paragraph or list
type Block struct {
	Kind  BlockKind
	Level int // headings only, 1-3
	Text  string
	Items []string
}

// Document is the parsed form of a study guide
type Document struct {
	Title  string
	Blocks []Block
}

// Parse reads the markdown subset line by line: "#"/"##"/"###" headings, "* " and "- "
// bullets, "N. " numbered lines and plain paragraphs. A blank line, a heading or a
// paragraph closes the list being collected.
func Parse(title, markdown string) Document {
	doc := Document{Title: title}
	var list *Block

	flush := func() {
		if list != nil && len(list.Items) > 0 {
			doc.Blocks = append(doc.Blocks, *list)
		}
		list = nil
	}
	addItem := func(kind BlockKind, item string) {
		if list != nil && list.Kind != kind {
			flush()
		}
		if list == nil {
			list = &Block{Kind: kind}
		}
		list.Items = append(list.Items, item)
	}

	for _, raw := range strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "### "):
			flush()
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockHeading, Level: 3, Text: inline(line[4:])})
		case strings.HasPrefix(line, "## "):
			flush()
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockHeading, Level: 2, Text: inline(line[3:])})
		case strings.HasPrefix(line, "# "):
			flush()
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockHeading, Level: 1, Text: inline(line[2:])})
		case strings.HasPrefix(line, "* "), strings.HasPrefix(line, "- "):
			addItem(BlockBulletList, inline(line[2:]))
		case numberedMarker.MatchString(line):
			addItem(BlockNumberedList, inline(numberedMarker.ReplaceAllString(line, "")))
		default:
			flush()
			doc.Blocks = append(doc.Blocks, Block{Kind: BlockParagraph, Text: inline(line)})
		}
	}
	flush()
	return doc
}

// numberedMarker matches the "N. " prefix of an ordered list item only
var numberedMarker = regexp.MustCompile(`^\d+\.\s+`)

// inline drops emphasis markers neither emitter renders
func inline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.TrimSpace(s)
}

// Outline lists the document as "h1:", "p:", "li:" and "ol:" prefixed entries
func (d Document) Outline() []string {
	var out []string
	for _, b := range d.Blocks {
		switch b.Kind {
		case BlockHeading:
			out = append(out, headingTag(b.Level)+":"+b.Text)
		case BlockParagraph:
			out = append(out, "p:"+b.Text)
		case BlockBulletList:
			for _, item := range b.Items {
				out = append(out, "li:"+item)
			}
		case BlockNumberedList:
			for _, item := range b.Items {
				out = append(out, "ol:"+item)
			}
		}
	}
	return out
}

func headingTag(level int) string {
	switch level {
	case 1:
		return "h1"
	case 2:
		return "h2"
	default:
		return "h3"
	}
}
