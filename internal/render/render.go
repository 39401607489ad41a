package render

// Rendered holds both downloadable formats of one study guide
type Rendered struct {
	DOCX []byte
	PDF  []byte
}

// Render parses markdown once and emits both formats from the same Document
func Render(title, markdown string) (*Rendered, error) {
	doc := Parse(title, markdown)

	docx, err := DOCX(doc)
	if err != nil {
		return nil, err
	}
	pdf, err := PDF(doc)
	if err != nil {
		return nil, err
	}
	return &Rendered{DOCX: docx, PDF: pdf}, nil
}
