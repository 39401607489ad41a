package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"learnlink-server/internal/domain"
	apperrors "learnlink-server/pkg/errors"
	"learnlink-server/pkg/metrics"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

const defaultPageTimeout = 90 * time.Second

// TextExtractor converts uploaded documents into plain text
type TextExtractor struct {
	logger      domain.Logger
	pageTimeout time.Duration
}

// NewTextExtractor creates a new text extractor
func NewTextExtractor(logger domain.Logger) *TextExtractor {
	return &TextExtractor{
		logger:      logger,
		pageTimeout: defaultPageTimeout,
	}
}

// Extract dispatches on the file extension of filename.
// Every failure is returned as an extraction AppError carrying the cause.
func (e *TextExtractor) Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	format := strings.TrimPrefix(ext, ".")

	var (
		text string
		err  error
	)
	switch ext {
	case ".txt":
		text = string(bytes.ToValidUTF8(data, []byte{}))
	case ".pdf":
		text, err = e.extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	case ".pptx":
		text, err = extractPPTX(data)
	case ".doc", ".ppt":
		// Legacy binary formats are only readable when they are OOXML packages in disguise.
		text, err = extractLegacy(data)
	default:
		metrics.ExtractionFailures.WithLabelValues(format).Inc()
		return "", apperrors.NewExtractionError(fmt.Sprintf("unsupported file type %q", ext), domain.ErrUnsupportedFileType)
	}
	if err != nil {
		metrics.ExtractionFailures.WithLabelValues(format).Inc()
		e.logger.Warn("Text extraction failed", "filename", filename, "format", format, "error", err)
		return "", apperrors.NewExtractionError("could not extract text from "+format+" document", err)
	}

	text = normalizeText(sanitizeText(text))
	if text == "" {
		metrics.ExtractionFailures.WithLabelValues(format).Inc()
		return "", apperrors.NewExtractionError("document contains no extractable text", nil)
	}
	return text, nil
}

// extractPDF reads page text with MuPDF and falls back to the pure-Go reader
func (e *TextExtractor) extractPDF(data []byte) (string, error) {
	text, err := e.extractPDFFitz(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if err != nil {
		e.logger.Warn("MuPDF extraction failed, trying fallback reader", "error", err)
	}

	fallback, ferr := extractPDFPlain(data)
	if ferr != nil {
		if err != nil {
			return "", fmt.Errorf("%v; fallback: %w", err, ferr)
		}
		return "", ferr
	}
	return fallback, nil
}

func (e *TextExtractor) extractPDFFitz(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	type pageResult struct {
		text string
		err  error
	}

	numPages := doc.NumPage()
	pages := make([]string, 0, numPages)
	for pageNum := 0; pageNum < numPages; pageNum++ {
		resultCh := make(chan pageResult, 1)
		go func(idx int) {
			t, err := doc.Text(idx)
			resultCh <- pageResult{text: t, err: err}
		}(pageNum)

		select {
		case res := <-resultCh:
			if res.err != nil {
				e.logger.Warn("Failed to extract text from page", "page", pageNum+1, "total", numPages, "error", res.err)
				continue
			}
			if t := strings.TrimSpace(res.text); t != "" {
				pages = append(pages, t)
			}
		case <-time.After(e.pageTimeout):
			e.logger.Warn("PDF page extraction timeout; skipping page", "page", pageNum+1, "total", numPages)
			go func() { <-resultCh }()
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func extractPDFPlain(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return string(b), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	body, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return "", err
	}
	return xmlText(body)
}

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func extractPPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pptx: %w", err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: n, file: f})
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("no slides found")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	parts := make([]string, 0, len(slides))
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return "", err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		text, err := xmlText(b)
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", s.num, err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func extractLegacy(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("legacy binary office format is not supported: %w", err)
	}
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "word/"):
			return extractDOCX(data)
		case strings.HasPrefix(f.Name, "ppt/"):
			return extractPPTX(data)
		}
	}
	return "", fmt.Errorf("unrecognised office package")
}

// xmlText gathers <t> runs in document order, breaking lines at paragraph ends
func xmlText(doc []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteString("\t")
			case "br":
				b.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	lower := strings.ToLower(name)
	for _, f := range zr.File {
		if f.Name == name || strings.ToLower(f.Name) == lower {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("file not found: %s", name)
}

// sanitizeText drops NUL, control characters other than whitespace, and surrogates
func sanitizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToValidUTF8(text, "") {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7F:
		case r >= 0xD800 && r <= 0xDFFF:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			blank++
			if blank <= 1 {
				out = append(out, "")
			}
			continue
		}
		blank = 0
		out = append(out, t)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
