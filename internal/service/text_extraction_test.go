package service

import (
	"archive/zip"
	"bytes"
	"testing"

	apperrors "learnlink-server/pkg/errors"
	"learnlink-server/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const docxBody = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Photosynthesis</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Plants convert </w:t></w:r><w:r><w:t>light.</w:t></w:r></w:p>
</w:body></w:document>`

func slideXML(text string) string {
	return `<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` +
		text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
}

func TestExtract_PlainText(t *testing.T) {
	e := NewTextExtractor(logger.NewNop())

	text, err := e.Extract("notes.TXT", []byte("Hello world.\x00\r\n\r\n\r\n\r\nSecond   line  "))
	require.NoError(t, err)
	assert.Equal(t, "Hello world.\n\nSecond   line", text)
}

func TestExtract_DOCX(t *testing.T) {
	e := NewTextExtractor(logger.NewNop())
	data := buildZip(t, map[string]string{"word/document.xml": docxBody})

	text, err := e.Extract("bio.docx", data)
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis\nPlants convert light.", text)
}

func TestExtract_PPTXKeepsSlideOrder(t *testing.T) {
	e := NewTextExtractor(logger.NewNop())
	data := buildZip(t, map[string]string{
		"ppt/slides/slide10.xml": slideXML("Tenth"),
		"ppt/slides/slide2.xml":  slideXML("Second"),
		"ppt/slides/slide1.xml":  slideXML("First"),
	})

	text, err := e.Extract("deck.pptx", data)
	require.NoError(t, err)
	assert.Equal(t, "First\n\nSecond\n\nTenth", text)
}

func TestExtract_LegacyExtensionWithOOXMLBody(t *testing.T) {
	e := NewTextExtractor(logger.NewNop())
	data := buildZip(t, map[string]string{"word/document.xml": docxBody})

	text, err := e.Extract("old.doc", data)
	require.NoError(t, err)
	assert.Contains(t, text, "Photosynthesis")
}

// Tests that every malformed input comes back as an extraction error instead of a panic
func TestExtract_Failures(t *testing.T) {
	e := NewTextExtractor(logger.NewNop())

	tests := []struct {
		name     string
		filename string
		data     []byte
	}{
		{"unsupported extension", "image.png", []byte("png")},
		{"corrupt docx", "broken.docx", []byte("not a zip")},
		{"docx without body", "empty.docx", buildZip(t, map[string]string{"docProps/app.xml": "<x/>"})},
		{"pptx without slides", "empty.pptx", buildZip(t, map[string]string{"ppt/presentation.xml": "<x/>"})},
		{"binary doc", "legacy.doc", []byte{0xD0, 0xCF, 0x11, 0xE0}},
		{"corrupt pdf", "broken.pdf", []byte("%PDF-1.4 garbage")},
		{"whitespace only", "blank.txt", []byte(" \n\t\n ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(tt.filename, tt.data)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExtraction), "got %v", err)
		})
	}
}

func TestXMLTextHandlesTabsAndBreaks(t *testing.T) {
	text, err := xmlText([]byte(`<d><p><t>a</t><tab/><t>b</t><br/><t>c</t></p></d>`))
	require.NoError(t, err)
	assert.Equal(t, "a\tb\nc", text)
}
