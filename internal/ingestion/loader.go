package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Content types recorded in chunk metadata.
const (
	TypePDF      = "pdf"
	TypeText     = "text"
	TypeMarkdown = "markdown"
)

// ErrUnsupportedType is returned for files that are not .pdf, .txt or .md.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrEmptyDocument is returned when a file yields no extractable text.
var ErrEmptyDocument = errors.New("document contains no text")

// ErrUnreadable is returned when a file's bytes cannot be decoded as its type.
var ErrUnreadable = errors.New("document could not be decoded")

// Loaded is the plain text extracted from one source file.
type Loaded struct {
	// Name is the file name or URL the text came from.
	Name string
	// ContentType is one of TypePDF, TypeText or TypeMarkdown.
	ContentType string
	// Text is the extracted body.
	Text string
}

// DetectType maps a file name's extension to a content type.
func DetectType(name string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".pdf":
		return TypePDF, nil
	case ".txt":
		return TypeText, nil
	case ".md", ".markdown":
		return TypeMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}

// Load extracts text from data, choosing the decoder by name's extension.
func Load(name string, data []byte) (Loaded, error) {
	ct, err := DetectType(name)
	if err != nil {
		return Loaded{}, err
	}

	var text string
	switch ct {
	case TypePDF:
		text, err = pdfText(data)
		if err != nil {
			return Loaded{}, fmt.Errorf("ingestion: %s: %w: %w", name, ErrUnreadable, err)
		}
	default:
		if !utf8.Valid(data) {
			return Loaded{}, fmt.Errorf("ingestion: %s: %w: not valid UTF-8", name, ErrUnreadable)
		}
		text = string(data)
	}

	if strings.TrimSpace(text) == "" {
		return Loaded{}, fmt.Errorf("ingestion: %s: %w", name, ErrEmptyDocument)
	}
	return Loaded{Name: name, ContentType: ct, Text: text}, nil
}

// pdfText concatenates the plain text of every page.
func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
