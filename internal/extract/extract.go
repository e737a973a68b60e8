// Package extract turns uploaded files into plain text for ingest.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragindex/internal/domain"
)

const (
	MediaPDF  = "application/pdf"
	MediaText = "text/plain"
)

// ErrNoText is returned for documents that contain no extractable text.
var ErrNoText = errors.New("no text extracted")

// Text extracts the text of data according to its media type. Parameters
// such as charset are ignored.
func Text(mediaType string, data []byte) (string, error) {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedType, mediaType)
	}
	switch mt {
	case MediaPDF:
		return pdfText(data)
	case MediaText:
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mt)
	}
}

// File reads path and extracts its text, choosing the parser from the extension.
func File(path string) (string, error) {
	mt := MediaTypeFor(path)
	if mt == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := Text(mt, data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

// MediaTypeFor maps a file extension to a supported media type, or "".
func MediaTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return MediaPDF
	case ".txt", ".text", ".md":
		return MediaText
	default:
		return ""
	}
}

func pdfText(data []byte) (text string, err error) {
	// the pdf package panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	if strings.TrimSpace(buf.String()) == "" {
		return "", ErrNoText
	}
	return buf.String(), nil
}
