// Package docconv extracts plain text from uploaded documents.
package docconv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrUnsupported is returned for anything that is not a PDF or plain text.
var ErrUnsupported = errors.New("unsupported document")

type Format string

const (
	FormatPDF     Format = "pdf"
	FormatText    Format = "text"
	FormatUnknown Format = ""
)

// Result carries the extracted text and page accounting for PDFs.
type Result struct {
	Format Format
	Text   string
	Pages  int
	// EmptyPages counts PDF pages with no extractable text.
	EmptyPages int
}

// Detect sniffs the file header first and falls back to mime type and extension.
func Detect(head []byte, mimeType, filename string) Format {
	if len(head) >= 5 && string(head[:5]) == "%PDF-" {
		return FormatPDF
	}
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(filepath.Ext(filename))
	if mt == "application/pdf" || ext == ".pdf" {
		// Claims to be a PDF but has no header.
		return FormatUnknown
	}
	if strings.HasPrefix(mt, "text/") || ext == ".txt" || ext == ".md" || ext == ".markdown" {
		return FormatText
	}
	if isProbablyText(head) && (mt == "" || mt == "application/octet-stream") {
		return FormatText
	}
	return FormatUnknown
}

var officeExts = map[string]bool{
	".doc": true, ".docx": true, ".odt": true, ".rtf": true,
	".ppt": true, ".pptx": true, ".odp": true,
}

// IsOffice reports whether the upload looks like a word-processor or slide
// file that LibreOffice can turn into a PDF.
func IsOffice(mimeType, filename string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(mt, "officedocument"), strings.Contains(mt, "opendocument"),
		mt == "application/msword", mt == "application/vnd.ms-powerpoint", mt == "application/rtf":
		return true
	}
	return officeExts[strings.ToLower(filepath.Ext(filename))]
}

// Extract reads path and returns its text. PDFs are read page by page and
// joined with blank lines.
func Extract(path, mimeType string) (Result, error) {
	head, err := readHead(path, 4096)
	if err != nil {
		return Result{}, err
	}
	switch Detect(head, mimeType, path) {
	case FormatPDF:
		return extractPDF(path)
	case FormatText:
		return extractText(path)
	default:
		return Result{}, fmt.Errorf("%w: mime=%s ext=%s", ErrUnsupported, mimeType, filepath.Ext(path))
	}
}

// PageCount validates the PDF structure with pdfcpu in relaxed mode and
// returns its page count.
func PageCount(path string) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return 0, fmt.Errorf("pdf validate: %w", err)
	}
	return api.PageCountFile(path)
}

func extractPDF(path string) (res Result, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("%w: pdf reader panic: %v", ErrUnsupported, r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: pdf reader: %v", ErrUnsupported, err)
	}
	defer f.Close()

	res = Result{Format: FormatPDF, Pages: r.NumPage()}
	parts := make([]string, 0, res.Pages)
	for i := 1; i <= res.Pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			res.EmptyPages++
			continue
		}
		txt, perr := p.GetPlainText(nil)
		if perr != nil {
			res.EmptyPages++
			continue
		}
		txt = collapseWhitespace(txt)
		if txt == "" {
			res.EmptyPages++
			continue
		}
		parts = append(parts, txt)
	}
	res.Text = strings.Join(parts, "\n\n")
	return res, nil
}

func extractText(path string) (Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	if !utf8.Valid(b) {
		b = []byte(strings.ToValidUTF8(string(b), ""))
	}
	return Result{Format: FormatText, Text: normalizeNewlines(string(b))}, nil
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	m, err := f.Read(buf)
	if err != nil && m == 0 {
		// Empty file.
		return nil, nil
	}
	return buf[:m], nil
}

func isProbablyText(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	good := 0
	for _, c := range b {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(b)) > 0.9
}

var spaceRun = regexp.MustCompile(`[ \t\f\v]+`)
var blankRun = regexp.MustCompile(`\n{3,}`)

func collapseWhitespace(s string) string {
	s = normalizeNewlines(s)
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
