package content

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/coursemedia-backend/internal/modules/content/docconv"
	"github.com/yungbote/coursemedia-backend/internal/modules/content/llmjson"
	"github.com/yungbote/coursemedia-backend/internal/modules/content/prompts"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type ConverterConfig struct {
	// MaxInputChars caps the document prefix sent to the text generator.
	MaxInputChars     int
	Language          string
	MaxNarrationWords int
}

// DocumentConverter turns a document into a Lecture.
type DocumentConverter struct {
	log     *logger.Logger
	gen     TextGenerator
	prompts *prompts.Set
	office  OfficeConverter
	cfg     ConverterConfig
}

func NewDocumentConverter(log *logger.Logger, gen TextGenerator, p *prompts.Set, cfg ConverterConfig) *DocumentConverter {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 30000
	}
	if cfg.Language == "" {
		cfg.Language = "English"
	}
	if p == nil {
		p = prompts.MustDefault()
	}
	return &DocumentConverter{log: log.With("service", "DocumentConverter"), gen: gen, prompts: p, cfg: cfg}
}

// WithOfficeConverter enables DOCX/PPTX/ODT input through a PDF conversion.
func (c *DocumentConverter) WithOfficeConverter(o OfficeConverter) *DocumentConverter {
	c.office = o
	return c
}

// ExtractText supports PDF and plain text, plus office files when an
// OfficeConverter is set. Anything else, and documents with no extractable
// text, fail with ErrUnsupportedFormat.
func (c *DocumentConverter) ExtractText(ctx context.Context, path, mimeType string) (string, error) {
	res, err := docconv.Extract(path, mimeType)
	if errors.Is(err, docconv.ErrUnsupported) && c.office != nil && docconv.IsOffice(mimeType, path) {
		res, err = c.extractOffice(ctx, path)
	}
	if err != nil {
		if errors.Is(err, docconv.ErrUnsupported) {
			return "", newError(KindUnsupportedFormat, "extract_text", err)
		}
		return "", newError(KindUnsupportedFormat, "extract_text", fmt.Errorf("read document: %w", err))
	}
	if res.Format == docconv.FormatPDF {
		if n, perr := docconv.PageCount(path); perr != nil {
			c.log.Debug("pdf structure check failed", "path", path, "error", perr)
		} else if n != res.Pages {
			c.log.Warn("pdf page count mismatch", "reader_pages", res.Pages, "validated_pages", n)
		}
		if res.EmptyPages > 0 {
			c.log.Info("pdf pages without text", "pages", res.Pages, "empty", res.EmptyPages)
		}
	}
	if strings.TrimSpace(res.Text) == "" {
		return "", errorf(KindUnsupportedFormat, "extract_text", "no extractable text in %s document", res.Format)
	}
	return res.Text, nil
}

func (c *DocumentConverter) extractOffice(ctx context.Context, path string) (docconv.Result, error) {
	dir, err := os.MkdirTemp(filepath.Dir(path), "office-*")
	if err != nil {
		return docconv.Result{}, err
	}
	defer os.RemoveAll(dir)
	pdfPath, err := c.office.ConvertOfficeToPDF(ctx, path, dir)
	if err != nil {
		return docconv.Result{}, fmt.Errorf("office to pdf: %w", err)
	}
	c.log.Info("office document converted", "path", path)
	return docconv.Extract(pdfPath, "application/pdf")
}

// ToLecture asks the text generator for a structured lecture built from a
// bounded prefix of text.
func (c *DocumentConverter) ToLecture(ctx context.Context, text string) (Lecture, error) {
	if c.gen == nil {
		return Lecture{}, errorf(KindGeneration, "to_lecture", "no text generator configured")
	}
	src, truncated := truncateRunes(strings.TrimSpace(text), c.cfg.MaxInputChars)
	if truncated {
		c.log.Info("lecture source truncated", "max_chars", c.cfg.MaxInputChars)
	}
	prompt, err := c.prompts.Lecture(prompts.LectureInput{
		Text:              src,
		Language:          c.cfg.Language,
		MaxNarrationWords: c.cfg.MaxNarrationWords,
	})
	if err != nil {
		return Lecture{}, newError(KindGeneration, "to_lecture", err)
	}
	raw, err := c.gen.Generate(ctx, prompt, true)
	if err != nil {
		return Lecture{}, newError(KindGeneration, "to_lecture", err)
	}
	obj, err := llmjson.Parse(raw)
	if err != nil {
		return Lecture{}, newError(KindGeneration, "to_lecture", err)
	}
	lec := Lecture{
		Title:           llmjson.String(obj, "title", "lecture_title"),
		HTMLBody:        llmjson.String(obj, "html_body", "html", "lecture_html"),
		NarrationScript: llmjson.String(obj, "narration_script", "script", "narration"),
	}
	if lec.HTMLBody == "" || lec.NarrationScript == "" {
		return Lecture{}, errorf(KindGeneration, "to_lecture", "model output missing html_body or narration_script")
	}
	if lec.Title == "" {
		lec.Title = "Lecture"
	}
	return lec, nil
}

// FallbackLecture builds a deterministic lecture straight from the source
// text: the first paragraphs as HTML and their sentences as narration.
func (c *DocumentConverter) FallbackLecture(text string) Lecture {
	const maxParagraphs = 12
	const maxNarrationRunes = 4000

	paras := splitParagraphs(text)
	if len(paras) > maxParagraphs {
		paras = paras[:maxParagraphs]
	}
	title := "Lecture Notes"
	if len(paras) > 0 {
		if first, _ := truncateRunes(firstLine(paras[0]), 80); first != "" {
			title = first
		}
	}

	var body strings.Builder
	body.WriteString("<h1>" + html.EscapeString(title) + "</h1>\n")
	for _, p := range paras {
		body.WriteString("<p>" + html.EscapeString(p) + "</p>\n")
	}
	script, _ := truncateRunes(strings.Join(paras, " "), maxNarrationRunes)
	if script == "" {
		script = title
	}
	return Lecture{
		Title:           title,
		HTMLBody:        body.String(),
		NarrationScript: script,
		Fallback:        true,
	}
}

// Convert runs extraction then lecture generation. Generation failures fall
// back to FallbackLecture; extraction failures are returned.
func (c *DocumentConverter) Convert(ctx context.Context, path, mimeType string) (Lecture, error) {
	text, err := c.ExtractText(ctx, path, mimeType)
	if err != nil {
		return Lecture{}, err
	}
	lec, err := c.ToLecture(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return Lecture{}, ctx.Err()
		}
		c.log.Warn("lecture generation failed, using fallback lecture", "error", err)
		return c.FallbackLecture(text), nil
	}
	return lec, nil
}

func truncateRunes(s string, max int) (string, bool) {
	if max <= 0 {
		return s, false
	}
	r := []rune(s)
	if len(r) <= max {
		return s, false
	}
	return string(r[:max]), true
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, ".!?"); i > 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
