package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/yungbote/coursemedia-backend/internal/modules/content"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

// pdfPageWidth is the raster width of notes pages, about 150dpi on A4.
const pdfPageWidth = 1240

// Renderer lays out lecture HTML as plain text blocks without a browser.
// Headings, paragraphs and list items are kept; styling beyond that is not.
type Renderer struct {
	log     *logger.Logger
	regular *truetype.Font
	bold    *truetype.Font
}

func New(log *logger.Logger) (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	return &Renderer{log: log.With("service", "RasterRenderer"), regular: regular, bold: bold}, nil
}

type style struct {
	size        float64
	bold        bool
	color       string
	spaceBefore float64
	indent      float64
	bullet      string
}

var styles = map[string]style{
	"h1": {size: 44, bold: true, color: "#102a43", spaceBefore: 0},
	"h2": {size: 32, bold: true, color: "#243b53", spaceBefore: 40},
	"h3": {size: 28, bold: true, color: "#243b53", spaceBefore: 28},
	"p":  {size: 26, color: "#1f2933", spaceBefore: 18},
	"li": {size: 26, color: "#1f2933", spaceBefore: 10, indent: 36, bullet: "• "},
}

type placedLine struct {
	text  string
	x, y  float64
	face  font.Face
	color string
}

func (r *Renderer) face(st style, scale float64) font.Face {
	f := r.regular
	if st.bold {
		f = r.bold
	}
	return truetype.NewFace(f, &truetype.Options{Size: st.size * scale, DPI: 72, Hinting: font.HintingNone})
}

// layout wraps blocks to width and returns the lines with their baselines and
// the total height used.
func (r *Renderer) layout(blocks []block, width int) ([]placedLine, float64) {
	scale := float64(width) / 1280
	padX, padTop, padBottom := 120*scale, 72*scale, 160*scale
	if padX*2 > float64(width)/2 {
		padX = float64(width) / 8
	}
	measure := gg.NewContext(1, 1)
	faces := map[string]font.Face{}

	var lines []placedLine
	y := padTop
	for i, b := range blocks {
		st, ok := styles[b.tag]
		if !ok {
			st = styles["p"]
		}
		face, ok := faces[b.tag]
		if !ok {
			face = r.face(st, scale)
			faces[b.tag] = face
		}
		measure.SetFontFace(face)
		if i > 0 {
			y += st.spaceBefore * scale
		}
		lineH := st.size * scale * 1.5
		x := padX + st.indent*scale
		wrapped := measure.WordWrap(st.bullet+b.text, float64(width)-x-padX)
		for _, ln := range wrapped {
			y += lineH
			lines = append(lines, placedLine{text: ln, x: x, y: y - lineH*0.3, face: face, color: st.color})
		}
	}
	return lines, y + padBottom
}

func (r *Renderer) draw(blocks []block, width, minHeight int) *gg.Context {
	lines, used := r.layout(blocks, width)
	height := int(used + 0.5)
	if height < minHeight {
		height = minHeight
	}
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	for _, ln := range lines {
		dc.SetFontFace(ln.face)
		dc.SetHexColor(ln.color)
		dc.DrawString(ln.text, ln.x, ln.y)
	}
	return dc
}

func (r *Renderer) RenderToImage(ctx context.Context, html string, viewportWidth, viewportHeight int, outPath string) (content.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return content.Snapshot{}, err
	}
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return content.Snapshot{}, fmt.Errorf("invalid viewport %dx%d", viewportWidth, viewportHeight)
	}
	blocks, err := parseBlocks(html)
	if err != nil {
		return content.Snapshot{}, err
	}
	dc := r.draw(blocks, viewportWidth, viewportHeight)
	if err := dc.SavePNG(outPath); err != nil {
		return content.Snapshot{}, fmt.Errorf("encode png: %w", err)
	}
	r.log.Debug("page rasterized", "blocks", len(blocks), "width", dc.Width(), "height", dc.Height())
	return content.Snapshot{Path: outPath, Width: dc.Width(), Height: dc.Height()}, nil
}

// RenderToPDF slices the page into A4-proportioned images and imports them as
// one page each.
func (r *Renderer) RenderToPDF(ctx context.Context, html string, outPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	blocks, err := parseBlocks(html)
	if err != nil {
		return err
	}
	pageH := pdfPageWidth * 297 / 210
	full := r.draw(blocks, pdfPageWidth, pageH).Image()

	dir, err := os.MkdirTemp(filepath.Dir(outPath), "pages-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	var pages []string
	for top := 0; top < full.Bounds().Dy(); top += pageH {
		page := image.NewRGBA(image.Rect(0, 0, pdfPageWidth, pageH))
		draw.Draw(page, page.Bounds(), image.White, image.Point{}, draw.Src)
		draw.Draw(page, page.Bounds(), full, image.Point{Y: top}, draw.Src)
		p := filepath.Join(dir, fmt.Sprintf("page-%03d.png", len(pages)+1))
		if err := gg.SavePNG(p, page); err != nil {
			return fmt.Errorf("encode page %d: %w", len(pages)+1, err)
		}
		pages = append(pages, p)
	}

	// ImportImagesFile appends to an existing file.
	if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := api.ImportImagesFile(pages, outPath, pdfcpu.DefaultImportConfig(), model.NewDefaultConfiguration()); err != nil {
		_ = os.Remove(outPath)
		return fmt.Errorf("import pages: %w", err)
	}
	return nil
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }
