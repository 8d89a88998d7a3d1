package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin     = 50.0
	maxImageWidth  = 400.0
	maxImageHeight = 300.0
	fontFamilyUTF8 = "BookFont"
	fontFamilyCore = "Helvetica"
)

var (
	headingBlue = [3]int{59, 130, 246}
	bodyGray    = [3]int{51, 51, 51}
)

// PDFOptions configures document metadata and fonts.
type PDFOptions struct {
	Title  string
	Author string
	// FontPath and BoldFontPath point at TTF files with wide glyph coverage
	// (e.g. Hangul). When missing, the core Helvetica font is used and text
	// is transcoded to cp1252.
	FontPath     string
	BoldFontPath string
	// CreationDate pins the document timestamp; zero means now.
	CreationDate time.Time
}

// PDFDocument is an A4 Document backed by fpdf, in points with 50pt margins.
type PDFDocument struct {
	pdf          *fpdf.Fpdf
	family       string
	tr           func(string) string
	contentWidth float64
}

// NewPDFDocument creates a document with its first page already started.
func NewPDFDocument(opts PDFOptions) (*PDFDocument, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(opts.Title, true)
	pdf.SetAuthor(opts.Author, true)
	pdf.SetCreator("theonebook", true)
	if !opts.CreationDate.IsZero() {
		pdf.SetCreationDate(opts.CreationDate)
		pdf.SetModificationDate(opts.CreationDate)
	}

	d := &PDFDocument{pdf: pdf, family: fontFamilyCore, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if fileExists(opts.FontPath) {
		bold := opts.FontPath
		if fileExists(opts.BoldFontPath) {
			bold = opts.BoldFontPath
		}
		pdf.AddUTF8Font(fontFamilyUTF8, "", opts.FontPath)
		pdf.AddUTF8Font(fontFamilyUTF8, "B", bold)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("load fonts: %w", err)
		}
		d.family = fontFamilyUTF8
		d.tr = func(s string) string { return s }
	}

	pageWidth, _ := pdf.GetPageSize()
	d.contentWidth = pageWidth - 2*pageMargin
	pdf.AddPage()
	if err := pdf.Error(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewPage starts a new output page.
func (d *PDFDocument) NewPage() {
	d.pdf.AddPage()
}

// ChapterHeading prints a blue left-aligned heading followed by a 1pt rule.
func (d *PDFDocument) ChapterHeading(text string) {
	d.pdf.SetFont(d.family, "B", 14)
	d.pdf.SetTextColor(headingBlue[0], headingBlue[1], headingBlue[2])
	d.pdf.MultiCell(0, 18, d.tr(text), "", "L", false)
	y := d.pdf.GetY() + 4
	d.pdf.SetDrawColor(headingBlue[0], headingBlue[1], headingBlue[2])
	d.pdf.SetLineWidth(1)
	d.pdf.Line(pageMargin, y, pageMargin+d.contentWidth, y)
	d.pdf.SetY(y + 10)
}

// PageHeading prints a centered black heading.
func (d *PDFDocument) PageHeading(text string) {
	d.pdf.SetFont(d.family, "B", 18)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.MultiCell(0, 24, d.tr(text), "", "C", false)
	d.pdf.Ln(8)
}

// Image embeds a JPEG, PNG or GIF scaled to fit min(content width, 400) x 300
// with its aspect ratio kept, horizontally centered.
func (d *PDFDocument) Image(name string, data []byte) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("decode image: empty dimensions")
	}
	var imageType string
	switch format {
	case "jpeg":
		imageType = "JPG"
	case "png":
		imageType = "PNG"
	case "gif":
		imageType = "GIF"
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}

	opts := fpdf.ImageOptions{ImageType: imageType}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := d.pdf.Error(); err != nil {
		d.pdf.ClearError()
		return fmt.Errorf("embed image: %w", err)
	}

	w, h := fitBox(float64(cfg.Width), float64(cfg.Height), math.Min(d.contentWidth, maxImageWidth), maxImageHeight)
	_, pageHeight := d.pdf.GetPageSize()
	if d.pdf.GetY()+h > pageHeight-pageMargin {
		d.pdf.AddPage()
	}
	x := pageMargin + (d.contentWidth-w)/2
	y := d.pdf.GetY()
	d.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	d.pdf.SetY(y + h + 12)
	return nil
}

// Body prints wrapped body text.
func (d *PDFDocument) Body(text string) {
	d.pdf.SetFont(d.family, "", 11)
	d.pdf.SetTextColor(bodyGray[0], bodyGray[1], bodyGray[2])
	d.pdf.MultiCell(0, 15, d.tr(normalizeNewlines(text)), "", "L", false)
	d.pdf.Ln(6)
}

// PageCount returns the number of physical pages so far.
func (d *PDFDocument) PageCount() int {
	return d.pdf.PageCount()
}

// WriteTo finalizes the document and writes it to w.
func (d *PDFDocument) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := d.pdf.Output(cw)
	return cw.n, err
}

// fitBox scales (w, h) to fit inside (maxW, maxH) keeping the aspect ratio.
func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	scale := math.Min(maxW/w, maxH/h)
	return w * scale, h * scale
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
