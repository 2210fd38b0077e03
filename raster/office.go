package raster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Office converts documents to PDF with LibreOffice and renders the PDF
// pages with pdftoppm.
type Office struct {
	// SofficePath and PdftoppmPath name the executables. Empty means
	// "soffice" and "pdftoppm" on PATH.
	SofficePath  string
	PdftoppmPath string
	// Exts overrides the accepted extensions. Default: .ppt.
	Exts []string
}

// Extensions returns the file extensions Office accepts.
func (o *Office) Extensions() []string {
	if len(o.Exts) > 0 {
		return o.Exts
	}
	return []string{".ppt"}
}

func (o *Office) soffice() string {
	if o.SofficePath != "" {
		return o.SofficePath
	}
	return "soffice"
}

func (o *Office) pdftoppm() string {
	if o.PdftoppmPath != "" {
		return o.PdftoppmPath
	}
	return "pdftoppm"
}

// Open converts the document to PDF in a private directory that Close
// removes.
func (o *Office) Open(ctx context.Context, path string) (Source, error) {
	dir, err := os.MkdirTemp("", "slideocr-office-*")
	if err != nil {
		return nil, err
	}
	src, err := o.open(ctx, path, dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return src, nil
}

func (o *Office) open(ctx context.Context, path, dir string) (*officeSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	// A private profile lets several conversions run next to a desktop session.
	profile := "-env:UserInstallation=file://" + filepath.ToSlash(filepath.Join(dir, "profile"))
	if err := runTool(ctx, o.soffice(), profile, "--headless", "--convert-to", "pdf", "--outdir", dir, abs); err != nil {
		return nil, fmt.Errorf("convert %s to pdf: %w", path, err)
	}
	pdfPath := filepath.Join(dir, strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("expected pdf not found: %w", err)
	}

	src := &officeSource{dir: dir, pdfPath: pdfPath, pdftoppm: o.pdftoppm()}
	n, err := pdfPageCount(pdfPath)
	if err != nil {
		// Render everything up front and serve the files.
		src.pages, err = src.renderAll(ctx)
		if err != nil {
			return nil, err
		}
		n = len(src.pages)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoPages)
	}
	src.count = n
	return src, nil
}

func pdfPageCount(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return r.NumPage(), nil
}

type officeSource struct {
	dir      string
	pdfPath  string
	pdftoppm string
	count    int
	pages    []string // pre-rendered pages, when the page count was unknown
}

func (s *officeSource) Pages() []PageRef {
	refs := make([]PageRef, s.count)
	for i := range refs {
		refs[i] = PageRef{Index: i, Name: fmt.Sprintf("page %d", i+1)}
	}
	return refs
}

func (s *officeSource) Rasterize(ctx context.Context, page PageRef, workDir string) (Raster, error) {
	if page.Index < 0 || page.Index >= s.count {
		return Raster{}, fmt.Errorf("page %d out of range", page.Index)
	}
	if s.pages != nil {
		return statRaster(page, s.pages[page.Index])
	}
	prefix := filepath.Join(workDir, strings.TrimSuffix(pngName(page), ".png"))
	n := strconv.Itoa(page.Index + 1)
	err := runTool(ctx, s.pdftoppm, "-png", "-r", strconv.Itoa(PixelsPerInch),
		"-f", n, "-l", n, "-singlefile", s.pdfPath, prefix)
	if err != nil {
		return Raster{}, fmt.Errorf("render %s: %w", page.Name, err)
	}
	return statRaster(page, prefix+".png")
}

// renderAll renders every page into the source directory and returns the
// files in page order.
func (s *officeSource) renderAll(ctx context.Context) ([]string, error) {
	prefix := filepath.Join(s.dir, "all")
	if err := runTool(ctx, s.pdftoppm, "-png", "-r", strconv.Itoa(PixelsPerInch), s.pdfPath, prefix); err != nil {
		return nil, fmt.Errorf("render %s: %w", filepath.Base(s.pdfPath), err)
	}
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	slices.SortFunc(matches, func(a, b string) int {
		return trailingNumber(a) - trailingNumber(b)
	})
	return matches, nil
}

// trailingNumber parses the page number pdftoppm appends: all-1.png,
// all-01.png, all-10.png.
func trailingNumber(name string) int {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	end := len(base)
	for end > 0 && base[end-1] >= '0' && base[end-1] <= '9' {
		end--
	}
	n, _ := strconv.Atoi(base[end:])
	return n
}

func (s *officeSource) Close() error {
	return os.RemoveAll(s.dir)
}
