package raster

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	maxSVGEntrySize = 50 << 20
	// maxSVGSide bounds the native raster size of one page.
	maxSVGSide = 8192
)

// Notebook rasterizes SMART Notebook files. Pages are the archive's
// page*.svg entries, ordered by the number in their name.
type Notebook struct {
	// MagickPath is the ImageMagick executable used when native SVG
	// rendering fails. Empty disables the fallback.
	MagickPath string
}

// Extensions returns the file extensions Notebook accepts.
func (n *Notebook) Extensions() []string { return []string{".notebook"} }

// Open opens the archive and indexes its page entries.
func (n *Notebook) Open(ctx context.Context, p string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open notebook %s: %w", p, err)
	}
	entries := notebookPages(zr.File)
	if len(entries) == 0 {
		zr.Close()
		return nil, fmt.Errorf("%s: %w", p, ErrNoPages)
	}
	return &notebookSource{zr: zr, entries: entries, magick: n.MagickPath}, nil
}

// notebookPages selects page*.svg entries and sorts them by the digits in
// their base name. Entries without digits sort first.
func notebookPages(files []*zip.File) []*zip.File {
	var pages []*zip.File
	for _, f := range files {
		base := strings.ToLower(path.Base(f.Name))
		if strings.HasPrefix(base, "page") && strings.HasSuffix(base, ".svg") {
			pages = append(pages, f)
		}
	}
	slices.SortStableFunc(pages, func(a, b *zip.File) int {
		return pageNumber(a.Name) - pageNumber(b.Name)
	})
	return pages
}

func pageNumber(name string) int {
	var digits strings.Builder
	for _, r := range path.Base(name) {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

type notebookSource struct {
	mu      sync.Mutex // guards zr
	zr      *zip.ReadCloser
	entries []*zip.File
	magick  string
}

func (s *notebookSource) Pages() []PageRef {
	refs := make([]PageRef, len(s.entries))
	for i, e := range s.entries {
		refs[i] = PageRef{Index: i, Name: e.Name}
	}
	return refs
}

func (s *notebookSource) Rasterize(ctx context.Context, page PageRef, workDir string) (Raster, error) {
	if page.Index < 0 || page.Index >= len(s.entries) {
		return Raster{}, fmt.Errorf("page %d out of range", page.Index)
	}
	data, err := s.read(s.entries[page.Index])
	if err != nil {
		return Raster{}, err
	}
	out := filepath.Join(workDir, pngName(page))

	img, nativeErr := renderSVG(data)
	if nativeErr == nil {
		return writePNG(page, img, out)
	}
	if s.magick == "" {
		return Raster{}, fmt.Errorf("render %s: %w", page.Name, nativeErr)
	}

	svgPath := filepath.Join(workDir, fmt.Sprintf("page-%04d.svg", page.Index+1))
	if err := os.WriteFile(svgPath, data, 0600); err != nil {
		return Raster{}, err
	}
	if err := runTool(ctx, s.magick, svgPath, out); err != nil {
		return Raster{}, fmt.Errorf("render %s: native: %v; magick: %w", page.Name, nativeErr, err)
	}
	return statRaster(page, out)
}

func (s *notebookSource) read(f *zip.File) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.UncompressedSize64 > maxSVGEntrySize {
		return nil, fmt.Errorf("entry %s exceeds %d bytes", f.Name, maxSVGEntrySize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxSVGEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
	}
	if len(data) > maxSVGEntrySize {
		return nil, fmt.Errorf("entry %s exceeds %d bytes", f.Name, maxSVGEntrySize)
	}
	return data, nil
}

func (s *notebookSource) Close() error {
	return s.zr.Close()
}

// renderSVG rasterizes an SVG document at one pixel per user unit on a
// white background.
func renderSVG(data []byte) (img *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("svg renderer panic: %v", r)
		}
	}()
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	w, h := int(icon.ViewBox.W+0.5), int(icon.ViewBox.H+0.5)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg has no size")
	}
	if w > maxSVGSide || h > maxSVGSide {
		return nil, fmt.Errorf("svg size %dx%d exceeds %d", w, h, maxSVGSide)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img = image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return img, nil
}
