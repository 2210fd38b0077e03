package raster

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	gopresentation "github.com/VantageDataChat/SlideOCR"
)

// PixelsPerInch is the resolution slides are rendered at. It matches the
// composer's pixel-to-inch scale, so output slides keep the source size.
const PixelsPerInch = 96

// PPTX renders PowerPoint 2007+ files with the built-in slide renderer.
type PPTX struct {
	// FontCache is shared by every render. Nil uses a cache over the
	// system font directories plus FontDirs.
	FontCache *gopresentation.FontCache
	FontDirs  []string

	once sync.Once
}

// Extensions returns the file extensions PPTX accepts.
func (r *PPTX) Extensions() []string { return []string{".pptx"} }

// Open reads the whole presentation into memory.
func (r *PPTX) Open(ctx context.Context, path string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pres, err := gopresentation.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open presentation %s: %w", path, err)
	}
	if pres.GetSlideCount() == 0 {
		pres.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNoPages)
	}
	r.once.Do(func() {
		if r.FontCache == nil {
			r.FontCache = gopresentation.NewFontCache(r.FontDirs...)
		}
	})
	return &pptxSource{pres: pres, fonts: r.FontCache}, nil
}

type pptxSource struct {
	pres  *gopresentation.Presentation
	fonts *gopresentation.FontCache
}

func (s *pptxSource) Pages() []PageRef {
	slides := s.pres.GetAllSlides()
	refs := make([]PageRef, len(slides))
	for i, sl := range slides {
		name := sl.GetName()
		if name == "" {
			name = fmt.Sprintf("slide %d", i+1)
		}
		refs[i] = PageRef{Index: i, Name: name}
	}
	return refs
}

func (s *pptxSource) Rasterize(ctx context.Context, page PageRef, workDir string) (Raster, error) {
	if err := ctx.Err(); err != nil {
		return Raster{}, err
	}
	opts := gopresentation.DefaultRenderOptions()
	opts.PixelsPerInch = PixelsPerInch
	opts.FontCache = s.fonts

	img, err := s.pres.SlideToImage(page.Index, opts)
	if err != nil {
		return Raster{}, fmt.Errorf("render %s: %w", page.Name, err)
	}
	return writePNG(page, img, filepath.Join(workDir, pngName(page)))
}

func (s *pptxSource) Close() error {
	return s.pres.Close()
}
