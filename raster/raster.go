// Package raster turns source documents into one PNG file per page.
//
// A Rasterizer opens a document and returns a Source; the Source lists its
// pages and renders them one at a time into a caller-provided work
// directory. Notebook and PPTX render in-process; Office shells out to
// LibreOffice and Poppler.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupported is returned for inputs no rasterizer accepts.
	ErrUnsupported = errors.New("raster: unsupported document type")
	// ErrNoPages is returned when a document contains no renderable page.
	ErrNoPages = errors.New("raster: document has no pages")
)

// PageRef identifies one page of a Source.
type PageRef struct {
	Index int    // 0-based position in the source
	Name  string // entry or slide name, for logs
}

// Raster is a rendered page on disk.
type Raster struct {
	Page   PageRef
	Path   string // PNG file inside the work directory
	Width  int
	Height int
}

// Rasterizer opens documents of the formats it supports.
type Rasterizer interface {
	Open(ctx context.Context, path string) (Source, error)
}

// Source is an opened document. Rasterize may be called concurrently for
// different pages.
type Source interface {
	Pages() []PageRef
	Rasterize(ctx context.Context, page PageRef, workDir string) (Raster, error)
	Close() error
}

// pngName returns the file name used for a rendered page.
func pngName(page PageRef) string {
	return fmt.Sprintf("page-%04d.png", page.Index+1)
}

// writePNG encodes img into path and returns the matching Raster.
func writePNG(page PageRef, img image.Image, path string) (Raster, error) {
	f, err := os.Create(path)
	if err != nil {
		return Raster{}, fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return Raster{}, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return Raster{}, err
	}
	b := img.Bounds()
	return Raster{Page: page, Path: path, Width: b.Dx(), Height: b.Dy()}, nil
}

// statRaster fills a Raster from an image file produced by an external tool.
func statRaster(page PageRef, path string) (Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return Raster{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Raster{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return Raster{Page: page, Path: path, Width: cfg.Width, Height: cfg.Height}, nil
}

// runTool runs an external command and folds its stderr into the error.
func runTool(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", filepath.Base(name), err)
		}
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, msg)
	}
	return nil
}

// ext returns the lowercased extension of path including the dot.
func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
