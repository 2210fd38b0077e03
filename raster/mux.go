package raster

import (
	"context"
	"fmt"
	"slices"
)

// Format is a Rasterizer that can name the extensions it handles.
type Format interface {
	Rasterizer
	Extensions() []string
}

// Mux dispatches to the first registered Format accepting the file's
// extension.
type Mux struct {
	formats []Format
}

// NewMux returns a Mux trying formats in order.
func NewMux(formats ...Format) *Mux {
	return &Mux{formats: formats}
}

// Extensions lists every accepted extension once, in registration order.
func (m *Mux) Extensions() []string {
	var out []string
	for _, f := range m.formats {
		for _, e := range f.Extensions() {
			if !slices.Contains(out, e) {
				out = append(out, e)
			}
		}
	}
	return out
}

// Supports reports whether some format accepts path.
func (m *Mux) Supports(path string) bool {
	return m.lookup(path) != nil
}

// Open opens path with the matching format.
func (m *Mux) Open(ctx context.Context, path string) (Source, error) {
	f := m.lookup(path)
	if f == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	return f.Open(ctx, path)
}

func (m *Mux) lookup(path string) Format {
	e := ext(path)
	for _, f := range m.formats {
		if slices.Contains(f.Extensions(), e) {
			return f
		}
	}
	return nil
}
