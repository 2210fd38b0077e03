package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

type extensioner interface {
	Extensions() []string
}

func (d *Driver) extensions() []string {
	if len(d.cfg.Extensions) > 0 {
		return d.cfg.Extensions
	}
	if e, ok := d.rasterizer.(extensioner); ok {
		return e.Extensions()
	}
	return nil
}

// Discover returns the documents to convert: input itself when it is a
// supported file, or every supported file below input in lexical order.
// Hidden files, office lock files and outputs of earlier runs are skipped.
func (d *Driver) Discover(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInputs, err)
	}
	if !info.IsDir() {
		if !d.accepts(input) {
			return nil, fmt.Errorf("%w: %s is not a supported document", ErrNoInputs, input)
		}
		return []string{input}, nil
	}

	var found []string
	err = filepath.WalkDir(input, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			d.log.WithField("path", path).WithError(err).Warn("Skipping unreadable path")
			if e != nil && e.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if e.IsDir() {
			return nil
		}
		if d.accepts(path) && !d.isOutput(path) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputs, input)
	}
	slices.Sort(found)
	return found, nil
}

func (d *Driver) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	return slices.Contains(d.extensions(), strings.ToLower(filepath.Ext(base)))
}

// isOutput reports whether path looks like a file this tool generated.
func (d *Driver) isOutput(path string) bool {
	return d.cfg.Suffix != "" && strings.HasSuffix(strings.ToLower(path), strings.ToLower(d.cfg.Suffix)+".pptx")
}
