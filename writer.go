package gopresentation

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PPTXWriter writes presentations in PPTX format.
type PPTXWriter struct {
	presentation *Presentation
	// media maps every picture to its 1-based index under ppt/media.
	media      map[*DrawingShape]int
	mediaOrder []*DrawingShape
}

// Save writes the presentation to a file. The package is first written to a
// temporary file in the destination directory and then renamed over path, so
// readers never observe a partially written deck.
func (w *PPTXWriter) Save(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmp := f.Name()

	writeErr := w.WriteTo(f)
	closeErr := f.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmp)
		return writeErr
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// WriteTo writes the presentation to a writer.
func (w *PPTXWriter) WriteTo(writer io.Writer) error {
	if w.presentation == nil {
		return fmt.Errorf("presentation is nil")
	}

	w.indexMedia()
	zw := zip.NewWriter(writer)

	parts := []func(*zip.Writer) error{
		w.writeContentTypes,
		w.writeRootRels,
		w.writeAppProperties,
		w.writeCoreProperties,
		w.writePresentation,
		w.writePresentationRels,
		w.writePresProps,
		w.writeViewProps,
		w.writeTableStyles,
		w.writeSlideMaster,
		w.writeSlideLayout,
		w.writeTheme,
	}
	for _, part := range parts {
		if err := part(zw); err != nil {
			return err
		}
	}

	for i, slide := range w.presentation.slides {
		if err := w.writeSlide(zw, slide, i+1); err != nil {
			return err
		}
		if err := w.writeSlideRels(zw, slide, i+1); err != nil {
			return err
		}
	}

	if err := w.writeMedia(zw); err != nil {
		return err
	}

	return zw.Close()
}

// indexMedia assigns media part numbers to pictures in document order.
func (w *PPTXWriter) indexMedia() {
	w.media = make(map[*DrawingShape]int)
	w.mediaOrder = w.mediaOrder[:0]
	for _, slide := range w.presentation.slides {
		for _, shape := range slide.shapes {
			ds, ok := shape.(*DrawingShape)
			if !ok || len(ds.data) == 0 {
				continue
			}
			if _, seen := w.media[ds]; seen {
				continue
			}
			w.mediaOrder = append(w.mediaOrder, ds)
			w.media[ds] = len(w.mediaOrder)
		}
	}
}
