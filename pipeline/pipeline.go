// Package pipeline drives the conversion of documents: rasterize every
// page, recognize and cluster its text, compose one slide per page, and save
// one presentation per input.
//
// Page failures are logged and the page is skipped. A document fails only
// when its container cannot be opened, the recognizer is unavailable, or
// recognition failed on every rasterized page.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png" // page rasters
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/VantageDataChat/SlideOCR/compose"
	"github.com/VantageDataChat/SlideOCR/layout"
	"github.com/VantageDataChat/SlideOCR/ocr"
	"github.com/VantageDataChat/SlideOCR/raster"
)

// ErrNoInputs is returned by Run when no supported document was found.
var ErrNoInputs = errors.New("pipeline: no input documents found")

// DocumentWriter persists a composed document.
type DocumentWriter interface {
	Write(ctx context.Context, doc *compose.Document, path string) error
}

// Result describes one processed document.
type Result struct {
	Input   string
	Output  string
	Pages   int // pages in the source
	Slides  int // slides composed from successful pages
	Skipped int // pages dropped after a failure
}

// Summary aggregates a batch run.
type Summary struct {
	Documents int
	Succeeded int
	Failed    int
	Results   []Result
}

// Driver runs the pipeline. It is safe to reuse across documents but not
// for concurrent Process calls sharing an output path.
type Driver struct {
	cfg        Config
	rasterizer raster.Rasterizer
	recognizer ocr.TextRecognizer
	writer     DocumentWriter
	clusterer  *layout.Clusterer
	composer   *compose.Composer
	log        logrus.FieldLogger
}

// New returns a Driver. recognizer may be nil when cfg.Mode does not need OCR.
func New(cfg Config, rasterizer raster.Rasterizer, recognizer ocr.TextRecognizer, writer DocumentWriter) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Mode == "" {
		cfg.Mode = compose.ModeBlocks
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	log := cfg.Logger
	if cfg.RunID != "" {
		log = log.WithField("run", cfg.RunID)
	}
	return &Driver{
		cfg:        cfg,
		rasterizer: rasterizer,
		recognizer: recognizer,
		writer:     writer,
		clusterer:  layout.NewClusterer(cfg.Spacing),
		composer:   &compose.Composer{Mode: cfg.Mode, KeepImage: cfg.KeepImage},
		log:        log,
	}
}

// OutputPath returns where the presentation generated from input goes.
func (d *Driver) OutputPath(input string) string {
	dir := d.cfg.OutputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+d.cfg.Suffix+".pptx")
}

// Run processes every document found at input, one after another.
// Document failures are logged and counted; Run itself fails only when
// nothing was found or ctx ends.
func (d *Driver) Run(ctx context.Context, input string) (Summary, error) {
	var sum Summary
	inputs, err := d.Discover(input)
	if err != nil {
		return sum, err
	}
	d.log.WithFields(logrus.Fields{"input": input, "documents": len(inputs)}).Info("Starting conversion")

	for _, path := range inputs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Documents++
		res, err := d.Process(ctx, path)
		if err != nil {
			sum.Failed++
			d.log.WithField("document", path).WithError(err).Error("Conversion failed")
			continue
		}
		sum.Succeeded++
		sum.Results = append(sum.Results, res)
	}
	d.log.WithFields(logrus.Fields{
		"documents": sum.Documents,
		"succeeded": sum.Succeeded,
		"failed":    sum.Failed,
	}).Info("Conversion finished")
	return sum, nil
}

type pageOutcome struct {
	page    compose.Page
	ok      bool
	ocrFail bool // rasterized but recognition failed
	err     error
}

// Process converts one document and writes its presentation.
func (d *Driver) Process(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	res := Result{Input: path, Output: d.OutputPath(path)}
	log := d.log.WithField("document", path)

	if sameFile(path, res.Output) {
		return res, fmt.Errorf("output %s would overwrite the input", res.Output)
	}
	needsOCR := d.cfg.Mode.NeedsOCR()
	if needsOCR && d.recognizer == nil {
		return res, fmt.Errorf("%w: no recognizer configured", ocr.ErrEngineUnavailable)
	}

	workDir, err := os.MkdirTemp("", "slideocr-*")
	if err != nil {
		return res, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	doc := compose.NewDocument(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	src, err := d.rasterizer.Open(ctx, path)
	switch {
	case errors.Is(err, raster.ErrNoPages):
		log.WithError(err).Warn("Document has no pages")
	case err != nil:
		return res, fmt.Errorf("open %s: %w", path, err)
	default:
		defer src.Close()
		if needsOCR {
			if c, ok := d.recognizer.(ocr.Checker); ok {
				if err := c.Check(ctx); err != nil {
					return res, err
				}
			}
		}
		if err := d.convertPages(ctx, src, workDir, doc, &res, log); err != nil {
			return res, err
		}
	}

	if len(doc.Slides) == 0 {
		log.Warn("No usable pages; writing an empty presentation")
	}
	if dir := filepath.Dir(res.Output); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return res, fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := d.writer.Write(ctx, doc, res.Output); err != nil {
		return res, fmt.Errorf("write %s: %w", res.Output, err)
	}
	res.Slides = len(doc.Slides)
	log.WithFields(logrus.Fields{
		"output":  res.Output,
		"slides":  res.Slides,
		"skipped": res.Skipped,
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Saved presentation")
	return res, nil
}

// convertPages rasterizes and recognizes pages with up to Workers
// goroutines, then composes them in source order.
func (d *Driver) convertPages(ctx context.Context, src raster.Source, workDir string, doc *compose.Document, res *Result, log logrus.FieldLogger) error {
	pages := src.Pages()
	res.Pages = len(pages)
	outcomes := make([]pageOutcome, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)
	for i, ref := range pages {
		g.Go(func() error {
			outcomes[i] = d.processPage(gctx, src, ref, workDir)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	rasterized, ocrFailed := 0, 0
	var lastOCRErr error
	for i, o := range outcomes {
		plog := log.WithFields(logrus.Fields{"page": i + 1, "name": pages[i].Name})
		if !o.ok {
			res.Skipped++
			if o.ocrFail {
				rasterized++
				ocrFailed++
				lastOCRErr = o.err
				plog.WithError(o.err).Error("Text recognition failed; skipping page")
			} else {
				plog.WithError(o.err).Error("Rasterization failed; skipping page")
			}
			continue
		}
		rasterized++
		slide := d.composer.ComposePage(o.page)
		doc.Append(o.page, slide)
		plog.WithFields(logrus.Fields{
			"tokens":   len(o.page.Tokens),
			"blocks":   len(o.page.Blocks),
			"elements": len(slide.Elements),
		}).Debug("Composed slide")
	}

	if rasterized > 0 && ocrFailed == rasterized {
		return fmt.Errorf("%w: recognition failed on all %d pages: %v", ocr.ErrEngineUnavailable, ocrFailed, lastOCRErr)
	}
	return nil
}

// processPage never returns an error; failures are recorded in the outcome.
func (d *Driver) processPage(ctx context.Context, src raster.Source, ref raster.PageRef, workDir string) pageOutcome {
	if d.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.PageTimeout)
		defer cancel()
	}

	ras, err := d.rasterize(ctx, src, ref, workDir)
	if err != nil {
		return pageOutcome{err: err}
	}
	defer os.Remove(ras.Path)

	page := compose.Page{Index: ref.Index, Width: ras.Width, Height: ras.Height}
	var data []byte
	if !d.cfg.Mode.NeedsOCR() || d.cfg.KeepImage || d.cfg.SampleColor {
		data, err = os.ReadFile(ras.Path)
		if err != nil {
			return pageOutcome{err: fmt.Errorf("read raster: %w", err)}
		}
		page.Image = data
		page.ImageMIME = "image/png"
	}
	if !d.cfg.Mode.NeedsOCR() {
		return pageOutcome{page: page, ok: true}
	}

	raw, err := d.recognizer.Recognize(ctx, ras.Path)
	if err != nil {
		return pageOutcome{ocrFail: true, err: err}
	}
	tokens := ocr.Filter(raw, d.cfg.MinConfidence)
	if d.cfg.SampleColor && len(tokens) > 0 {
		if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
			tokens = ocr.SampleColors(img, tokens)
		}
	}
	if !d.cfg.KeepImage {
		page.Image, page.ImageMIME = nil, ""
	}
	page.Tokens = tokens
	page.Blocks = d.clusterer.Cluster(tokens)
	return pageOutcome{page: page, ok: true}
}

// rasterize retries failed attempts up to cfg.Retries times.
func (d *Driver) rasterize(ctx context.Context, src raster.Source, ref raster.PageRef, workDir string) (raster.Raster, error) {
	var lastErr error
	for attempt := 0; attempt <= d.cfg.Retries; attempt++ {
		ras, err := src.Rasterize(ctx, ref, workDir)
		if err == nil {
			return ras, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		d.log.WithFields(logrus.Fields{"page": ref.Index + 1, "attempt": attempt + 1}).WithError(err).Debug("Rasterization attempt failed")
	}
	return raster.Raster{}, lastErr
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
