// Command pptxrender renders the slides of a .pptx file to images with the
// built-in renderer. It shows what the OCR stage of slideocr will see.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	gopresentation "github.com/VantageDataChat/SlideOCR"
)

type options struct {
	input  string
	outDir string
	slide  int
	ppi    float64
	width  int
	format string
	fonts  string
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("pptxrender", flag.ContinueOnError)
	fs.StringVar(&o.input, "i", "", "presentation to render (required)")
	fs.StringVar(&o.outDir, "o", ".", "output directory")
	fs.IntVar(&o.slide, "slide", 0, "render only this slide (1-based)")
	fs.Float64Var(&o.ppi, "ppi", 96, "pixels per slide inch; 0 uses -width")
	fs.IntVar(&o.width, "width", 1920, "image width when -ppi is 0")
	fs.StringVar(&o.format, "format", "png", "png or jpeg")
	fs.StringVar(&o.fonts, "fonts", "", "extra font directories, separated by "+string(os.PathListSeparator))
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.input == "" {
		return nil, errors.New("-i is required")
	}
	switch strings.ToLower(o.format) {
	case "png", "jpeg", "jpg":
	default:
		return nil, fmt.Errorf("unknown format %q", o.format)
	}
	return o, nil
}

func render(o *options, log logrus.FieldLogger) error {
	pres, err := gopresentation.Open(o.input)
	if err != nil {
		return fmt.Errorf("read %s: %w", o.input, err)
	}
	defer pres.Close()

	if err := os.MkdirAll(o.outDir, 0750); err != nil {
		return err
	}

	opts := gopresentation.DefaultRenderOptions()
	opts.PixelsPerInch = o.ppi
	opts.Width = o.width
	ext := ".png"
	if f := strings.ToLower(o.format); f == "jpeg" || f == "jpg" {
		opts.Format = gopresentation.ImageFormatJPEG
		ext = ".jpg"
	}
	if o.fonts != "" {
		opts.FontCache = gopresentation.NewFontCache(strings.Split(o.fonts, string(os.PathListSeparator))...)
	} else {
		opts.FontCache = gopresentation.NewFontCache()
	}

	first, last := 0, pres.GetSlideCount()-1
	if o.slide > 0 {
		first, last = o.slide-1, o.slide-1
	}
	stem := strings.TrimSuffix(filepath.Base(o.input), filepath.Ext(o.input))
	for i := first; i <= last; i++ {
		path := filepath.Join(o.outDir, fmt.Sprintf("%s-slide%02d%s", stem, i+1, ext))
		if err := pres.SaveSlideAsImage(i, path, opts); err != nil {
			return fmt.Errorf("slide %d: %w", i+1, err)
		}
		log.WithFields(logrus.Fields{"slide": i + 1, "path": path}).Debug("Rendered slide")
	}
	log.WithFields(logrus.Fields{"slides": last - first + 1, "dir": o.outDir}).Info("Rendered presentation")
	return nil
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "pptxrender: %v\n", err)
		os.Exit(2)
	}
	if err := render(o, log); err != nil {
		log.WithError(err).Error("Render failed")
		os.Exit(1)
	}
}
