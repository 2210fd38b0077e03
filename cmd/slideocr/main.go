// Command slideocr converts SMART Notebook and PowerPoint files into new
// presentations whose slides carry editable text recognized with Tesseract.
//
//	slideocr -i lessons/ -o out/
//	slideocr -i deck.pptx -mode tokens -keep-image -lang eng+deu
//	slideocr -i lesson.notebook -mode image
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	gopresentation "github.com/VantageDataChat/SlideOCR"
	"github.com/VantageDataChat/SlideOCR/compose"
	"github.com/VantageDataChat/SlideOCR/layout"
	"github.com/VantageDataChat/SlideOCR/ocr"
	"github.com/VantageDataChat/SlideOCR/ocr/tesseract"
	"github.com/VantageDataChat/SlideOCR/pipeline"
	"github.com/VantageDataChat/SlideOCR/raster"
)

type options struct {
	input     string
	outputDir string
	mode      string
	keepImage bool
	suffix    string
	lang      string
	psm       int
	tessdata  string
	minConf   float64
	spacing   int
	color     bool
	workers   int
	timeout   time.Duration
	retries   int
	office    bool
	soffice   string
	pdftoppm  string
	magick    string
	fontDirs  string
	verbose   bool
	version   bool
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("slideocr", flag.ContinueOnError)
	fs.StringVar(&o.input, "input", "", "file or directory to convert (required)")
	fs.StringVar(&o.input, "i", "", "shorthand for -input")
	fs.StringVar(&o.outputDir, "output-dir", "", "directory for generated files (default: next to each input)")
	fs.StringVar(&o.outputDir, "o", "", "shorthand for -output-dir")
	fs.StringVar(&o.mode, "mode", string(compose.ModeBlocks), "slide content: blocks, tokens, text or image")
	fs.BoolVar(&o.keepImage, "keep-image", false, "place the page image behind recognized text")
	fs.StringVar(&o.suffix, "suffix", pipeline.DefaultSuffix, "appended to the output file name")
	fs.StringVar(&o.lang, "lang", "eng", "Tesseract languages, joined with +")
	fs.IntVar(&o.psm, "psm", 0, "Tesseract page segmentation mode (0: engine default)")
	fs.StringVar(&o.tessdata, "tessdata", os.Getenv("TESSDATA_PREFIX"), "tessdata directory")
	fs.Float64Var(&o.minConf, "min-confidence", ocr.DefaultMinConfidence, "drop words at or below this confidence")
	fs.IntVar(&o.spacing, "spacing", layout.DefaultSpacing, "vertical gap in pixels that separates text blocks")
	fs.BoolVar(&o.color, "color", false, "estimate text colors from the page image")
	fs.IntVar(&o.workers, "workers", 1, "pages processed in parallel")
	fs.DurationVar(&o.timeout, "page-timeout", 0, "time limit per page, e.g. 2m (0: none)")
	fs.IntVar(&o.retries, "retries", 0, "extra rasterization attempts per page")
	fs.BoolVar(&o.office, "office", false, "render .pptx through LibreOffice instead of the built-in renderer")
	fs.StringVar(&o.soffice, "soffice", envOr("SLIDEOCR_SOFFICE", "soffice"), "LibreOffice executable")
	fs.StringVar(&o.pdftoppm, "pdftoppm", envOr("SLIDEOCR_PDFTOPPM", "pdftoppm"), "pdftoppm executable")
	fs.StringVar(&o.magick, "magick", envOr("SLIDEOCR_MAGICK", "magick"), "ImageMagick executable for SVG fallback")
	fs.StringVar(&o.fontDirs, "fonts", "", "extra font directories for the built-in renderer, separated by "+string(os.PathListSeparator))
	fs.BoolVar(&o.verbose, "verbose", false, "debug logging")
	fs.BoolVar(&o.verbose, "v", false, "shorthand for -verbose")
	fs.BoolVar(&o.version, "version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if o.version {
		return o, nil
	}
	if o.input == "" {
		return nil, errors.New("-input is required")
	}
	if o.workers < 1 {
		return nil, errors.New("-workers must be at least 1")
	}
	if o.spacing < 0 {
		return nil, errors.New("-spacing must not be negative")
	}
	return o, nil
}

func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func newRasterizer(o *options) *raster.Mux {
	var fontDirs []string
	if o.fontDirs != "" {
		fontDirs = strings.Split(o.fontDirs, string(os.PathListSeparator))
	}
	office := &raster.Office{SofficePath: o.soffice, PdftoppmPath: o.pdftoppm}
	if o.office {
		office.Exts = []string{".ppt", ".pptx"}
		return raster.NewMux(&raster.Notebook{MagickPath: o.magick}, office)
	}
	return raster.NewMux(
		&raster.Notebook{MagickPath: o.magick},
		&raster.PPTX{FontDirs: fontDirs},
		office,
	)
}

func newRecognizer(o *options) *tesseract.Engine {
	langs := strings.FieldsFunc(o.lang, func(r rune) bool { return r == '+' || r == ',' })
	e := tesseract.New(langs...)
	e.PageSegMode = gosseract.PageSegMode(o.psm)
	e.TessdataPrefix = o.tessdata
	return e
}

func run(ctx context.Context, args []string) int {
	o, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "slideocr: %v\n", err)
		return 1
	}
	if o.version {
		fmt.Println(gopresentation.ApplicationName())
		return 0
	}
	mode, err := compose.ParseMode(o.mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "slideocr: %v\n", err)
		return 1
	}

	log := newLogger(o.verbose)
	cfg := pipeline.DefaultConfig()
	cfg.Logger = log
	cfg.RunID = uuid.NewString()
	cfg.OutputDir = o.outputDir
	cfg.Suffix = o.suffix
	cfg.Mode = mode
	cfg.KeepImage = o.keepImage
	cfg.MinConfidence = o.minConf
	cfg.Spacing = o.spacing
	cfg.SampleColor = o.color
	cfg.Workers = o.workers
	cfg.PageTimeout = o.timeout
	cfg.Retries = o.retries

	var recognizer ocr.TextRecognizer
	if mode.NeedsOCR() {
		recognizer = newRecognizer(o)
	}
	driver := pipeline.New(cfg, newRasterizer(o), recognizer, compose.NewPPTXWriter())

	sum, err := driver.Run(ctx, o.input)
	if err != nil {
		entry := log.WithField("run", cfg.RunID).WithError(err)
		if errors.Is(err, pipeline.ErrNoInputs) {
			entry.Error("No input documents found")
			return 1
		}
		// Inputs were found; an interrupted batch still exits 0.
		entry.WithField("documents", sum.Documents).Warn("Run interrupted")
		return 0
	}
	if sum.Failed > 0 {
		log.WithField("run", cfg.RunID).Warnf("%d of %d documents failed", sum.Failed, sum.Documents)
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
