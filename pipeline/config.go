package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/VantageDataChat/SlideOCR/compose"
	"github.com/VantageDataChat/SlideOCR/layout"
	"github.com/VantageDataChat/SlideOCR/ocr"
)

// DefaultSuffix is appended to the input's base name to name the output.
const DefaultSuffix = "_ocr"

// Config controls a Driver. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// Logger receives all progress and failure reports.
	Logger logrus.FieldLogger
	// RunID tags every log line of one invocation when set.
	RunID string

	// OutputDir receives the generated files. Empty writes next to each input.
	OutputDir string
	// Suffix is appended to the input's base name.
	Suffix string
	// Extensions restricts directory discovery. Empty uses whatever the
	// rasterizer reports.
	Extensions []string

	Mode          compose.Mode
	KeepImage     bool
	MinConfidence float64
	Spacing       int
	// SampleColor estimates a text color for every token.
	SampleColor bool

	// Workers bounds how many pages are rasterized and recognized at once.
	Workers int
	// PageTimeout bounds rasterization plus recognition of one page.
	// Zero means no limit.
	PageTimeout time.Duration
	// Retries is the number of extra rasterization attempts per page.
	Retries int
}

// DefaultConfig returns the configuration used by the command line tool
// when no flag is given.
func DefaultConfig() Config {
	return Config{
		Logger:        logrus.StandardLogger(),
		Suffix:        DefaultSuffix,
		Mode:          compose.ModeBlocks,
		MinConfidence: ocr.DefaultMinConfidence,
		Spacing:       layout.DefaultSpacing,
		Workers:       1,
	}
}
