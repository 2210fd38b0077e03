// Package ocr defines the token model shared by the recognition stage and
// the layout stage, and the contract an OCR engine has to satisfy.
//
// Engines return RawTokens in whatever order they like. Filter turns them
// into Tokens, dropping low-confidence and blank detections, and
// SampleColors can attach an estimated ink color to each Token.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// DefaultMinConfidence is the confidence a token has to exceed to be kept.
const DefaultMinConfidence = 60

// ErrEngineUnavailable reports that the OCR engine cannot run at all
// (missing binary, missing language data, broken install).
var ErrEngineUnavailable = errors.New("ocr: engine unavailable")

// RawToken is one detection as reported by an engine.
type RawToken struct {
	Text       string
	Left       int
	Top        int
	Width      int
	Height     int
	Confidence float64 // 0-100
}

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Hex returns the color as RRGGBB.
func (c RGB) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// Token is a kept detection in page pixel coordinates.
type Token struct {
	Text       string
	X          int
	Y          int
	Width      int
	Height     int
	Confidence float64
	Color      *RGB // nil when no color was estimated
}

// Bottom returns the y coordinate of the token's bottom edge.
func (t Token) Bottom() int { return t.Y + t.Height }

// Rect returns the token's bounding box.
func (t Token) Rect() image.Rectangle {
	return image.Rect(t.X, t.Y, t.X+t.Width, t.Y+t.Height)
}

// TextRecognizer runs OCR over one raster image file.
type TextRecognizer interface {
	Recognize(ctx context.Context, imagePath string) ([]RawToken, error)
}

// Checker is implemented by recognizers that can verify their installation
// before any page is processed. Failures wrap ErrEngineUnavailable.
type Checker interface {
	Check(ctx context.Context) error
}

// RecognizerFunc adapts a function to TextRecognizer.
type RecognizerFunc func(ctx context.Context, imagePath string) ([]RawToken, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, imagePath string) ([]RawToken, error) {
	return f(ctx, imagePath)
}
