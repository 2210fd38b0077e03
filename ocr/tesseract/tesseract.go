// Package tesseract implements ocr.TextRecognizer with the Tesseract engine
// through gosseract. Tesseract and its language data have to be installed:
//
//	apt-get install tesseract-ocr tesseract-ocr-eng
//	brew install tesseract
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/VantageDataChat/SlideOCR/ocr"
)

// Engine runs word-level recognition. The zero value recognizes English
// with Tesseract's default page segmentation.
type Engine struct {
	// Languages passed to Tesseract, e.g. "eng", "deu". Empty means "eng".
	Languages []string
	// PageSegMode overrides the page segmentation mode when non-zero.
	PageSegMode gosseract.PageSegMode
	// TessdataPrefix points at the tessdata directory when set.
	TessdataPrefix string
	// Variables are extra Tesseract variables, e.g. "user_defined_dpi".
	Variables map[string]string

	clientFactory func() *gosseract.Client
}

// New returns an Engine for the given languages.
func New(languages ...string) *Engine {
	return &Engine{Languages: languages, clientFactory: gosseract.NewClient}
}

// Name identifies the engine in logs.
func (e *Engine) Name() string { return "tesseract" }

// Recognize runs OCR over the image at imagePath and returns one RawToken
// per recognized word. A fresh client is used per call so that an Engine
// can be shared between goroutines.
func (e *Engine) Recognize(ctx context.Context, imagePath string) ([]ocr.RawToken, error) {
	return e.run(ctx, func(c *gosseract.Client) ([]ocr.RawToken, error) {
		if err := c.SetImage(imagePath); err != nil {
			return nil, fmt.Errorf("set image %s: %w", imagePath, err)
		}
		boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", imagePath, err)
		}
		return toRawTokens(boxes), nil
	})
}

// Check verifies that Tesseract and the configured language data load by
// recognizing a small blank image.
func (e *Engine) Check(ctx context.Context) error {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = uint8(color.White.Y >> 8)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("%w: encode probe image: %v", ocr.ErrEngineUnavailable, err)
	}
	_, err := e.run(ctx, func(c *gosseract.Client) ([]ocr.RawToken, error) {
		if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
			return nil, err
		}
		_, err := c.Text()
		return nil, err
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("%w: %v", ocr.ErrEngineUnavailable, err)
	}
	return err
}

type result struct {
	tokens []ocr.RawToken
	err    error
}

// run configures a client and calls fn on it in a separate goroutine. The
// cgo call cannot be interrupted, so on cancellation run returns at once
// and the goroutine closes the client when Tesseract finishes.
func (e *Engine) run(ctx context.Context, fn func(*gosseract.Client) ([]ocr.RawToken, error)) ([]ocr.RawToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	factory := e.clientFactory
	if factory == nil {
		factory = gosseract.NewClient
	}

	done := make(chan result, 1)
	go func() {
		var res result
		defer func() {
			if r := recover(); r != nil {
				res = result{err: fmt.Errorf("tesseract panic: %v", r)}
			}
			done <- res
		}()
		c := factory()
		defer c.Close()
		if err := e.configure(c); err != nil {
			res.err = err
			return
		}
		res.tokens, res.err = fn(c)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.tokens, res.err
	}
}

func (e *Engine) configure(c *gosseract.Client) error {
	if e.TessdataPrefix != "" {
		c.TessdataPrefix = e.TessdataPrefix
	}
	langs := e.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	if err := c.SetLanguage(langs...); err != nil {
		return fmt.Errorf("set languages: %w", err)
	}
	if e.PageSegMode != 0 {
		if err := c.SetPageSegMode(e.PageSegMode); err != nil {
			return fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	for k, v := range e.Variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	return nil
}

func toRawTokens(boxes []gosseract.BoundingBox) []ocr.RawToken {
	out := make([]ocr.RawToken, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, ocr.RawToken{
			Text:       b.Word,
			Left:       b.Box.Min.X,
			Top:        b.Box.Min.Y,
			Width:      b.Box.Dx(),
			Height:     b.Box.Dy(),
			Confidence: b.Confidence,
		})
	}
	return out
}
