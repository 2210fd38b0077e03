// Package layout groups OCR tokens into blocks by vertical adjacency.
//
// Tokens are ordered top to bottom and a new block starts wherever the gap
// between one token's bottom edge and the next token's top edge exceeds the
// spacing threshold. Tokens are never reordered horizontally, so multi-column
// pages come out interleaved by y.
package layout

import (
	"image"
	"slices"
	"strings"

	"github.com/VantageDataChat/SlideOCR/ocr"
)

// DefaultSpacing is the vertical gap in pixels above which a block closes.
const DefaultSpacing = 20

// Block is a run of vertically adjacent tokens.
type Block struct {
	// Tokens in cluster order (ascending y, stable).
	Tokens []ocr.Token
}

// Anchor returns the first member token.
func (b Block) Anchor() ocr.Token {
	if len(b.Tokens) == 0 {
		return ocr.Token{}
	}
	return b.Tokens[0]
}

// Bounds returns the union of the member bounding boxes.
func (b Block) Bounds() image.Rectangle {
	var r image.Rectangle
	for i, t := range b.Tokens {
		if i == 0 {
			r = t.Rect()
			continue
		}
		r = r.Union(t.Rect())
	}
	return r
}

// Text joins member texts with a single space in cluster order.
func (b Block) Text() string {
	parts := make([]string, len(b.Tokens))
	for i, t := range b.Tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// Color returns the color of the first member that has one.
func (b Block) Color() *ocr.RGB {
	for _, t := range b.Tokens {
		if t.Color != nil {
			return t.Color
		}
	}
	return nil
}

// Clusterer groups tokens into blocks.
type Clusterer struct {
	Spacing int
}

// NewClusterer returns a Clusterer with the given spacing. A negative
// spacing falls back to DefaultSpacing.
func NewClusterer(spacing int) *Clusterer {
	if spacing < 0 {
		spacing = DefaultSpacing
	}
	return &Clusterer{Spacing: spacing}
}

// Cluster sorts tokens by ascending y and splits them into blocks in a
// single pass. The input slice is not modified. Empty input yields no blocks.
func (c *Clusterer) Cluster(tokens []ocr.Token) []Block {
	if len(tokens) == 0 {
		return nil
	}
	sorted := slices.Clone(tokens)
	slices.SortStableFunc(sorted, func(a, b ocr.Token) int {
		return a.Y - b.Y
	})

	var blocks []Block
	current := []ocr.Token{sorted[0]}
	prevBottom := sorted[0].Bottom()
	for _, t := range sorted[1:] {
		if t.Y-prevBottom > c.Spacing {
			blocks = append(blocks, Block{Tokens: current})
			current = nil
		}
		current = append(current, t)
		prevBottom = t.Bottom()
	}
	return append(blocks, Block{Tokens: current})
}

// Flatten concatenates block members back into one token list.
func Flatten(blocks []Block) []ocr.Token {
	var out []ocr.Token
	for _, b := range blocks {
		out = append(out, b.Tokens...)
	}
	return out
}
