package ocr

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Filter converts raw detections into Tokens. A detection is dropped when its
// confidence is not above minConfidence or when its text is blank. Kept text
// is trimmed and normalized to NFC. Input order is preserved; the layout
// stage sorts explicitly.
func Filter(raw []RawToken, minConfidence float64) []Token {
	out := make([]Token, 0, len(raw))
	for _, r := range raw {
		if r.Confidence <= minConfidence {
			continue
		}
		text := strings.TrimSpace(norm.NFC.String(r.Text))
		if text == "" {
			continue
		}
		out = append(out, Token{
			Text:       text,
			X:          r.Left,
			Y:          r.Top,
			Width:      max(r.Width, 0),
			Height:     max(r.Height, 0),
			Confidence: r.Confidence,
		})
	}
	return out
}
