package gopresentation

// DocumentLayout represents the slide dimensions.
type DocumentLayout struct {
	CX   int64 // width in EMU (English Metric Units)
	CY   int64 // height in EMU
	Name string
}

// Standard layout names.
const (
	LayoutScreen4x3   = "screen4x3"
	LayoutScreen16x9  = "screen16x9"
	LayoutScreen16x10 = "screen16x10"
	LayoutA4          = "A4"
	LayoutCustom      = "custom"
)

const (
	defaultLayoutCX = 9144000 // 10 inches
	defaultLayoutCY = 6858000 // 7.5 inches
)

// NewDocumentLayout creates a default 4:3 layout.
func NewDocumentLayout() *DocumentLayout {
	return &DocumentLayout{
		CX:   defaultLayoutCX,
		CY:   defaultLayoutCY,
		Name: LayoutScreen4x3,
	}
}

// SetLayout sets a predefined layout. Unknown names leave the size unchanged.
func (dl *DocumentLayout) SetLayout(name string) {
	dl.Name = name
	switch name {
	case LayoutScreen4x3:
		dl.CX, dl.CY = 9144000, 6858000
	case LayoutScreen16x9:
		dl.CX, dl.CY = 12192000, 6858000
	case LayoutScreen16x10:
		dl.CX, dl.CY = 10972800, 6858000
	case LayoutA4:
		dl.CX, dl.CY = 9906000, 6858000
	}
}

// SetCustomLayout sets custom dimensions in EMU. Non-positive values fall
// back to the 4:3 defaults. Sizes matching a predefined layout take its name.
func (dl *DocumentLayout) SetCustomLayout(cx, cy int64) {
	if cx <= 0 {
		cx = defaultLayoutCX
	}
	if cy <= 0 {
		cy = defaultLayoutCY
	}
	dl.CX = cx
	dl.CY = cy
	dl.Name = layoutNameForSize(cx, cy)
}

// layoutNameForSize maps a slide size read from presentation.xml back to a
// known layout name.
func layoutNameForSize(cx, cy int64) string {
	switch {
	case cx == 9144000 && cy == 6858000:
		return LayoutScreen4x3
	case cx == 12192000 && cy == 6858000:
		return LayoutScreen16x9
	case cx == 10972800 && cy == 6858000:
		return LayoutScreen16x10
	case cx == 9906000 && cy == 6858000:
		return LayoutA4
	}
	return LayoutCustom
}
