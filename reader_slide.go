package gopresentation

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxXMLDepth bounds element nesting in a slide part.
const maxXMLDepth = 256

// xmlNode is a namespace-stripped element tree of one XML part.
type xmlNode struct {
	name     string
	attrs    map[string]string
	children []*xmlNode
	text     strings.Builder
}

func parseXMLTree(data []byte) (*xmlNode, error) {
	decoder := newXMLDecoder(data)
	root := &xmlNode{name: "#document"}
	stack := []*xmlNode{root}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) > maxXMLDepth {
				return nil, fmt.Errorf("xml nesting exceeds %d levels", maxXMLDepth)
			}
			n := &xmlNode{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			stack[len(stack)-1].text.Write(t)
		}
	}
	return root, nil
}

// child returns the first direct child with the given local name.
func (n *xmlNode) child(name string) *xmlNode {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// path follows a chain of direct children.
func (n *xmlNode) path(names ...string) *xmlNode {
	cur := n
	for _, name := range names {
		cur = cur.child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// content returns the character data of n.
func (n *xmlNode) content() string {
	if n == nil {
		return ""
	}
	return n.text.String()
}

func (n *xmlNode) attr(name string) string {
	if n == nil {
		return ""
	}
	return n.attrs[name]
}

// defaultSchemeColors resolves schemeClr references when the theme is not
// consulted.
var defaultSchemeColors = map[string]string{
	"tx1": "000000", "dk1": "000000",
	"bg1": "FFFFFF", "lt1": "FFFFFF",
	"tx2": "44546A", "dk2": "44546A",
	"bg2": "E7E6E6", "lt2": "E7E6E6",
}

func init() {
	for _, c := range themeColors {
		defaultSchemeColors[c.name] = c.val
	}
}

// nodeColor reads an srgbClr, sysClr or schemeClr child of n.
func nodeColor(n *xmlNode) (Color, bool) {
	if n == nil {
		return Color{}, false
	}
	if c := n.child("srgbClr"); c != nil {
		if v := c.attr("val"); len(v) == 6 {
			return NewColor(v), true
		}
	}
	if c := n.child("sysClr"); c != nil {
		if v := c.attr("lastClr"); len(v) == 6 {
			return NewColor(v), true
		}
	}
	if c := n.child("schemeClr"); c != nil {
		if v, ok := defaultSchemeColors[c.attr("val")]; ok {
			return NewColor(v), true
		}
	}
	return Color{}, false
}

// solidFill reads <a:solidFill> under n; <a:noFill> yields FillNone.
func solidFill(n *xmlNode) *Fill {
	if n == nil {
		return nil
	}
	if sf := n.child("solidFill"); sf != nil {
		if c, ok := nodeColor(sf); ok {
			return NewFill().SetSolid(c)
		}
	}
	if n.child("noFill") != nil {
		return NewFill()
	}
	return nil
}

// xform maps child coordinates of a group onto slide coordinates.
type xform struct {
	offX, offY     int64
	scaleX, scaleY float64
}

var identityXform = xform{scaleX: 1, scaleY: 1}

func (t xform) apply(x, y, cx, cy int64) (int64, int64, int64, int64) {
	return t.offX + int64(float64(x)*t.scaleX),
		t.offY + int64(float64(y)*t.scaleY),
		int64(float64(cx) * t.scaleX),
		int64(float64(cy) * t.scaleY)
}

// slideContext carries per-part state while a shape tree is walked.
type slideContext struct {
	pkg       *pptxPackage
	partPath  string
	rels      []xmlRelForRead
	layoutPHs map[string]*xmlNode
}

func (r *PPTXReader) readSlide(pkg *pptxPackage, path string) (*Slide, error) {
	data, err := pkg.readFile(path)
	if err != nil {
		return nil, err
	}
	root, err := parseXMLTree(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	relsPath := dirOf(path) + "/_rels/" + lastPathComponent(path) + ".rels"
	slideRels, _ := r.readRelationships(pkg, relsPath)

	ctx := &slideContext{pkg: pkg, partPath: path, rels: slideRels}
	ctx.layoutPHs = r.readLayoutPlaceholders(pkg, relTargetByType(slideRels, relTypeSlideLayout, path))

	slide := newSlide()
	cSld := root.path("sld", "cSld")
	slide.name = cSld.attr("name")
	if bg := solidFill(cSld.path("bg", "bgPr")); bg != nil {
		slide.background = bg
	}

	if tree := cSld.child("spTree"); tree != nil {
		r.readShapeTree(ctx, tree, identityXform, slide)
	}
	return slide, nil
}

// readLayoutPlaceholders indexes the placeholders of a slide layout by
// type and by idx so that slide placeholders without an xfrm can inherit one.
func (r *PPTXReader) readLayoutPlaceholders(pkg *pptxPackage, layoutPath string) map[string]*xmlNode {
	if layoutPath == "" {
		return nil
	}
	data, err := pkg.readFile(layoutPath)
	if err != nil {
		return nil
	}
	root, err := parseXMLTree(data)
	if err != nil {
		return nil
	}
	tree := root.path("sldLayout", "cSld", "spTree")
	if tree == nil {
		return nil
	}
	phs := make(map[string]*xmlNode)
	for _, sp := range tree.children {
		if sp.name != "sp" {
			continue
		}
		ph := sp.path("nvSpPr", "nvPr", "ph")
		if ph == nil {
			continue
		}
		if xfrm := sp.path("spPr", "xfrm"); xfrm != nil {
			phs[placeholderKey(ph)] = xfrm
			if idx := ph.attr("idx"); idx != "" {
				phs["idx:"+idx] = xfrm
			}
		}
	}
	return phs
}

func placeholderKey(ph *xmlNode) string {
	t := ph.attr("type")
	if t == "" {
		t = "body"
	}
	return "type:" + t
}

func (r *PPTXReader) readShapeTree(ctx *slideContext, tree *xmlNode, t xform, slide *Slide) {
	for _, n := range tree.children {
		switch n.name {
		case "sp":
			if shape := r.readSp(ctx, n, t); shape != nil {
				slide.shapes = append(slide.shapes, shape)
			}
		case "pic":
			if shape := r.readPic(ctx, n, t); shape != nil {
				slide.shapes = append(slide.shapes, shape)
			}
		case "grpSp":
			r.readShapeTree(ctx, n, groupXform(n, t), slide)
		case "AlternateContent":
			if fb := n.child("Fallback"); fb != nil {
				r.readShapeTree(ctx, fb, t, slide)
			}
		}
	}
}

// groupXform composes the group's child-offset transform onto parent.
func groupXform(grp *xmlNode, parent xform) xform {
	x := grp.path("grpSpPr", "xfrm")
	if x == nil {
		return parent
	}
	offX := parseInt64Attr(x.path("off").attr("x"), 0)
	offY := parseInt64Attr(x.path("off").attr("y"), 0)
	extCX := parseInt64Attr(x.path("ext").attr("cx"), 0)
	extCY := parseInt64Attr(x.path("ext").attr("cy"), 0)
	chOffX := parseInt64Attr(x.path("chOff").attr("x"), 0)
	chOffY := parseInt64Attr(x.path("chOff").attr("y"), 0)
	chExtCX := parseInt64Attr(x.path("chExt").attr("cx"), 0)
	chExtCY := parseInt64Attr(x.path("chExt").attr("cy"), 0)

	sx, sy := 1.0, 1.0
	if chExtCX > 0 {
		sx = float64(extCX) / float64(chExtCX)
	}
	if chExtCY > 0 {
		sy = float64(extCY) / float64(chExtCY)
	}
	// child point p maps to off + (p - chOff) * s inside the group, then
	// through the parent transform.
	local := xform{
		offX:   offX - int64(float64(chOffX)*sx),
		offY:   offY - int64(float64(chOffY)*sy),
		scaleX: sx,
		scaleY: sy,
	}
	return xform{
		offX:   parent.offX + int64(float64(local.offX)*parent.scaleX),
		offY:   parent.offY + int64(float64(local.offY)*parent.scaleY),
		scaleX: parent.scaleX * local.scaleX,
		scaleY: parent.scaleY * local.scaleY,
	}
}

// readXfrm fills position and size from an <a:xfrm> through t.
func readXfrm(b *BaseShape, x *xmlNode, t xform) bool {
	if x == nil {
		return false
	}
	off, ext := x.child("off"), x.child("ext")
	if off == nil || ext == nil {
		return false
	}
	b.offsetX, b.offsetY, b.width, b.height = t.apply(
		parseInt64Attr(off.attr("x"), 0),
		parseInt64Attr(off.attr("y"), 0),
		parseInt64Attr(ext.attr("cx"), 0),
		parseInt64Attr(ext.attr("cy"), 0),
	)
	return true
}

func (r *PPTXReader) readSp(ctx *slideContext, sp *xmlNode, t xform) Shape {
	cNvPr := sp.path("nvSpPr", "cNvPr")
	spPr := sp.child("spPr")
	txBody := sp.child("txBody")

	var base BaseShape
	base.name = cNvPr.attr("name")
	base.description = cNvPr.attr("descr")

	if !readXfrm(&base, spPr.child("xfrm"), t) {
		ph := sp.path("nvSpPr", "nvPr", "ph")
		if ph == nil {
			return nil
		}
		x := ctx.layoutPHs["idx:"+ph.attr("idx")]
		if x == nil {
			x = ctx.layoutPHs[placeholderKey(ph)]
		}
		if !readXfrm(&base, x, t) {
			return nil
		}
	}

	base.fill = solidFill(spPr)
	if ln := spPr.child("ln"); ln != nil && ln.child("noFill") == nil {
		if c, ok := nodeColor(ln.child("solidFill")); ok {
			border := NewBorder()
			border.Style = BorderSolid
			if ln.path("prstDash").attr("val") == "dash" {
				border.Style = BorderDash
			}
			border.Color = c
			if w := parseInt64Attr(ln.attr("w"), 0); w > 0 {
				border.Width = int(EMUToPoint(w) + 0.5)
			}
			base.border = border
		}
	}

	paragraphs := readParagraphs(txBody)
	geom := spPr.path("prstGeom").attr("prst")
	isTextBox := sp.path("nvSpPr", "cNvSpPr").attr("txBox") == "1"

	if isTextBox || geom == "" || (geom == "rect" && base.fill == nil && base.border == nil) {
		rt := NewRichTextShape()
		rt.BaseShape = base
		if len(paragraphs) > 0 {
			rt.paragraphs = paragraphs
		}
		bodyPr := txBody.child("bodyPr")
		rt.wordWrap = bodyPr.attr("wrap") != "none"
		rt.textAnchor = TextAnchorType(bodyPr.attr("anchor"))
		switch {
		case bodyPr.child("normAutofit") != nil:
			rt.autoFit = AutoFitNormal
		case bodyPr.child("spAutoFit") != nil:
			rt.autoFit = AutoFitShape
		}
		return rt
	}

	as := NewAutoShape().SetAutoShapeType(AutoShapeType(geom))
	as.BaseShape = base
	as.paragraphs = paragraphs
	return as
}

func (r *PPTXReader) readPic(ctx *slideContext, pic *xmlNode, t xform) Shape {
	cNvPr := pic.path("nvPicPr", "cNvPr")
	ds := NewDrawingShape()
	ds.name = cNvPr.attr("name")
	ds.description = cNvPr.attr("descr")
	if !readXfrm(&ds.BaseShape, pic.path("spPr", "xfrm"), t) {
		return nil
	}

	embed := pic.path("blipFill", "blip").attr("embed")
	target := relTarget(ctx.rels, embed, ctx.partPath)
	if target == "" {
		return nil
	}
	data, err := ctx.pkg.readFile(target)
	if err != nil {
		return nil
	}
	ds.SetImageData(data, guessMimeType(target))
	return ds
}

func readParagraphs(txBody *xmlNode) []*Paragraph {
	if txBody == nil {
		return nil
	}
	var out []*Paragraph
	for _, p := range txBody.children {
		if p.name != "p" {
			continue
		}
		para := NewParagraph()
		if algn := p.path("pPr").attr("algn"); algn != "" {
			para.alignment.Horizontal = HorizontalAlignment(algn)
		}
		for _, e := range p.children {
			switch e.name {
			case "r", "fld":
				tr := para.CreateTextRun(e.child("t").content())
				readRunProps(tr.font, e.child("rPr"))
			case "br":
				para.CreateBreak()
			}
		}
		out = append(out, para)
	}
	return out
}

func readRunProps(f *Font, rPr *xmlNode) {
	if rPr == nil {
		return
	}
	if sz := rPr.attr("sz"); sz != "" {
		if v, err := strconv.Atoi(sz); err == nil && v > 0 {
			f.SetSize(float64(v) / 100)
		}
	}
	f.Bold = rPr.attr("b") == "1" || rPr.attr("b") == "true"
	f.Italic = rPr.attr("i") == "1" || rPr.attr("i") == "true"
	if c, ok := nodeColor(rPr.child("solidFill")); ok {
		f.Color = c
	}
	if tf := rPr.path("latin").attr("typeface"); tf != "" && !strings.HasPrefix(tf, "+") {
		f.Name = tf
	}
}

func lastPathComponent(path string) string {
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}
