package gopresentation

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// PPTXReader reads PPTX files.
type PPTXReader struct{}

// pptxPackage is an opened archive plus its name index.
type pptxPackage struct {
	zr    *zip.Reader
	files map[string]*zip.File
	read  int64 // bytes extracted so far
}

func newPPTXPackage(zr *zip.Reader) *pptxPackage {
	m := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		m[f.Name] = f
	}
	return &pptxPackage{zr: zr, files: m}
}

// Read reads a presentation from a file path.
func (r *PPTXReader) Read(path string) (*Presentation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return r.ReadFromReader(f, info.Size())
}

// ReadFromReader reads a presentation from an io.ReaderAt.
func (r *PPTXReader) ReadFromReader(reader io.ReaderAt, size int64) (*Presentation, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid reader size: %d", size)
	}
	if size > int64(maxZipTotalSize) {
		return nil, fmt.Errorf("file size %d exceeds maximum allowed (%d bytes)", size, maxZipTotalSize)
	}

	zr, err := zip.NewReader(reader, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	if len(zr.File) > maxZipEntries {
		return nil, fmt.Errorf("zip archive contains too many entries (%d > %d)", len(zr.File), maxZipEntries)
	}

	pkg := newPPTXPackage(zr)
	pres := New()

	// Missing core properties are acceptable.
	_ = r.readCoreProperties(pkg, pres)

	slideRels, err := r.readPresentation(pkg, pres)
	if err != nil {
		return nil, err
	}

	presRels, err := r.readRelationships(pkg, "ppt/_rels/presentation.xml.rels")
	if err != nil {
		return nil, err
	}

	for _, relID := range slideRels {
		target := ""
		for _, rel := range presRels {
			if rel.ID == relID {
				target = rel.Target
				break
			}
		}
		if target == "" {
			continue
		}
		target = resolveRelativePath("ppt", target)

		slide, err := r.readSlide(pkg, target)
		if err != nil {
			return nil, fmt.Errorf("failed to read slide %s: %w", target, err)
		}
		pres.slides = append(pres.slides, slide)
	}

	return pres, nil
}

// maxZipEntrySize is the maximum allowed size for a single file extracted from a ZIP.
const maxZipEntrySize = 50 << 20 // 50 MB

// maxZipTotalSize is the cumulative limit for all extracted content from a single ZIP.
const maxZipTotalSize = 200 << 20 // 200 MB

// maxZipEntries is the maximum number of files allowed in a ZIP archive.
const maxZipEntries = 10000

func (pkg *pptxPackage) readFile(name string) ([]byte, error) {
	f, ok := pkg.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found in zip: %s", name)
	}
	if f.UncompressedSize64 > maxZipEntrySize {
		return nil, fmt.Errorf("file %s exceeds maximum allowed size (%d bytes)", name, maxZipEntrySize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in zip: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, int64(maxZipEntrySize)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from zip: %w", name, err)
	}
	if int64(len(data)) > int64(maxZipEntrySize) {
		return nil, fmt.Errorf("file %s actual size exceeds maximum allowed size", name)
	}
	pkg.read += int64(len(data))
	if pkg.read > maxZipTotalSize {
		return nil, fmt.Errorf("extracted content exceeds maximum allowed total (%d bytes)", maxZipTotalSize)
	}
	return data, nil
}

// newXMLDecoder returns a decoder that accepts parts declared in legacy
// encodings as well as UTF-8.
func newXMLDecoder(data []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel
	return d
}

// --- Relationship reading ---

type xmlRelForRead struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type xmlRelsForRead struct {
	XMLName       xml.Name        `xml:"Relationships"`
	Relationships []xmlRelForRead `xml:"Relationship"`
}

func (r *PPTXReader) readRelationships(pkg *pptxPackage, path string) ([]xmlRelForRead, error) {
	data, err := pkg.readFile(path)
	if err != nil {
		return nil, nil // relationships file may not exist
	}

	var rels xmlRelsForRead
	if err := newXMLDecoder(data).Decode(&rels); err != nil {
		return nil, fmt.Errorf("failed to parse relationships %s: %w", path, err)
	}
	return rels.Relationships, nil
}

// relTarget returns the package path of the relationship with the given id,
// resolved against the directory of the source part.
func relTarget(rels []xmlRelForRead, id, sourcePath string) string {
	for _, rel := range rels {
		if rel.ID == id && rel.TargetMode != "External" {
			return resolveRelativePath(dirOf(sourcePath), rel.Target)
		}
	}
	return ""
}

// relTargetByType is relTarget keyed by relationship type.
func relTargetByType(rels []xmlRelForRead, relType, sourcePath string) string {
	for _, rel := range rels {
		if rel.Type == relType && rel.TargetMode != "External" {
			return resolveRelativePath(dirOf(sourcePath), rel.Target)
		}
	}
	return ""
}

func dirOf(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

func resolveRelativePath(base, rel string) string {
	if strings.HasPrefix(rel, "/") {
		return strings.TrimPrefix(rel, "/")
	}

	result := make([]string, 0, 8)
	if base != "" {
		result = append(result, strings.Split(base, "/")...)
	}
	for _, part := range strings.Split(rel, "/") {
		switch part {
		case "..":
			if len(result) > 0 {
				result = result[:len(result)-1]
			}
		case ".", "":
		default:
			result = append(result, part)
		}
	}

	resolved := strings.Join(result, "/")

	// Keep relationship targets inside the package parts we know about.
	if !strings.HasPrefix(resolved, "ppt/") && !strings.HasPrefix(resolved, "docProps/") {
		return "ppt/" + resolved
	}
	return resolved
}

// --- presentation.xml ---

type xmlPresentationForRead struct {
	XMLName  xml.Name `xml:"presentation"`
	SldIDLst struct {
		SldIDs []struct {
			RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"sldId"`
	} `xml:"sldIdLst"`
	SldSz *struct {
		CX   int64  `xml:"cx,attr"`
		CY   int64  `xml:"cy,attr"`
		Type string `xml:"type,attr"`
	} `xml:"sldSz"`
}

// readPresentation reads the slide size and returns slide relationship ids
// in presentation order.
func (r *PPTXReader) readPresentation(pkg *pptxPackage, pres *Presentation) ([]string, error) {
	data, err := pkg.readFile("ppt/presentation.xml")
	if err != nil {
		return nil, fmt.Errorf("failed to read presentation.xml: %w", err)
	}

	var xp xmlPresentationForRead
	if err := newXMLDecoder(data).Decode(&xp); err != nil {
		return nil, fmt.Errorf("failed to parse presentation.xml: %w", err)
	}

	if xp.SldSz != nil && xp.SldSz.CX > 0 && xp.SldSz.CY > 0 {
		pres.layout = &DocumentLayout{
			CX:   xp.SldSz.CX,
			CY:   xp.SldSz.CY,
			Name: layoutNameForSize(xp.SldSz.CX, xp.SldSz.CY),
		}
	}

	ids := make([]string, 0, len(xp.SldIDLst.SldIDs))
	for _, s := range xp.SldIDLst.SldIDs {
		if s.RID != "" {
			ids = append(ids, s.RID)
		}
	}
	return ids, nil
}

// --- docProps/core.xml ---

type xmlCorePropsForRead struct {
	Creator        string `xml:"creator"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Title          string `xml:"title"`
	Description    string `xml:"description"`
	Subject        string `xml:"subject"`
	Keywords       string `xml:"keywords"`
	Category       string `xml:"category"`
	Revision       string `xml:"revision"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
}

func (r *PPTXReader) readCoreProperties(pkg *pptxPackage, pres *Presentation) error {
	data, err := pkg.readFile("docProps/core.xml")
	if err != nil {
		return err
	}
	var cp xmlCorePropsForRead
	if err := newXMLDecoder(data).Decode(&cp); err != nil {
		return fmt.Errorf("failed to parse core properties: %w", err)
	}

	props := pres.properties
	props.Creator = cp.Creator
	props.LastModifiedBy = cp.LastModifiedBy
	props.Title = cp.Title
	props.Description = cp.Description
	props.Subject = cp.Subject
	props.Keywords = cp.Keywords
	props.Category = cp.Category
	props.Revision = cp.Revision
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(cp.Created)); err == nil {
		props.Created = t
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(cp.Modified)); err == nil {
		props.Modified = t
	}
	return nil
}

// parseInt64Attr parses an integer attribute, returning def when it is
// missing or malformed.
func parseInt64Attr(s string, def int64) int64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return def
	}
	return v
}
