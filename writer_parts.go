package gopresentation

import (
	"archive/zip"
	"fmt"
	"strings"
)

// firstSlideID is the smallest id PowerPoint accepts in <p:sldIdLst>.
const firstSlideID = 256

func (w *PPTXWriter) writePresentation(zw *zip.Writer) error {
	slideBase, _, _, _, _ := w.presentationRelIDs()

	layout := w.presentation.layout
	if layout == nil {
		layout = NewDocumentLayout()
	}

	var sldIDs strings.Builder
	if len(w.presentation.slides) > 0 {
		sldIDs.WriteString("  <p:sldIdLst>\n")
		for i := range w.presentation.slides {
			fmt.Fprintf(&sldIDs, "    <p:sldId id=\"%d\" r:id=\"rId%d\"/>\n", firstSlideID+i, slideBase+i)
		}
		sldIDs.WriteString("  </p:sldIdLst>\n")
	}

	typeAttr := ""
	switch layout.Name {
	case LayoutScreen4x3, LayoutScreen16x9, LayoutScreen16x10:
		typeAttr = fmt.Sprintf(` type="%s"`, layout.Name)
	case LayoutCustom, "":
		typeAttr = ` type="custom"`
	}

	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="%s" xmlns:r="%s" xmlns:p="%s" saveSubsetFonts="1">
  <p:sldMasterIdLst>
    <p:sldMasterId id="2147483648" r:id="rId1"/>
  </p:sldMasterIdLst>
%s  <p:sldSz cx="%d" cy="%d"%s/>
  <p:notesSz cx="6858000" cy="9144000"/>
  <p:defaultTextStyle>
    <a:defPPr>
      <a:defRPr lang="en-US"/>
    </a:defPPr>
  </p:defaultTextStyle>
</p:presentation>`, nsDrawingML, nsOfficeDocRels, nsPresentationML,
		sldIDs.String(), layout.CX, layout.CY, typeAttr)

	return writeRawXMLToZip(zw, "ppt/presentation.xml", content)
}

func (w *PPTXWriter) writePresProps(zw *zip.Writer) error {
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentationPr xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"/>`, nsDrawingML, nsOfficeDocRels, nsPresentationML)
	return writeRawXMLToZip(zw, "ppt/presProps.xml", content)
}

func (w *PPTXWriter) writeViewProps(zw *zip.Writer) error {
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:viewPr xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">
  <p:normalViewPr>
    <p:restoredLeft sz="15620"/>
    <p:restoredTop sz="94660"/>
  </p:normalViewPr>
  <p:gridSpacing cx="76200" cy="76200"/>
</p:viewPr>`, nsDrawingML, nsOfficeDocRels, nsPresentationML)
	return writeRawXMLToZip(zw, "ppt/viewProps.xml", content)
}

func (w *PPTXWriter) writeTableStyles(zw *zip.Writer) error {
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:tblStyleLst xmlns:a="%s" def="{5C22544A-7EE6-4342-B048-85BDC9FD1C3A}"/>`, nsDrawingML)
	return writeRawXMLToZip(zw, "ppt/tableStyles.xml", content)
}

// emptySpTree is the shape tree shared by the master and the blank layout.
const emptySpTree = `    <p:spTree>
      <p:nvGrpSpPr>
        <p:cNvPr id="1" name=""/>
        <p:cNvGrpSpPr/>
        <p:nvPr/>
      </p:nvGrpSpPr>
      <p:grpSpPr>
        <a:xfrm>
          <a:off x="0" y="0"/>
          <a:ext cx="0" cy="0"/>
          <a:chOff x="0" y="0"/>
          <a:chExt cx="0" cy="0"/>
        </a:xfrm>
      </p:grpSpPr>
    </p:spTree>
`

func (w *PPTXWriter) writeSlideMaster(zw *zip.Writer) error {
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldMaster xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">
  <p:cSld>
    <p:bg>
      <p:bgRef idx="1001">
        <a:schemeClr val="bg1"/>
      </p:bgRef>
    </p:bg>
%s  </p:cSld>
  <p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>
  <p:sldLayoutIdLst>
    <p:sldLayoutId id="2147483649" r:id="rId1"/>
  </p:sldLayoutIdLst>
  <p:txStyles>
    <p:titleStyle>
      <a:lvl1pPr>
        <a:defRPr sz="4400" kern="1200">
          <a:solidFill><a:schemeClr val="tx1"/></a:solidFill>
          <a:latin typeface="+mj-lt"/>
        </a:defRPr>
      </a:lvl1pPr>
    </p:titleStyle>
    <p:bodyStyle>
      <a:lvl1pPr>
        <a:defRPr sz="%d" kern="1200">
          <a:solidFill><a:schemeClr val="tx1"/></a:solidFill>
          <a:latin typeface="+mn-lt"/>
        </a:defRPr>
      </a:lvl1pPr>
    </p:bodyStyle>
    <p:otherStyle>
      <a:lvl1pPr>
        <a:defRPr sz="%d" kern="1200">
          <a:solidFill><a:schemeClr val="tx1"/></a:solidFill>
          <a:latin typeface="+mn-lt"/>
        </a:defRPr>
      </a:lvl1pPr>
    </p:otherStyle>
  </p:txStyles>
</p:sldMaster>`, nsDrawingML, nsOfficeDocRels, nsPresentationML, emptySpTree,
		fontSizeHundredths(DefaultFontSize), fontSizeHundredths(DefaultFontSize))

	if err := writeRawXMLToZip(zw, "ppt/slideMasters/slideMaster1.xml", content); err != nil {
		return err
	}

	rels := xmlRelationships{
		Xmlns: nsRelationships,
		Relationships: []xmlRelationship{
			{ID: "rId1", Type: relTypeSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
			{ID: "rId2", Type: relTypeTheme, Target: "../theme/theme1.xml"},
		},
	}
	return writeXMLToZip(zw, "ppt/slideMasters/_rels/slideMaster1.xml.rels", rels)
}

func (w *PPTXWriter) writeSlideLayout(zw *zip.Writer) error {
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldLayout xmlns:a="%s" xmlns:r="%s" xmlns:p="%s" type="blank" preserve="1">
  <p:cSld name="Blank">
%s  </p:cSld>
  <p:clrMapOvr>
    <a:masterClrMapping/>
  </p:clrMapOvr>
</p:sldLayout>`, nsDrawingML, nsOfficeDocRels, nsPresentationML, emptySpTree)

	if err := writeRawXMLToZip(zw, "ppt/slideLayouts/slideLayout1.xml", content); err != nil {
		return err
	}

	rels := xmlRelationships{
		Xmlns: nsRelationships,
		Relationships: []xmlRelationship{
			{ID: "rId1", Type: relTypeSlideMaster, Target: "../slideMasters/slideMaster1.xml"},
		},
	}
	return writeXMLToZip(zw, "ppt/slideLayouts/_rels/slideLayout1.xml.rels", rels)
}

// themeColors is the Office default palette in clrScheme order.
var themeColors = []struct{ name, val string }{
	{"accent1", "4472C4"},
	{"accent2", "ED7D31"},
	{"accent3", "A5A5A5"},
	{"accent4", "FFC000"},
	{"accent5", "5B9BD5"},
	{"accent6", "70AD47"},
	{"hlink", "0563C1"},
	{"folHlink", "954F72"},
}

func (w *PPTXWriter) writeTheme(zw *zip.Writer) error {
	var accents strings.Builder
	for _, c := range themeColors {
		fmt.Fprintf(&accents, "        <a:%s><a:srgbClr val=\"%s\"/></a:%s>\n", c.name, c.val, c.name)
	}

	var fills, lines, effects, bgFills strings.Builder
	for i := 0; i < 3; i++ {
		fills.WriteString("        <a:solidFill><a:schemeClr val=\"phClr\"/></a:solidFill>\n")
		bgFills.WriteString("        <a:solidFill><a:schemeClr val=\"phClr\"/></a:solidFill>\n")
		fmt.Fprintf(&lines, "        <a:ln w=\"%d\"><a:solidFill><a:schemeClr val=\"phClr\"/></a:solidFill></a:ln>\n", 6350*(i+1))
		effects.WriteString("        <a:effectStyle><a:effectLst/></a:effectStyle>\n")
	}

	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:theme xmlns:a="%s" name="Office Theme">
  <a:themeElements>
    <a:clrScheme name="Office">
      <a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>
      <a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>
      <a:dk2><a:srgbClr val="44546A"/></a:dk2>
      <a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>
%s    </a:clrScheme>
    <a:fontScheme name="Office">
      <a:majorFont>
        <a:latin typeface="Calibri Light"/>
        <a:ea typeface=""/>
        <a:cs typeface=""/>
      </a:majorFont>
      <a:minorFont>
        <a:latin typeface="Calibri"/>
        <a:ea typeface=""/>
        <a:cs typeface=""/>
      </a:minorFont>
    </a:fontScheme>
    <a:fmtScheme name="Office">
      <a:fillStyleLst>
%s      </a:fillStyleLst>
      <a:lnStyleLst>
%s      </a:lnStyleLst>
      <a:effectStyleLst>
%s      </a:effectStyleLst>
      <a:bgFillStyleLst>
%s      </a:bgFillStyleLst>
    </a:fmtScheme>
  </a:themeElements>
</a:theme>`, nsDrawingML, accents.String(), fills.String(), lines.String(), effects.String(), bgFills.String())

	return writeRawXMLToZip(zw, "ppt/theme/theme1.xml", content)
}
