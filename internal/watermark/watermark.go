// Package watermark stamps a name in the bottom right corner of every slide
// of a PPTX presentation.
//
// The stamp is a plain text box named ShapeName. Stamping a presentation that
// already carries one replaces it, so a document can be stamped again with a
// different name without piling up boxes.
package watermark

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ShapeName identifies the stamped text box on each slide.
const ShapeName = "__WATERMARK_NAME__"

// Sentinel errors for stamping.
var (
	ErrNotPresentation = errors.New("not a PPTX presentation")
	ErrMalformedSlide  = errors.New("malformed slide")
)

// Geometry in EMU (1 mm = 36000 EMU).
const (
	emuPerMM = 36000

	boxWidth     = 70 * emuPerMM
	boxHeight    = 10 * emuPerMM
	marginRight  = 12 * emuPerMM
	marginBottom = 10 * emuPerMM

	// 4:3, the size presentation.xml implies when it declares none.
	defaultSlideWidth  = 9144000
	defaultSlideHeight = 6858000
)

// Text style: 12 pt, red, right-aligned.
const (
	fontSize  = 1200 // hundredths of a point
	fontColor = "FF0000"
)

const (
	presentationPart = "ppt/presentation.xml"
	spTreeEnd        = "</p:spTree>"
	shapeEnd         = "</p:sp>"
)

var (
	slidePart  = regexp.MustCompile(`^ppt/slides/slide[0-9]+\.xml$`)
	shapeStart = regexp.MustCompile(`<p:sp[\s>]`)
	shapeID    = regexp.MustCompile(`<p:cNvPr\b[^>]*?\sid="([0-9]+)"`)
	stampName  = regexp.MustCompile(`<p:cNvPr\b[^>]*?\sname="` + ShapeName + `"`)
)

// Apply returns a copy of the presentation with text stamped on every slide.
// Parts other than slides are copied unchanged.
func Apply(data []byte, text string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPresentation, err)
	}

	width, height, err := slideSize(zr)
	if err != nil {
		return nil, err
	}
	box := textBox(text, width, height)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		if !slidePart.MatchString(f.Name) {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copying %s: %w", f.Name, err)
			}
			continue
		}

		body, err := readPart(f)
		if err != nil {
			return nil, err
		}
		stamped, err := stampSlide(body, box)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSlide, f.Name, err)
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.Name, err)
		}
		if _, err := w.Write(stamped); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finishing archive: %w", err)
	}
	return buf.Bytes(), nil
}

// slideSize reads the slide dimensions from presentation.xml.
func slideSize(zr *zip.Reader) (int64, int64, error) {
	for _, f := range zr.File {
		if f.Name != presentationPart {
			continue
		}
		body, err := readPart(f)
		if err != nil {
			return 0, 0, err
		}
		var pres struct {
			SldSz struct {
				Cx int64 `xml:"cx,attr"`
				Cy int64 `xml:"cy,attr"`
			} `xml:"sldSz"`
		}
		if err := xml.Unmarshal(body, &pres); err != nil {
			return 0, 0, fmt.Errorf("%w: %s: %v", ErrNotPresentation, presentationPart, err)
		}
		if pres.SldSz.Cx <= 0 || pres.SldSz.Cy <= 0 {
			return defaultSlideWidth, defaultSlideHeight, nil
		}
		return pres.SldSz.Cx, pres.SldSz.Cy, nil
	}
	return 0, 0, fmt.Errorf("%w: no %s", ErrNotPresentation, presentationPart)
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	return body, nil
}

// stampSlide drops any earlier stamp from a slide and appends box, with a
// shape id one above the highest already in use.
func stampSlide(body []byte, box string) ([]byte, error) {
	slide := removeStamps(string(body))

	end := strings.LastIndex(slide, spTreeEnd)
	if end < 0 {
		return nil, errors.New("no shape tree")
	}

	id := 1
	for _, m := range shapeID.FindAllStringSubmatch(slide, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= id {
			id = n + 1
		}
	}

	var b strings.Builder
	b.Grow(len(slide) + len(box) + 16)
	b.WriteString(slide[:end])
	b.WriteString(strings.Replace(box, "{id}", strconv.Itoa(id), 1))
	b.WriteString(slide[end:])
	return []byte(b.String()), nil
}

// removeStamps deletes every <p:sp> named ShapeName. Shapes never nest, so
// each one ends at the next closing tag.
func removeStamps(slide string) string {
	var b strings.Builder
	for {
		loc := shapeStart.FindStringIndex(slide)
		if loc == nil {
			b.WriteString(slide)
			return b.String()
		}
		start := loc[0]
		n := strings.Index(slide[start:], shapeEnd)
		if n < 0 {
			b.WriteString(slide)
			return b.String()
		}
		end := start + n + len(shapeEnd)

		b.WriteString(slide[:start])
		if !stampName.MatchString(slide[start:end]) {
			b.WriteString(slide[start:end])
		}
		slide = slide[end:]
	}
}

// textBox renders the stamp shape for a slide of the given size. The
// drawingml namespace is declared on the shape so it does not depend on the
// slide's own declarations.
func textBox(text string, slideWidth, slideHeight int64) string {
	left := max(slideWidth-boxWidth-marginRight, 0)
	top := max(slideHeight-boxHeight-marginBottom, 0)

	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(text))

	return `<p:sp xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">` +
		`<p:nvSpPr><p:cNvPr id="{id}" name="` + ShapeName + `"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>` +
		`<p:spPr><a:xfrm>` +
		`<a:off x="` + strconv.FormatInt(left, 10) + `" y="` + strconv.FormatInt(top, 10) + `"/>` +
		`<a:ext cx="` + strconv.Itoa(boxWidth) + `" cy="` + strconv.Itoa(boxHeight) + `"/>` +
		`</a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>` +
		`<p:txBody><a:bodyPr wrap="none" rtlCol="0"><a:spAutoFit/></a:bodyPr><a:lstStyle/>` +
		`<a:p><a:pPr algn="r"/><a:r><a:rPr lang="en-US" sz="` + strconv.Itoa(fontSize) + `" dirty="0">` +
		`<a:solidFill><a:srgbClr val="` + fontColor + `"/></a:solidFill></a:rPr>` +
		`<a:t>` + escaped.String() + `</a:t></a:r></a:p></p:txBody></p:sp>`
}
