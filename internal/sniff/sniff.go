// Package sniff checks that document bytes match their declared extension
// before any engine time is spent on them.
package sniff

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sentinel errors for content checks.
var (
	ErrMismatch = errors.New("content does not match declared format")
	ErrUnknown  = errors.New("no content check for format")
)

// Container kinds recognized by Detect.
const (
	KindOOXML = "ooxml"
	KindODF   = "odf"
	KindOLE   = "ole"
	KindRTF   = "rtf"
	KindText  = "text"
)

var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// textProbeSize bounds how much of a text format is scanned for NUL bytes.
const textProbeSize = 8 << 10

// ooxmlParts maps an OOXML extension to the part directory it must contain.
var ooxmlParts = map[string]string{
	"docx": "word/",
	"pptx": "ppt/",
	"xlsx": "xl/",
}

// odfMimetypes maps an ODF extension to its mimetype entry.
var odfMimetypes = map[string]string{
	"odt": "application/vnd.oasis.opendocument.text",
	"odp": "application/vnd.oasis.opendocument.presentation",
	"ods": "application/vnd.oasis.opendocument.spreadsheet",
}

// Check verifies data against ext (lower case, no dot).
func Check(ext string, data []byte) error {
	switch ext {
	case "docx", "pptx", "xlsx":
		return checkOOXML(ext, data)
	case "odt", "odp", "ods":
		return checkODF(ext, data)
	case "doc", "ppt", "xls":
		if !bytes.HasPrefix(data, oleMagic) {
			return fmt.Errorf("%w: .%s is not an OLE compound file", ErrMismatch, ext)
		}
		return nil
	case "rtf":
		if !bytes.HasPrefix(bytes.TrimLeft(data, "\xef\xbb\xbf \r\n\t"), []byte(`{\rtf`)) {
			return fmt.Errorf("%w: missing {\\rtf header", ErrMismatch)
		}
		return nil
	case "csv":
		probe := data
		if len(probe) > textProbeSize {
			probe = probe[:textProbeSize]
		}
		if bytes.IndexByte(probe, 0) >= 0 {
			return fmt.Errorf("%w: .csv contains binary data", ErrMismatch)
		}
		return nil
	default:
		return fmt.Errorf("%w: .%s", ErrUnknown, ext)
	}
}

// Detect returns the container kind of data, or "" when unrecognized.
func Detect(data []byte) string {
	switch {
	case bytes.HasPrefix(data, oleMagic):
		return KindOLE
	case bytes.HasPrefix(data, []byte(`{\rtf`)):
		return KindRTF
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err == nil {
		for _, f := range zr.File {
			switch f.Name {
			case "[Content_Types].xml":
				return KindOOXML
			case "mimetype":
				return KindODF
			}
		}
		return ""
	}
	if bytes.IndexByte(data[:min(len(data), textProbeSize)], 0) < 0 {
		return KindText
	}
	return ""
}

func checkOOXML(ext string, data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: .%s is not a valid Office file: %v", ErrMismatch, ext, err)
	}

	var hasTypes, hasPart bool
	prefix := ooxmlParts[ext]
	for _, f := range zr.File {
		if f.Name == "[Content_Types].xml" {
			hasTypes = true
		}
		if strings.HasPrefix(f.Name, prefix) {
			hasPart = true
		}
	}

	if !hasTypes {
		return fmt.Errorf("%w: .%s has no [Content_Types].xml", ErrMismatch, ext)
	}
	if !hasPart {
		return fmt.Errorf("%w: .%s has no %s part", ErrMismatch, ext, strings.TrimSuffix(prefix, "/"))
	}
	return nil
}

func checkODF(ext string, data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: .%s is not a valid OpenDocument file: %v", ErrMismatch, ext, err)
	}

	for _, f := range zr.File {
		if f.Name != "mimetype" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%w: reading mimetype: %v", ErrMismatch, err)
		}
		got, err := io.ReadAll(io.LimitReader(rc, 256))
		_ = rc.Close()
		if err != nil {
			return fmt.Errorf("%w: reading mimetype: %v", ErrMismatch, err)
		}
		if want := odfMimetypes[ext]; strings.TrimSpace(string(got)) != want {
			return fmt.Errorf("%w: .%s declares mimetype %q", ErrMismatch, ext, got)
		}
		return nil
	}
	return fmt.Errorf("%w: .%s has no mimetype entry", ErrMismatch, ext)
}
