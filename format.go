package office2pdf

import (
	"fmt"
	"mime"
	"slices"
	"strings"

	"github.com/alnah/go-office2pdf/internal/fileutil"
)

// Format is a supported input extension, lower case without the dot.
type Format string

// Supported formats.
const (
	FormatPPTX Format = "pptx"
	FormatPPT  Format = "ppt"
	FormatODP  Format = "odp"
	FormatDOCX Format = "docx"
	FormatDOC  Format = "doc"
	FormatODT  Format = "odt"
	FormatRTF  Format = "rtf"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatODS  Format = "ods"
	FormatCSV  Format = "csv"
)

// Family groups formats by document type.
type Family string

// Document families.
const (
	FamilySlides      Family = "slides"
	FamilyDocument    Family = "document"
	FamilySpreadsheet Family = "spreadsheet"
)

var formatFamilies = map[Format]Family{
	FormatPPTX: FamilySlides,
	FormatPPT:  FamilySlides,
	FormatODP:  FamilySlides,
	FormatDOCX: FamilyDocument,
	FormatDOC:  FamilyDocument,
	FormatODT:  FamilyDocument,
	FormatRTF:  FamilyDocument,
	FormatXLSX: FamilySpreadsheet,
	FormatXLS:  FamilySpreadsheet,
	FormatODS:  FamilySpreadsheet,
	FormatCSV:  FamilySpreadsheet,
}

var formatMediaTypes = map[string]Format{
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": FormatPPTX,
	"application/vnd.ms-powerpoint":                                             FormatPPT,
	"application/vnd.oasis.opendocument.presentation":                           FormatODP,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   FormatDOCX,
	"application/msword":                                                        FormatDOC,
	"application/vnd.oasis.opendocument.text":                                   FormatODT,
	"application/rtf":                                                           FormatRTF,
	"text/rtf":                                                                  FormatRTF,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         FormatXLSX,
	"application/vnd.ms-excel":                                                  FormatXLS,
	"application/vnd.oasis.opendocument.spreadsheet":                            FormatODS,
	"text/csv":                                                                  FormatCSV,
}

// SupportedFormats returns every accepted format, sorted.
func SupportedFormats() []Format {
	out := make([]Format, 0, len(formatFamilies))
	for f := range formatFamilies {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// ParseFormat accepts an extension with or without the leading dot, in any
// case. Unknown extensions yield a KindUnsupportedFormat error.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if _, ok := formatFamilies[f]; !ok {
		if f == "" {
			return "", newError(KindUnsupportedFormat, "no format given", nil)
		}
		return "", newError(KindUnsupportedFormat,
			fmt.Sprintf("%q is not one of %s", "."+string(f), formatList()), nil)
	}
	return f, nil
}

// FormatFromFilename derives the format from name's extension.
func FormatFromFilename(name string) (Format, error) {
	ext := fileutil.Ext(name)
	if ext == "" {
		return "", newError(KindUnsupportedFormat, fmt.Sprintf("%q has no extension", name), nil)
	}
	return ParseFormat(ext)
}

// FormatFromMediaType maps a Content-Type header value to a format.
func FormatFromMediaType(contentType string) (Format, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	f, ok := formatMediaTypes[mt]
	return f, ok
}

// Family returns the document family of f, or "" for unknown formats.
func (f Format) Family() Family {
	return formatFamilies[f]
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	return string(f)
}

func formatList() string {
	formats := SupportedFormats()
	parts := make([]string, len(formats))
	for i, f := range formats {
		parts[i] = "." + string(f)
	}
	return strings.Join(parts, ", ")
}
