package office2pdf

import (
	"slices"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"pptx", FormatPPTX, false},
		{".PPTX", FormatPPTX, false},
		{"  docx ", FormatDOCX, false},
		{"Ods", FormatODS, false},
		{"csv", FormatCSV, false},
		{"pdf", "", true},
		{"exe", "", true},
		{"", "", true},
		{".", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if KindOf(err) != KindUnsupportedFormat {
					t.Errorf("KindOf() = %s, want UnsupportedFormat", KindOf(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat_ErrorListsSupported(t *testing.T) {
	t.Parallel()

	_, err := ParseFormat("key")
	if err == nil || !strings.Contains(err.Error(), ".pptx") || !strings.Contains(err.Error(), ".key") {
		t.Errorf("error should name the bad extension and the supported list, got %v", err)
	}
}

func TestFormatFromFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"deck.pptx", FormatPPTX, false},
		{"/tmp/Quarterly Report.DOC", FormatDOC, false},
		{"archive.tar.xlsx", FormatXLSX, false},
		{"README", "", true},
		{"photo.png", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := FormatFromFilename(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatFromFilename(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FormatFromFilename(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestFormatFromMediaType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ct     string
		want   Format
		wantOK bool
	}{
		{"application/vnd.openxmlformats-officedocument.presentationml.presentation", FormatPPTX, true},
		{"text/csv; charset=utf-8", FormatCSV, true},
		{"application/msword", FormatDOC, true},
		{"application/octet-stream", "", false},
		{"", "", false},
		{"not a media type;;", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.ct, func(t *testing.T) {
			t.Parallel()

			got, ok := FormatFromMediaType(tt.ct)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("FormatFromMediaType(%q) = %q, %v; want %q, %v", tt.ct, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormat_Family(t *testing.T) {
	t.Parallel()

	for _, f := range SupportedFormats() {
		if f.Family() == "" {
			t.Errorf("%s has no family", f)
		}
	}
	if FormatPPT.Family() != FamilySlides || FormatRTF.Family() != FamilyDocument || FormatCSV.Family() != FamilySpreadsheet {
		t.Error("unexpected family mapping")
	}
	if Format("pdf").Family() != "" {
		t.Error("unknown format should have no family")
	}
}

func TestSupportedFormats(t *testing.T) {
	t.Parallel()

	got := SupportedFormats()
	if len(got) != 11 {
		t.Errorf("len(SupportedFormats()) = %d, want 11", len(got))
	}
	if !slices.IsSorted(got) {
		t.Error("SupportedFormats() is not sorted")
	}
	if !slices.Contains(got, FormatODP) {
		t.Error("odp missing")
	}
}
