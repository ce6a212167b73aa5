package fileutil_test

// Notes:
// - SanitizeFilename follows the download-name rules of the upload endpoint:
//   allow-list of [a-zA-Z0-9._ -], 180 byte cap, fallback when empty.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-office2pdf/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestValidateExtension - Extension validation
// ---------------------------------------------------------------------------

func TestValidateExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		extension string
		wantErr   error
	}{
		{"valid pptx", "pptx", nil},
		{"valid xlsx", "xlsx", nil},
		{"empty extension", "", fileutil.ErrExtensionEmpty},
		{"forward slash", "../etc/passwd", fileutil.ErrExtensionPathTraversal},
		{"backslash", "..\\windows", fileutil.ErrExtensionPathTraversal},
		{"null byte", "docx\x00exe", fileutil.ErrExtensionPathTraversal},
		{"dot dot", "..", fileutil.ErrExtensionPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := fileutil.ValidateExtension(tt.extension)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateExtension(%q) = %v, want %v", tt.extension, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExt / TestStem
// ---------------------------------------------------------------------------

func TestExt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"deck.pptx", "pptx"},
		{"Report.DOCX", "docx"},
		{"archive.tar.xlsx", "xlsx"},
		{"noext", ""},
		{"/tmp/dir.d/file", ""},
	}

	for _, tt := range tests {
		if got := fileutil.Ext(tt.in); got != tt.want {
			t.Errorf("Ext(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"deck.pptx", "deck"},
		{"/a/b/Quarterly Report.docx", "Quarterly Report"},
		{"noext", "noext"},
	}

	for _, tt := range tests {
		if got := fileutil.Stem(tt.in); got != tt.want {
			t.Errorf("Stem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestSanitizeFilename
// ---------------------------------------------------------------------------

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "deck.pptx", "deck.pptx"},
		{"trims spaces", "  deck.pptx  ", "deck.pptx"},
		{"replaces quotes", `my"deck".pptx`, "my_deck_.pptx"},
		{"strips directories", "../../etc/passwd", "passwd"},
		{"strips windows directories", `C:\Users\me\deck.pptx`, "deck.pptx"},
		{"collapses unicode runs", "présentation.pptx", "pr_sentation.pptx"},
		{"empty uses fallback", "", "upload.pptx"},
		{"only dots uses fallback", "...", "upload.pptx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.SanitizeFilename(tt.in, "upload.pptx"); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	t.Parallel()

	got := fileutil.SanitizeFilename(strings.Repeat("a", 500)+".pptx", "x")
	if len(got) != 180 {
		t.Errorf("len = %d, want 180", len(got))
	}
}

// ---------------------------------------------------------------------------
// TestFileExists / TestIsFilePath
// ---------------------------------------------------------------------------

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if !fileutil.FileExists(file) {
		t.Error("FileExists(file) = false, want true")
	}
	if fileutil.FileExists(dir) {
		t.Error("FileExists(dir) = true, want false")
	}
	if fileutil.FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists(missing) = true, want false")
	}
}

func TestIsFilePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"production", false},
		{"./office2pdf.yaml", true},
		{"/etc/office2pdf/config.yaml", true},
		{`C:\config.yaml`, true},
	}

	for _, tt := range tests {
		if got := fileutil.IsFilePath(tt.in); got != tt.want {
			t.Errorf("IsFilePath(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
