package engine

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// searchNames are tried on PATH, in order.
var searchNames = []string{"soffice", "libreoffice"}

// wellKnownPaths lists install locations that are often missing from PATH.
var wellKnownPaths = map[string][]string{
	"linux": {
		"/usr/bin/soffice",
		"/usr/lib/libreoffice/program/soffice",
		"/opt/libreoffice/program/soffice",
		"/snap/bin/libreoffice",
	},
	"darwin": {
		"/Applications/LibreOffice.app/Contents/MacOS/soffice",
		"/opt/homebrew/bin/soffice",
		"/usr/local/bin/soffice",
	},
	"windows": {
		`C:\Program Files\LibreOffice\program\soffice.exe`,
		`C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
	},
}

// LookPath finds an engine binary on PATH or in a well-known location.
func LookPath() (string, error) {
	return lookPath(exec.LookPath, isExecutable, wellKnownPaths[runtime.GOOS])
}

func lookPath(onPath func(string) (string, error), exists func(string) bool, candidates []string) (string, error) {
	for _, name := range searchNames {
		if p, err := onPath(name); err == nil {
			return p, nil
		}
	}
	for _, p := range candidates {
		if exists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %v on PATH and %d known locations", ErrNotFound, searchNames, len(candidates))
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
