package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-office2pdf"
	"github.com/alnah/go-office2pdf/internal/config"
)

// versionProbeTimeout bounds "soffice --version". A cold start can take a few
// seconds on the first run.
const versionProbeTimeout = 30 * time.Second

// fontDirs are searched on Linux; LibreOffice without fonts renders blank glyphs.
var fontDirs = []string{"/usr/share/fonts", "/usr/local/share/fonts"}

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string       `json:"status"` // "ready", "warnings", "errors"
	Engine   engineInfo   `json:"engine"`
	Settings settingsInfo `json:"settings"`
	Env      envInfo      `json:"environment"`
	System   systemInfo   `json:"system"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// engineInfo holds LibreOffice detection results.
type engineInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Source  string `json:"source,omitempty"` // "config" or "discovered"
	Version string `json:"version,omitempty"`
}

// settingsInfo holds the effective converter settings.
type settingsInfo struct {
	MaxEngines    int    `json:"max_engines"`
	EngineTimeout string `json:"engine_timeout"`
	QueueTimeout  string `json:"queue_timeout"`
	ScratchRoot   string `json:"scratch_root"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	CPUs          int    `json:"cpus"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// systemInfo holds system check results.
type systemInfo struct {
	ScratchWritable bool `json:"scratch_writable"`
	FontsFound      bool `json:"fonts_found"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	jsonOutput := fs.Bool("json", false, "output JSON")
	configName := fs.StringP("config", "c", "", "config file name or path")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return runHelp([]string{"doctor"}, env)
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitUsage
	}

	cfg, err := loadSettings(*configName, env, nil)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}

	result := runDoctor(ctx, cfg, env)

	if *jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, cfg *config.Config, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Settings: settingsInfo{
			MaxEngines:    office2pdf.ResolveMaxEngines(cfg.MaxConcurrentEngines),
			EngineTimeout: cfg.EngineTimeout().String(),
			QueueTimeout:  cfg.QueueTimeout().String(),
			ScratchRoot:   cfg.ScratchRoot,
		},
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
			CPUs: runtime.GOMAXPROCS(0),
		},
	}

	checkEngine(ctx, cfg, env, result)
	checkEnvironment(env, result)
	checkSystem(cfg, result)

	if result.Settings.MaxEngines > result.Env.CPUs {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d engines on %d CPUs; conversions will contend for CPU and may time out",
				result.Settings.MaxEngines, result.Env.CPUs))
	}

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkEngine locates LibreOffice and asks for its version.
func checkEngine(ctx context.Context, cfg *config.Config, env *Environment, result *doctorResult) {
	path := cfg.EngineBinary
	result.Engine.Source = "config"

	if path == "" {
		found, err := env.LookPath()
		if err != nil {
			result.Errors = append(result.Errors,
				"LibreOffice not found. Install it or set OFFICE2PDF_ENGINE_BINARY")
			return
		}
		path = found
		result.Engine.Source = "discovered"
	} else if _, err := os.Stat(path); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("LibreOffice not found at %s", path))
		return
	}

	result.Engine.Found = true
	result.Engine.Path = path

	vctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	version, err := env.EngineVersion(vctx, path)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get LibreOffice version: %v", err))
		return
	}
	result.Engine.Version = version
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(env *Environment, result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer(env.Getenv)

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if env.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(getenv func(string) string) (bool, string) {
	// Explicit override (highest priority)
	if getenv("OFFICE2PDF_CONTAINER") == "1" {
		return true, "OFFICE2PDF_CONTAINER=1"
	}
	// Docker
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn / general container indicator
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	// Kubernetes
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the scratch root and fonts.
func checkSystem(cfg *config.Config, result *doctorResult) {
	root := cfg.ScratchRoot
	if err := os.MkdirAll(root, dirPermissions); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Scratch root cannot be created: %s: %v", root, err))
	} else {
		testFile := filepath.Join(root, ".office2pdf-doctor-test")
		if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Scratch root not writable: %s", root))
		} else {
			_ = os.Remove(testFile)
			result.System.ScratchWritable = true
		}
	}

	if runtime.GOOS != "linux" {
		result.System.FontsFound = true
		return
	}
	for _, dir := range fontDirs {
		if entries, err := os.ReadDir(dir); err == nil && len(entries) > 0 {
			result.System.FontsFound = true
			return
		}
	}
	result.Warnings = append(result.Warnings,
		"No fonts under /usr/share/fonts; install fonts-dejavu or similar or text will render as boxes")
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "office2pdf doctor")
	fmt.Fprintln(w)

	// Engine section
	fmt.Fprintln(w, "LibreOffice")
	if r.Engine.Found {
		fmt.Fprintf(w, "  [OK] Found at %s (%s)\n", r.Engine.Path, r.Engine.Source)
		if r.Engine.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Engine.Version)
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] Not found")
	}
	fmt.Fprintln(w)

	// Settings section
	fmt.Fprintln(w, "Settings")
	fmt.Fprintf(w, "  [OK] Max engines: %d\n", r.Settings.MaxEngines)
	fmt.Fprintf(w, "  [OK] Engine timeout: %s\n", r.Settings.EngineTimeout)
	fmt.Fprintf(w, "  [OK] Queue timeout: %s\n", r.Settings.QueueTimeout)
	fmt.Fprintln(w)

	// Environment section
	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s, %d CPUs\n", r.Env.OS, r.Env.Arch, r.Env.CPUs)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	// System section
	fmt.Fprintln(w, "System")
	if r.System.ScratchWritable {
		fmt.Fprintf(w, "  [OK] Scratch root: %s\n", r.Settings.ScratchRoot)
	} else {
		fmt.Fprintf(w, "  [ERROR] Scratch root: %s not writable\n", r.Settings.ScratchRoot)
	}
	if r.System.FontsFound {
		fmt.Fprintln(w, "  [OK] Fonts: found")
	}
	fmt.Fprintln(w)

	// Warnings
	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	// Errors
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	// Final status
	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
