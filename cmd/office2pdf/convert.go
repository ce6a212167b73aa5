package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-office2pdf"
	"github.com/alnah/go-office2pdf/internal/config"
	"github.com/alnah/go-office2pdf/internal/hints"
)

// File permission constants.
const (
	dirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// Sentinel errors for batch operations.
var (
	ErrNoInput     = errors.New("no input specified")
	ErrReadInput   = errors.New("failed to read input document")
	ErrWritePDF    = errors.New("failed to write PDF file")
	ErrBatchFailed = errors.New("conversions failed")
)

// FileToConvert represents a single file to process.
type FileToConvert struct {
	InputPath  string
	OutputPath string
}

// convertOptions applies to every document of a batch.
type convertOptions struct {
	format    office2pdf.Format
	timeout   time.Duration
	watermark string
}

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	InputPath  string
	OutputPath string
	Attempts   int
	Err        error
	Duration   time.Duration
}

// runConvert converts a file or every supported document under a directory.
func runConvert(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseConvertFlags(args)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if len(positional) == 0 {
		return ErrNoInput
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: convert takes one input, got %d", ErrUsage, len(positional))
	}

	var format office2pdf.Format
	if flags.format != "" {
		if format, err = office2pdf.ParseFormat(flags.format); err != nil {
			return err
		}
	}

	cfg, err := loadSettings(flags.common.config, env, func(c *config.Config) {
		// The CLI is quiet unless asked otherwise; the config level is for serve.
		c.Log.Level = "warn"
		mergeCommonFlags(&flags.common, c)
		mergeEngineFlags(&flags.engine, flags.changed, c)
	})
	if err != nil {
		return err
	}

	logger, err := newLogger(env.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	files, err := discoverFiles(positional[0], flags.output, format != "")
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no supported documents in %s", ErrNoInput, positional[0])
	}

	conv, err := env.NewConverter(converterOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("%w%s", err, hints.ForScratchRoot(cfg.ScratchRoot))
	}
	defer conv.Close()

	results := convertBatch(ctx, conv, files, convertOptions{
		format:    format,
		timeout:   flags.timeout,
		watermark: flags.watermark,
	})

	failed := printResults(results, flags.common.quiet, flags.common.verbose, env)
	if failed > 0 {
		return batchError(results, failed)
	}
	return nil
}

// discoverFiles finds the documents to convert. A single file is accepted
// with any extension when a format was forced. Every document gets its own
// output path.
func discoverFiles(inputPath, outputDir string, formatForced bool) ([]FileToConvert, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if !formatForced {
			if _, err := office2pdf.FormatFromFilename(inputPath); err != nil {
				return nil, err
			}
		}
		outPath := resolveOutputPath(inputPath, outputDir, "")
		return []FileToConvert{{InputPath: inputPath, OutputPath: outPath}}, nil
	}

	if strings.HasSuffix(outputDir, ".pdf") {
		return nil, fmt.Errorf("%w: -o %s names one PDF but %s is a directory", ErrUsage, outputDir, inputPath)
	}

	var files []FileToConvert
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() || isLockFile(d.Name()) {
			return nil
		}
		if _, err := office2pdf.FormatFromFilename(path); err != nil {
			return nil
		}
		outPath := resolveOutputPath(path, outputDir, inputPath)
		files = append(files, FileToConvert{InputPath: path, OutputPath: outPath})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := disambiguateOutputs(files); err != nil {
		return nil, err
	}
	return files, nil
}

// disambiguateOutputs gives documents that share a stem, such as report.docx
// and report.odt, distinct outputs by keeping the source extension:
// report.docx.pdf and report.odt.pdf. Paths are compared case-insensitively
// so the result also holds on macOS and Windows.
func disambiguateOutputs(files []FileToConvert) error {
	byOutput := make(map[string][]int, len(files))
	for i, f := range files {
		key := strings.ToLower(f.OutputPath)
		byOutput[key] = append(byOutput[key], i)
	}
	for _, idx := range byOutput {
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx {
			out := files[i].OutputPath
			files[i].OutputPath = strings.TrimSuffix(out, ".pdf") + filepath.Ext(files[i].InputPath) + ".pdf"
		}
	}

	seen := make(map[string]string, len(files))
	for _, f := range files {
		key := strings.ToLower(f.OutputPath)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s and %s would both write %s", ErrUsage, prev, f.InputPath, f.OutputPath)
		}
		seen[key] = f.InputPath
	}
	return nil
}

// isLockFile reports owner files left next to documents open in an editor.
func isLockFile(name string) bool {
	return strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".~lock.")
}

// resolveOutputPath determines the PDF output path for a document.
func resolveOutputPath(inputPath, outputDir, baseInputDir string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), ext)

	if outputDir == "" {
		return filepath.Join(filepath.Dir(inputPath), base+".pdf")
	}

	if strings.HasSuffix(outputDir, ".pdf") {
		return outputDir
	}

	if baseInputDir != "" {
		relPath, err := filepath.Rel(baseInputDir, inputPath)
		if err == nil {
			relDir := filepath.Dir(relPath)
			return filepath.Join(outputDir, relDir, base+".pdf")
		}
	}

	return filepath.Join(outputDir, base+".pdf")
}

// convertBatch converts files concurrently, never starting more conversions
// than the converter has engine slots.
func convertBatch(ctx context.Context, conv Converter, files []FileToConvert, opts convertOptions) []ConversionResult {
	results := make([]ConversionResult, len(files))

	var g errgroup.Group
	g.SetLimit(max(1, conv.MaxEngines()))

	for i, f := range files {
		g.Go(func() error {
			results[i] = convertFile(ctx, conv, f, opts)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// convertFile processes a single file and returns the result.
func convertFile(ctx context.Context, conv Converter, f FileToConvert, opts convertOptions) ConversionResult {
	start := time.Now()
	result := ConversionResult{
		InputPath:  f.InputPath,
		OutputPath: f.OutputPath,
	}
	finish := func(err error) ConversionResult {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	if err := ctx.Err(); err != nil {
		return finish(err)
	}

	data, err := os.ReadFile(f.InputPath) // #nosec G304 -- discovered path
	if err != nil {
		return finish(fmt.Errorf("%w: %v", ErrReadInput, err))
	}

	res, err := conv.Convert(ctx, office2pdf.Input{
		Data:      data,
		Format:    opts.format,
		Filename:  filepath.Base(f.InputPath),
		Timeout:   opts.timeout,
		Watermark: opts.watermark,
	})
	if err != nil {
		return finish(err)
	}
	result.Attempts = res.Attempts

	if err := os.MkdirAll(filepath.Dir(f.OutputPath), dirPermissions); err != nil {
		return finish(fmt.Errorf("%w: creating output directory: %v", ErrWritePDF, err))
	}
	// #nosec G306 -- PDFs are meant to be readable
	if err := os.WriteFile(f.OutputPath, res.PDF, filePermissions); err != nil {
		return finish(fmt.Errorf("%w: %v", ErrWritePDF, err))
	}

	return finish(nil)
}

// printResults outputs conversion results and returns the failure count.
func printResults(results []ConversionResult, quiet, verbose bool, env *Environment) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			continue
		}

		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v, %d attempt(s))\n",
				r.InputPath, r.OutputPath, r.Duration.Round(time.Millisecond), r.Attempts)
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", len(results)-failed, failed)
	}

	return failed
}

// batchError summarizes failures. The first failure stays reachable through
// errors.Is so the exit code reflects its kind.
func batchError(results []ConversionResult, failed int) error {
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("%w: %d of %d (first: %w)", ErrBatchFailed, failed, len(results), r.Err)
		}
	}
	return nil
}
