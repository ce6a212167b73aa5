package main

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"github.com/alnah/go-office2pdf"
	"github.com/alnah/go-office2pdf/internal/engine"
)

// Converter is the conversion service used by serve and convert.
type Converter interface {
	Convert(ctx context.Context, in office2pdf.Input) (*office2pdf.Result, error)
	Stats() office2pdf.Stats
	MaxEngines() int
	SweepOrphans() (int, error)
	Close() error
}

// Compile-time interface implementation check.
var _ Converter = (*office2pdf.Converter)(nil)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string

	NewConverter  func(opts ...office2pdf.Option) (Converter, error)
	Listen        func(network, addr string) (net.Listener, error)
	LookPath      func() (string, error)
	EngineVersion func(ctx context.Context, binary string) (string, error)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:     time.Now,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
		NewConverter: func(opts ...office2pdf.Option) (Converter, error) {
			return office2pdf.NewConverter(opts...)
		},
		Listen:   net.Listen,
		LookPath: engine.LookPath,
		EngineVersion: func(ctx context.Context, binary string) (string, error) {
			return engine.New(binary).Version(ctx)
		},
	}
}
