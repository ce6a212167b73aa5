package main

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-office2pdf/internal/config"
)

// runConfig prints the effective configuration as YAML.
func runConfig(args []string, env *Environment) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.Usage = func() {}
	var common commonFlags
	var engine engineFlags
	addCommonFlags(fs, &common)
	addEngineFlags(fs, &engine)

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: config takes no arguments", ErrUsage)
	}

	cfg, err := loadSettings(common.config, env, func(c *config.Config) {
		mergeCommonFlags(&common, c)
		mergeEngineFlags(&engine, fs.Changed, c)
	})
	if err != nil {
		return err
	}

	out, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = env.Stdout.Write(out)
	return err
}
