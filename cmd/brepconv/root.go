package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/brep/pkg/config"
	"github.com/chazu/brep/pkg/logx"
)

var (
	configPath string
	verbose    bool
	workers    int
)

var rootCmd = &cobra.Command{
	Use:          "brepconv",
	Short:        "Convert BREP documents to triangle meshes",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./"+config.FileName+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "concurrent workers (0 = all CPUs)")
}

// loadConfig reads the config file and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	if !verbose {
		return logx.Nop()
	}
	return logx.New(cmd.ErrOrStderr(), true)
}

// readInput reads a file, or standard input for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// formatForPath guesses the wire format from a file extension. Unknown
// extensions return "" so the decoder sniffs the content.
func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".brep", ".lisp", ".sexp":
		return "sexp"
	}
	return ""
}
