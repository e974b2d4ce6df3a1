package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"snip/src/annotation"
	"snip/src/config"
	"snip/src/export"
	"snip/src/render"
	"snip/src/screenshot"
)

const (
	maxFileSizeMB = 50
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath   string
	scriptPath string
	outputPath string
	configPath string
	jsonOutput bool
	verbose    bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"snip-annotate"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "snip-annotate",
		Short:         "Draw a YAML shape script onto a PNG and write the flattened result",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.scriptPath, "script", "", "Path to YAML shape script (use '-' for stdin)")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output path; '-' writes PNG to stdout, empty uses the filename template")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Config file supplying the default style and save directory")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print a JSON summary")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func runWithOptions(opts cliOptions, stdout io.Writer) error {
	if !opts.verbose {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stderr)
	}
	if opts.filePath == "-" && opts.scriptPath == "-" {
		return fmt.Errorf("--file and --script cannot both read stdin")
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{ConfigPathOverride: opts.configPath})
	if err != nil {
		// malformed config still yields defaults
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	base, err := readPNG(opts.filePath)
	if err != nil {
		return err
	}
	script, err := readScript(opts.scriptPath)
	if err != nil {
		return err
	}

	start := time.Now()
	engine := annotation.NewEngine(cfg.AnnotationStyle())
	count, err := script.apply(engine)
	if err != nil {
		return err
	}
	flat := render.New(base, engine, render.Options{}).Flatten()
	log.Printf("rendered %d shapes in %v", count, time.Since(start))

	dest, err := writeOutput(flat, opts.outputPath, cfg, stdout)
	if err != nil {
		return err
	}
	if opts.jsonOutput && opts.outputPath != "-" {
		return outputResult(stdout, annotateResult{
			Source:    opts.filePath,
			Output:    dest,
			Shapes:    count,
			Width:     flat.Bounds().Dx(),
			Height:    flat.Bounds().Dy(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Duration:  time.Since(start).Seconds(),
		})
	}
	if opts.outputPath != "-" {
		fmt.Fprintln(stdout, dest)
	}
	return nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "script", "output", "config", "json", "verbose"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}

func readPNG(path string) (*image.RGBA, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(os.Stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
	}

	if err := validatePNG(data); err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	return screenshot.ToRGBA(img), nil
}

func validatePNG(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	return nil
}

func writeOutput(img *image.RGBA, path string, cfg *config.Config, stdout io.Writer) (string, error) {
	if path == "-" {
		if err := png.Encode(stdout, img); err != nil {
			return "", fmt.Errorf("failed to write PNG to stdout: %w", err)
		}
		return "-", nil
	}
	if path == "" {
		var err error
		path, err = export.ResolvePath(cfg.Screenshot.FilenameFormat, cfg.Screenshot.SaveDirectory, time.Now())
		if err != nil {
			return "", err
		}
	}
	if err := (export.FileSink{}).Save(context.Background(), img, path); err != nil {
		return "", err
	}
	return export.ExpandHome(path), nil
}

type annotateResult struct {
	Source    string  `json:"source"`
	Output    string  `json:"output"`
	Shapes    int     `json:"shape_count"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
}

func outputResult(w io.Writer, res annotateResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(res); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
