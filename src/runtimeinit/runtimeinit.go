// Package runtimeinit wires the configuration, logging and the external
// collaborators shared by every snip entry point.
package runtimeinit

import (
	"context"
	"errors"
	"fmt"
	"log"

	"snip/src/clipboard"
	"snip/src/config"
	"snip/src/export"
	"snip/src/overlay"
	"snip/src/process"
	"snip/src/screenshot"
	"snip/src/session"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// InitClipboard defaults to clipboard.Init.
	InitClipboard func() error
	// Runner defaults to an ExecRunner bounded by the configured timeout.
	Runner process.Runner
}

// Runtime holds the collaborators built from one configuration.
type Runtime struct {
	Config    *config.Config
	Runner    process.Runner
	Backend   screenshot.Backend
	Selector  overlay.Selector
	Clipboard *clipboard.Sink
	Files     export.FileSink
	// Warnings are non-fatal setup problems such as a malformed config file.
	Warnings []error
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	var warnings []error
	if err != nil {
		var cfgErr *config.ConfigError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		warnings = append(warnings, err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}
	for _, w := range warnings {
		log.Printf("WARNING: %v; using defaults", w)
	}
	if cfg.Path != "" {
		log.Printf("Loaded configuration from %s", cfg.Path)
	}

	initClipboard := opts.InitClipboard
	if initClipboard == nil {
		initClipboard = clipboard.Init
	}
	if err := initClipboard(); err != nil {
		// wl-copy still works on Wayland
		log.Printf("native clipboard unavailable: %v", err)
	}

	runner := opts.Runner
	if runner == nil {
		runner = process.ExecRunner{Timeout: cfg.ExternalTimeout()}
	}
	backend := screenshot.Auto(runner)
	log.Printf("Capture backend: %s", backend.Name())

	return &Runtime{
		Config:    cfg,
		Runner:    runner,
		Backend:   backend,
		Selector:  overlay.NewSelector(runner),
		Clipboard: clipboard.New(runner),
		Files:     export.FileSink{},
		Warnings:  warnings,
	}, nil
}

// LocateWindow asks the compositor for the focused window.
func (r *Runtime) LocateWindow(ctx context.Context) (screenshot.Region, error) {
	return screenshot.ActiveWindow(ctx, r.Runner)
}

// SessionOptions fills the configured parts of a capture flow for mode.
func (r *Runtime) SessionOptions(mode screenshot.Mode) session.Options {
	cfg := r.Config
	return session.Options{
		Mode:           mode,
		Backend:        r.Backend,
		Selector:       r.Selector,
		LocateWindow:   r.LocateWindow,
		CaptureTimeout: cfg.ExternalTimeout(),
		AutoCopy:       cfg.Screenshot.CopyToClipboard,
		AutoSave:       cfg.Screenshot.AutoSave,
		SaveDirectory:  cfg.Screenshot.SaveDirectory,
		FilenameFormat: cfg.Screenshot.FilenameFormat,
		ClipboardSink:  r.Clipboard,
		Files:          r.Files,
	}
}
