package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"snip/src/config"
	"snip/src/logutil"
	"snip/src/runtimeinit"
)

const version = "0.3.0"

func init() {
	// fyne and systray both need the main OS thread
	runtime.LockOSThread()
}

type mainOptions struct {
	configPath  string
	saveDir     string
	fileLogging bool
	verbose     bool
}

func main() {
	root := newRootCmd(&mainOptions{})
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snip",
		Short: "Wayland screenshot, annotate and pin tool",
		Long: `snip captures a region, a monitor or the active window, then opens the
capture for annotation or pins it as a floating always-on-top window.

Run "snip tray" to stay resident with global shortcuts; later capture
commands hand their work to the resident instance.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config file (JSON or YAML)")
	flags.StringVar(&opts.saveDir, "save-dir", "", "Override the save directory")
	flags.BoolVar(&opts.fileLogging, "log-file", false, "Write a debug log under the user cache directory")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	cmd.AddCommand(
		newCaptureCmd(opts, "region", "Select a region with slurp and capture it"),
		newCaptureCmd(opts, "fullscreen", "Capture the focused monitor"),
		newCaptureCmd(opts, "window", "Capture the active window"),
		newOpenCmd(opts),
		newGUICmd(opts),
		newTrayCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

func (o *mainOptions) loadOptions(cmd *cobra.Command) config.LoadOptions {
	lo := config.LoadOptions{
		ConfigPathOverride:    o.configPath,
		SaveDirectoryOverride: o.saveDir,
	}
	if cmd.Flags().Changed("log-file") {
		enable := o.fileLogging
		lo.EnableFileLogging = &enable
	}
	return lo
}

func (o *mainOptions) bootstrap(cmd *cobra.Command) (*runtimeinit.Runtime, error) {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  o.loadOptions(cmd),
		SetupLogging: o.setupLogging,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range rt.Warnings {
		fmt.Fprintf(os.Stderr, "snip: warning: %v; using defaults\n", w)
	}
	return rt, nil
}

func (o *mainOptions) setupLogging(enableFileLogging bool) {
	logutil.Setup(enableFileLogging)
	if o.verbose {
		logutil.AlsoToStderr()
	}
}
