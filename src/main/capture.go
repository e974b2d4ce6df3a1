package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"snip/src/gui"
	"snip/src/runtimeinit"
	"snip/src/screenshot"
	"snip/src/session"
	"snip/src/singleinstance"
)

// delegationTimeout bounds a hand-off to the resident, including its slurp.
const delegationTimeout = 3 * time.Minute

type captureOptions struct {
	annotate   bool
	pin        bool
	save       bool
	clipboard  bool
	output     string
	geometry   string
	outputName string
	delay      time.Duration
	standalone bool
}

// presents reports whether the flow ends in a window.
func (c captureOptions) presents() bool {
	return c.annotate || c.pin || (!c.save && !c.clipboard && c.output == "")
}

// delegable flows only open windows, which is all a resident can do for us.
func (c captureOptions) delegable() bool {
	return !c.standalone && c.presents() && !c.save && !c.clipboard && c.output == "" && c.geometry == "" && c.outputName == "" && c.delay == 0
}

func newCaptureCmd(opts *mainOptions, mode, short string) *cobra.Command {
	co := &captureOptions{}
	cmd := &cobra.Command{
		Use:   mode,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := screenshot.ParseMode(mode)
			if err != nil {
				return err
			}
			if co.delegable() {
				handled := handleWithDelegation(cmd.Context(), singleinstance.NewClient(),
					singleinstance.Request{Mode: mode, Pin: co.pin})
				if handled {
					return nil
				}
			}
			rt, err := opts.bootstrap(cmd)
			if err != nil {
				return err
			}
			return runCapture(cmd.Context(), rt, m, *co)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&co.annotate, "annotate", false, "Open the capture in the annotation window")
	f.BoolVar(&co.pin, "pin", false, "Pin the capture as a floating always-on-top window")
	f.BoolVar(&co.save, "save", false, "Save the capture using the filename template")
	f.BoolVar(&co.clipboard, "clipboard", false, "Copy the capture to the clipboard")
	f.StringVarP(&co.output, "output", "o", "", "Save the capture to this path (implies --save)")
	f.DurationVar(&co.delay, "delay", 0, "Wait before capturing")
	f.BoolVar(&co.standalone, "standalone", false, "Never hand the capture to a resident snip")
	cmd.MarkFlagsMutuallyExclusive("annotate", "pin")
	switch mode {
	case "region":
		f.StringVarP(&co.geometry, "geometry", "g", "", `Capture "X,Y WxH" without interactive selection`)
	case "fullscreen":
		f.StringVar(&co.outputName, "output-name", "", "Capture this monitor instead of the focused one")
	}
	return cmd
}

// handleWithDelegation reports whether a resident snip took the request.
// Delegation failures fall back to a standalone capture, except when the
// resident answered with an error of its own.
func handleWithDelegation(ctx context.Context, client singleinstance.Client, req singleinstance.Request) bool {
	ctx, cancel := context.WithTimeout(ctx, delegationTimeout)
	defer cancel()
	delegated, text, err := client.TryCapture(ctx, req)
	switch {
	case !delegated:
		log.Printf("No resident detected, running standalone")
		return false
	case err != nil:
		fmt.Fprintf(os.Stderr, "snip: resident: %v\n", err)
		return true
	}
	log.Printf("Delegated %s capture to resident (%s)", req.Mode, text)
	return true
}

func runCapture(ctx context.Context, rt *runtimeinit.Runtime, mode screenshot.Mode, co captureOptions) error {
	opts := rt.SessionOptions(mode)
	opts.Annotate = co.annotate
	opts.Pin = co.pin
	opts.Save = co.save || co.output != ""
	opts.Clipboard = co.clipboard
	opts.OutputPath = co.output
	opts.Output = co.outputName
	if co.geometry != "" {
		region, err := screenshot.ParseGeometry(co.geometry)
		if err != nil {
			return err
		}
		opts.Region = region
	}

	windows := &windowPresenter{deps: guiDeps(rt)}
	opts.Present = windows

	if co.delay > 0 {
		log.Printf("Waiting %v before capture", co.delay)
		select {
		case <-time.After(co.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	res, err := session.Execute(ctx, opts)
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "snip: warning: %v\n", w)
	}
	if res.SavedPath != "" {
		fmt.Println(res.SavedPath)
	}
	if windows.app != nil {
		windows.app.Run()
	}
	if errors.Is(err, screenshot.ErrSelectionCancelled) {
		log.Printf("Selection cancelled")
		return nil
	}
	return err
}

func guiDeps(rt *runtimeinit.Runtime) gui.Deps {
	return gui.Deps{
		Config:    rt.Config,
		Runner:    rt.Runner,
		Clipboard: rt.Clipboard,
		Files:     rt.Files,
		Capture: func(ctx context.Context, mode screenshot.Mode) (*image.RGBA, error) {
			return session.Capture(ctx, rt.SessionOptions(mode))
		},
	}
}

// windowPresenter creates the fyne app on first use so flows that only save
// or copy never start a display connection.
type windowPresenter struct {
	deps gui.Deps
	app  *gui.App
}

func (p *windowPresenter) ensure() *gui.App {
	if p.app == nil {
		p.app = gui.New(p.deps)
	}
	return p.app
}

func (p *windowPresenter) Annotate(img *image.RGBA) error { return p.ensure().Annotate(img) }

func (p *windowPresenter) Pin(img *image.RGBA) error { return p.ensure().Pin(img) }
