package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"

	"snip/src/eventloop"
	"snip/src/gui"
	"snip/src/hotkey"
	"snip/src/process"
	"snip/src/screenshot"
	"snip/src/singleinstance"
	"snip/src/tray"
)

const (
	childStopGrace       = 2 * time.Second
	residentProbeTimeout = 5 * time.Second
)

func newGUICmd(opts *mainOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Show the capture launcher window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.bootstrap(cmd)
			if err != nil {
				return err
			}
			app := gui.New(guiDeps(rt))
			app.ShowLauncher()
			go func() {
				<-cmd.Context().Done()
				app.Quit()
			}()
			app.Run()
			return nil
		},
	}
}

func newTrayCmd(opts *mainOptions) *cobra.Command {
	var noHotkeys bool
	cmd := &cobra.Command{
		Use:   "tray",
		Short: "Stay resident in the system tray with global shortcuts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			probe, stop := context.WithTimeout(cmd.Context(), residentProbeTimeout)
			err := singleinstance.CheckNoResident(probe)
			stop()
			if err != nil {
				return err
			}
			rt, err := opts.bootstrap(cmd)
			if err != nil {
				return err
			}
			cfg := rt.Config
			children := process.NewManager()
			loop := eventloop.New(eventloop.Options{
				Config:       cfg,
				Backend:      rt.Backend,
				Selector:     rt.Selector,
				LocateWindow: rt.LocateWindow,
				Presenter:    eventloop.ProcessPresenter{Spawner: children, Files: rt.Files},
				Clipboard:    rt.Clipboard,
				Files:        rt.Files,
			})
			loop.SetDefaultTooltip("Snip - " + cfg.Shortcuts.CaptureRegion + " to capture")

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var loopErr error
			loopDone := make(chan struct{})
			go func() {
				defer close(loopDone)
				if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					loopErr = err
					log.Printf("event loop stopped: %v", err)
				}
				tray.Quit()
			}()

			if !noHotkeys {
				if err := loop.StartHotkeys(cfg.Shortcuts); err != nil {
					log.Printf("Global shortcuts unavailable: %v", err)
				}
				defer hotkey.Stop()
			}

			tray.Run(tray.Handlers{
				OnCapture: func(mode screenshot.Mode, pin bool) {
					loop.Trigger(eventloop.Request{Mode: mode, Pin: pin})
				},
				OnQuit: cancel,
			}, func() {
				select {
				case <-loopDone:
					// the loop failed before the tray came up
					tray.Quit()
					return
				default:
				}
				log.Printf("Snip resident ready (%s, %s, %s)",
					cfg.Shortcuts.CaptureRegion, cfg.Shortcuts.CaptureFullscreen, cfg.Shortcuts.CaptureWindow)
			})

			cancel()
			<-loopDone
			children.StopAll(childStopGrace)
			return loopErr
		},
	}
	cmd.Flags().BoolVar(&noHotkeys, "no-hotkeys", false, "Do not register global shortcuts")
	return cmd
}
