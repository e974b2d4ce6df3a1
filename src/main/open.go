package main

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"

	"github.com/spf13/cobra"

	"snip/src/gui"
	"snip/src/screenshot"
)

var errNothingToOpen = errors.New("nothing to open: pass --annotate or --pin")

type openOptions struct {
	annotate bool
	pin      bool
	remove   bool
}

// window reports whether the image opens pinned, and fails when both
// window kinds were turned off.
func (o openOptions) window() (pinned bool, err error) {
	switch {
	case o.pin:
		return true, nil
	case o.annotate:
		return false, nil
	}
	return false, errNothingToOpen
}

func newOpenCmd(opts *mainOptions) *cobra.Command {
	oo := &openOptions{}
	cmd := &cobra.Command{
		Use:   "open FILE",
		Short: "Open an existing image for annotation or pinning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pinned, err := oo.window()
			if err != nil {
				return err
			}
			rt, err := opts.bootstrap(cmd)
			if err != nil {
				return err
			}
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			if oo.remove {
				if err := os.Remove(args[0]); err != nil {
					log.Printf("open: failed to remove %s: %v", args[0], err)
				}
			}
			app := gui.New(guiDeps(rt))
			if pinned {
				err = app.Pin(img)
			} else {
				err = app.Annotate(img)
			}
			if err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&oo.annotate, "annotate", true, "Open in the annotation window")
	f.BoolVar(&oo.pin, "pin", false, "Open as a pinned always-on-top window")
	f.BoolVar(&oo.remove, "remove", false, "Delete FILE once it is loaded")
	cmd.MarkFlagsMutuallyExclusive("annotate", "pin")
	return cmd
}

// loadImage decodes a PNG or JPEG file into an RGBA buffer.
func loadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s is not a PNG or JPEG image: %w", path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%s is empty", path)
	}
	log.Printf("open: loaded %s %dx%d from %s", format, img.Bounds().Dx(), img.Bounds().Dy(), path)
	return screenshot.ToRGBA(img), nil
}
