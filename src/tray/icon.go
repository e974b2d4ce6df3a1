package tray

import (
	"bytes"
	"log"
	"sync"

	"github.com/gogpu/gg"
)

const iconSize = 32

var (
	iconOnce sync.Once
	iconPNG  []byte
)

// Icon is the tray icon: a dashed selection frame with a pin head in the
// corner, rendered once as PNG.
func Icon() []byte {
	iconOnce.Do(func() {
		data, err := renderIcon(iconSize)
		if err != nil {
			log.Printf("tray: failed to render icon: %v", err)
			return
		}
		iconPNG = data
	})
	return iconPNG
}

func renderIcon(size int) ([]byte, error) {
	s := float64(size)
	dc := gg.NewContext(size, size)

	dc.SetRGB(0, 0.47, 0.83)
	dc.SetLineWidth(s / 12)
	dc.SetDash(s/10, s/20)
	dc.DrawRectangle(s*0.12, s*0.16, s*0.62, s*0.5)
	if err := dc.Stroke(); err != nil {
		return nil, err
	}
	dc.SetDash()

	// pin
	dc.SetRGB(0.85, 0.1, 0.1)
	dc.DrawCircle(s*0.72, s*0.7, s*0.16)
	if err := dc.Fill(); err != nil {
		return nil, err
	}
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.SetLineWidth(s / 16)
	dc.SetLineCap(gg.LineCapRound)
	dc.DrawLine(s*0.72, s*0.86, s*0.72, s*0.98)
	if err := dc.Stroke(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
