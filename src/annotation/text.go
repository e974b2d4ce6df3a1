package annotation

import (
	"log"
	"math"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	fontOnce sync.Once
	goFont   *opentype.Font

	facesMu sync.Mutex
	faces   = map[float64]font.Face{}
)

func regularFont() *opentype.Font {
	fontOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			log.Printf("annotation: failed to parse Go Regular: %v", err)
			return
		}
		goFont = f
	})
	return goFont
}

func faceForSize(size float64) font.Face {
	facesMu.Lock()
	defer facesMu.Unlock()
	if f, ok := faces[size]; ok {
		return f
	}
	otf := regularFont()
	if otf == nil {
		return nil
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		log.Printf("annotation: failed to build face at %.1fpt: %v", size, err)
		return nil
	}
	faces[size] = face
	return face
}

// MeasureText returns the canvas-space width and line height of s at the
// given font size. Without a usable face it falls back to an average advance
// of 0.6em per rune.
func MeasureText(s string, size float64) (w, h float64) {
	if size <= 0 {
		size = DefaultStyle().FontSize
	}
	face := faceForSize(size)
	if face == nil {
		return 0.6 * size * float64(utf8.RuneCountInString(s)), math.Ceil(1.2 * size)
	}
	adv := font.MeasureString(face, s)
	m := face.Metrics()
	return float64(adv) / 64, float64(m.Ascent+m.Descent) / 64
}
