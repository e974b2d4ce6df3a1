package hotkey

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Binding ties a combination like "Super+Shift+A" to a callback.
type Binding struct {
	Combo    string
	Callback func()
}

var (
	mu      sync.Mutex
	running bool
)

// Listen registers all bindings on one gohook event stream. Callbacks run on
// the hook goroutine and must hand work off quickly.
func Listen(bindings []Binding) error {
	var combos []*combo
	for _, b := range bindings {
		if strings.TrimSpace(b.Combo) == "" {
			continue
		}
		c, err := parseCombo(b.Combo)
		if err != nil {
			log.Printf("ERROR: %v", err)
			continue
		}
		c.callback = b.Callback
		combos = append(combos, c)
		log.Printf("Hotkey listener configured for: %s", b.Combo)
	}
	if len(combos) == 0 {
		return errors.New("no usable hotkey bindings")
	}

	mu.Lock()
	if running {
		mu.Unlock()
		return errors.New("hotkey listener already running")
	}
	running = true
	mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
			mu.Lock()
			running = false
			mu.Unlock()
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}
		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown:
				for _, c := range combos {
					if c.keyDown(ev.Rawcode) && c.callback != nil {
						log.Printf("Hotkey activated: %s", c.name)
						c.callback()
					}
				}
			case gohook.KeyUp:
				for _, c := range combos {
					c.keyUp(ev.Rawcode)
				}
			}
		}
		log.Printf("Event channel closed")
	}()
	return nil
}

// Stop ends the hook started by Listen.
func Stop() {
	mu.Lock()
	r := running
	mu.Unlock()
	if r {
		gohook.End()
	}
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// combo tracks which keys of one combination are held.
type combo struct {
	name     string
	keys     []keyState
	callback func()
}

func parseCombo(s string) (*combo, error) {
	c := &combo{name: s}
	for _, keyName := range parseHotkey(s) {
		rawcodes := keyNameToRawcodes(keyName)
		if len(rawcodes) == 0 {
			return nil, fmt.Errorf("cannot map key %q in hotkey %q", keyName, s)
		}
		c.keys = append(c.keys, keyState{name: keyName, rawcodes: rawcodes})
	}
	if len(c.keys) == 0 {
		return nil, fmt.Errorf("empty hotkey %q", s)
	}
	return c, nil
}

// keyDown reports whether this press completed the combination. States
// reset after a match so holding the keys fires once.
func (c *combo) keyDown(rawcode uint16) bool {
	for i := range c.keys {
		if c.keys[i].matches(rawcode) {
			c.keys[i].pressed = true
		}
	}
	for i := range c.keys {
		if !c.keys[i].pressed {
			return false
		}
	}
	for i := range c.keys {
		c.keys[i].pressed = false
	}
	return true
}

func (c *combo) keyUp(rawcode uint16) {
	for i := range c.keys {
		if c.keys[i].matches(rawcode) {
			c.keys[i].pressed = false
		}
	}
}

func (k keyState) matches(rawcode uint16) bool {
	for _, rc := range k.rawcodes {
		if rc == rawcode {
			return true
		}
	}
	return false
}

// parseHotkey converts a hotkey string like "Super+Shift+a" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "ctrl", "control":
			keys = append(keys, "ctrl")
		case "win", "cmd", "super", "meta", "logo":
			keys = append(keys, "super")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

// keyNameToRawcodes maps a key name to the X11 keysyms gohook reports on
// Linux. Letters match both cases since Shift changes the keysym.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	if len(keyName) == 1 {
		ch := keyName[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			return []uint16{uint16(ch), uint16(ch - 'a' + 'A')}
		case ch >= '0' && ch <= '9':
			return []uint16{uint16(ch)}
		}
	}
	var n int
	if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && n >= 1 && n <= 24 && keyName == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(0xffbe + n - 1)} // XK_F1..XK_F24
	}

	switch keyName {
	// Modifier keys - both left and right variants
	case "ctrl":
		return []uint16{0xffe3, 0xffe4} // XK_Control_L, XK_Control_R
	case "alt":
		return []uint16{0xffe9, 0xffea} // XK_Alt_L, XK_Alt_R
	case "shift":
		return []uint16{0xffe1, 0xffe2} // XK_Shift_L, XK_Shift_R
	case "super":
		return []uint16{0xffeb, 0xffec} // XK_Super_L, XK_Super_R

	case "space":
		return []uint16{0x20}
	case "enter", "return":
		return []uint16{0xff0d}
	case "esc", "escape":
		return []uint16{0xff1b}
	case "tab":
		return []uint16{0xff09}
	case "backspace":
		return []uint16{0xff08}
	case "delete", "del":
		return []uint16{0xffff}
	case "insert", "ins":
		return []uint16{0xff63}
	case "home":
		return []uint16{0xff50}
	case "end":
		return []uint16{0xff57}
	case "pageup", "pgup":
		return []uint16{0xff55} // XK_Prior
	case "pagedown", "pgdn":
		return []uint16{0xff56} // XK_Next
	case "print", "printscreen", "prtsc":
		return []uint16{0xff61}

	case "left":
		return []uint16{0xff51}
	case "up":
		return []uint16{0xff52}
	case "right":
		return []uint16{0xff53}
	case "down":
		return []uint16{0xff54}

	default:
		log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
		return nil
	}
}
