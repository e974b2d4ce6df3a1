package notification

import (
	"fmt"
	"log"
	"os"
	"sync"
	"unicode/utf8"

	"fyne.io/fyne/v2"
)

const maxMessageRunes = 200

var (
	mu  sync.Mutex
	app fyne.App
)

// Attach routes notifications through a running fyne app. Passing nil
// detaches it again.
func Attach(a fyne.App) {
	mu.Lock()
	app = a
	mu.Unlock()
}

// Notify shows a short desktop notification, or logs it when no app is attached.
func Notify(title, message string) {
	message = truncate(message)
	mu.Lock()
	a := app
	mu.Unlock()

	log.Printf("%s: %s", title, message)
	if a == nil {
		return
	}
	a.SendNotification(fyne.NewNotification(title, message))
}

// ShowSaved reports a file export.
func ShowSaved(path string) {
	Notify("Screenshot saved", path)
}

// ShowCopied reports a clipboard export.
func ShowCopied() {
	Notify("Snip", "Screenshot copied to clipboard")
}

// ShowBlockingError reports an error the user must see even without a GUI.
func ShowBlockingError(title, message string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", title, message)
	Notify(title, message)
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxMessageRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxMessageRunes]) + "..."
}
