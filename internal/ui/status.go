package ui

import (
	"fmt"
	"io"
	"sync"

	"svsp-upload/internal/upload"
)

// Color names follow the CSS keywords used by the web page.
const (
	Black = "black"
	Blue  = "blue"
	Green = "green"
	Red   = "red"
)

var ansi = map[string]string{
	Black: "\033[0m",
	Blue:  "\033[34m",
	Green: "\033[32m",
	Red:   "\033[31m",
}

const reset = "\033[0m"

// Color returns the colour the status message is shown in.
func Color(s upload.Status) string {
	switch s {
	case upload.Uploading:
		return Blue
	case upload.Success:
		return Green
	case upload.Error:
		return Red
	default:
		return Black
	}
}

// Icon prefixes the message on the terminal.
func Icon(s upload.Status) string {
	switch s {
	case upload.Uploading:
		return "⬆️ "
	case upload.Success:
		return "✅"
	case upload.Error:
		return "❌"
	default:
		return "  "
	}
}

// StatusLine renders a state for a terminal. The colour codes are omitted
// when plain is set.
func StatusLine(st upload.State, plain bool) string {
	name := st.FileName
	if name == "" {
		name = "(no file)"
	}
	line := fmt.Sprintf("%s %-9s %s", Icon(st.Status), st.Status, name)
	if st.Message != "" {
		line += ": " + st.Message
	}
	if !st.CanSubmit {
		line += " [submit disabled]"
	}
	if plain {
		return line
	}
	return ansi[Color(st.Status)] + line + reset
}

// Printer writes one status line per form transition.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	plain bool
}

func NewPrinter(w io.Writer, plain bool) *Printer {
	return &Printer{w: w, plain: plain}
}

// Print is suitable for upload.Form.OnChange.
func (p *Printer) Print(st upload.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, StatusLine(st, p.plain))
}
