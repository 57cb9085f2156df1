package term

import (
	"os"
	"strings"

	xterm "golang.org/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// fileDescriptor is satisfied by *os.File.
type fileDescriptor interface {
	Fd() uintptr
}

// IsTerminal reports whether v is a file attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(fileDescriptor)
	return ok && xterm.IsTerminal(int(f.Fd()))
}

// Width returns the column count of the terminal behind v, or DefaultWidth.
func Width(v any) int {
	if f, ok := v.(fileDescriptor); ok {
		if width, _, err := xterm.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return DefaultWidth
}

// Wrap breaks text into lines of at most width runes, preferring spaces.
func Wrap(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		runes := []rune(paragraph)
		for len(runes) > width {
			cut := width
			for i := width; i > 0; i-- {
				if runes[i] == ' ' {
					cut = i
					break
				}
			}
			lines = append(lines, strings.TrimRight(string(runes[:cut]), " "))
			runes = []rune(strings.TrimLeft(string(runes[cut:]), " "))
		}
		lines = append(lines, string(runes))
	}
	return lines
}

func SupportsHyperlinks() bool {
	term := os.Getenv("TERM")
	if term == "" || term == "dumb" || term == "alacritty" {
		return false
	}
	for _, key := range []string{"WT_SESSION", "VTE_VERSION", "KONSOLE_VERSION", "KITTY_WINDOW_ID", "WEZTERM_EXECUTABLE", "DOMTERM", "TERM_PROGRAM"} {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

// ClickableLink wraps label in an OSC 8 hyperlink when the terminal
// understands them.
func ClickableLink(label string, url string) string {
	if url == "" {
		return label
	}
	if label == "" {
		label = url
	}
	if !SupportsHyperlinks() {
		return label
	}
	return "\x1b]8;;" + url + "\x1b\\" + label + "\x1b]8;;\x1b\\"
}
