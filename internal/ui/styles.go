package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent  = 74  // blue: names
	colorMuted   = 245 // gray: timestamps, ids
	colorSuccess = 114 // green: granted, saved
	colorWarn    = 179 // amber: denied, disabled
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent color; used for configuration names.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderSuccess returns s in the success color.
func RenderSuccess(s string) string { return render(colorSuccess, s) }

// RenderWarn returns s in the warning color.
func RenderWarn(s string) string { return render(colorWarn, s) }

// RenderBool renders a permission or flag state as yes/no.
func RenderBool(v bool) string {
	if v {
		return RenderSuccess("yes")
	}
	return RenderWarn("no")
}

// SetColor enables or disables color output globally.
func SetColor(enabled bool) {
	noColor = !enabled
}
