package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/muesli/termenv"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	hintColor = color.New(color.FgHiBlack)
)

// SetColorMode applies "always", "never" or "auto" (leave detection alone)
// to both the one-shot output helpers and Lip Gloss.
func SetColorMode(mode string) {
	switch strings.ToLower(mode) {
	case "never":
		color.NoColor = true
		lipgloss.SetColorProfile(termenv.Ascii)
	case "always":
		color.NoColor = false
		lipgloss.SetColorProfile(termenv.ANSI256)
	}
}

func OK(w io.Writer, msg string)   { fmt.Fprintln(w, okColor.Sprint("✔ "+msg)) }
func Fail(w io.Writer, msg string) { fmt.Fprintln(w, failColor.Sprint("✖ "+msg)) }
func Hint(w io.Writer, msg string) { fmt.Fprintln(w, hintColor.Sprint(msg)) }
