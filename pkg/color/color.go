package color

import (
	"fmt"
	"os"
	"strings"
)

// ANSI color codes
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"
)

// Foreground colors
const (
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"

	BrightRed = "\033[91m"
)

// riskColors maps a risk level to the color its prompts are shown in.
var riskColors = map[string]string{
	"low":    Green,
	"medium": Yellow,
	"high":   BrightRed,
}

// isColorSupported checks if the terminal supports color output
func isColorSupported() bool {
	// Check NO_COLOR environment variable (https://no-color.org/)
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	// Check FORCE_COLOR environment variable
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}

	// Check if stderr is a terminal
	term := os.Getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}

	// Check if we're in a CI environment
	if os.Getenv("CI") != "" {
		return false
	}

	// Check common color support indicators
	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		return true
	}

	// Basic terminal color support check
	if strings.Contains(term, "color") ||
		strings.Contains(term, "ansi") ||
		strings.Contains(term, "xterm") ||
		strings.Contains(term, "screen") {
		return true
	}

	return false
}

// Colorize applies color to text
func Colorize(text, color string) string {
	if !isColorSupported() {
		return text
	}
	return color + text + Reset
}

// RiskLabel formats a risk level like "[high risk]" in the level's color.
func RiskLabel(risk string) string {
	label := fmt.Sprintf("[%s risk]", risk)
	c, ok := riskColors[risk]
	if !ok {
		return label
	}
	return Colorize(label, c)
}
