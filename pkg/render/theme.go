package render

import "github.com/charmbracelet/lipgloss"

// Theme is a terminal color palette. Colors are ANSI 256-color codes
// for broad terminal compatibility; ChromaStyle names the chroma style
// used for fenced code blocks.
type Theme struct {
	Name       string
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Heading    lipgloss.Color
	Border     lipgloss.Color
	TaskDone   lipgloss.Color

	ChromaStyle string

	// Mono disables all styling, colors and syntax highlighting
	// included.
	Mono bool
}

// Dark is the default palette, tuned for dark-background terminals.
var Dark = Theme{
	Name:        "dark",
	NormalText:  lipgloss.Color("252"),
	FaintText:   lipgloss.Color("245"),
	Heading:     lipgloss.Color("255"),
	Border:      lipgloss.Color("240"),
	TaskDone:    lipgloss.Color("114"),
	ChromaStyle: "monokai",
}

// Light is the palette for light-background terminals.
var Light = Theme{
	Name:        "light",
	NormalText:  lipgloss.Color("235"),
	FaintText:   lipgloss.Color("243"),
	Heading:     lipgloss.Color("232"),
	Border:      lipgloss.Color("250"),
	TaskDone:    lipgloss.Color("28"),
	ChromaStyle: "monokailight",
}

// Mono renders structure only: no colors, no emphasis, no
// highlighting.
var Mono = Theme{
	Name: "mono",
	Mono: true,
}

// ByName looks up a built-in theme.
func ByName(name string) (Theme, bool) {
	switch name {
	case "dark":
		return Dark, true
	case "light":
		return Light, true
	case "mono":
		return Mono, true
	default:
		return Theme{}, false
	}
}
