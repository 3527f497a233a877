// Package render turns markdown into styled terminal output.
// Assistant replies are treated as markdown: prose reflows to the
// terminal width, code blocks stay verbatim with syntax highlighting.
package render

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/term"
)

const (
	minWidth     = 40
	maxWidth     = 100
	defaultWidth = 80
)

// The parser configuration never changes and a goldmark parser is safe
// to share; per-call state lives in the reader.
var (
	parserOnce sync.Once
	parser     goldmark.Markdown
)

func markdownParser() goldmark.Markdown {
	parserOnce.Do(func() {
		parser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return parser
}

// Renderer renders markdown for a fixed theme and width.
type Renderer struct {
	theme Theme
	width int
	lip   *lipgloss.Renderer
}

// New builds a renderer using the color profile detected from the
// environment. The mono theme forces an uncolored profile regardless
// of what the terminal supports.
func New(theme Theme, width int) *Renderer {
	return NewWithProfile(theme, width, termenv.ColorProfile())
}

// NewWithProfile builds a renderer with an explicit color profile.
func NewWithProfile(theme Theme, width int, profile termenv.Profile) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	if theme.Mono {
		profile = termenv.Ascii
	}
	// SetColorProfile is required in addition to WithProfile:
	// lipgloss re-detects the profile from the environment unless one
	// is set explicitly on the renderer.
	lip := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(profile))
	lip.SetColorProfile(profile)
	return &Renderer{theme: theme, width: width, lip: lip}
}

// Render parses markdown and returns styled terminal text with no
// trailing newline. Empty input renders to the empty string.
func (r *Renderer) Render(input string) string {
	if input == "" {
		return ""
	}
	src := []byte(input)
	doc := markdownParser().Parser().Parse(text.NewReader(src))

	w := &walker{src: src, theme: r.theme, width: r.width, lip: r.lip}
	ast.Walk(doc, w.walk)
	return strings.TrimRight(w.out.String(), "\n")
}

// TerminalWidth reports the column count of the terminal on fd,
// clamped to [40, 100]. Falls back to 80 when fd is not a terminal or
// the size cannot be read.
func TerminalWidth(fd int) int {
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultWidth
	}
	if width < minWidth {
		return minWidth
	}
	if width > maxWidth {
		return maxWidth
	}
	return width
}
