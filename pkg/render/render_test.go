package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
)

func testRenderer(width int) *Renderer {
	return NewWithProfile(Dark, width, termenv.ANSI256)
}

// stripped renders markdown and returns the ANSI-stripped visible text.
func stripped(t *testing.T, input string, width int) string {
	t.Helper()
	return ansi.Strip(testRenderer(width).Render(input))
}

func TestRenderEmpty(t *testing.T) {
	if out := testRenderer(80).Render(""); out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestParagraphReflow(t *testing.T) {
	// Source hard-wrapped at a narrow width; at width 120 the joined
	// text fits on one line, so soft breaks must become spaces.
	input := "This paragraph was written\nat a narrow width with\nline breaks inside it."
	out := stripped(t, input, 120)

	if strings.Contains(out, "\n") {
		t.Errorf("expected a single line at width 120, got:\n%s", out)
	}
	if !strings.Contains(out, "written at a narrow") {
		t.Errorf("expected soft breaks converted to spaces, got:\n%s", out)
	}
}

func TestParagraphWrapsToWidth(t *testing.T) {
	input := "A sentence that is long enough to need wrapping at a forty column width."
	out := stripped(t, input, 40)

	lines := strings.Split(out, "\n")
	if len(lines) < 2 {
		t.Fatalf("expected wrapping at width 40, got:\n%s", out)
	}
	for _, line := range lines {
		if len(line) > 40 {
			t.Errorf("line exceeds width 40: %q", line)
		}
	}
}

func TestHardLineBreak(t *testing.T) {
	// Two trailing spaces force a hard break.
	out := stripped(t, "line one  \nline two", 80)
	if !strings.Contains(out, "line one\nline two") {
		t.Errorf("expected hard break preserved, got:\n%s", out)
	}
}

func TestHeadingStyled(t *testing.T) {
	input := "# Title\n\nbody text"
	out := stripped(t, input, 80)
	if !strings.Contains(out, "Title") || !strings.Contains(out, "body text") {
		t.Fatalf("missing content:\n%s", out)
	}

	raw := testRenderer(80).Render(input)
	if raw == out {
		t.Error("expected ANSI styling on the heading")
	}
}

func TestEmphasisStyled(t *testing.T) {
	input := "some *italic* and **bold** words"
	out := stripped(t, input, 80)
	if !strings.Contains(out, "italic") || !strings.Contains(out, "bold") {
		t.Fatalf("missing emphasis text:\n%s", out)
	}
	if raw := testRenderer(80).Render(input); raw == out {
		t.Error("expected ANSI styling on emphasis")
	}
}

func TestCodeBlockNotReflowed(t *testing.T) {
	longLine := "const answer = computeTheAnswerToLifeTheUniverseAndEverything(deepThought, 7500000)"
	input := "before\n\n```go\n" + longLine + "\n```\n\nafter"
	out := stripped(t, input, 40)

	// The code line must survive intact even though it exceeds the
	// render width.
	if !strings.Contains(out, longLine) {
		t.Errorf("code block was rewrapped:\n%s", out)
	}
	if !strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Errorf("surrounding prose missing:\n%s", out)
	}
}

func TestCodeBlockHighlighted(t *testing.T) {
	raw := testRenderer(80).Render("```go\npackage main\n```")
	if !strings.Contains(raw, "\x1b[") {
		t.Error("expected ANSI escapes from syntax highlighting")
	}
}

func TestCodeSpan(t *testing.T) {
	out := stripped(t, "call `Close()` when done", 80)
	if !strings.Contains(out, "Close()") {
		t.Errorf("missing code span text:\n%s", out)
	}
}

func TestBulletList(t *testing.T) {
	out := stripped(t, "- first\n- second\n- third", 80)
	for _, want := range []string{"- first", "- second", "- third"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestOrderedListNumbering(t *testing.T) {
	out := stripped(t, "1. alpha\n2. beta\n3. gamma", 80)
	for _, want := range []string{"1. alpha", "2. beta", "3. gamma"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestNestedListIndent(t *testing.T) {
	out := stripped(t, "- outer\n  - inner", 80)
	if !strings.Contains(out, "- outer") {
		t.Fatalf("missing outer item:\n%s", out)
	}
	if !strings.Contains(out, "  - inner") {
		t.Errorf("inner item not indented under outer:\n%s", out)
	}
}

func TestListItemContinuationIndent(t *testing.T) {
	// A wrapped list item's continuation lines align under the text,
	// not under the bullet.
	out := stripped(t, "- a list item with enough words to wrap at a narrow width for sure", 40)
	lines := strings.Split(out, "\n")
	if len(lines) < 2 {
		t.Fatalf("expected the item to wrap:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "- ") {
		t.Errorf("first line missing bullet: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  ") || strings.HasPrefix(lines[1], "- ") {
		t.Errorf("continuation line not indented: %q", lines[1])
	}
}

func TestBlockquotePrefix(t *testing.T) {
	out := stripped(t, "> quoted text", 80)
	if !strings.Contains(out, "│ quoted text") {
		t.Errorf("missing blockquote prefix:\n%s", out)
	}
}

func TestTaskList(t *testing.T) {
	out := stripped(t, "- [x] done\n- [ ] pending", 80)
	if !strings.Contains(out, "[x] done") {
		t.Errorf("missing checked task:\n%s", out)
	}
	if !strings.Contains(out, "[ ] pending") {
		t.Errorf("missing unchecked task:\n%s", out)
	}
}

func TestThematicBreak(t *testing.T) {
	out := stripped(t, "above\n\n---\n\nbelow", 80)
	if !strings.Contains(out, "────") {
		t.Errorf("missing horizontal rule:\n%s", out)
	}
}

func TestLinkShowsURL(t *testing.T) {
	out := stripped(t, "see [the docs](https://example.com/docs)", 80)
	if !strings.Contains(out, "the docs") {
		t.Errorf("missing link text:\n%s", out)
	}
	if !strings.Contains(out, "(https://example.com/docs)") {
		t.Errorf("missing link URL:\n%s", out)
	}
}

func TestStrikethrough(t *testing.T) {
	out := stripped(t, "~~gone~~ kept", 80)
	if !strings.Contains(out, "gone") || !strings.Contains(out, "kept") {
		t.Errorf("missing strikethrough text:\n%s", out)
	}
}

func TestTableLayout(t *testing.T) {
	input := "| Model | Tokens |\n|-------|--------|\n| gpt-4o | 120 |\n| o3 | 45 |"
	out := stripped(t, input, 80)

	if !strings.Contains(out, "Model") || !strings.Contains(out, "Tokens") {
		t.Fatalf("missing header cells:\n%s", out)
	}
	if !strings.Contains(out, "gpt-4o") || !strings.Contains(out, "45") {
		t.Fatalf("missing body cells:\n%s", out)
	}
	if !strings.Contains(out, "──") {
		t.Errorf("missing header separator:\n%s", out)
	}

	// Cells align: "Tokens" starts at the same column in the header
	// as "120" does in its row.
	var headerLine, bodyLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Tokens") {
			headerLine = line
		}
		if strings.Contains(line, "120") {
			bodyLine = line
		}
	}
	if strings.Index(headerLine, "Tokens") != strings.Index(bodyLine, "120") {
		t.Errorf("columns misaligned:\n%s", out)
	}
}

func TestTableTruncatesWideCells(t *testing.T) {
	long := strings.Repeat("x", 120)
	input := "| A | B |\n|---|---|\n| " + long + " | short |"
	out := stripped(t, input, 60)

	for _, line := range strings.Split(out, "\n") {
		if len([]rune(line)) > 60 {
			t.Errorf("table line exceeds width: %q", line)
		}
	}
	if !strings.Contains(out, "…") {
		t.Errorf("expected truncation marker:\n%s", out)
	}
}

func TestMonoThemeHasNoEscapes(t *testing.T) {
	input := "# Title\n\n**bold** and `code`\n\n```go\npackage main\n```"
	// Even with a color-capable profile, mono forces plain output.
	raw := NewWithProfile(Mono, 80, termenv.ANSI256).Render(input)
	if strings.Contains(raw, "\x1b[") {
		t.Errorf("mono output contains ANSI escapes:\n%q", raw)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"dark", "light", "mono"} {
		theme, ok := ByName(name)
		if !ok {
			t.Errorf("theme %q not found", name)
			continue
		}
		if theme.Name != name {
			t.Errorf("expected name %q, got %q", name, theme.Name)
		}
	}
	if _, ok := ByName("solarized"); ok {
		t.Error("unexpected theme for unknown name")
	}
}

func TestTerminalWidthFallback(t *testing.T) {
	// A regular file is not a terminal, so size detection fails and
	// the default width applies.
	f, err := os.Create(filepath.Join(t.TempDir(), "notatty"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if width := TerminalWidth(int(f.Fd())); width != 80 {
		t.Errorf("expected fallback width 80, got %d", width)
	}
}
