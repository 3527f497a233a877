package render

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

// Characters ansi.Wrap may break a line on, beyond plain spaces.
const wrapBreakpoints = " ,.;-+|"

// Separator between table columns.
const cellGap = "  "

// walker renders a goldmark AST into styled terminal text. It walks
// the tree directly instead of implementing goldmark's renderer
// interface: inline content accumulates in a buffer and is
// word-wrapped as a unit when the enclosing block closes, which the
// streaming NodeRendererFunc callbacks cannot express cleanly.
type walker struct {
	src   []byte
	theme Theme
	width int
	lip   *lipgloss.Renderer

	out    strings.Builder // finished output
	inline strings.Builder // pending inline content for the open block

	// Prefix stack for nested containers (blockquotes, list items).
	prefixes    []prefix
	linePrefix  string
	prefixWidth int

	// bullet, when set, replaces linePrefix for the next emitted line.
	bullet string

	// Emphasis nesting. Counters rather than booleans so nested
	// markers unwind correctly.
	bold   int
	italic int
	strike int

	lists []listState

	// Trailing newline count in out, for blank-line management.
	trailing int
}

type prefix struct {
	text  string
	width int
}

type listState struct {
	ordered bool
	counter int
	tight   bool
}

func (w *walker) style() lipgloss.Style {
	return w.lip.NewStyle()
}

func (w *walker) faint() lipgloss.Style {
	return w.lip.NewStyle().Foreground(w.theme.FaintText)
}

// contentWidth is the width left for content after nesting prefixes,
// clamped so deep nesting cannot degenerate below 10 columns.
func (w *walker) contentWidth() int {
	width := w.width - w.prefixWidth
	if width < 10 {
		width = 10
	}
	return width
}

func (w *walker) pushPrefix(text string, width int) {
	w.prefixes = append(w.prefixes, prefix{text: text, width: width})
	w.linePrefix += text
	w.prefixWidth += width
}

func (w *walker) popPrefix() {
	if len(w.prefixes) == 0 {
		return
	}
	last := w.prefixes[len(w.prefixes)-1]
	w.prefixes = w.prefixes[:len(w.prefixes)-1]
	w.linePrefix = w.linePrefix[:len(w.linePrefix)-len(last.text)]
	w.prefixWidth -= last.width
}

func (w *walker) tightList() bool {
	return len(w.lists) > 0 && w.lists[len(w.lists)-1].tight
}

// emit appends text to the output, tracking trailing newlines so
// newline and blankLine can pad without double-spacing.
func (w *walker) emit(s string) {
	if s == "" {
		return
	}
	w.out.WriteString(s)

	count := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\n'; i-- {
		count++
	}
	if count == len(s) {
		w.trailing += count
	} else {
		w.trailing = count
	}
}

func (w *walker) newline() {
	if w.trailing < 1 {
		w.emit("\n")
	}
}

func (w *walker) blankLine() {
	for w.trailing < 2 {
		w.emit("\n")
	}
}

// nextPrefix returns the prefix for the next emitted line, consuming
// the pending bullet if one is set.
func (w *walker) nextPrefix() string {
	if w.bullet != "" {
		b := w.bullet
		w.bullet = ""
		return b
	}
	return w.linePrefix
}

// prefixed prepends the line prefix to every line of content. The
// first line takes the pending bullet when one is set.
func (w *walker) prefixed(content string) string {
	lines := strings.Split(content, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i == 0 {
			b.WriteString(w.nextPrefix())
		} else {
			b.WriteString(w.linePrefix)
		}
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// flush word-wraps the accumulated inline content, applies line
// prefixes, and resets the buffer.
func (w *walker) flush() string {
	content := w.inline.String()
	w.inline.Reset()
	if content == "" {
		return ""
	}
	return w.prefixed(ansi.Wrap(content, w.contentWidth(), wrapBreakpoints))
}

// styled applies the active emphasis state to text.
func (w *walker) styled(content string) string {
	style := w.style().Foreground(w.theme.NormalText)
	if w.bold > 0 {
		style = style.Bold(true)
	}
	if w.italic > 0 {
		style = style.Italic(true)
	}
	if w.strike > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

// inlineOf renders a node's inline children to a string, saving and
// restoring the walker's inline state around the nested walk.
func (w *walker) inlineOf(node ast.Node) string {
	saved := w.inline.String()
	savedBold, savedItalic, savedStrike := w.bold, w.italic, w.strike

	w.inline.Reset()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		ast.Walk(child, w.walk)
	}
	content := w.inline.String()

	w.inline.Reset()
	w.inline.WriteString(saved)
	w.bold, w.italic, w.strike = savedBold, savedItalic, savedStrike
	return content
}

// highlight syntax-highlights code with chroma, falling back to faint
// plain text for unknown languages or chroma failures. The mono theme
// skips chroma entirely since it writes ANSI escapes directly.
func (w *walker) highlight(code, language string) string {
	if w.theme.Mono || language == "" {
		return w.faint().Render(code)
	}
	var buf strings.Builder
	if err := quick.Highlight(&buf, code, language, "terminal256", w.theme.ChromaStyle); err != nil {
		return w.faint().Render(code)
	}
	return buf.String()
}

// nodeLines joins the source segments of a block node's lines.
func (w *walker) nodeLines(node ast.Node) string {
	var b strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(w.src))
	}
	return b.String()
}

func (w *walker) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {

	// Block nodes.
	case ast.KindDocument:

	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			w.inline.Reset()
		} else if flushed := w.flush(); flushed != "" {
			w.emit(flushed)
			w.newline()
			if !w.tightList() {
				w.blankLine()
			}
		}

	case ast.KindHeading:
		if entering {
			w.inline.Reset()
		} else {
			w.heading(node.(*ast.Heading))
		}

	case ast.KindFencedCodeBlock:
		if entering {
			language := string(node.(*ast.FencedCodeBlock).Language(w.src))
			w.codeBlock(w.highlight(w.nodeLines(node), language))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindCodeBlock:
		// Indented code renders like a fence with no language.
		if entering {
			w.codeBlock(w.faint().Render(w.nodeLines(node)))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindBlockquote:
		if entering {
			w.pushPrefix("│ ", 2)
		} else {
			w.popPrefix()
			w.blankLine()
		}

	case ast.KindList:
		if entering {
			w.enterList(node.(*ast.List))
		} else {
			w.leaveList()
		}

	case ast.KindListItem:
		if entering {
			w.enterItem()
		} else {
			w.leaveItem()
		}

	case ast.KindThematicBreak:
		if entering {
			w.rule()
		}

	case ast.KindHTMLBlock:
		if entering {
			w.htmlBlock(node)
			return ast.WalkSkipChildren, nil
		}

	// Inline nodes.
	case ast.KindText:
		if entering {
			w.text(node.(*ast.Text))
		}

	case ast.KindString:
		if entering {
			w.inline.WriteString(w.styled(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		w.emphasis(node.(*ast.Emphasis), entering)

	case ast.KindCodeSpan:
		if entering {
			w.codeSpan(node)
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		if entering {
			w.link(node.(*ast.Link))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindAutoLink:
		if entering {
			url := string(node.(*ast.AutoLink).URL(w.src))
			w.inline.WriteString(w.faint().Render(url))
		}

	case ast.KindImage:
		if entering {
			w.image(node.(*ast.Image))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindRawHTML:
		if entering {
			w.rawHTML(node.(*ast.RawHTML))
		}

	// GFM extension nodes.
	case extast.KindStrikethrough:
		if entering {
			w.strike++
		} else {
			w.strike--
		}

	case extast.KindTable:
		if entering {
			w.table(node.(*extast.Table))
			return ast.WalkSkipChildren, nil
		}

	case extast.KindTaskCheckBox:
		if entering {
			box := node.(*extast.TaskCheckBox)
			if box.IsChecked {
				done := w.style().Foreground(w.theme.TaskDone)
				w.inline.WriteString(done.Render("[x]") + " ")
			} else {
				w.inline.WriteString(w.styled("[ ] "))
			}
		}
	}

	return ast.WalkContinue, nil
}

func (w *walker) heading(heading *ast.Heading) {
	// Headings carry their own style; drop whatever inline styling
	// the children accumulated.
	content := ansi.Strip(w.inline.String())
	w.inline.Reset()
	if content == "" {
		return
	}

	style := w.style().Bold(true)
	if heading.Level <= 2 {
		style = style.Foreground(w.theme.Heading)
	} else {
		style = style.Foreground(w.theme.NormalText)
	}

	wrapped := ansi.Wrap(style.Render(content), w.contentWidth(), wrapBreakpoints)
	w.blankLine()
	w.emit(w.prefixed(wrapped))
	w.newline()
	w.blankLine()
}

// codeBlock emits pre-styled code verbatim, one line at a time so each
// line carries its own prefix. Code is never word-wrapped.
func (w *walker) codeBlock(code string) {
	w.blankLine()
	for _, line := range strings.Split(strings.TrimRight(code, "\n"), "\n") {
		w.emit(w.nextPrefix() + line)
		w.newline()
	}
	w.blankLine()
}

func (w *walker) enterList(list *ast.List) {
	start := 0
	if list.IsOrdered() {
		start = list.Start
	}
	w.lists = append(w.lists, listState{
		ordered: list.IsOrdered(),
		counter: start,
		tight:   list.IsTight,
	})
}

func (w *walker) leaveList() {
	if len(w.lists) > 0 {
		w.lists = w.lists[:len(w.lists)-1]
	}
	if !w.tightList() {
		w.blankLine()
	}
}

func (w *walker) enterItem() {
	if len(w.lists) == 0 {
		return
	}
	top := &w.lists[len(w.lists)-1]

	bullet := "- "
	if top.ordered {
		bullet = fmt.Sprintf("%d. ", top.counter)
		top.counter++
	}

	// The bullet replaces the whole prefix on the item's first line;
	// continuation lines indent by the bullet's width. Bullets are
	// ASCII so byte length equals visual width.
	w.bullet = w.linePrefix + bullet
	w.pushPrefix(strings.Repeat(" ", len(bullet)), len(bullet))
}

func (w *walker) leaveItem() {
	w.popPrefix()
	if w.tightList() {
		w.newline()
	} else {
		w.blankLine()
	}
}

func (w *walker) rule() {
	line := strings.Repeat("─", w.contentWidth())
	style := w.style().Foreground(w.theme.Border)
	w.blankLine()
	w.emit(w.prefixed(style.Render(line)))
	w.newline()
	w.blankLine()
}

func (w *walker) htmlBlock(node ast.Node) {
	content := strings.TrimSpace(stripTags(w.nodeLines(node)))
	if content == "" {
		return
	}
	w.emit(w.prefixed(w.faint().Render(content)))
	w.newline()
	w.blankLine()
}

func (w *walker) text(node *ast.Text) {
	w.inline.WriteString(w.styled(string(node.Segment.Value(w.src))))

	if node.SoftLineBreak() {
		// Soft breaks become spaces so source text hard-wrapped by the
		// model reflows at the terminal's width.
		w.inline.WriteString(" ")
	}
	if node.HardLineBreak() {
		w.inline.WriteString("\n")
	}
}

func (w *walker) emphasis(node *ast.Emphasis, entering bool) {
	counter := &w.italic
	if node.Level >= 2 {
		counter = &w.bold
	}
	if entering {
		*counter++
	} else {
		*counter--
	}
}

func (w *walker) codeSpan(node ast.Node) {
	var code strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			code.Write(c.Segment.Value(w.src))
		case *ast.String:
			code.Write(c.Value)
		}
	}
	w.inline.WriteString(w.faint().Render(code.String()))
}

func (w *walker) link(node *ast.Link) {
	// inlineOf already applies emphasis styling to the link text.
	w.inline.WriteString(w.inlineOf(node))
	if url := string(node.Destination); url != "" {
		w.inline.WriteString(" " + w.faint().Render("("+url+")"))
	}
}

func (w *walker) image(node *ast.Image) {
	w.inline.WriteString(w.faint().Render("[" + w.inlineOf(node) + "]"))
	if url := string(node.Destination); url != "" {
		w.inline.WriteString(" " + w.faint().Render("("+url+")"))
	}
}

func (w *walker) rawHTML(node *ast.RawHTML) {
	var html strings.Builder
	for i := 0; i < node.Segments.Len(); i++ {
		seg := node.Segments.At(i)
		html.Write(seg.Value(w.src))
	}
	if content := stripTags(html.String()); content != "" {
		w.inline.WriteString(w.faint().Render(content))
	}
}

func (w *walker) table(table *extast.Table) {
	var header []string
	var rows [][]string
	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.Kind() {
		case extast.KindTableHeader:
			header = w.tableRow(child)
		case extast.KindTableRow:
			rows = append(rows, w.tableRow(child))
		}
	}

	columns := len(header)
	if columns == 0 && len(rows) > 0 {
		columns = len(rows[0])
	}
	if columns == 0 {
		return
	}

	widths := w.columnWidths(header, rows, columns)

	w.blankLine()
	if len(header) > 0 {
		bold := w.style().Bold(true).Foreground(w.theme.NormalText)
		w.emit(w.nextPrefix() + w.tableLine(header, widths, table.Alignments, bold))
		w.newline()

		parts := make([]string, len(widths))
		for i, width := range widths {
			parts[i] = strings.Repeat("─", width)
		}
		border := w.style().Foreground(w.theme.Border)
		w.emit(w.linePrefix + border.Render(strings.Join(parts, cellGap)))
		w.newline()
	}
	for _, row := range rows {
		w.emit(w.linePrefix + w.tableLine(row, widths, table.Alignments, w.style()))
		w.newline()
	}
	w.blankLine()
}

func (w *walker) tableRow(row ast.Node) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if cell.Kind() == extast.KindTableCell {
			cells = append(cells, w.inlineOf(cell))
		}
	}
	return cells
}

// columnWidths measures the widest cell per column, then shrinks
// columns proportionally when the table overflows the available
// width. Columns never drop below 3 cells.
func (w *walker) columnWidths(header []string, rows [][]string, columns int) []int {
	widths := make([]int, columns)
	measure := func(cells []string) {
		for i, cell := range cells {
			if i < columns {
				if width := lipgloss.Width(cell); width > widths[i] {
					widths[i] = width
				}
			}
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
	}

	total := len(cellGap) * (columns - 1)
	for _, width := range widths {
		total += width
	}
	available := w.contentWidth()
	if total <= available {
		return widths
	}

	usable := available - len(cellGap)*(columns-1)
	if usable < columns*3 {
		usable = columns * 3
	}
	for i := range widths {
		widths[i] = widths[i] * usable / total
		if widths[i] < 3 {
			widths[i] = 3
		}
	}
	return widths
}

func (w *walker) tableLine(cells []string, widths []int, alignments []extast.Alignment, style lipgloss.Style) string {
	parts := make([]string, len(widths))
	for i, width := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		if lipgloss.Width(cell) > width {
			cell = ansi.Truncate(cell, width, "…")
		}

		pad := width - lipgloss.Width(cell)
		if pad < 0 {
			pad = 0
		}
		var alignment extast.Alignment
		if i < len(alignments) {
			alignment = alignments[i]
		}
		switch alignment {
		case extast.AlignRight:
			cell = strings.Repeat(" ", pad) + cell
		case extast.AlignCenter:
			left := pad / 2
			cell = strings.Repeat(" ", left) + cell + strings.Repeat(" ", pad-left)
		default:
			cell += strings.Repeat(" ", pad)
		}
		parts[i] = cell
	}
	return style.Render(strings.Join(parts, cellGap))
}

// stripTags drops everything between < and >, keeping text content.
func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
