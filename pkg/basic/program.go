package basic

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/btree"
)

// Line is one numbered program line.
type Line struct {
	Number int
	Text   string
}

// String renders the storage form "<number> <text>".
func (l Line) String() string {
	return strconv.Itoa(l.Number) + " " + l.Text
}

func lineLess(a, b Line) bool {
	return a.Number < b.Number
}

// Program is the ordered line table.
type Program struct {
	tree *btree.BTreeG[Line]
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{tree: btree.NewG(16, lineLess)}
}

// Put inserts or replaces a line. Empty text deletes the line.
func (p *Program) Put(number int, text string) {
	if strings.TrimSpace(text) == "" {
		p.tree.Delete(Line{Number: number})
		return
	}
	p.tree.ReplaceOrInsert(Line{Number: number, Text: text})
}

// Get returns the text stored under number.
func (p *Program) Get(number int) (string, bool) {
	line, ok := p.tree.Get(Line{Number: number})
	return line.Text, ok
}

// Has reports whether number is a program line.
func (p *Program) Has(number int) bool {
	return p.tree.Has(Line{Number: number})
}

// First returns the smallest line number.
func (p *Program) First() (int, bool) {
	line, ok := p.tree.Min()
	return line.Number, ok
}

// NextAfter returns the smallest line number strictly greater than number.
func (p *Program) NextAfter(number int) (int, bool) {
	next, found := 0, false
	p.tree.AscendGreaterOrEqual(Line{Number: number + 1}, func(l Line) bool {
		next, found = l.Number, true
		return false
	})
	return next, found
}

// All returns every line in ascending order.
func (p *Program) All() []Line {
	lines := make([]Line, 0, p.tree.Len())
	p.tree.Ascend(func(l Line) bool {
		lines = append(lines, l)
		return true
	})
	return lines
}

// Range returns the lines with from <= number <= to.
func (p *Program) Range(from, to int) []Line {
	var lines []Line
	p.tree.AscendGreaterOrEqual(Line{Number: from}, func(l Line) bool {
		if l.Number > to {
			return false
		}
		lines = append(lines, l)
		return true
	})
	return lines
}

// Len returns the number of lines.
func (p *Program) Len() int {
	return p.tree.Len()
}

// Clear removes all lines.
func (p *Program) Clear() {
	p.tree.Clear(false)
}

// Replace swaps the whole program for lines.
func (p *Program) Replace(lines []Line) {
	p.tree.Clear(false)
	for _, l := range lines {
		p.Put(l.Number, l.Text)
	}
}

// ParseLine splits "<number> <text>". ok is false when text has no leading
// line number, i.e. it is an immediate-mode command.
func ParseLine(text string) (number int, stmt string, ok bool) {
	text = strings.TrimSpace(text)
	end := 0
	for end < len(text) && isDigit(text[end]) {
		end++
	}
	if end == 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(text[:end])
	if err != nil {
		return 0, "", false
	}
	return n, strings.TrimSpace(text[end:]), true
}

// ParseProgramText reads program text in the "<number> <text>" format.
// Blank lines are skipped; anything else without a number is rejected.
func ParseProgramText(r io.Reader) ([]Line, error) {
	var lines []Line
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		n, stmt, ok := ParseLine(raw)
		if !ok {
			return nil, persistenceError(fmt.Errorf("line %d has no line number: %q", lineNo, raw))
		}
		if stmt == "" {
			continue
		}
		lines = append(lines, Line{Number: n, Text: stmt})
	}
	if err := scanner.Err(); err != nil {
		return nil, persistenceError(err)
	}
	return lines, nil
}

// WriteProgramText writes lines one per record.
func WriteProgramText(w io.Writer, lines []Line) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := fmt.Fprintln(bw, l.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
