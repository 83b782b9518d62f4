package basic

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// fakeConsole records output and serves scripted input.
type fakeConsole struct {
	out     strings.Builder
	inputs  []string
	prompts []string
	cleared int
	fg, bg  int
	colored int
	border  int
	onRead  func()
}

func (c *fakeConsole) Print(text string) {
	c.out.WriteString(text)
}

func (c *fakeConsole) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if c.onRead != nil {
		c.onRead()
	}
	if len(c.inputs) == 0 {
		return "", io.EOF
	}
	line := c.inputs[0]
	c.inputs = c.inputs[1:]
	return line, nil
}

func (c *fakeConsole) Clear() {
	c.cleared++
}

func (c *fakeConsole) SetColors(fg, bg int) {
	c.fg, c.bg = fg, bg
	c.colored++
}

func (c *fakeConsole) SetBorder(color int) {
	c.border = color
}

// memStore is an in-memory Persistence.
type memStore struct {
	programs map[string][]Line
	fail     error
}

func newMemStore() *memStore {
	return &memStore{programs: make(map[string][]Line)}
}

func (s *memStore) LoadProgram(ctx context.Context, name string) ([]Line, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	lines, ok := s.programs[name]
	if !ok {
		return nil, errors.New("FILE NOT FOUND")
	}
	return append([]Line(nil), lines...), nil
}

func (s *memStore) SaveProgram(ctx context.Context, name string, lines []Line) error {
	if s.fail != nil {
		return s.fail
	}
	s.programs[name] = append([]Line(nil), lines...)
	return nil
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.RandomSeed = 1
	opts.MaxWait = 50 * time.Millisecond
	return opts
}

// newTestInterpreter creates an interpreter and enters the given program lines.
func newTestInterpreter(t *testing.T, lines ...string) (*Interpreter, *fakeConsole) {
	t.Helper()
	console := &fakeConsole{}
	in := New(console, newMemStore(), testOptions())
	for _, l := range lines {
		if err := in.AddOrReplaceLine(l); err != nil {
			t.Fatalf("AddOrReplaceLine(%q): %v", l, err)
		}
	}
	return in, console
}

// runProgram runs lines and returns output and the run error.
func runProgram(t *testing.T, lines ...string) (string, error) {
	t.Helper()
	in, console := newTestInterpreter(t, lines...)
	err := in.Run(context.Background())
	return console.out.String(), err
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %v error, got %v (%v)", kind, got, err)
	}
}
