// Package console is the terminal REPL around one BASIC interpreter.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/antibyte/c64basic/pkg/basic"
	"github.com/antibyte/c64basic/pkg/configuration"
	"github.com/antibyte/c64basic/pkg/logger"
	"github.com/charmbracelet/lipgloss"
	"github.com/goforj/godump"
	"golang.org/x/term"
)

const (
	bannerTitle = "**** COMMODORE 64 BASIC V2 ****"
	bannerInfo  = "64K RAM SYSTEM  38911 BASIC BYTES FREE"
	readyPrompt = "READY."
	clearScreen = "\x1b[2J\x1b[H"
)

// Options configures the REPL.
type Options struct {
	Colors bool // render COLOR/SCREEN and red errors; ignored when out is no terminal
	Banner bool
	Interp basic.Options
}

// OptionsFromConfig reads [Console] and [Interpreter].
func OptionsFromConfig() Options {
	return Options{
		Colors: configuration.GetBool("Console", "enable_colors", true),
		Banner: configuration.GetBool("Console", "banner", true),
		Interp: basic.OptionsFromConfig(),
	}
}

type readResult struct {
	line string
	err  error
}

// Console reads commands from in and writes to out. It is the
// basic.Console and basic.Screen of its interpreter.
type Console struct {
	in     io.Reader
	out    io.Writer
	interp *basic.Interpreter
	opts   Options

	colors bool
	width  int
	fg, bg int
	column int

	lines    chan readResult
	readOnce sync.Once

	mu     sync.Mutex
	cancel context.CancelFunc

	// dump writes DUMP output
	dump func(io.Writer, ...any)
}

// New creates a console with its own interpreter using store for LOAD/SAVE.
func New(in io.Reader, out io.Writer, store basic.Persistence, opts Options) *Console {
	c := &Console{
		in:    in,
		out:   out,
		opts:  opts,
		width: 40,
		fg:    basic.DefaultForeground,
		bg:    basic.DefaultBackground,
		lines: make(chan readResult),
		dump:  godump.Fdump,
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.colors = opts.Colors
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			c.width = w
		}
	}
	c.interp = basic.New(c, store, opts.Interp)
	return c
}

// Interpreter returns the interpreter driven by this console.
func (c *Console) Interpreter() *basic.Interpreter {
	return c.interp
}

// Print writes program output in the current colours.
func (c *Console) Print(text string) {
	if text == "" {
		return
	}
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		c.column = len(text) - i - 1
	} else {
		c.column += len(text)
	}
	if !c.colors {
		io.WriteString(c.out, text)
		return
	}
	// zeilenweise rendern, sonst füllt lipgloss Blöcke auf gleiche Breite auf
	style := textStyle(c.fg, c.bg)
	parts := strings.Split(text, "\n")
	for i, part := range parts {
		if part != "" {
			part = style.Render(part)
		}
		parts[i] = part
	}
	io.WriteString(c.out, strings.Join(parts, "\n"))
}

// ReadLine prints prompt and waits for the next input line or ctx.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.Print(prompt)
	line, err := c.next(ctx)
	c.column = 0
	return line, err
}

// Clear clears a terminal screen; on other outputs it does nothing.
func (c *Console) Clear() {
	if c.colors {
		io.WriteString(c.out, clearScreen)
	}
	c.column = 0
}

// SetColors switches the colours used for following output.
func (c *Console) SetColors(fg, bg int) {
	c.fg, c.bg = fg, bg
	logger.Debug(logger.AreaConsole, "Colors set to %d/%d", fg, bg)
}

// Interrupt cancels the running command, if any. Safe to call from a
// signal handler goroutine.
func (c *Console) Interrupt() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

func (c *Console) setCancel(cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
}

// next returns the next raw input line. The reader goroutine starts on
// first use so INPUT and the REPL share one stream.
func (c *Console) next(ctx context.Context) (string, error) {
	c.readOnce.Do(func() {
		go c.readLoop()
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return r.line, r.err
	}
}

func (c *Console) readLoop() {
	defer close(c.lines)
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		c.lines <- readResult{line: strings.TrimRight(scanner.Text(), "\r")}
	}
	if err := scanner.Err(); err != nil {
		c.lines <- readResult{err: err}
	}
}

// Run is the REPL loop. It returns nil on BYE or end of input.
func (c *Console) Run(ctx context.Context) error {
	if c.opts.Banner {
		c.printBanner()
	}
	c.ready()
	for {
		line, err := c.next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		c.column = 0
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToUpper(line) {
		case "BYE":
			logger.Debug(logger.AreaConsole, "BYE")
			return nil
		case "DUMP":
			c.dump(c.out, c.interp.Snapshot())
			continue
		}

		if _, _, ok := basic.ParseLine(line); ok {
			if err := c.interp.AddOrReplaceLine(line); err != nil {
				c.printError(err)
			}
			continue
		}

		cmdCtx, cancel := context.WithCancel(ctx)
		c.setCancel(cancel)
		err = c.interp.ExecuteImmediate(cmdCtx, line)
		c.setCancel(nil)
		cancel()

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			c.printError(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.ready()
	}
}

func (c *Console) ready() {
	c.Print(readyPrompt + "\n")
}

func (c *Console) printError(err error) {
	msg := err.Error()
	if c.column != 0 {
		msg = "\n" + msg
	}
	if c.colors {
		msg = errStyle.Render(msg)
	}
	fmt.Fprintln(c.out, msg)
	c.column = 0
	logger.Debug(logger.AreaConsole, "Command failed: %v", err)
}

func (c *Console) printBanner() {
	title := lipgloss.PlaceHorizontal(c.width, lipgloss.Center, bannerTitle)
	info := lipgloss.PlaceHorizontal(c.width, lipgloss.Center, bannerInfo)
	c.Print("\n" + strings.TrimRight(title, " ") + "\n\n" + strings.TrimRight(info, " ") + "\n\n")
}
