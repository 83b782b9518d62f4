package basic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/antibyte/c64basic/pkg/logger"
	"github.com/google/uuid"
)

// Console is the Output sink and the Input source of an interpreter.
type Console interface {
	// Print receives rendered text, newlines included.
	Print(text string)
	// ReadLine shows prompt and returns one line without its terminator.
	// It returns io.EOF when no more input exists.
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// Screen is implemented by consoles that render CLS and colours.
type Screen interface {
	Clear()
	SetColors(foreground, background int)
}

// BorderScreen is implemented by consoles that render a border (POKE 53280).
type BorderScreen interface {
	SetBorder(color int)
}

// Persistence is the LOAD/SAVE collaborator.
type Persistence interface {
	LoadProgram(ctx context.Context, name string) ([]Line, error)
	SaveProgram(ctx context.Context, name string, lines []Line) error
}

// Colours of a freshly started machine.
const (
	DefaultForeground = 1 // white
	DefaultBackground = 6 // blue
)

// Interpreter is one independent BASIC machine.
type Interpreter struct {
	id      string
	program *Program
	env     *Environment
	flow    *ControlFlow
	cache   *TokenCache
	memory  Memory
	console Console
	store   Persistence
	opts    Options
	eval    *EvalContext
	rnd     *rand.Rand

	now       func() time.Time
	clockBase time.Time // TI counts from here

	column int // output column, for PRINT zones
	pc     int // line being executed, 0 in immediate mode

	busy    atomic.Bool // a command is executing
	running atomic.Bool // a program run is active

	statements int64
	runs       int64
}

// New creates an interpreter. A nil console discards output and has no
// input; a nil store makes LOAD and SAVE fail.
func New(console Console, store Persistence, opts Options) *Interpreter {
	opts = opts.normalized()
	if console == nil {
		console = discardConsole{}
	}
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	in := &Interpreter{
		id:      uuid.NewString(),
		program: NewProgram(),
		env:     NewEnvironment(),
		flow:    NewControlFlow(opts.MaxForDepth, opts.MaxGosubDepth),
		cache:   NewTokenCache(opts.TokenCacheSize),
		console: console,
		store:   store,
		opts:    opts,
		rnd:     rand.New(rand.NewSource(seed)),
		now:     time.Now,
	}
	in.clockBase = in.now()
	in.eval = &EvalContext{Vars: systemVars{in}, Rand: in.rnd.Float64, Memory: &in.memory}
	in.seedVariables()
	logger.Debug(logger.AreaInterpreter, "Interpreter %s created (zone=%d, gosub=%d, for=%d)",
		in.id, opts.PrintZoneWidth, opts.MaxGosubDepth, opts.MaxForDepth)
	return in
}

// ID returns the unique instance id.
func (in *Interpreter) ID() string {
	return in.id
}

// SetPersistence replaces the LOAD/SAVE collaborator.
func (in *Interpreter) SetPersistence(store Persistence) {
	in.store = store
}

// SetClock replaces the time source and restarts TI. Used by tests.
func (in *Interpreter) SetClock(now func() time.Time) {
	in.now = now
	in.clockBase = now()
}

// IsRunning reports whether a program run is active. Safe for concurrent use.
func (in *Interpreter) IsRunning() bool {
	return in.running.Load()
}

func (in *Interpreter) seedVariables() {
	in.env.Set("CO", Number(DefaultForeground))
	in.env.Set("BG", Number(DefaultBackground))
}

// Enter dispatches one line of REPL input: numbered lines are stored,
// everything else executes immediately.
func (in *Interpreter) Enter(ctx context.Context, text string) error {
	if _, _, ok := ParseLine(text); ok {
		return in.AddOrReplaceLine(text)
	}
	return in.ExecuteImmediate(ctx, text)
}

// AddOrReplaceLine stores "<number> <statement>"; a bare number deletes the line.
func (in *Interpreter) AddOrReplaceLine(text string) error {
	n, stmt, ok := ParseLine(text)
	if !ok {
		return &BASICError{Kind: KindSyntax, Detail: "MISSING LINE NUMBER", DirectMode: true}
	}
	if !in.busy.CompareAndSwap(false, true) {
		return ErrProgramRunning
	}
	defer in.busy.Store(false)
	in.program.Put(n, stmt)
	return nil
}

// ExecuteImmediate runs one statement without a line number. GOTO, GOSUB
// and RUN continue into a program run.
func (in *Interpreter) ExecuteImmediate(ctx context.Context, text string) error {
	if !in.busy.CompareAndSwap(false, true) {
		return ErrProgramRunning
	}
	defer in.busy.Store(false)

	in.pc = 0
	st := &step{next: haltedLine}
	if err := in.executeText(ctx, text, st); err != nil {
		return withLine(err, 0, true)
	}
	if st.jumped && !st.halt && st.jump != haltedLine {
		return in.runFrom(ctx, st.jump)
	}
	return nil
}

// Run executes the program from its first line until END, the last line,
// an error or cancellation of ctx.
func (in *Interpreter) Run(ctx context.Context) error {
	if !in.busy.CompareAndSwap(false, true) {
		return ErrProgramRunning
	}
	defer in.busy.Store(false)

	first, ok := in.program.First()
	if !ok {
		return nil
	}
	in.flow.Reset()
	return in.runFrom(ctx, first)
}

// List returns the program in line order.
func (in *Interpreter) List() []Line {
	return in.program.All()
}

// New clears program, variables, stacks and memory.
func (in *Interpreter) New() {
	in.program.Clear()
	in.env.Clear()
	in.seedVariables()
	in.flow.Reset()
	in.memory.Reset()
	in.column = 0
	logger.Debug(logger.AreaInterpreter, "Interpreter %s: NEW", in.id)
}

// Load replaces the program with the stored program name.
func (in *Interpreter) Load(ctx context.Context, name string) error {
	if in.store == nil {
		return persistenceError(errors.New("NO STORAGE AVAILABLE"))
	}
	lines, err := in.store.LoadProgram(ctx, name)
	if err != nil {
		logger.Warn(logger.AreaInterpreter, "LOAD %q failed: %v", name, err)
		if KindOf(err) == KindPersistence {
			return err
		}
		return persistenceError(err)
	}
	in.program.Replace(lines)
	in.flow.Reset()
	logger.Debug(logger.AreaInterpreter, "Interpreter %s: loaded %q (%d lines)", in.id, name, len(lines))
	return nil
}

// Save stores the program under name.
func (in *Interpreter) Save(ctx context.Context, name string) error {
	if in.store == nil {
		return persistenceError(errors.New("NO STORAGE AVAILABLE"))
	}
	lines := in.program.All()
	if err := in.store.SaveProgram(ctx, name, lines); err != nil {
		logger.Warn(logger.AreaInterpreter, "SAVE %q failed: %v", name, err)
		return persistenceError(err)
	}
	logger.Debug(logger.AreaInterpreter, "Interpreter %s: saved %q (%d lines)", in.id, name, len(lines))
	return nil
}

// Variable returns the current value of a variable, system variables included.
func (in *Interpreter) Variable(name string) Value {
	return in.eval.Vars.Get(strings.ToUpper(name))
}

// step is the control-flow outcome of one statement.
type step struct {
	line   int // 0 in immediate mode
	next   int // fallthrough line, haltedLine when there is none
	jump   int
	jumped bool
	halt   bool
}

func (s *step) goTo(line int) {
	s.jump = line
	s.jumped = true
}

// runFrom is the RUN loop. The fallthrough line is computed before the
// statement executes; an explicit jump overrides it.
func (in *Interpreter) runFrom(ctx context.Context, start int) (err error) {
	in.running.Store(true)
	in.runs++
	begin := time.Now()
	logger.Debug(logger.AreaInterpreter, "Interpreter %s: RUN from line %d", in.id, start)
	defer func() {
		in.running.Store(false)
		if err != nil {
			logger.Debug(logger.AreaInterpreter, "Interpreter %s: run halted: %v", in.id, err)
		} else {
			logger.Debug(logger.AreaInterpreter, "Interpreter %s: run finished after %v", in.id, time.Since(begin))
		}
		in.pc = 0
	}()

	pc := start
	for {
		if err := ctx.Err(); err != nil {
			return &BreakError{LineNumber: pc, cause: err}
		}
		text, ok := in.program.Get(pc)
		if !ok {
			return newError(KindUndefinedLine, "%d", pc)
		}
		next, ok := in.program.NextAfter(pc)
		if !ok {
			next = haltedLine
		}
		in.pc = pc
		st := &step{line: pc, next: next}
		if err := in.executeText(ctx, text, st); err != nil {
			return withLine(err, pc, false)
		}
		if st.halt {
			return nil
		}
		target := st.next
		if st.jumped {
			target = st.jump
		}
		if target == haltedLine {
			return nil
		}
		pc = target
	}
}

func (in *Interpreter) executeText(ctx context.Context, text string, st *step) error {
	toks, err := in.cache.Tokens(text)
	if err != nil {
		return err
	}
	in.statements++
	return in.execute(ctx, newParser(toks, in.eval), st, false)
}

// emit writes text to the console and tracks the output column.
func (in *Interpreter) emit(text string) {
	if text == "" {
		return
	}
	in.console.Print(text)
	in.column = columnAfter(in.column, text)
}

func columnAfter(column int, text string) int {
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		return utf8.RuneCountInString(text[i+1:])
	}
	return column + utf8.RuneCountInString(text)
}

// readLine asks the console for input and maps cancellation to a break.
func (in *Interpreter) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &BreakError{LineNumber: in.pc, cause: err}
	}
	line, err := in.console.ReadLine(ctx, prompt)
	in.column = 0
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", &BreakError{LineNumber: in.pc, cause: err}
		}
		return "", err
	}
	return line, nil
}

func (in *Interpreter) notifyBorder(color int) {
	if screen, ok := in.console.(BorderScreen); ok {
		screen.SetBorder(color)
	}
}

func (in *Interpreter) notifyColors() {
	if screen, ok := in.console.(Screen); ok {
		screen.SetColors(int(in.env.Get("CO").Num()), int(in.env.Get("BG").Num()))
	}
}

// jiffies is TI: sixtieths of a second since the clock base.
func (in *Interpreter) jiffies() float64 {
	return math.Floor(in.now().Sub(in.clockBase).Seconds() * 60)
}

// timeString is TI$ as hhmmss.
func (in *Interpreter) timeString() string {
	d := in.now().Sub(in.clockBase) % (24 * time.Hour)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d%02d%02d", h, m, s)
}

// setTimeString implements TI$ = "hhmmss".
func (in *Interpreter) setTimeString(s string) error {
	var h, m, sec int
	if len(s) != 6 || strings.Trim(s, "0123456789") != "" {
		return newError(KindIllegalQuantity, "TI$ NEEDS HHMMSS")
	}
	fmt.Sscanf(s, "%2d%2d%2d", &h, &m, &sec)
	if h > 23 || m > 59 || sec > 59 {
		return newError(KindIllegalQuantity, "TI$ NEEDS HHMMSS")
	}
	offset := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
	in.clockBase = in.now().Add(-offset)
	return nil
}

// systemVars overlays TI and TI$ on the environment.
type systemVars struct {
	in *Interpreter
}

func (sv systemVars) Get(name string) Value {
	switch name {
	case "TI":
		return Number(sv.in.jiffies())
	case "TI$":
		return Str(sv.in.timeString())
	}
	return sv.in.env.Get(name)
}

// Snapshot is a diagnostic view of the interpreter state.
type Snapshot struct {
	ID         string
	Running    bool
	Lines      int
	Variables  map[string]interface{}
	ForFrames  []ForFrame
	GosubStack []int
	Cache      CacheStats
	Statements int64
	Runs       int64
}

// Snapshot captures the current state.
func (in *Interpreter) Snapshot() Snapshot {
	vars := make(map[string]interface{}, in.env.Len())
	for _, name := range in.env.Names() {
		v := in.env.Get(name)
		if v.IsString() {
			vars[name] = v.Text()
		} else {
			vars[name] = v.Num()
		}
	}
	return Snapshot{
		ID:         in.id,
		Running:    in.IsRunning(),
		Lines:      in.program.Len(),
		Variables:  vars,
		ForFrames:  in.flow.Frames(),
		GosubStack: in.flow.GosubStack(),
		Cache:      in.cache.Stats(),
		Statements: in.statements,
		Runs:       in.runs,
	}
}

// Stats returns token cache and execution counters.
func (in *Interpreter) Stats() (CacheStats, int64) {
	return in.cache.Stats(), in.statements
}

// discardConsole drops output and reports EOF on input.
type discardConsole struct{}

func (discardConsole) Print(string) {}

func (discardConsole) ReadLine(context.Context, string) (string, error) {
	return "", io.EOF
}
