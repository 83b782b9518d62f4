package basic

// haltedLine marks "no line": end of program, or the immediate-mode caller
// as a FOR resume point or GOSUB return address.
const haltedLine = -1

// Default stack limits.
const (
	MaxGosubDepth   = 100
	MaxForLoopDepth = 200
)

// ForFrame stores the state of an active FOR loop.
type ForFrame struct {
	Variable   string  // loop control variable (numeric)
	Start      float64 // initial value
	End        float64 // bound checked by NEXT
	Step       float64 // increment per NEXT
	ResumeLine int     // first line of the body, haltedLine in immediate mode
}

// continues reports whether the loop runs again with the control variable at current.
func (f *ForFrame) continues(current float64) bool {
	if f.Step >= 0 {
		return current <= f.End
	}
	return current >= f.End
}

// ControlFlow owns the FOR frames and the GOSUB return stack.
type ControlFlow struct {
	frames   []*ForFrame
	gosub    []int
	maxFor   int
	maxGosub int
}

// NewControlFlow creates empty stacks with the given depth limits.
func NewControlFlow(maxFor, maxGosub int) *ControlFlow {
	if maxFor <= 0 {
		maxFor = MaxForLoopDepth
	}
	if maxGosub <= 0 {
		maxGosub = MaxGosubDepth
	}
	return &ControlFlow{maxFor: maxFor, maxGosub: maxGosub}
}

// Reset drops all frames and return addresses.
func (cf *ControlFlow) Reset() {
	cf.frames = cf.frames[:0]
	cf.gosub = cf.gosub[:0]
}

// findFor returns the index of the frame for name, or the innermost frame
// when name is empty.
func (cf *ControlFlow) findFor(name string) (int, bool) {
	if name == "" {
		if len(cf.frames) == 0 {
			return 0, false
		}
		return len(cf.frames) - 1, true
	}
	for i := len(cf.frames) - 1; i >= 0; i-- {
		if cf.frames[i].Variable == name {
			return i, true
		}
	}
	return 0, false
}

// PushFor opens a loop. A frame for the same variable is replaced together
// with every frame opened after it.
func (cf *ControlFlow) PushFor(frame ForFrame) error {
	if i, ok := cf.findFor(frame.Variable); ok {
		cf.frames = cf.frames[:i]
	}
	if len(cf.frames) >= cf.maxFor {
		return newError(KindOutOfMemory, "FOR LOOPS NESTED TOO DEEP")
	}
	cf.frames = append(cf.frames, &frame)
	return nil
}

// Next advances the loop for name ("" = innermost). env supplies and
// receives the control variable. It returns the resume line and true when the
// loop runs again; otherwise the frame is dropped.
func (cf *ControlFlow) Next(env *Environment, name string) (int, bool, error) {
	i, ok := cf.findFor(name)
	if !ok {
		if name == "" {
			return 0, false, newError(KindNextWithoutFor, "")
		}
		return 0, false, newError(KindNextWithoutFor, "%s", name)
	}
	// innere Schleifen verwerfen
	cf.frames = cf.frames[:i+1]
	frame := cf.frames[i]

	current := env.Get(frame.Variable).Num() + frame.Step
	if err := env.Set(frame.Variable, Number(current)); err != nil {
		return 0, false, err
	}
	if frame.continues(current) {
		return frame.ResumeLine, true, nil
	}
	cf.frames = cf.frames[:i]
	return 0, false, nil
}

// PushGosub records a return address.
func (cf *ControlFlow) PushGosub(returnLine int) error {
	if len(cf.gosub) >= cf.maxGosub {
		return newError(KindOutOfMemory, "GOSUB NESTED TOO DEEP")
	}
	cf.gosub = append(cf.gosub, returnLine)
	return nil
}

// PopGosub removes and returns the latest return address.
func (cf *ControlFlow) PopGosub() (int, error) {
	if len(cf.gosub) == 0 {
		return 0, newError(KindReturnWithoutGosub, "")
	}
	last := len(cf.gosub) - 1
	line := cf.gosub[last]
	cf.gosub = cf.gosub[:last]
	return line, nil
}

// Frames returns copies of the live FOR frames, outermost first.
func (cf *ControlFlow) Frames() []ForFrame {
	out := make([]ForFrame, len(cf.frames))
	for i, f := range cf.frames {
		out[i] = *f
	}
	return out
}

// GosubStack returns a copy of the return stack, oldest first.
func (cf *ControlFlow) GosubStack() []int {
	return append([]int(nil), cf.gosub...)
}

// Depths returns the current FOR and GOSUB depths.
func (cf *ControlFlow) Depths() (forDepth, gosubDepth int) {
	return len(cf.frames), len(cf.gosub)
}
