package basic

import "testing"

func TestControlFlowForReplacesFrame(t *testing.T) {
	cf := NewControlFlow(0, 0)
	cf.PushFor(ForFrame{Variable: "I", End: 3, Step: 1, ResumeLine: 20})
	cf.PushFor(ForFrame{Variable: "J", End: 3, Step: 1, ResumeLine: 30})
	cf.PushFor(ForFrame{Variable: "I", End: 5, Step: 1, ResumeLine: 40})

	frames := cf.Frames()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1: %v", len(frames), frames)
	}
	if frames[0].End != 5 || frames[0].ResumeLine != 40 {
		t.Errorf("frame not replaced: %+v", frames[0])
	}
}

func TestControlFlowNext(t *testing.T) {
	env := NewEnvironment()
	cf := NewControlFlow(0, 0)
	env.Set("I", Number(1))
	cf.PushFor(ForFrame{Variable: "I", Start: 1, End: 2, Step: 1, ResumeLine: 20})

	resume, again, err := cf.Next(env, "I")
	if err != nil || !again || resume != 20 {
		t.Fatalf("first NEXT = %d, %v, %v", resume, again, err)
	}
	if got := env.Get("I").Num(); got != 2 {
		t.Errorf("I = %v, want 2", got)
	}
	if _, again, _ = cf.Next(env, ""); again {
		t.Error("second NEXT should end the loop")
	}
	if forDepth, _ := cf.Depths(); forDepth != 0 {
		t.Errorf("frame left behind after loop end")
	}

	_, _, err = cf.Next(env, "I")
	wantKind(t, err, KindNextWithoutFor)
}

func TestControlFlowNextDropsInnerFrames(t *testing.T) {
	env := NewEnvironment()
	cf := NewControlFlow(0, 0)
	cf.PushFor(ForFrame{Variable: "I", End: 10, Step: 1, ResumeLine: 20})
	cf.PushFor(ForFrame{Variable: "J", End: 10, Step: 1, ResumeLine: 30})

	if _, again, err := cf.Next(env, "I"); err != nil || !again {
		t.Fatalf("NEXT I = %v, %v", again, err)
	}
	frames := cf.Frames()
	if len(frames) != 1 || frames[0].Variable != "I" {
		t.Errorf("frames = %v, want only I", frames)
	}
}

func TestControlFlowGosub(t *testing.T) {
	cf := NewControlFlow(0, 2)
	if _, err := cf.PopGosub(); KindOf(err) != KindReturnWithoutGosub {
		t.Errorf("PopGosub on empty stack = %v", err)
	}
	cf.PushGosub(20)
	cf.PushGosub(30)
	wantKind(t, cf.PushGosub(40), KindOutOfMemory)

	if line, _ := cf.PopGosub(); line != 30 {
		t.Errorf("PopGosub = %d, want 30", line)
	}
	if line, _ := cf.PopGosub(); line != 20 {
		t.Errorf("PopGosub = %d, want 20", line)
	}
}

func TestControlFlowForDepthLimit(t *testing.T) {
	cf := NewControlFlow(2, 0)
	cf.PushFor(ForFrame{Variable: "A"})
	cf.PushFor(ForFrame{Variable: "B"})
	wantKind(t, cf.PushFor(ForFrame{Variable: "C"}), KindOutOfMemory)
	if err := cf.PushFor(ForFrame{Variable: "B"}); err != nil {
		t.Errorf("replacing a frame must not hit the limit: %v", err)
	}
}
