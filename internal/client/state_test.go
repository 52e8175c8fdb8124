package client

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestState_ToggleAndExit(t *testing.T) {
	st := NewState(StatusConnecting)

	if !st.ToggleRecording() {
		t.Error("expected first toggle to start recording")
	}
	if st.ToggleRecording() {
		t.Error("expected second toggle to stop recording")
	}
	st.SetRecording(true)
	if !st.Recording() {
		t.Error("expected recording after SetRecording(true)")
	}

	select {
	case <-st.Exiting():
		t.Fatal("exit channel closed before RequestExit")
	default:
	}

	st.RequestExit()
	st.RequestExit()
	select {
	case <-st.Exiting():
	default:
		t.Fatal("expected exit channel to be closed")
	}
	if !st.Snapshot().Exiting {
		t.Error("expected snapshot to report exiting")
	}
}

func TestSnapshot_StatusLine(t *testing.T) {
	st := NewState("Connected to server")
	if got := st.Snapshot().StatusLine(); got != "Connected to server (Not Recording)" {
		t.Errorf("unexpected status line %q", got)
	}
	st.SetRecording(true)
	if got := st.Snapshot().StatusLine(); got != "Connected to server (Recording...)" {
		t.Errorf("unexpected status line %q", got)
	}
}

func TestState_SnapshotNeverTorn(t *testing.T) {
	st := NewState("")
	pairs := [][2]string{{"hello", "สวัสดี"}, {"hola", "hello"}, {"こんにちは", "hello"}}
	valid := map[string]string{"": ""}
	for _, p := range pairs {
		valid[p[0]] = p[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ctx.Err() == nil; i++ {
			p := pairs[i%len(pairs)]
			st.SetResult(p[0], p[1])
		}
	}()

	for ctx.Err() == nil {
		snap := st.Snapshot()
		if want, ok := valid[snap.SourceText]; !ok || want != snap.TranslatedText {
			t.Fatalf("torn snapshot %q / %q", snap.SourceText, snap.TranslatedText)
		}
	}
	wg.Wait()
}

func TestRunInput(t *testing.T) {
	st := NewState("")
	if err := RunInput(context.Background(), strings.NewReader("rxq"), st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := st.Snapshot()
	if !snap.Recording {
		t.Error("expected r to start recording")
	}
	if !snap.Exiting {
		t.Error("expected q to request exit")
	}
}

func TestRunInput_EOFLeavesStateAlone(t *testing.T) {
	st := NewState("")
	if err := RunInput(context.Background(), strings.NewReader("RR"), st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := st.Snapshot()
	if snap.Recording || snap.Exiting {
		t.Errorf("expected idle state after two toggles, got %+v", snap)
	}
}

func TestHandleKey(t *testing.T) {
	st := NewState("")
	if HandleKey(st, 'z') {
		t.Error("expected unknown key to be ignored")
	}
	if !HandleKey(st, 'R') || !st.Recording() {
		t.Error("expected uppercase R to toggle recording")
	}
}
