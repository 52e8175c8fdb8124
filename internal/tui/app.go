package tui

import (
	"context"
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/eleven-am/live-translate/internal/client"
)

// ProgramSink forwards snapshots to a bubbletea program. Render keeps only the
// newest pending snapshot so it never blocks the render loop.
type ProgramSink struct {
	pending chan client.Snapshot
}

func NewProgramSink() *ProgramSink {
	return &ProgramSink{pending: make(chan client.Snapshot, 1)}
}

func (s *ProgramSink) Render(snap client.Snapshot) {
	for {
		select {
		case s.pending <- snap:
			return
		default:
		}
		select {
		case <-s.pending:
		default:
		}
	}
}

func (s *ProgramSink) forward(ctx context.Context, p *tea.Program) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-s.pending:
			p.Send(SnapshotMsg(snap))
		}
	}
}

type App struct {
	program *tea.Program
	sink    *ProgramSink
}

func NewApp(state *client.State, onCycle func() error, opts ...tea.ProgramOption) *App {
	return &App{
		program: tea.NewProgram(NewModel(state, onCycle), opts...),
		sink:    NewProgramSink(),
	}
}

func (a *App) Sink() client.Sink {
	return a.sink
}

// Run drives the program until run returns, then reports run's error.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.sink.forward(ctx, a.program)

	errc := make(chan error, 1)
	go func() {
		err := run(ctx)
		errc <- err
		a.program.Send(DoneMsg{Err: err})
	}()

	if _, err := a.program.Run(); err != nil {
		cancel()
		<-errc
		return fmt.Errorf("terminal ui: %w", err)
	}
	cancel()
	return <-errc
}

// LineSink prints the status and texts whenever they change. Used when no terminal UI is wanted.
type LineSink struct {
	mu   sync.Mutex
	w    io.Writer
	last client.Snapshot
	seen bool
}

func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{w: w}
}

func (s *LineSink) Render(snap client.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seen || snap.Status != s.last.Status || snap.Recording != s.last.Recording {
		fmt.Fprintln(s.w, snap.StatusLine())
	}
	if snap.SourceText != "" && (snap.SourceText != s.last.SourceText || snap.TranslatedText != s.last.TranslatedText) {
		fmt.Fprintf(s.w, "[%s] %s\n[%s] %s\n", snap.SourceLang, snap.SourceText, snap.TargetLang, snap.TranslatedText)
	}
	s.last = snap
	s.seen = true
}
