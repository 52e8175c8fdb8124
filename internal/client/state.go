package client

import "sync"

// Snapshot is a consistent copy of State for rendering.
type Snapshot struct {
	Recording      bool
	Exiting        bool
	SourceText     string
	TranslatedText string
	Status         string
	SourceLang     string
	TargetLang     string
}

func (s Snapshot) StatusLine() string {
	if s.Recording {
		return s.Status + " (Recording...)"
	}
	return s.Status + " (Not Recording)"
}

// State is shared by the input, receive and render loops. Input owns the recording
// and exit flags; receive owns the texts and the status line.
type State struct {
	mu             sync.Mutex
	recording      bool
	exiting        bool
	sourceText     string
	translatedText string
	status         string
	sourceLang     string
	targetLang     string

	exitOnce sync.Once
	exitCh   chan struct{}
}

func NewState(status string) *State {
	return &State{status: status, exitCh: make(chan struct{})}
}

// ToggleRecording flips the recording flag and returns the new value.
func (s *State) ToggleRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = !s.recording
	return s.recording
}

func (s *State) SetRecording(on bool) {
	s.mu.Lock()
	s.recording = on
	s.mu.Unlock()
}

func (s *State) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

func (s *State) RequestExit() {
	s.mu.Lock()
	s.exiting = true
	s.mu.Unlock()
	s.exitOnce.Do(func() { close(s.exitCh) })
}

// Exiting is closed by the first RequestExit.
func (s *State) Exiting() <-chan struct{} {
	return s.exitCh
}

func (s *State) SetResult(sourceText, translatedText string) {
	s.mu.Lock()
	s.sourceText = sourceText
	s.translatedText = translatedText
	s.mu.Unlock()
}

func (s *State) SetStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
}

func (s *State) SetLanguages(sourceLang, targetLang string) {
	s.mu.Lock()
	s.sourceLang = sourceLang
	s.targetLang = targetLang
	s.mu.Unlock()
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Recording:      s.recording,
		Exiting:        s.exiting,
		SourceText:     s.sourceText,
		TranslatedText: s.translatedText,
		Status:         s.status,
		SourceLang:     s.sourceLang,
		TargetLang:     s.targetLang,
	}
}
