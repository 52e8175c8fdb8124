package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eleven-am/live-translate/internal/language"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

func Encode(msg *Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrMalformed)
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
	return json.Marshal(msg)
}

// Decode parses one text frame and checks the fields its type requires.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *Message) Validate() error {
	switch m.Type {
	case TypeConfig:
		if err := m.SessionConfig().Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case TypeConfigUpdate:
		if m.SourceLang == "" && m.TargetLang == "" {
			return fmt.Errorf("%w: config_update carries no languages", ErrMalformed)
		}
		if m.SourceLang != "" {
			if err := language.Validate(m.SourceLang); err != nil {
				return fmt.Errorf("%w: source_lang: %v", ErrMalformed, err)
			}
		}
		if m.TargetLang != "" {
			if err := language.Validate(m.TargetLang); err != nil {
				return fmt.Errorf("%w: target_lang: %v", ErrMalformed, err)
			}
		}
	case TypeAudio:
		if len(m.AudioData) == 0 {
			return fmt.Errorf("%w: audio_data is empty", ErrMalformed)
		}
	}
	return nil
}
