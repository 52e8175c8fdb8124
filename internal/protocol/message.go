package protocol

import (
	"fmt"

	"github.com/eleven-am/live-translate/internal/language"
)

type MessageType string

const (
	TypeConfig        MessageType = "config"
	TypeConfigConfirm MessageType = "config_confirm"
	TypeConfigUpdate  MessageType = "config_update"
	TypeAudio         MessageType = "audio"
	TypeResult        MessageType = "result"
	TypeError         MessageType = "error"
)

func (t MessageType) Valid() bool {
	switch t {
	case TypeConfig, TypeConfigConfirm, TypeConfigUpdate, TypeAudio, TypeResult, TypeError:
		return true
	}
	return false
}

// ClientToServer reports whether the type is sent by the client.
func (t MessageType) ClientToServer() bool {
	return t == TypeConfig || t == TypeConfigUpdate || t == TypeAudio
}

// Message is the single wire envelope. Which fields are meaningful depends on Type.
// AudioData is base64 encoded by encoding/json.
type Message struct {
	Type           MessageType `json:"type"`
	SourceLang     string      `json:"source_lang,omitempty"`
	TargetLang     string      `json:"target_lang,omitempty"`
	Message        string      `json:"message,omitempty"`
	AudioData      []byte      `json:"audio_data,omitempty"`
	SourceText     string      `json:"source_text,omitempty"`
	TranslatedText string      `json:"translated_text,omitempty"`
}

type SessionConfig struct {
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

func (c SessionConfig) Validate() error {
	if err := language.Validate(c.SourceLang); err != nil {
		return fmt.Errorf("source_lang: %w", err)
	}
	if err := language.Validate(c.TargetLang); err != nil {
		return fmt.Errorf("target_lang: %w", err)
	}
	return nil
}

// SameLanguage reports whether translation can be skipped.
func (c SessionConfig) SameLanguage() bool {
	return c.SourceLang == c.TargetLang
}

// Merge applies the fields an update carries.
func (c SessionConfig) Merge(update *Message) SessionConfig {
	if update.SourceLang != "" {
		c.SourceLang = update.SourceLang
	}
	if update.TargetLang != "" {
		c.TargetLang = update.TargetLang
	}
	return c
}

func (c SessionConfig) String() string {
	return language.Name(c.SourceLang) + " -> " + language.Name(c.TargetLang)
}

func (m *Message) SessionConfig() SessionConfig {
	return SessionConfig{SourceLang: m.SourceLang, TargetLang: m.TargetLang}
}

func NewConfig(cfg SessionConfig) *Message {
	return &Message{Type: TypeConfig, SourceLang: cfg.SourceLang, TargetLang: cfg.TargetLang}
}

// NewConfigUpdate carries only the non-empty fields.
func NewConfigUpdate(sourceLang, targetLang string) *Message {
	return &Message{Type: TypeConfigUpdate, SourceLang: sourceLang, TargetLang: targetLang}
}

func NewAudio(wav []byte) *Message {
	return &Message{Type: TypeAudio, AudioData: wav}
}

func NewConfigConfirm(text string) *Message {
	return &Message{Type: TypeConfigConfirm, Message: text}
}

func NewResult(sourceText, translatedText string) *Message {
	return &Message{Type: TypeResult, SourceText: sourceText, TranslatedText: translatedText}
}

func NewError(text string) *Message {
	return &Message{Type: TypeError, Message: text}
}

// ReadyText is the confirmation sent after the initial Config.
func ReadyText(cfg SessionConfig) string {
	return fmt.Sprintf("Server ready, translating %s to %s", language.Name(cfg.SourceLang), language.Name(cfg.TargetLang))
}

// UpdatedText is the confirmation sent after a ConfigUpdate.
func UpdatedText(cfg SessionConfig) string {
	return "Settings updated: " + cfg.String()
}
