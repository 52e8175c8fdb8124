package translation

import (
	"context"
	"fmt"
)

// Stub translates from a fixed phrase table and prefixes anything else with the target code.
type Stub struct {
	phrases map[string]string
}

func NewStub(phrases map[string]string) *Stub {
	if phrases == nil {
		phrases = defaultPhrases
	}
	return &Stub{phrases: phrases}
}

var defaultPhrases = map[string]string{
	"en|th:hello": "สวัสดี",
	"en|es:hello": "hola",
	"en|ja:hello": "こんにちは",
	"ja|en:こんにちは": "hello",
	"th|en:สวัสดี":  "hello",
	"es|en:hola":   "hello",
}

func (s *Stub) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if sourceLang == targetLang {
		return text, nil
	}
	if out, ok := s.phrases[sourceLang+"|"+targetLang+":"+text]; ok {
		return out, nil
	}
	return fmt.Sprintf("[%s] %s", targetLang, text), nil
}
