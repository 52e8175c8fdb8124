package language

import (
	"fmt"
	"strings"
)

type Language struct {
	Code   string
	Name   string
	Locale string
}

var supported = []Language{
	{Code: "th", Name: "Thai", Locale: "th-TH"},
	{Code: "en", Name: "English", Locale: "en-US"},
	{Code: "es", Name: "Spanish", Locale: "es-ES"},
	{Code: "ja", Name: "Japanese", Locale: "ja-JP"},
}

const (
	DefaultClientSource = "ja"
	DefaultClientTarget = "en"
)

type UnsupportedError struct {
	Code string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported language %q (supported: %s)", e.Code, strings.Join(Codes(), ", "))
}

func All() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

func Codes() []string {
	codes := make([]string, len(supported))
	for i, l := range supported {
		codes[i] = l.Code
	}
	return codes
}

func Lookup(code string) (Language, bool) {
	for _, l := range supported {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

func IsSupported(code string) bool {
	_, ok := Lookup(code)
	return ok
}

func Validate(code string) error {
	if !IsSupported(code) {
		return &UnsupportedError{Code: code}
	}
	return nil
}

// Name returns the display name for code, or code itself when unknown.
func Name(code string) string {
	if l, ok := Lookup(code); ok {
		return l.Name
	}
	return code
}

// Next returns the supported language after code, wrapping around.
func Next(code string) string {
	for i, l := range supported {
		if l.Code == code {
			return supported[(i+1)%len(supported)].Code
		}
	}
	return supported[0].Code
}
