package translation

import (
	"context"
	"errors"
)

var ErrFailed = errors.New("translation failed")

type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
