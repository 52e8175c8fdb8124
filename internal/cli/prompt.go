package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/eleven-am/live-translate/internal/audio"
	"github.com/eleven-am/live-translate/internal/language"
)

func languageOptions() []huh.Option[string] {
	langs := language.All()
	opts := make([]huh.Option[string], len(langs))
	for i, l := range langs {
		opts[i] = huh.NewOption(fmt.Sprintf("%s (%s)", l.Name, l.Code), l.Code)
	}
	return opts
}

func deviceOptions(devices []audio.DeviceInfo) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(devices)+1)
	opts = append(opts, huh.NewOption("System default", ""))
	for _, d := range devices {
		opts = append(opts, huh.NewOption(d.Name, d.ID))
	}
	return opts
}

// promptOptions asks for the capture device and both languages, starting from the current values.
func promptOptions(opts *Options, devices []audio.DeviceInfo) error {
	fields := []huh.Field{
		huh.NewSelect[string]().
			Title("Spoken language").
			Options(languageOptions()...).
			Value(&opts.Source),
		huh.NewSelect[string]().
			Title("Translate into").
			Options(languageOptions()...).
			Value(&opts.Target),
	}
	if opts.WAV == "" && len(devices) > 0 {
		fields = append([]huh.Field{
			huh.NewSelect[string]().
				Title("Choose an input device").
				Options(deviceOptions(devices)...).
				Value(&opts.Device),
		}, fields...)
	}

	form := huh.NewForm(huh.NewGroup(fields...))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errAborted
		}
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}
