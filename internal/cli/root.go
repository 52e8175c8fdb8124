package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/eleven-am/live-translate/internal/audio"
	"github.com/eleven-am/live-translate/internal/client"
	"github.com/eleven-am/live-translate/internal/language"
	"github.com/eleven-am/live-translate/internal/tui"
)

var errAborted = errors.New("aborted")

// NewRootCommand builds the client command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "live-translate",
		Short:         "Speak into the microphone and read the translation as you go",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd.Flags())
			if err != nil {
				return err
			}
			return runClient(cmd.Context(), loadOptions(v), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	registerFlags(root.Flags())

	root.AddCommand(newDevicesCommand(), newLanguagesCommand())
	return root
}

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := audio.ListDevices()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, d := range devices {
				fmt.Fprintf(w, "%s\t%s\n", d.ID, d.Name)
			}
			return w.Flush()
		},
	}
}

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages",
		Run: func(cmd *cobra.Command, args []string) {
			for _, l := range language.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", l.Code, l.Name)
			}
		},
	}
}

func runClient(ctx context.Context, opts Options, in io.Reader, out io.Writer) error {
	if opts.Interactive {
		var devices []audio.DeviceInfo
		if opts.WAV == "" {
			devices, _ = audio.ListDevices()
		}
		if err := promptOptions(&opts, devices); err != nil {
			if errors.Is(err, errAborted) {
				return nil
			}
			return err
		}
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(opts.LogFile, opts.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	source, err := openSource(opts, logger)
	if err != nil {
		return err
	}

	state := client.NewState(client.StatusConnecting)
	state.SetRecording(opts.Record)

	plain := opts.Plain || !isTerminal(out)
	if plain {
		err = runPlain(ctx, opts, state, source, in, out, logger)
	} else {
		err = runTUI(ctx, opts, state, source, logger)
	}

	if errors.Is(err, client.ErrConnectionClosed) {
		fmt.Fprintln(out, client.StatusClosed)
		return nil
	}
	return err
}

func openSource(opts Options, logger *slog.Logger) (audio.Source, error) {
	if opts.WAV != "" {
		src, err := audio.NewFakeSourceFromWAV(opts.WAV, opts.CaptureConfig(), true)
		if err != nil {
			return nil, fmt.Errorf("load wav: %w", err)
		}
		logger.Info("replaying wav file", "path", opts.WAV)
		return src, nil
	}
	src, err := audio.NewMalgoSource(opts.CaptureConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("open capture device: %w", err)
	}
	return src, nil
}

func runPlain(ctx context.Context, opts Options, state *client.State, source audio.Source, in io.Reader, out io.Writer, logger *slog.Logger) error {
	fmt.Fprintln(out, "Type r then Enter to start/stop recording, q then Enter to quit")

	sess := client.NewSession(opts.ClientConfig(), state, source, tui.NewLineSink(out), logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := client.RunInput(ctx, in, state); err != nil {
			logger.Warn("input stopped", "error", err)
		}
	}()
	return sess.Run(ctx)
}

func runTUI(ctx context.Context, opts Options, state *client.State, source audio.Source, logger *slog.Logger) error {
	var sess *client.Session
	cycle := func() error {
		next := language.Next(sess.Languages().TargetLang)
		return sess.UpdateLanguages(ctx, "", next)
	}

	app := tui.NewApp(state, cycle, tea.WithAltScreen())
	sess = client.NewSession(opts.ClientConfig(), state, source, app.Sink(), logger)
	return app.Run(ctx, sess.Run)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
