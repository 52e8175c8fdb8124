package client

import (
	"bufio"
	"context"
	"errors"
	"io"
)

// HandleKey applies one key press and reports whether it was recognised.
func HandleKey(st *State, key rune) bool {
	switch key {
	case 'r', 'R':
		st.ToggleRecording()
	case 'q', 'Q':
		st.RequestExit()
	default:
		return false
	}
	return true
}

// RunInput feeds keys from r into st until ctx ends, r is exhausted or exit is requested.
func RunInput(ctx context.Context, r io.Reader, st *State) error {
	keys := make(chan rune)
	errc := make(chan error, 1)

	go func() {
		br := bufio.NewReader(r)
		for {
			key, _, err := br.ReadRune()
			if err != nil {
				errc <- err
				return
			}
			select {
			case keys <- key:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-st.Exiting():
			return nil
		case err := <-errc:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case key := <-keys:
			HandleKey(st, key)
		}
	}
}
