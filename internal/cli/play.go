package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/protocol"
)

// ErrDisconnected is returned when the server closes the connection before FINAL
var ErrDisconnected = errors.New("disconnected before the game finished")

const dialTimeout = 10 * time.Second

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play <name>",
		Short: "Join the game and answer questions from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			if cfg.Verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "connecting to %s\n", cfg.GameAddr)
			}
			return Play(ctx, cfg.GameAddr, args[0], cmd.InOrStdin(), out)
		},
	}
}

// Play joins the game at addr as name, prints every server message and
// forwards one answer letter per question read from in. It returns nil
// once the final standings arrive.
func Play(ctx context.Context, addr, name string, in io.Reader, out *Output) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name must not be empty")
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// unblock the reader when the caller gives up
	stopClose := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopClose()

	if _, err := fmt.Fprintf(conn, "%s\n", protocol.EncodeJoin(name)); err != nil {
		return fmt.Errorf("join failed: %w", err)
	}

	done := make(chan struct{})
	defer close(done)

	lines, readErr := readLines(conn, done)
	answers, _ := readLines(in, done)

	round := 0 // question awaiting an answer, 0 if none
	for {
		// input typed ahead waits for the next question
		var input <-chan string
		if round != 0 {
			input = answers
		}

		select {
		case line, ok := <-lines:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err := <-readErr; err != nil {
					return err
				}
				return ErrDisconnected
			}

			msg, err := protocol.Decode(line)
			if err != nil {
				continue
			}
			out.PrintGameMessage(msg)

			switch m := msg.(type) {
			case protocol.Question:
				round = m.Round
				out.Prompt("Your answer (A-D): ")
			case protocol.Result:
				round = 0
			case protocol.Final:
				return nil
			}

		case text, ok := <-input:
			if !ok {
				// stdin closed; keep watching the game
				answers = nil
				continue
			}
			letter, err := model.ParseLetter(strings.ToUpper(strings.TrimSpace(text)))
			if err != nil {
				out.PrintNotice("Please enter A, B, C or D")
				out.Prompt("Your answer (A-D): ")
				continue
			}
			line := protocol.Encode(protocol.Answer{Round: round, Letter: letter})
			if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}
			out.PrintNotice("Answer sent, waiting for other players...")
			round = 0

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readLines streams lines from r until EOF or done is closed.
// The error channel receives the scanner error once the line channel closes.
func readLines(r io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		errCh <- scanner.Err()
	}()
	return lines, errCh
}
