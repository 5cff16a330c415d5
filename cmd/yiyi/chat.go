package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"yiyi-hq/gateway/pkg/cli"
	"yiyi-hq/gateway/pkg/proxy/handlers"
)

const defaultChatURL = "ws://localhost:3000/ws"

func newChatCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running gateway",
		Long: `Open an interactive chat session against a running gateway.

Each line you type is sent as one turn; the reply is printed as it streams.
The conversation lasts as long as the connection. Type "exit" or press
Ctrl+D to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := cli.SetupSignalHandler(cmd.Context())
			defer stop()

			conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			if err != nil {
				return cli.NewExitError(cli.ExitUnavailable, fmt.Errorf("failed to connect to %s: %w", url, err))
			}
			resp.Body.Close()
			defer conn.Close()

			p := cli.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			p.Success("connected to %s", url)
			return chatLoop(ctx, conn, cmd.InOrStdin(), p)
		},
	}

	cmd.Flags().StringVar(&url, "url", defaultChatURL, "gateway WebSocket URL")
	return cmd
}

// chatLoop sends one frame per input line and prints the reply frames
// until the turn ends.
func chatLoop(ctx context.Context, conn *websocket.Conn, in io.Reader, p *cli.Printer) error {
	frames := make(chan handlers.ServerFrame)
	readErr := make(chan error, 1)
	go func() {
		defer close(frames)
		for {
			var frame handlers.ServerFrame
			if err := conn.ReadJSON(&frame); err != nil {
				readErr <- err
				return
			}
			frames <- frame
		}
	}()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	scanner := bufio.NewScanner(in)
	for {
		p.Label("You: ")
		if !scanner.Scan() {
			p.Plain("\n")
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		id := uuid.NewString()
		if err := conn.WriteJSON(handlers.ClientFrame{ID: id, Type: handlers.FrameChat, Content: line}); err != nil {
			return connectionError(ctx, err)
		}

		if err := printReply(id, frames, p); err != nil {
			if errors.Is(err, errConnectionLost) {
				return connectionError(ctx, <-readErr)
			}
			return err
		}
	}
}

var errConnectionLost = errors.New("connection lost")

// printReply consumes frames until the turn with id ends.
func printReply(id string, frames <-chan handlers.ServerFrame, p *cli.Printer) error {
	var spinner *cli.Spinner
	if !color.NoColor {
		spinner = cli.NewSpinner(p.Out(), "thinking")
		spinner.Start()
		defer spinner.Stop()
	}

	started := false
	for frame := range frames {
		if frame.ID != id && frame.ID != handlers.UnknownRequestID {
			continue
		}

		switch frame.Type {
		case handlers.FrameChatDelta:
			if !started {
				if spinner != nil {
					spinner.Stop()
				}
				p.Label("YiYi: ")
				started = true
			}
			p.Plain(frame.Content)

		case handlers.FrameChatDone:
			if started {
				p.Plain("\n")
			}
			if frame.Usage != nil {
				p.Faint("[%s, %d tokens]\n", frame.Model, frame.Usage.TotalTokens)
			}
			return nil

		case handlers.FrameError:
			if spinner != nil {
				spinner.Stop()
			}
			if started {
				p.Plain("\n")
			}
			if frame.Error != nil {
				p.Error("%s: %s", frame.Error.Code, frame.Error.Message)
			} else {
				p.Error("turn failed")
			}
			return nil
		}
	}
	return errConnectionLost
}

func connectionError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if websocket.IsCloseError(err, websocket.CloseGoingAway) {
		return cli.NewExitError(cli.ExitUnavailable, errors.New("gateway is shutting down"))
	}
	return cli.NewExitError(cli.ExitUnavailable, fmt.Errorf("connection lost: %w", err))
}
