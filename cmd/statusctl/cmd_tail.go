package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tailCmd)
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Stream status events live as they are logged",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		target := strings.Replace(serviceURL("/ws/logs"), "http", "ws", 1)
		ws, _, err := websocket.Dial(ctx, target, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", target, err)
		}
		defer ws.Close(websocket.StatusNormalClosure, "done")

		fmt.Fprintf(os.Stderr, "streaming from %s (ctrl-c to stop)\n", target)
		for {
			_, data, err := ws.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("read stream: %w", err)
			}
			fmt.Fprintln(os.Stdout, string(data))
		}
	},
}
