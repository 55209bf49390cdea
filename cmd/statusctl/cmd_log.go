package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/finadvisor/statuslog/internal/domain"
)

var logFlags struct {
	agent    string
	typ      string
	message  string
	session  string
	user     string
	metadata string
}

func init() {
	logCmd.Flags().StringVar(&logFlags.agent, "agent", "", "emitting agent name (required)")
	logCmd.Flags().StringVar(&logFlags.typ, "type", domain.StatusInfo, "status type (info, success, warning, error)")
	logCmd.Flags().StringVar(&logFlags.message, "message", "", "status message (required)")
	logCmd.Flags().StringVar(&logFlags.session, "session", "", "session id")
	logCmd.Flags().StringVar(&logFlags.user, "user", "", "user id")
	logCmd.Flags().StringVar(&logFlags.metadata, "metadata", "", "metadata as a JSON object")
	rootCmd.AddCommand(logCmd)
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Record one status event",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		event := domain.StatusEvent{
			AgentName:  logFlags.agent,
			StatusType: logFlags.typ,
			Message:    logFlags.message,
			SessionID:  logFlags.session,
			UserID:     logFlags.user,
		}
		if logFlags.metadata != "" {
			if err := json.Unmarshal([]byte(logFlags.metadata), &event.Metadata); err != nil {
				return fmt.Errorf("parse --metadata: %w", err)
			}
		}
		if err := event.Validate(); err != nil {
			return err
		}

		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}

		resp, err := http.Post(serviceURL("/log_status"), "application/json", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("post log_status: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(bytes.TrimSpace(body)))
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("service answered HTTP %d", resp.StatusCode)
		}
		return nil
	},
}
