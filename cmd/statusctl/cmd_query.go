package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var queryFlags struct {
	limit   int
	agent   string
	session string
	typ     string
}

func init() {
	queryCmd.Flags().IntVar(&queryFlags.limit, "limit", 0, "maximum number of events (server default when 0)")
	queryCmd.Flags().StringVar(&queryFlags.agent, "agent", "", "filter by agent name")
	queryCmd.Flags().StringVar(&queryFlags.session, "session", "", "filter by session id")
	queryCmd.Flags().StringVar(&queryFlags.typ, "type", "", "filter by status type")
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query recent status events, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		if queryFlags.limit > 0 {
			params.Set("limit", strconv.Itoa(queryFlags.limit))
		}
		if queryFlags.agent != "" {
			params.Set("agent_name", queryFlags.agent)
		}
		if queryFlags.session != "" {
			params.Set("session_id", queryFlags.session)
		}
		if queryFlags.typ != "" {
			params.Set("status_type", queryFlags.typ)
		}

		target := serviceURL("/query_logs")
		if encoded := params.Encode(); encoded != "" {
			target += "?" + encoded
		}

		body, err := getJSON(target)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, body)
		return nil
	},
}
