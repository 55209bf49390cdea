package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check service and database health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := getJSON(serviceURL("/health"))
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, body)
		return nil
	},
}

func serviceURL(path string) string {
	return strings.TrimRight(serverURL, "/") + path
}

// getJSON fetches a URL and returns the body pretty-printed.
func getJSON(url string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var pretty map[string]any
	if err := json.Unmarshal(raw, &pretty); err != nil {
		return "", fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return string(out), fmt.Errorf("service answered HTTP %d", resp.StatusCode)
	}
	return string(out), nil
}
