// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/telesync/internal/realtime"
	"github.com/tomtom215/telesync/internal/status"
)

var (
	statusAddr     string
	statusTimeline int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection status of a running listener",
	Long:  "Queries the status endpoint of a running `telesync listen` (status.enabled must be true).",
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr := statusAddr
		if addr == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			addr = cfg.Status.Addr
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		rep, err := fetchStatus(ctx, http.DefaultClient, "http://"+addr+"/status")
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), rep, statusTimeline)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "telesync %s (%s)\n", version, commit)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "status server address (default: status.addr)")
	statusCmd.Flags().IntVar(&statusTimeline, "timeline", 0, "print the last N lifecycle events per connection")
	rootCmd.AddCommand(statusCmd, versionCmd)
}

func fetchStatus(ctx context.Context, client *http.Client, url string) (*status.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query status server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status server returned %s", resp.Status)
	}
	var rep status.Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &rep, nil
}

func printStatus(w io.Writer, rep *status.Report, timeline int) {
	fmt.Fprintf(w, "Status:   %s\n", rep.Status)
	fmt.Fprintf(w, "User:     %s\n", valueOr(rep.UserID, "(not set)"))
	fmt.Fprintf(w, "Uptime:   %s\n", time.Duration(rep.Uptime*float64(time.Second)).Round(time.Second))
	if rep.TokenBreaker != "" {
		fmt.Fprintf(w, "Token:    breaker %s\n", rep.TokenBreaker)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Connections:")
	if len(rep.Connections) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, c := range rep.Connections {
		ns := c.Namespace
		if ns == "" {
			ns = "/"
		}
		fmt.Fprintf(w, "  %-14s %-12s %-9s ping %dms  attempts %d/%d  channels %d\n",
			ns, c.State, valueOr(string(c.Quality), "unknown"), c.PingMs,
			c.Attempts, c.MaxAttempts, len(c.Subscriptions))
		if c.LastError != "" {
			fmt.Fprintf(w, "  %-14s last error: %s\n", "", c.LastError)
		}
		var events []realtime.TimelineEvent
		if timeline > 0 {
			events = c.Timeline[max(0, len(c.Timeline)-timeline):]
		}
		for _, ev := range events {
			fmt.Fprintf(w, "  %-14s %s %-19s %s\n", "", ev.Time.Format("15:04:05.000"), ev.Event, ev.Detail)
		}
	}
	if len(rep.OnlineUsers) > 0 {
		fmt.Fprintf(w, "\nOnline:   %d users\n", len(rep.OnlineUsers))
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
