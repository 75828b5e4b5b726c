// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/telesync/internal/adapters"
	"github.com/tomtom215/telesync/internal/logging"
	"github.com/tomtom215/telesync/internal/models"
	"github.com/tomtom215/telesync/internal/status"
	"github.com/tomtom215/telesync/internal/supervisor"
	"github.com/tomtom215/telesync/internal/supervisor/services"
)

var listenOpts struct {
	conversations      []string
	meetings           []string
	joinMeetings       bool
	restartOnExhausted bool
	toastsToStdout     bool
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Hold real-time connections and reconcile events until interrupted",
	Long: `listen connects every configured namespace, subscribes the current
user's notification and worksheet channels, and optionally joins
conversations and meeting rooms. Toasts are written to stdout as JSON lines.`,
	RunE: runListen,
}

func init() {
	f := listenCmd.Flags()
	f.StringSliceVar(&listenOpts.conversations, "conversation", nil, "conversation IDs to join (repeatable)")
	f.StringSliceVar(&listenOpts.meetings, "meeting", nil, "meeting IDs to watch (repeatable)")
	f.BoolVar(&listenOpts.joinMeetings, "join", false, "announce join-meeting in watched meetings (audio and video off)")
	f.BoolVar(&listenOpts.restartOnExhausted, "restart-on-exhausted", false, "let the supervisor restart connections that exhausted their reconnect attempts")
	f.BoolVar(&listenOpts.toastsToStdout, "toasts", true, "write toasts and system notifications to stdout")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var toasts io.Writer
	if listenOpts.toastsToStdout {
		toasts = os.Stdout
	}
	a, err := newApp(cfg, toasts)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	for _, p := range a.plans() {
		tree.AddRealtimeService(services.NewNamespaceService(a.hub, p.namespace, &services.NamespaceOptions{
			Channels:           p.channels,
			RestartOnExhausted: listenOpts.restartOnExhausted,
		}))
	}
	tree.AddPresenceService(a.tracker)
	if cfg.Status.Enabled {
		srv := status.NewServer(cfg.Status.Addr, a.statusHandler())
		tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
		logging.Info().Str("addr", cfg.Status.Addr).Msg("Status server enabled")
	}

	logging.Info().
		Str("url", cfg.Server.URL).
		Str("user_id", cfg.Session.UserID).
		Str("version", version).
		Msg("Starting telesync listener")

	errCh := tree.ServeBackground(ctx)
	a.reconciler.Mount(ctx)

	closers, err := openRooms(ctx, a)
	if err != nil {
		stop()
		<-errCh
		return err
	}

	var serveErr error
	stopped := false
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		stopped = true
	}

	// Leave rooms while sockets are still up.
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	stop()
	if !stopped {
		serveErr = <-errCh
	}

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop within timeout")
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return fmt.Errorf("supervisor stopped: %w", serveErr)
	}
	logging.Info().Msg("Listener stopped")
	return nil
}

// openRooms opens the conversation and meeting adapters requested on the
// command line and returns their closers.
func openRooms(ctx context.Context, a *app) ([]func(), error) {
	var closers []func()
	fail := func(err error) ([]func(), error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		return nil, err
	}

	for _, id := range listenOpts.conversations {
		m := a.messages(id)
		if err := m.Open(ctx); err != nil {
			return fail(fmt.Errorf("open conversation %s: %w", id, err))
		}
		closers = append(closers, m.Close)
	}

	for _, id := range listenOpts.meetings {
		m := adapters.NewMeetings(a.hub, a.cfg.Namespaces.Meetings, id, a.cfg.Session.UserID)
		if err := m.Open(ctx); err != nil {
			return fail(fmt.Errorf("open meeting %s: %w", id, err))
		}
		closers = append(closers, m.Close)

		off, err := m.OnSignal(func(sig *models.WebRTCSignal) {
			logging.Info().Str("meeting_id", sig.MeetingID).Str("from", sig.FromUserID).
				Str("signal_type", sig.Type).Msg("WebRTC signal received")
		})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, off)

		if listenOpts.joinMeetings && !m.Join(models.MediaPreferences{}) {
			logging.Warn().Str("meeting_id", id).Msg("join-meeting not sent, will not retry")
		}
	}
	return closers, nil
}
