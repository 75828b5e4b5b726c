// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/telesync/internal/adapters"
)

var errNotSent = errors.New("frame not sent: not connected")

var sendOpts struct {
	timeout     time.Duration
	messageType string
	replyTo     string
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single client action and exit",
}

// oneShot is the lifecycle shared by every send subcommand.
type oneShot interface {
	Open(ctx context.Context) error
	Close()
	IsConnected() bool
}

func init() {
	sendCmd.PersistentFlags().DurationVar(&sendOpts.timeout, "timeout", 10*time.Second, "time to wait for the connection")

	messageCmd := &cobra.Command{
		Use:   "message <conversation-id> <text>...",
		Short: "Send a chat message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				m := a.messages(args[0])
				return runOnce(ctx, m, func() bool {
					return m.Send(strings.Join(args[1:], " "), sendOpts.messageType, sendOpts.replyTo)
				})
			})
		},
	}
	messageCmd.Flags().StringVar(&sendOpts.messageType, "type", "text", "message type")
	messageCmd.Flags().StringVar(&sendOpts.replyTo, "reply-to", "", "message ID this replies to")

	markReadCmd := &cobra.Command{
		Use:   "mark-read <conversation-id> <message-id>",
		Short: "Mark a message read",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				m := a.messages(args[0])
				return runOnce(ctx, m, func() bool { return m.MarkRead(args[1]) })
			})
		},
	}

	readNotificationCmd := &cobra.Command{
		Use:   "read-notification <notification-id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				n := a.notifications()
				return runOnce(ctx, n, func() bool { return n.MarkRead(args[0]) })
			})
		},
	}

	readAllCmd := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				n := a.notifications()
				return runOnce(ctx, n, n.MarkAllRead)
			})
		},
	}

	deleteNotificationCmd := &cobra.Command{
		Use:   "delete-notification <notification-id>",
		Short: "Delete a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				n := a.notifications()
				return runOnce(ctx, n, func() bool { return n.Delete(args[0]) })
			})
		},
	}

	submitCmd := &cobra.Command{
		Use:   "submit-worksheet <worksheet-id> <responses-json>",
		Short: "Submit worksheet responses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := rawJSON(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				w := a.worksheets()
				return runOnce(ctx, w, func() bool { return w.Submit(args[0], body) })
			})
		},
	}

	progressCmd := &cobra.Command{
		Use:   "save-progress <worksheet-id> <progress-json>",
		Short: "Save partial worksheet progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := rawJSON(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				w := a.worksheets()
				return runOnce(ctx, w, func() bool { return w.SaveProgress(args[0], body) })
			})
		},
	}

	sendCmd.AddCommand(messageCmd, markReadCmd, readNotificationCmd, readAllCmd,
		deleteNotificationCmd, submitCmd, progressCmd)
	rootCmd.AddCommand(sendCmd)
}

func rawJSON(s string) (json.RawMessage, error) {
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("invalid JSON argument: %q", s)
	}
	return json.RawMessage(s), nil
}

// withApp loads configuration, builds an app without toasts and runs fn
// under the send timeout.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, nil)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), sendOpts.timeout)
	defer cancel()
	return fn(ctx, a)
}

// runOnce opens adapter, waits until it is connected, performs action and
// closes it again.
func runOnce(ctx context.Context, adapter oneShot, action func() bool) error {
	if err := adapter.Open(ctx); err != nil {
		return err
	}
	defer adapter.Close()

	if err := waitConnected(ctx, adapter.IsConnected); err != nil {
		return err
	}
	if !action() {
		return errNotSent
	}
	return nil
}

func waitConnected(ctx context.Context, connected func() bool) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !connected() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for connection: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

func (a *app) messages(conversationID string) *adapters.Messages {
	return adapters.NewMessages(a.hub, adapters.MessagesOptions{
		Namespace:       a.cfg.Namespaces.Messaging,
		ConversationID:  conversationID,
		TypingAutoStop:  a.cfg.Presence.TypingAutoStop,
		TypingRateLimit: a.cfg.Presence.TypingRateLimit,
	})
}

func (a *app) notifications() *adapters.Notifications {
	return adapters.NewNotifications(a.hub, a.cfg.Namespaces.Notifications, a.cfg.Session.UserID)
}

func (a *app) worksheets() *adapters.Worksheets {
	return adapters.NewWorksheets(a.hub, a.cfg.Namespaces.Worksheets, a.cfg.Session.UserID)
}
