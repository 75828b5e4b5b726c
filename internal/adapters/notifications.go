// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package adapters

import (
	"context"

	"github.com/tomtom215/telesync/internal/models"
)

// Notifications is the adapter for the current user's notification stream.
type Notifications struct {
	scope
	userID string
}

// NewNotifications creates a closed Notifications adapter for userID.
func NewNotifications(hub Acquirer, namespace, userID string) *Notifications {
	n := &Notifications{userID: userID}
	n.bind(hub, namespace, "notifications")
	return n
}

// Open subscribes to notifications:<userId>.
func (n *Notifications) Open(ctx context.Context) error {
	_, _, err := n.open(ctx, NotificationChannel(n.userID))
	return err
}

// Close revokes the subscription.
func (n *Notifications) Close() { n.close() }

// MarkRead marks one notification read.
func (n *Notifications) MarkRead(notificationID string) bool {
	return n.send(models.ActionMarkNotificationRead, models.NotificationRequest{NotificationID: notificationID})
}

// MarkAllRead marks every notification of the user read.
func (n *Notifications) MarkAllRead() bool {
	return n.send(models.ActionMarkAllNotificationsRead, models.UserRequest{UserID: n.userID})
}

// Delete removes a notification.
func (n *Notifications) Delete(notificationID string) bool {
	return n.send(models.ActionDeleteNotification, models.NotificationRequest{NotificationID: notificationID})
}
