// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package reconcile

import (
	"context"
	"time"

	"github.com/tomtom215/telesync/internal/metrics"
	"github.com/tomtom215/telesync/internal/models"
)

// ToastKind selects the visual style of a toast.
type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastWarning ToastKind = "warning"
	ToastError   ToastKind = "error"
)

// Toast is an in-app interruption.
type Toast struct {
	Kind      ToastKind
	Title     string
	Message   string
	Duration  time.Duration
	ActionURL string
}

// SystemNotification is an OS-level notification.
type SystemNotification struct {
	Title              string
	Body               string
	Tag                string
	RequireInteraction bool
}

// Notifier renders user-facing interruptions.
type Notifier interface {
	Toast(t Toast)
	SystemNotify(n SystemNotification)
}

// Notification permission values.
const (
	PermissionGranted = "granted"
	PermissionDenied  = "denied"
	PermissionDefault = "default"
)

// PermissionProvider exposes the OS notification permission. Request is
// only ever called from Mount.
type PermissionProvider interface {
	Permission() string
	RequestPermission(ctx context.Context) (string, error)
}

// StaticPermission is a PermissionProvider with a fixed answer.
type StaticPermission string

// Permission returns p.
func (p StaticPermission) Permission() string { return string(p) }

// RequestPermission returns p without prompting.
func (p StaticPermission) RequestPermission(context.Context) (string, error) { return string(p), nil }

// toastForPriority maps a notification priority to toast style and duration.
func toastForPriority(p models.NotificationPriority) (ToastKind, time.Duration) {
	switch p.Normalized() {
	case models.PriorityUrgent:
		return ToastError, 10 * time.Second
	case models.PriorityHigh:
		return ToastWarning, 5 * time.Second
	default:
		return ToastInfo, 5 * time.Second
	}
}

// surfaceable reports whether ev may interrupt the user: the caller's
// predicate accepts it and the current user did not cause it.
func (r *Reconciler) surfaceable(ev *models.CanonicalEvent, origin string) bool {
	if r.opts.Notifier == nil {
		return false
	}
	if origin != "" && origin == r.opts.UserID {
		return false
	}
	if r.opts.Include != nil && !r.opts.Include(ev) {
		return false
	}
	return true
}

func (r *Reconciler) toast(ev *models.CanonicalEvent, origin string, t Toast) {
	if !r.opts.EnableToasts || !r.surfaceable(ev, origin) {
		return
	}
	r.opts.Notifier.Toast(t)
	metrics.RecordNotificationSurfaced("toast")
}

// systemNotify shows n only when permission was already granted at Mount.
// Permission is never requested here.
func (r *Reconciler) systemNotify(ev *models.CanonicalEvent, origin string, n SystemNotification) {
	if !r.opts.EnableSystem || !r.surfaceable(ev, origin) {
		return
	}
	if r.permission() != PermissionGranted {
		return
	}
	r.opts.Notifier.SystemNotify(n)
	metrics.RecordNotificationSurfaced("system")
}
