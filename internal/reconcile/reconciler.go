// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/telesync/internal/cache"
	"github.com/tomtom215/telesync/internal/logging"
	"github.com/tomtom215/telesync/internal/metrics"
	"github.com/tomtom215/telesync/internal/models"
	"github.com/tomtom215/telesync/internal/realtime"
)

// ErrPayloadMismatch is returned when an event's decoded payload is not the
// type its event type promises.
var ErrPayloadMismatch = errors.New("event payload does not match event type")

// Reducer outcomes, used as the metrics label and returned by Apply.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeDropped = "dropped"
	OutcomeSkipped = "skipped"
	OutcomeIgnored = "ignored"
	OutcomeError   = "error"
)

// Options configures a Reconciler.
type Options struct {
	// UserID is the signed-in user. Events hinted at another user are
	// skipped, and events the user caused never interrupt them.
	UserID string

	EnableToasts bool
	EnableSystem bool

	// Include, when set, must accept an event before it may surface.
	Include func(ev *models.CanonicalEvent) bool

	Notifier   Notifier
	Permission PermissionProvider
}

// Registrar is the part of the dispatcher the reconciler attaches to.
type Registrar interface {
	RegisterHandler(eventType models.EventType, h realtime.Handler) func()
}

var _ Registrar = (*realtime.Dispatcher)(nil)

type reducer func(r *Reconciler, ev *models.CanonicalEvent) (string, error)

// reducers holds exactly one reducer per cache-affecting event type.
// Presence, typing and in-meeting traffic are not cached.
var reducers = map[models.EventType]reducer{
	models.EventMessageSent:     (*Reconciler).messageSent,
	models.EventMessageUpdated:  (*Reconciler).messageUpdated,
	models.EventMessageDeleted:  (*Reconciler).messageDeleted,
	models.EventMessageRead:     (*Reconciler).messageRead,
	models.EventMessageReaction: (*Reconciler).messageReaction,

	models.EventNotificationCreated: (*Reconciler).notificationCreated,
	models.EventNotificationUpdated: (*Reconciler).notificationUpdated,
	models.EventNotificationDeleted: (*Reconciler).notificationDeleted,
	models.EventNotificationReadAll: (*Reconciler).notificationReadAll,

	models.EventMeetingStarted:           (*Reconciler).meetingStarted,
	models.EventMeetingEnded:             (*Reconciler).meetingEnded,
	models.EventMeetingParticipantJoined: (*Reconciler).participantJoined,
	models.EventMeetingParticipantLeft:   (*Reconciler).participantLeft,

	models.EventWorksheetAssigned:  (*Reconciler).worksheetAssigned,
	models.EventWorksheetCompleted: (*Reconciler).worksheetCompleted,
	models.EventWorksheetUpdated:   (*Reconciler).worksheetUpdated,
}

// Reconciler turns canonical events into cache mutations and, for
// user-facing domains, into toasts and system notifications.
//
// Every reducer is a synchronous read-modify-write inside one cache batch.
// Applying the same event twice leaves the cache as applying it once.
type Reconciler struct {
	store cache.Store
	opts  Options
	log   zerolog.Logger

	mountOnce sync.Once
}

// New creates a Reconciler over store.
func New(store cache.Store, opts Options) *Reconciler {
	return &Reconciler{
		store: store,
		opts:  opts,
		log:   logging.WithComponent("reconciler"),
	}
}

// Mount asks for system notification permission once, and only if the user
// has not decided yet. Reducers never prompt.
func (r *Reconciler) Mount(ctx context.Context) {
	r.mountOnce.Do(func() {
		if !r.opts.EnableSystem || r.opts.Permission == nil {
			return
		}
		if r.opts.Permission.Permission() != PermissionDefault {
			return
		}
		got, err := r.opts.Permission.RequestPermission(ctx)
		if err != nil {
			r.log.Warn().Err(err).Msg("Notification permission request failed")
			return
		}
		r.log.Debug().Str("permission", got).Msg("Notification permission resolved")
	})
}

func (r *Reconciler) permission() string {
	if r.opts.Permission == nil {
		return ""
	}
	return r.opts.Permission.Permission()
}

// EventTypes lists the event types with a reducer.
func EventTypes() []models.EventType {
	out := make([]models.EventType, 0, len(reducers))
	for _, et := range realtime.EventTypes() {
		if _, ok := reducers[et]; ok {
			out = append(out, et)
		}
	}
	return out
}

// Attach registers one handler per reduced event type and returns a
// function that removes them all.
func (r *Reconciler) Attach(reg Registrar) func() {
	offs := make([]func(), 0, len(reducers))
	for _, et := range EventTypes() {
		offs = append(offs, reg.RegisterHandler(et, r.handle))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func (r *Reconciler) handle(ctx context.Context, ev *models.CanonicalEvent) error {
	_, err := r.Apply(ctx, ev)
	return err
}

// Apply runs the reducer for ev and reports its outcome.
func (r *Reconciler) Apply(_ context.Context, ev *models.CanonicalEvent) (string, error) {
	red, ok := reducers[ev.Type]
	if !ok {
		return OutcomeIgnored, nil
	}
	if hinted := ev.UserID(); hinted != "" && r.opts.UserID != "" && hinted != r.opts.UserID {
		metrics.RecordReducer(string(ev.Type), OutcomeSkipped)
		return OutcomeSkipped, nil
	}

	outcome, err := red(r, ev)
	if err != nil {
		metrics.RecordReducer(string(ev.Type), OutcomeError)
		return OutcomeError, fmt.Errorf("reduce %s: %w", ev.Type, err)
	}
	metrics.RecordReducer(string(ev.Type), outcome)
	if outcome == OutcomeDropped {
		r.log.Debug().Str("event_type", string(ev.Type)).Msg("Entity not cached, event dropped")
	}
	return outcome, nil
}

func payloadAs[T any](ev *models.CanonicalEvent) (*T, error) {
	p, ok := ev.Payload.(*T)
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %s carries %T", ErrPayloadMismatch, ev.Type, ev.Payload)
	}
	return p, nil
}

func counter(tx cache.Reader, key string) int {
	n, _ := cache.GetAs[int](tx, key)
	return n
}

// errNoop aborts a batch that would not change anything.
var errNoop = errors.New("noop")

// batch runs fn in one cache transaction. fn returns the outcome it reached;
// anything other than OutcomeApplied discards the staged writes.
func (r *Reconciler) batch(fn func(tx *cache.Tx) (string, error)) (string, error) {
	outcome := OutcomeApplied
	err := r.store.Batch(func(tx *cache.Tx) error {
		o, err := fn(tx)
		if err != nil {
			return err
		}
		outcome = o
		if o != OutcomeApplied {
			return errNoop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNoop) {
		return OutcomeError, err
	}
	return outcome, nil
}
