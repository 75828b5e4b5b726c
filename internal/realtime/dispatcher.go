// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/telesync/internal/logging"
	"github.com/tomtom215/telesync/internal/metrics"
	"github.com/tomtom215/telesync/internal/models"
)

// Handler consumes one canonical event. A returned error is logged and
// does not stop delivery to other handlers.
type Handler func(ctx context.Context, ev *models.CanonicalEvent) error

type handlerEntry struct {
	id uint64
	fn Handler
}

// Dispatcher is the single inbound funnel shared by every connection of a
// Hub. It canonicalizes wire frames and invokes handlers in registration
// order. Dispatch calls are serialized, so handlers never run concurrently
// with each other even when several namespaces are connected.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[models.EventType][]handlerEntry
	wildcard []handlerEntry
	nextID   uint64

	dispatchMu sync.Mutex
	table      *routeTable
	now        func() time.Time
	log        zerolog.Logger
}

// NewDispatcher returns a dispatcher with the built-in route table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[models.EventType][]handlerEntry),
		table:    newRouteTable(routes),
		now:      time.Now,
		log:      logging.WithComponent("dispatcher"),
	}
}

// RegisterHandler adds h for eventType and returns a function removing it.
// The returned function is safe to call more than once.
func (d *Dispatcher) RegisterHandler(eventType models.EventType, h Handler) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers[eventType] = append(d.handlers[eventType], handlerEntry{id: id, fn: h})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.handlers[eventType] = removeEntry(d.handlers[eventType], id)
			if len(d.handlers[eventType]) == 0 {
				delete(d.handlers, eventType)
			}
		})
	}
}

// RegisterAny adds h for every event type. It runs after type-specific
// handlers.
func (d *Dispatcher) RegisterAny(h Handler) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.wildcard = append(d.wildcard, handlerEntry{id: id, fn: h})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.wildcard = removeEntry(d.wildcard, id)
		})
	}
}

// HandlerCount returns the number of handlers registered for eventType.
func (d *Dispatcher) HandlerCount(eventType models.EventType) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[eventType])
}

func removeEntry(entries []handlerEntry, id uint64) []handlerEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

// Dispatch canonicalizes msg received on namespace and delivers it. Frames
// that cannot be canonicalized are logged and dropped; the error is
// returned for callers that care. Handlers must not call Dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, namespace string, msg models.WireMessage) error {
	ev, err := d.Canonicalize(msg)
	if err != nil {
		reason := "invalid_payload"
		if errors.Is(err, ErrUnknownEventType) {
			reason = "unknown_type"
		}
		d.log.Warn().Err(err).
			Str("namespace", logging.DisplayNamespace(namespace)).
			Str("type", msg.Type).
			Msg("Dropping inbound frame")
		metrics.RecordFrameDropped(namespace, reason)
		return err
	}
	ev.Namespace = namespace

	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	d.mu.RLock()
	typed := append([]handlerEntry(nil), d.handlers[ev.Type]...)
	all := append([]handlerEntry(nil), d.wildcard...)
	d.mu.RUnlock()

	start := time.Now()
	for _, h := range typed {
		d.invoke(ctx, h.fn, ev)
	}
	for _, h := range all {
		d.invoke(ctx, h.fn, ev)
	}
	metrics.RecordDispatch(string(ev.Type), time.Since(start))
	return nil
}

func (d *Dispatcher) invoke(ctx context.Context, h Handler, ev *models.CanonicalEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("event_type", string(ev.Type)).
				Msg("Event handler panicked")
			metrics.RecordHandlerFailure(string(ev.Type))
		}
	}()
	if err := h(ctx, ev); err != nil {
		d.log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("Event handler failed")
		metrics.RecordHandlerFailure(string(ev.Type))
	}
}

// canonicalEnvelope is the data of a real_time_event frame. Older servers
// put channel fields at the top level instead of in channelHint.
type canonicalEnvelope struct {
	Type           models.EventType    `json:"type"`
	Timestamp      string              `json:"timestamp"`
	ChannelHint    *models.ChannelHint `json:"channelHint"`
	Data           json.RawMessage     `json:"data"`
	UserID         string              `json:"userId"`
	ConversationID string              `json:"conversationId"`
	MeetingID      string              `json:"meetingId"`
}

// Canonicalize converts a wire frame into a validated CanonicalEvent.
// Heartbeats are not events and yield ErrUnknownEventType.
func (d *Dispatcher) Canonicalize(msg models.WireMessage) (*models.CanonicalEvent, error) {
	if msg.Type == models.TypeRealTimeEvent {
		return d.canonicalizePush(msg)
	}

	r, ok := d.table.byWire[msg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, msg.Type)
	}
	payload, hint, err := r.decode(msg.Data)
	if err != nil {
		return nil, err
	}
	ev := &models.CanonicalEvent{
		Type:      r.event,
		Timestamp: d.timestamp(msg.Timestamp, ""),
		Data:      msg.Data,
		Payload:   payload,
	}
	if !hint.IsZero() {
		ev.ChannelHint = &hint
	}
	return ev, nil
}

func (d *Dispatcher) canonicalizePush(msg models.WireMessage) (*models.CanonicalEvent, error) {
	var env canonicalEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		return nil, fmt.Errorf("%w: real_time_event: %w", ErrInvalidPayload, err)
	}
	r, ok := d.table.byEvent[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: real_time_event %q", ErrUnknownEventType, env.Type)
	}
	payload, derived, err := r.decode(env.Data)
	if err != nil {
		return nil, err
	}

	hint := models.ChannelHint{}
	if env.ChannelHint != nil {
		hint = *env.ChannelHint
	}
	mergeHint(&hint, models.ChannelHint{
		UserID:         env.UserID,
		ConversationID: env.ConversationID,
		MeetingID:      env.MeetingID,
	})
	if hint.IsZero() {
		hint = derived
	}

	ev := &models.CanonicalEvent{
		Type:      env.Type,
		Timestamp: d.timestamp(env.Timestamp, msg.Timestamp),
		Data:      env.Data,
		Payload:   payload,
	}
	if !hint.IsZero() {
		ev.ChannelHint = &hint
	}
	return ev, nil
}

// mergeHint fills empty fields of dst from src.
func mergeHint(dst *models.ChannelHint, src models.ChannelHint) {
	if dst.UserID == "" {
		dst.UserID = src.UserID
	}
	if dst.ConversationID == "" {
		dst.ConversationID = src.ConversationID
	}
	if dst.MeetingID == "" {
		dst.MeetingID = src.MeetingID
	}
}

func (d *Dispatcher) timestamp(candidates ...string) string {
	for _, ts := range candidates {
		if ts != "" {
			return ts
		}
	}
	return models.FormatTimestamp(d.now())
}
