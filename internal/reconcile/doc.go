// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

/*
Package reconcile applies canonical real-time events to the client query
cache.

Each cache-affecting event type has exactly one reducer:

	message_sent            prepend to messages:conversation:<id>, stale conversations:list
	message_updated         replace by id, drop if not cached
	message_deleted         remove by id
	message_read            set isRead
	message_reaction        add or remove (userId, emoji)
	notification_created    prepend, unread-count +1 if unread
	notification_updated    replace by id, move unread-count on read transitions
	notification_deleted    remove, unread-count -1 (floored at 0) if it was unread
	notification_read_all   mark every entry read, unread-count = 0
	meeting_started/ended   set status on meetings:list, stale it if the meeting is missing
	meeting_participant_*   set membership in meetings:participants:<id>
	worksheet_assigned      prepend, pending-count +1 unless completed
	worksheet_completed     replace by id, pending-count -1 on transition
	worksheet_updated       replace by id, move pending-count on transition

A reducer reads the previous snapshot and stages its writes in a single
cache.Batch, so list and counter updates become visible together. Reducers
key on entity id and are idempotent.

Inserts may also surface a toast or a system notification through the
Notifier. Surfacing requires the Include predicate to accept the event and
the event not to originate from the current user. System notifications also
require permission to have been granted; permission is requested only by
Mount.

# Outcomes

Apply returns one of:

  - applied: the cache changed
  - noop: the event was already reflected (a redelivery)
  - dropped: the entity is not cached; nothing changed, though the list
    may be marked stale
  - skipped: the event is addressed to another user
  - ignored: no reducer exists for the event type
  - error: the payload did not match the event type

Outcomes are the label of the reconcile metrics and the input to
surfacing: only applied events may toast, so a redelivered or uncached
event never interrupts the user twice.

# Surfacing

Toast style and duration follow the notification priority:

	urgent    error,   10s
	high      warning, 5s
	others    info,    5s

A new notification also raises a system notification when EnableSystem is
set and permission is granted; urgent ones set RequireInteraction. Toasts
are suppressed when the current user caused the event (the meeting host,
the joining participant, the assigning therapist). Mount is the only place
that asks for permission, and only while it is still undecided.

# Concurrency

Apply may be called from any goroutine. The Dispatcher serializes
delivery, and each reducer's read-modify-write runs inside one cache batch,
so two reducers never interleave on the same keys. Reducers never block on
I/O; Notifier calls happen after the batch has committed.

# Usage Example

	rec := reconcile.New(queryCache, reconcile.Options{
	    UserID:       "u1",
	    EnableToasts: true,
	    EnableSystem: true,
	    Notifier:     ui,
	    Permission:   reconcile.StaticPermission(reconcile.PermissionGranted),
	})
	rec.Mount(ctx)
	detach := rec.Attach(hub.Dispatcher())
	defer detach()

Tests call Apply directly with events built by Dispatcher.Canonicalize.
*/
package reconcile
