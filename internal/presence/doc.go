// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

// Package presence tracks who is typing and who is online.
//
// The state is ephemeral and kept out of the query cache. A Tracker runs as
// a supervised service whose sweep expires stale typing indicators once per
// second.
package presence
