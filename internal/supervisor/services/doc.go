// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

/*
Package services adapts telesync components to suture.Service.

NamespaceService holds a hub session for one namespace while it runs and
releases it on shutdown. With RestartOnExhausted it turns the connection's
terminal error state into a service failure, so the supervisor's backoff
decides when a fresh connection is attempted.

HTTPServerService converts the ListenAndServe/Shutdown pair of the status
server into Serve(ctx).

Return values follow suture:

	nil         -> stopped cleanly, not restarted
	ctx.Err()   -> normal shutdown
	other error -> restarted after backoff
*/
package services
