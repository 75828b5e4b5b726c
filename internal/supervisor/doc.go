// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

/*
Package supervisor runs telesync's long-lived services under suture v4.

	RootSupervisor ("telesync")
	├── "realtime-layer"
	│   └── NamespaceService (one per namespace held by the process)
	├── "presence-layer"
	│   └── presence.Tracker (typing sweeper)
	└── "api-layer"
	    └── HTTPServerService (status and metrics)

Crashed services restart with suture's backoff. Supervisor events are logged
through sutureslog into the zerolog pipeline via logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddRealtimeService(services.NewNamespaceService(hub, "/messaging", nil))
	tree.AddPresenceService(tracker)
	tree.AddAPIService(services.NewHTTPServerService(server, 5*time.Second))
	return tree.Serve(ctx)

# Error Handling

A service returning nil is not restarted. A service returning an error is
restarted after backoff. Returning ctx.Err() after cancellation is a normal
shutdown.
*/
package supervisor
