// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

/*
Package config loads Telesync configuration with koanf.

# Precedence

  1. Built-in defaults (defaultConfig)
  2. YAML file: --config flag, TELESYNC_CONFIG, or the first of DefaultConfigPaths
  3. Environment variables

# Environment Variables

Generic form: TELESYNC_<SECTION>_<KEY>, for example

  - TELESYNC_SERVER_URL=wss://api.example.com
  - TELESYNC_REALTIME_MAX_RECONNECT_ATTEMPTS=5
  - TELESYNC_REALTIME_RECONNECT_INTERVAL=3s
  - TELESYNC_SESSION_USER_ID=u1

Legacy names from the web deployment are also honoured: WS_URL,
NEXT_PUBLIC_WS_URL, LOG_LEVEL, LOG_FORMAT.

# Example File

	server:
	  url: wss://api.example.com
	realtime:
	  reconnect_strategy: exponential
	  max_reconnect_interval: 30s
	namespaces:
	  messaging: /messaging
	  meetings: /meetings
	session:
	  user_id: u1
	  token_file: /run/secrets/telesync-token
*/
package config
