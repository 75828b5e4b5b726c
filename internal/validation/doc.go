// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

// Package validation checks decoded wire payloads using go-playground/validator v10.
//
// Every inbound event payload is decoded into its typed struct and passed
// through Validate before any handler sees it. Field names in errors are
// the JSON names used on the wire, so a log line can be matched against
// the frame that produced it.
//
// Beyond the built-in tags the validator registers:
//
//	channel   subscription channel name of the form <kind>:<id>
//
// Usage:
//
//	var n models.Notification
//	if err := validation.Validate("notification_created", &n); err != nil {
//	    var pe *validation.PayloadError
//	    errors.As(err, &pe) // pe.Fields() lists offending fields
//	}
package validation
