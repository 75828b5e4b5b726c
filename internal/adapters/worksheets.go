// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package adapters

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/tomtom215/telesync/internal/models"
)

// Worksheets is the adapter for the current user's worksheet stream.
type Worksheets struct {
	scope
	userID string
}

// NewWorksheets creates a closed Worksheets adapter for userID.
func NewWorksheets(hub Acquirer, namespace, userID string) *Worksheets {
	w := &Worksheets{userID: userID}
	w.bind(hub, namespace, "worksheets")
	return w
}

// Open subscribes to worksheets:<userId>.
func (w *Worksheets) Open(ctx context.Context) error {
	_, _, err := w.open(ctx, WorksheetChannel(w.userID))
	return err
}

// Close revokes the subscription.
func (w *Worksheets) Close() { w.close() }

// Submit hands in a worksheet with its responses.
func (w *Worksheets) Submit(worksheetID string, responses json.RawMessage) bool {
	return w.send(models.ActionSubmitWorksheet, models.SubmitWorksheetRequest{
		WorksheetID: worksheetID,
		Responses:   responses,
	})
}

// SaveProgress stores a draft without submitting.
func (w *Worksheets) SaveProgress(worksheetID string, progress json.RawMessage) bool {
	return w.send(models.ActionSaveWorksheetProgress, models.SaveWorksheetProgressRequest{
		WorksheetID: worksheetID,
		Progress:    progress,
	})
}
