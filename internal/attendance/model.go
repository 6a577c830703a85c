package attendance

import (
	"attendance/internal/spreadsheet"
	"attendance/internal/store"
)

// Entry is a titled selection of spreadsheet columns saved for a project.
type Entry struct {
	ID        string            `json:"_id"`
	Title     string            `json:"title"`
	Columns   []string          `json:"columns"`
	Timestamp store.Timestamp   `json:"timestamp"`
	Rows      []spreadsheet.Row `json:"rows"`
}

// Result statuses reported to clients.
const (
	StatusSaved   = "saved"
	StatusUpdated = "updated"
	StatusDeleted = "deleted"
)
