package project

import "attendance/internal/store"

// Project is one attendance tracking session.
type Project struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	LastEdited  store.Timestamp `json:"lastEdited"`
}
