package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance/internal/apperr"
	"attendance/internal/attendance"
	"attendance/internal/queue"
	"attendance/internal/spreadsheet"
)

// ---------- Upload ----------

// Upload stores the multipart "file" field as the project's spreadsheet and
// returns its parsed columns. The file is kept even when parsing fails.
func (h *Handler) Upload(c *gin.Context) {
	projectID := c.Param("projectId")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	if err := h.sheets.Save(c.Request.Context(), projectID, file); err != nil {
		h.fail(c, err)
		return
	}
	h.publish(c, queue.UploadStored, projectID, "")

	table, err := h.sheets.Parse(projectID)
	if err != nil {
		h.metrics.RecordUpload(false)
		h.logger.Warnf("parse upload for project %s: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.metrics.RecordUpload(true)
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"data":    table.ColumnValues(),
		"columns": table.Columns,
	})
}

// ---------- Attendance ----------

type saveRequest struct {
	Title   string            `json:"title"`
	Columns []string          `json:"columns"`
	Rows    []spreadsheet.Row `json:"rows"`
	EntryID string            `json:"entryId"`
}

type editRequest struct {
	Title   string            `json:"title"`
	Columns []string          `json:"columns"`
	Rows    []spreadsheet.Row `json:"rows"`
}

func (h *Handler) ListAttendance(c *gin.Context) {
	entries, err := h.attendance.List(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// SaveAttendance updates the entry named by entryId or creates a new one
// from the uploaded spreadsheet.
func (h *Handler) SaveAttendance(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	projectID := c.Param("projectId")
	entry, status, err := h.attendance.Upsert(c.Request.Context(), projectID, attendance.UpsertInput{
		Title:   req.Title,
		Columns: req.Columns,
		Rows:    req.Rows,
		EntryID: req.EntryID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.metrics.RecordEntry(status)
	eventType := queue.AttendanceSaved
	if status == attendance.StatusUpdated {
		eventType = queue.AttendanceUpdated
	}
	h.publish(c, eventType, projectID, entry.ID)
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// EditAttendance replaces an existing entry wholesale.
func (h *Handler) EditAttendance(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("Missing title, columns or rows"))
		return
	}

	projectID, entryID := c.Param("projectId"), c.Param("entryId")
	if _, err := h.attendance.Replace(c.Request.Context(), projectID, entryID, req.Title, req.Columns, req.Rows); err != nil {
		h.fail(c, err)
		return
	}

	h.metrics.RecordEntry(attendance.StatusUpdated)
	h.publish(c, queue.AttendanceUpdated, projectID, entryID)
	c.JSON(http.StatusOK, gin.H{"status": attendance.StatusUpdated})
}

// DeleteAttendance removes an entry; unknown ids succeed.
func (h *Handler) DeleteAttendance(c *gin.Context) {
	projectID, entryID := c.Param("projectId"), c.Param("entryId")
	removed, err := h.attendance.Delete(c.Request.Context(), projectID, entryID)
	if err != nil {
		h.fail(c, err)
		return
	}

	if removed {
		h.metrics.RecordEntry(attendance.StatusDeleted)
		h.publish(c, queue.AttendanceDeleted, projectID, entryID)
	}
	c.JSON(http.StatusOK, gin.H{"status": attendance.StatusDeleted})
}
