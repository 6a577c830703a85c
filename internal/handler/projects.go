package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance/internal/queue"
)

type createProjectRequest struct {
	Name        *string `json:"name" binding:"required"`
	Description *string `json:"description" binding:"required"`
}

func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// CreateProject requires both fields to be present; an empty description
// is accepted.
func (h *Handler) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name or description"})
		return
	}

	p, err := h.projects.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.RecordProjectCreated()
	h.publish(c, queue.ProjectCreated, p.ID, "")
	c.JSON(http.StatusOK, p)
}
