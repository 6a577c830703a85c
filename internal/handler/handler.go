package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"attendance/internal/apperr"
	"attendance/internal/attendance"
	"attendance/internal/logging"
	"attendance/internal/metrics"
	"attendance/internal/project"
	"attendance/internal/queue"
	"attendance/internal/spreadsheet"
	"attendance/internal/store"
)

// Options wires the handler's dependencies. Queue and Redis are optional.
type Options struct {
	Projects    *project.Repository
	Attendance  *attendance.Service
	Sheets      *spreadsheet.Store
	Paths       store.Paths
	Queue       queue.Queue
	Redis       *store.Redis
	Metrics     *metrics.Metrics
	Logger      logrus.FieldLogger
	MaxUploadMB int64
}

type Handler struct {
	projects   *project.Repository
	attendance *attendance.Service
	sheets     *spreadsheet.Store
	paths      store.Paths
	queue      queue.Queue
	redis      *store.Redis
	metrics    *metrics.Metrics
	logger     logrus.FieldLogger
	maxUpload  int64
}

func New(opts Options) *Handler {
	q := opts.Queue
	if q == nil {
		q = queue.Nop{}
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewMock()
	}
	maxUpload := opts.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 32
	}
	return &Handler{
		projects:   opts.Projects,
		attendance: opts.Attendance,
		sheets:     opts.Sheets,
		paths:      opts.Paths,
		queue:      q,
		redis:      opts.Redis,
		metrics:    m,
		logger:     opts.Logger,
		maxUpload:  maxUpload << 20,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	r.GET("/projects", h.ListProjects)
	r.POST("/projects", h.CreateProject)

	r.POST("/upload/:projectId", requireIDs("projectId"), h.Upload)

	att := r.Group("/attendance/:projectId", requireIDs("projectId"))
	{
		att.GET("", h.ListAttendance)
		att.POST("", h.SaveAttendance)
		att.PUT("/:entryId", requireIDs("entryId"), h.EditAttendance)
		att.DELETE("/:entryId", requireIDs("entryId"), h.DeleteAttendance)
	}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	storageOK := h.paths.Writable()
	body := gin.H{"status": "ok", "storage": storageOK}
	healthy := storageOK
	if h.redis != nil {
		redisOK := h.redis.Healthy(c.Request.Context())
		body["redis"] = redisOK
		healthy = healthy && redisOK
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

// ---------- helpers ----------

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// requireIDs rejects path ids that are not safe file name tokens.
func requireIDs(params ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range params {
			if !idPattern.MatchString(c.Param(p)) {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + p})
				return
			}
		}
		c.Next()
	}
}

// fail writes err with the status of its kind. Internal errors are logged
// in full and reach the client only as a generic message.
func (h *Handler) fail(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		logging.LogError(h.logger, c.Request.Method+" "+c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
}

// publish emits a change event. Failures are logged, never returned.
func (h *Handler) publish(c *gin.Context, eventType, projectID, entryID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
	defer cancel()

	msg := queue.Message{Type: eventType, ProjectID: projectID, EntryID: entryID, At: time.Now().UTC()}
	if err := h.queue.Publish(ctx, msg); err != nil {
		h.logger.Warnf("queue publish %s failed: %v", eventType, err)
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
