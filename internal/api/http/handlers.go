package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/service"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/types"
)

// Version is reported by the root endpoint.
const Version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions  *terminal.Registry
	registry  *service.Registry
	startedAt time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(sessions *terminal.Registry, registry *service.Registry) *Handlers {
	return &Handlers{
		sessions:  sessions,
		registry:  registry,
		startedAt: time.Now(),
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/sessions", h.ListSessions)
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/:id", h.GetSession)
	r.POST("/sessions/:id/input", h.WriteInput)
	r.POST("/sessions/:id/resize", h.ResizeSession)
	r.DELETE("/sessions/:id", h.KillSession)

	r.GET("/services", h.ListServices)
	r.POST("/services/execute", h.ExecuteService)
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Shell      string            `json:"shell"`
	Args       []string          `json:"args"`
	WorkingDir string            `json:"working_dir"`
	Cwd        string            `json:"cwd"` // alias of working_dir
	Cols       uint16            `json:"cols"`
	Rows       uint16            `json:"rows"`
	Env        map[string]string `json:"env"`
}

// InputRequest is the body of POST /sessions/:id/input.
type InputRequest struct {
	Data *string `json:"data" binding:"required"`
}

// ResizeRequest is the body of POST /sessions/:id/resize.
type ResizeRequest struct {
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "ptyd",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"sessions":         h.sessions.Count(),
		"uptime_seconds":   int64(time.Since(h.startedAt).Seconds()),
		"service_registry": h.registry.Stats(),
	})
}

// ListSessions lists all live sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.sessions.List()

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// CreateSession spawns a shell on a new PTY
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	// An empty body selects every default.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	workingDir := req.WorkingDir
	if workingDir == "" {
		workingDir = req.Cwd
	}

	info, err := h.sessions.Create(c.Request.Context(), terminal.CreateOptions{
		Shell:      req.Shell,
		Args:       req.Args,
		WorkingDir: workingDir,
		Cols:       req.Cols,
		Rows:       req.Rows,
		Env:        req.Env,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

// GetSession describes one session
func (h *Handlers) GetSession(c *gin.Context) {
	info, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// WriteInput sends data to a session
func (h *Handlers) WriteInput(c *gin.Context) {
	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sessionID := c.Param("id")
	if err := h.sessions.Write(sessionID, []byte(*req.Data)); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
		"bytes":      len(*req.Data),
	})
}

// ResizeSession changes a session's geometry
func (h *Handlers) ResizeSession(c *gin.Context) {
	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sessionID := c.Param("id")
	if err := h.sessions.Resize(sessionID, req.Cols, req.Rows); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
		"cols":       req.Cols,
		"rows":       req.Rows,
	})
}

// KillSession terminates a session
func (h *Handlers) KillSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.sessions.Kill(sessionID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sessionID,
	})
}

// ListServices lists all available services
func (h *Handlers) ListServices(c *gin.Context) {
	var category *types.Category
	if categoryStr := c.Query("category"); categoryStr != "" {
		cat := types.Category(categoryStr)
		category = &cat
	}

	c.JSON(http.StatusOK, gin.H{
		"services": h.registry.List(category),
		"stats":    h.registry.Stats(),
	})
}

// ExecuteService executes a service tool
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	appCtx := &types.Context{
		ClientID:  fmt.Sprintf("http:%s", c.ClientIP()),
		RequestID: string(tracing.TraceIDFrom(c.Request.Context())),
	}
	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, appCtx)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
