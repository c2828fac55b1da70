// Package httpapi serves the assistant over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/muhammadolammi/jobmatchassistant/internal/assistant"
	"github.com/muhammadolammi/jobmatchassistant/internal/checkpoint"
	"github.com/muhammadolammi/jobmatchassistant/internal/memory"
)

// UserHeader carries the caller's user id on every session route.
const UserHeader = "X-User-ID"

// Assistant is the part of assistant.Assistant the API depends on.
type Assistant interface {
	StartSession(ctx context.Context, userID string) (string, error)
	Send(ctx context.Context, userID, sessionID, text string) (assistant.Reply, error)
	History(ctx context.Context, userID, sessionID string) ([]memory.Message, error)
	EndSession(ctx context.Context, userID, sessionID string) error
	AttachResume(ctx context.Context, userID, sessionID string, r checkpoint.Resume) error
	Resumes(ctx context.Context, userID, sessionID string) ([]checkpoint.Resume, error)
}

type Handler struct {
	assistant Assistant
}

func NewHandler(a Assistant) *Handler {
	return &Handler{assistant: a}
}

// NewServer returns an echo server with the API routes and the usual
// middleware.
func NewServer(a Assistant) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	NewHandler(a).RegisterRoutes(e)
	return e
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/v1/sessions", requireUser)
	g.POST("", h.CreateSession)
	g.POST("/:session_id/messages", h.SendMessage)
	g.GET("/:session_id/messages", h.GetMessages)
	g.DELETE("/:session_id", h.DeleteSession)
	g.POST("/:session_id/resumes", h.AttachResume)
	g.GET("/:session_id/resumes", h.ListResumes)

	e.GET("/health", h.Health)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

type errorResponse struct {
	Error string `json:"error"`
}

const userKey = "user_id"

func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(UserHeader))
		if id == "" {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "missing " + UserHeader + " header"})
		}
		c.Set(userKey, id)
		return next(c)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userKey).(string)
	return id
}

// fail maps assistant errors onto status codes.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, assistant.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "session not found"})
	case errors.Is(err, assistant.ErrEmptyMessage):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// CreateSession starts a conversation.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	user := userID(c)
	id, err := h.assistant.StartSession(c.Request().Context(), user)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"session_id": id})
}

type sendRequest struct {
	Message string `json:"message"`
}

// SendMessage runs one turn.
// POST /v1/sessions/:session_id/messages
func (h *Handler) SendMessage(c echo.Context) error {
	user := userID(c)
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	reply, err := h.assistant.Send(c.Request().Context(), user, c.Param("session_id"), req.Message)
	if err != nil {
		return fail(c, err)
	}
	if reply.ToolsUsed == nil {
		reply.ToolsUsed = []string{}
	}
	return c.JSON(http.StatusOK, reply)
}

// GetMessages returns the windowed history.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetMessages(c echo.Context) error {
	user := userID(c)
	msgs, err := h.assistant.History(c.Request().Context(), user, c.Param("session_id"))
	if err != nil {
		return fail(c, err)
	}
	if msgs == nil {
		msgs = []memory.Message{}
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": msgs})
}

// DeleteSession ends a conversation.
// DELETE /v1/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	user := userID(c)
	if err := h.assistant.EndSession(c.Request().Context(), user, c.Param("session_id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type resumeRequest struct {
	Filename  string `json:"filename"`
	Mime      string `json:"mime"`
	ObjectKey string `json:"object_key"`
}

type resumeResponse struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Mime      string `json:"mime"`
	ObjectKey string `json:"object_key"`
}

// AttachResume registers a resume already uploaded to object storage.
// POST /v1/sessions/:session_id/resumes
func (h *Handler) AttachResume(c echo.Context) error {
	user := userID(c)
	var req resumeRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.ObjectKey) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "object_key is required"})
	}
	err := h.assistant.AttachResume(c.Request().Context(), user, c.Param("session_id"), checkpoint.Resume{
		Filename:  req.Filename,
		Mime:      req.Mime,
		ObjectKey: req.ObjectKey,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

// ListResumes returns the resumes attached to a session.
// GET /v1/sessions/:session_id/resumes
func (h *Handler) ListResumes(c echo.Context) error {
	user := userID(c)
	resumes, err := h.assistant.Resumes(c.Request().Context(), user, c.Param("session_id"))
	if err != nil {
		return fail(c, err)
	}
	out := make([]resumeResponse, 0, len(resumes))
	for _, r := range resumes {
		out = append(out, resumeResponse{ID: r.ID, Filename: r.Filename, Mime: r.Mime, ObjectKey: r.ObjectKey})
	}
	return c.JSON(http.StatusOK, map[string]any{"resumes": out})
}
