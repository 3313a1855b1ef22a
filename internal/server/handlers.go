package server

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wpietrzak/kadrio/internal/chat"
	"github.com/wpietrzak/kadrio/internal/sanitize"
	"github.com/wpietrzak/kadrio/internal/store"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": message, "code": code})
}

// respondInternal hides error details in production.
func (s *handlers) respondInternal(c *gin.Context, err error) {
	log.Printf("server: internal error: %v", err)
	body := gin.H{
		"error": "Wystąpił błąd serwera. Spróbuj ponownie później.",
		"code":  "INTERNAL_ERROR",
	}
	if !s.production {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

func respondValidation(c *gin.Context, err error) {
	var verr *sanitize.ValidationError
	if errors.As(err, &verr) {
		respondError(c, http.StatusBadRequest, verr.Code, verr.Message)
		return
	}
	respondError(c, http.StatusBadRequest, sanitize.CodeInvalidMessage, err.Error())
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit = defaultPageLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// ---------------------------------------------------------------------------
// Chat
// ---------------------------------------------------------------------------

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

func (s *handlers) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, sanitize.CodeInvalidMessage,
			"message is required and must be a non-empty string")
		return
	}

	message := sanitize.Clean(req.Message)
	if err := sanitize.ValidateMessage(message); err != nil {
		respondValidation(c, err)
		return
	}
	sessionID := sanitize.Clean(req.SessionID)
	if err := sanitize.ValidateSessionID(sessionID); err != nil {
		respondValidation(c, err)
		return
	}

	reply := s.orchestrator.HandleMessage(c.Request.Context(), sessionID, message)

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"response":     reply.Response,
		"sessionId":    reply.SessionID,
		"turnId":       reply.TurnID,
		"responseTime": reply.ResponseTimeMs,
		"source":       reply.Source,
		"timestamp":    reply.Timestamp.UTC().Format(time.RFC3339),
	})
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (s *handlers) handleListSessions(c *gin.Context) {
	limit, offset := pageParams(c)

	page, err := s.store.ListSessions(c.Request.Context(), limit, offset)
	if err != nil {
		// Reads degrade to an empty page instead of failing the client.
		log.Printf("server: list sessions: %v", err)
	}

	sessions := make([]gin.H, 0, len(page.Sessions))
	for _, sess := range page.Sessions {
		sessions = append(sessions, gin.H{
			"sessionId":          sess.SessionID,
			"name":               sess.Name,
			"messageCount":       sess.MessageCount,
			"totalTokenEstimate": sess.TotalTokenEstimate,
			"createdAt":          sess.CreatedAt.UTC().Format(time.RFC3339),
			"lastActivityAt":     sess.LastActivityAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"total":    page.Total,
		"hasMore":  page.HasMore,
	})
}

type createSessionRequest struct {
	SessionName string `json:"sessionName"`
}

func (s *handlers) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	_ = c.ShouldBindJSON(&req)

	name := sanitize.Clean(req.SessionName)
	if len([]rune(name)) > 100 {
		respondError(c, http.StatusBadRequest, "INVALID_SESSION_NAME", "session name too long (max 100 characters)")
		return
	}
	if name == "" {
		name = store.DefaultSessionName(time.Now())
	}

	sessionID := chat.NewSessionID()
	if err := s.store.CreateSessionIfAbsent(c.Request.Context(), sessionID, name); err != nil {
		s.respondInternal(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"sessionId": sessionID,
		"name":      name,
	})
}

func (s *handlers) handleGetSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := sanitize.ValidateSessionID(sessionID); err != nil {
		respondValidation(c, err)
		return
	}

	info, err := s.store.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		s.respondInternal(c, err)
		return
	}
	if info == nil {
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found")
		return
	}

	body := gin.H{
		"sessionId":          info.SessionID,
		"name":               info.Name,
		"isActive":           info.IsActive,
		"messageCount":       info.MessageCount,
		"actualMessageCount": info.ActualMessageCount,
		"totalTokenEstimate": info.TotalTokenEstimate,
		"createdAt":          info.CreatedAt.UTC().Format(time.RFC3339),
		"lastActivityAt":     info.LastActivityAt.UTC().Format(time.RFC3339),
	}
	if info.LastMessageAt != nil {
		body["lastMessageAt"] = info.LastMessageAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, body)
}

type renameSessionRequest struct {
	Name string `json:"name"`
}

func (s *handlers) handleRenameSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := sanitize.ValidateSessionID(sessionID); err != nil {
		respondValidation(c, err)
		return
	}

	var req renameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_SESSION_NAME", "session name is required")
		return
	}
	name := sanitize.Clean(req.Name)
	if name == "" {
		respondError(c, http.StatusBadRequest, "INVALID_SESSION_NAME", "session name is required")
		return
	}
	if len([]rune(name)) > 100 {
		respondError(c, http.StatusBadRequest, "SESSION_NAME_TOO_LONG", "session name too long (max 100 characters)")
		return
	}

	ok, err := s.store.RenameSession(c.Request.Context(), sessionID, name)
	if err != nil {
		s.respondInternal(c, err)
		return
	}
	if !ok {
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "name": name})
}

func (s *handlers) handleDeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := sanitize.ValidateSessionID(sessionID); err != nil {
		respondValidation(c, err)
		return
	}

	ok, err := s.store.DeactivateSession(c.Request.Context(), sessionID)
	if err != nil {
		s.respondInternal(c, err)
		return
	}
	if !ok {
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessionId": sessionID})
}

func (s *handlers) handleHistory(c *gin.Context) {
	sessionID := c.Param("id")
	if err := sanitize.ValidateSessionID(sessionID); err != nil {
		respondValidation(c, err)
		return
	}
	limit, offset := pageParams(c)

	page, err := s.store.GetHistory(c.Request.Context(), sessionID, limit, offset)
	if err != nil {
		log.Printf("server: history for %s: %v", sessionID, err)
	}

	turns := make([]gin.H, 0, len(page.Turns))
	for _, turn := range page.Turns {
		turns = append(turns, gin.H{
			"id":                turn.ID,
			"userMessage":       turn.UserMessage,
			"assistantResponse": turn.AssistantResponse,
			"responseTimeMs":    turn.ResponseTimeMs,
			"createdAt":         turn.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"sessionId": sessionID,
		"history":   turns,
		"total":     page.Total,
		"hasMore":   page.HasMore,
	})
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

func (s *handlers) handleGetMode(c *gin.Context) {
	snap := s.knowledge.Current()
	c.JSON(http.StatusOK, gin.H{
		"testMode":  snap.TestMode,
		"source":    snap.SourceName,
		"sizeBytes": snap.SizeBytes,
	})
}

type setModeRequest struct {
	TestMode *bool `json:"testMode"`
}

func (s *handlers) handleSetMode(c *gin.Context) {
	var req setModeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TestMode == nil {
		respondError(c, http.StatusBadRequest, "INVALID_MODE", "testMode boolean is required")
		return
	}

	snap, err := s.knowledge.SetMode(*req.TestMode)
	body := gin.H{
		"testMode":  snap.TestMode,
		"source":    snap.SourceName,
		"sizeBytes": snap.SizeBytes,
	}
	if err != nil {
		// The store already fell back to the builtin document; the
		// switch succeeded, the file read did not.
		log.Printf("server: switch knowledge mode: %v", err)
		body["warning"] = "knowledge document could not be read, using builtin fallback"
	}
	c.JSON(http.StatusOK, body)
}

// ---------------------------------------------------------------------------
// Operational
// ---------------------------------------------------------------------------

func (s *handlers) handleRoot(c *gin.Context) {
	if s.staticDir != "" {
		index := filepath.Join(s.staticDir, "index.html")
		if _, err := os.Stat(index); err == nil {
			c.File(index)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"name":          "Kadrio HR Assistant API",
		"version":       s.version,
		"uptimeSeconds": s.metrics.Snapshot().UptimeSeconds,
		"endpoints": gin.H{
			"chat":     "POST /api/chat",
			"sessions": "GET /api/sessions",
			"health":   "GET /health",
			"metrics":  "GET /metrics",
		},
	})
}

func (s *handlers) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"env":       s.env,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *handlers) handleMetrics(c *gin.Context) {
	snap := s.metrics.Snapshot()

	body := gin.H{
		"uptimeSeconds":     snap.UptimeSeconds,
		"totalRequests":     snap.TotalRequests,
		"totalErrors":       snap.TotalErrors,
		"avgResponseTimeMs": snap.AvgResponseTimeMs,
		"requestsPerMinute": snap.RequestsPerMinute,
	}
	if s.limiter != nil {
		stats := s.limiter.Stats()
		body["rateLimiter"] = gin.H{
			"activeClients":        stats.ActiveClients,
			"maxRequestsPerWindow": stats.MaxRequestsPerWindow,
			"windowMs":             stats.Window.Milliseconds(),
		}
	}
	if sessions, turns, err := s.store.Counts(c.Request.Context()); err == nil {
		body["store"] = gin.H{
			"activeSessions": sessions,
			"totalTurns":     turns,
		}
	}
	c.JSON(http.StatusOK, body)
}
