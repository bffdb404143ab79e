package app

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyellow/unibot-go/internal/bot"
	"github.com/garyellow/unibot-go/internal/buildinfo"
	"github.com/garyellow/unibot-go/internal/config"
	domerrors "github.com/garyellow/unibot-go/internal/errors"
	"github.com/garyellow/unibot-go/internal/sentry"
)

const maxSessionIDLength = 128

type chatRequest struct {
	SessionID string  `json:"session_id"`
	Message   *string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	bot.Reply
}

type feedbackRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Feedback  string `json:"feedback"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) features() map[string]bool {
	return map[string]bool{
		"line_webhook":   a.webhookHandler != nil,
		"remote_encoder": a.cfg.Encoder.Kind != config.EncoderLocal,
		"sentry":         sentry.IsEnabled(),
		"metrics_auth":   a.cfg.MetricsPassword != "",
	}
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheckTimeout)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	stats := a.bot.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"knowledge": gin.H{
			"qa_entries":   stats.QAEntries,
			"courses":      stats.Courses,
			"indexed_rows": stats.IndexedRows,
		},
		"sessions":        stats.Sessions,
		"encoder":         stats.Encoder,
		"query_log_sinks": stats.QueryLogSinks,
		"features":        a.features(),
	})
}

func (a *Application) version(c *gin.Context) {
	c.JSON(http.StatusOK, buildinfo.Get())
}

// allow applies the per-client limit and writes the 429 when it trips.
func (a *Application) allow(c *gin.Context, sessionID string) bool {
	key := sessionID
	if key == "" {
		key = "ip:" + c.ClientIP()
	}
	d := a.chatLimiter.Check(key)
	if d.Allowed {
		return true
	}
	c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
	abortWithError(c, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

func validSessionID(id string) bool {
	return len(id) <= maxSessionIDLength && utf8.ValidString(id)
}

func (a *Application) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == nil {
		abortWithError(c, http.StatusBadRequest, "message is required")
		return
	}
	if utf8.RuneCountInString(*req.Message) > a.cfg.Retrieval.MaxMessageLength {
		abortWithError(c, http.StatusBadRequest, "message is too long")
		return
	}
	if !validSessionID(req.SessionID) {
		abortWithError(c, http.StatusBadRequest, "invalid session_id")
		return
	}
	if !a.allow(c, req.SessionID) {
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	reply := a.bot.Reply(c.Request.Context(), *req.Message, req.SessionID)
	c.JSON(http.StatusOK, chatResponse{SessionID: req.SessionID, Reply: reply})
}

func (a *Application) resetSession(c *gin.Context) {
	id := c.Param("id")
	if id == "" || !validSessionID(id) {
		abortWithError(c, http.StatusBadRequest, "invalid session id")
		return
	}
	if !a.allow(c, id) {
		return
	}
	a.bot.Reset(id)
	c.Status(http.StatusNoContent)
}

func (a *Application) feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !validSessionID(req.SessionID) {
		abortWithError(c, http.StatusBadRequest, "invalid session_id")
		return
	}
	if !a.allow(c, req.SessionID) {
		return
	}

	err := a.bot.Feedback(c.Request.Context(), req.SessionID, req.Query, req.Feedback)
	var verr *domerrors.ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	case errors.As(err, &verr):
		abortWithError(c, http.StatusBadRequest, verr.Field+" "+verr.Message)
	default:
		a.logger.WithError(err).Warn("Feedback not recorded")
		sentry.CaptureException(c.Request.Context(), err)
		abortWithError(c, http.StatusServiceUnavailable, domerrors.UserMessage(err, "feedback could not be recorded"))
	}
}
