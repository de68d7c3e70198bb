package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wheely/go-dealer-assist/internal/http/middleware"
	"github.com/wheely/go-dealer-assist/internal/repo"
	"github.com/wheely/go-dealer-assist/internal/services"
)

// queryRequest is the POST /query payload.
type queryRequest struct {
	Username  string `json:"username"`
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// Query answers a natural-language question for an identified user.
//
// POST /api/v1/query
//
//	200 {"success": true, "answer": "...", "session_id": "..."}
//	400 bad_request     malformed body, empty or oversized query
//	401 unauthorized    unknown username
//
// A request carrying an Idempotency-Key that was already answered within the
// receipt TTL is served the stored answer without re-running the pipeline.
func (h *Handler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username is required")
		return
	}

	ctx := c.Request.Context()
	sess, err := h.Auth.Identify(ctx, req.Username)
	if err != nil {
		if errors.Is(err, services.ErrUnknownUser) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "unknown user")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "identity lookup failed")
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		// Per-user default so consecutive API calls share conversation memory.
		sessionID = sess.Username
	}

	if key, present := middleware.GetIdempotencyKey(c); present {
		if rec, err := h.Receipts.GetWebhookReceipt(ctx, h.DB, sess.UserID, key, time.Now().UTC()); err == nil {
			ok(c, rec.Status, gin.H{"success": true, "answer": rec.Response, "session_id": sessionID})
			return
		}
	}

	answer, err := h.Assistant.Answer(ctx, sess, sessionID, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyQuery):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query must not be empty")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query is too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, "failed to answer query")
		}
		return
	}

	if key, present := middleware.GetIdempotencyKey(c); present {
		if _, err := h.Receipts.CreateWebhookReceipt(ctx, h.DB, sess.UserID, key, answer, http.StatusOK, h.ReceiptTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			log.Warn().Err(err).Msg("idempotency receipt store failed")
		}
	}
	ok(c, http.StatusOK, gin.H{"success": true, "answer": answer, "session_id": sessionID})
}
