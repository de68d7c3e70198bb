package handlers

import (
	"encoding/xml"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wheely/go-dealer-assist/internal/repo"
	"github.com/wheely/go-dealer-assist/internal/services"
)

// twimlResponse is the Twilio Messaging reply document.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// WhatsApp handles the Twilio webhook for inbound WhatsApp messages.
//
// POST /whatsapp (application/x-www-form-urlencoded: Body, From, MessageSid)
//
// Twilio redelivers webhooks until it sees a 2xx, so the handler always
// answers 200 with TwiML: pipeline failures reply with the fixed fallback
// text, and a redelivered MessageSid is served the stored reply.
func (h *Handler) WhatsApp(c *gin.Context) {
	body := strings.TrimSpace(c.PostForm("Body"))
	from := strings.TrimSpace(c.PostForm("From"))
	sid := strings.TrimSpace(c.PostForm("MessageSid"))

	ctx := c.Request.Context()
	sess, err := h.Auth.Identify(ctx, h.WebhookUser)
	if err != nil {
		log.Error().Err(err).Str("user", h.WebhookUser).Msg("webhook user lookup failed")
		writeTwiML(c, services.MsgFallback)
		return
	}

	if sid != "" {
		if rec, err := h.Receipts.GetWebhookReceipt(ctx, h.DB, sess.UserID, sid, time.Now().UTC()); err == nil {
			writeTwiML(c, rec.Response)
			return
		}
	}

	// Conversation memory is keyed by the sender's phone number so each
	// WhatsApp contact gets their own thread.
	sessionID := from
	if sessionID == "" {
		sessionID = "whatsapp"
	}

	answer, err := h.Assistant.Answer(ctx, sess, sessionID, body)
	if err != nil {
		answer = services.MsgFallback
	}

	if sid != "" {
		if _, err := h.Receipts.CreateWebhookReceipt(ctx, h.DB, sess.UserID, sid, answer, http.StatusOK, h.ReceiptTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			log.Warn().Err(err).Str("sid", sid).Msg("webhook receipt store failed")
		}
	}
	writeTwiML(c, answer)
}

// writeTwiML renders a single-message TwiML document as Twilio expects it.
func writeTwiML(c *gin.Context, message string) {
	out, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		c.String(http.StatusInternalServerError, "twiml encode failed")
		return
	}
	c.Data(http.StatusOK, "text/xml; charset=utf-8", append([]byte(xml.Header), out...))
}
