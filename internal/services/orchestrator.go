// Package services – Assistant
//
// The conversational front door. Every user question, regardless of
// transport (web API or WhatsApp), flows through Assistant.Answer:
//
//  1. validate and entity-correct the text
//  2. for sales representatives, classify intent; order placement and stock
//     checks short-circuit into their transactional paths
//  3. otherwise run SQL generation and semantic retrieval concurrently,
//     merge both contexts, and synthesize the reply
//  4. record the turn in session memory and the durable conversation log
//
// The method absorbs failures: callers always receive text, worst case
// MsgFallback, and the audit trail records whatever was said.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/domain"
)

// MsgOrderMissingDetails asks the rep for the slots an order needs.
const MsgOrderMissingDetails = "To place an order, please provide the product, the dealer, and the quantity."

// AuditLog defines the durable conversation-log contract.
type AuditLog interface {
	AppendConversationLog(ctx context.Context, db *gorm.DB, userID int, dealerID *int, sessionID, userQuery, aiResponse, queryType string) (*domain.ConversationLog, error)
}

// Assistant orchestrates the full question-to-answer pipeline.
type Assistant struct {
	DB        *gorm.DB
	Cache     *EntityCache
	Memory    *Memory
	SQL       *SQLService
	Retrieval *RetrievalService
	Answers   *AnswerService
	Orders    *OrderService
	Oracle    Generator
	Audit     AuditLog

	// MaxQueryRunes caps accepted question length; zero means 2000.
	MaxQueryRunes int
}

// groundingWindow is how many recent turns ride along in the SQL prompt.
const groundingWindow = 3

const intentSystemPrompt = `You classify a sales representative's message for a tyre distribution assistant.
Reply with ONLY a JSON object, no prose:
{"intent": "place_order" | "check_stock" | "order_history" | "question" | "unknown",
 "product": "<product name or size code, or empty>",
 "dealer": "<dealer name, or empty>",
 "warehouse": "<warehouse location, or empty>",
 "quantity": <integer, 0 if unspecified>}
Use "place_order" only when the message asks to order or buy stock for a dealer.
Use "check_stock" when the message asks about availability of a product.
Use "order_history" when the message asks about past or recent orders.
Use "unknown" when the message is garbled or you cannot tell what the rep wants.
Everything else is "question".`

type intentResult struct {
	Intent    string `json:"intent"`
	Product   string `json:"product"`
	Dealer    string `json:"dealer"`
	Warehouse string `json:"warehouse"`
	Quantity  int    `json:"quantity"`
}

// Answer runs the pipeline and always returns displayable text.
func (a *Assistant) Answer(ctx context.Context, sess *domain.UserSession, sessionID, query string) (answer string, err error) {
	tr := otel.Tracer("services/Assistant")
	ctx, span := tr.Start(ctx, "Answer",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("user.role", sess.Role),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("assistant pipeline panicked")
			answer, err = MsgFallback, nil
		}
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	limit := a.MaxQueryRunes
	if limit <= 0 {
		limit = 2000
	}
	if utf8.RuneCountInString(query) > limit {
		return "", ErrTooLong
	}

	corrected := a.Cache.Correct(query)
	kind := "query"

	if sess.IsSalesRep() {
		if text, handled := a.handleRepIntent(ctx, sess, corrected); handled {
			kind = "order"
			a.record(ctx, sess, sessionID, query, text, kind)
			return text, nil
		}
	}

	text := a.answerQuestion(ctx, sess, sessionID, corrected)
	a.record(ctx, sess, sessionID, query, text, kind)
	return text, nil
}

// handleRepIntent classifies a sales rep's message, executes order and stock
// intents, and answers "unknown" verdicts with a fixed message. handled is
// false for plain questions (and for classifier failures, which degrade to
// the question path).
func (a *Assistant) handleRepIntent(ctx context.Context, sess *domain.UserSession, query string) (string, bool) {
	raw, err := a.Oracle.Generate(ctx, intentSystemPrompt, query, 256, 0.0)
	if err != nil {
		log.Warn().Err(err).Msg("intent classification failed, treating as question")
		return "", false
	}
	var intent intentResult
	if err := json.Unmarshal([]byte(extractJSON(raw)), &intent); err != nil {
		log.Warn().Err(err).Str("raw", raw).Msg("unparseable intent, treating as question")
		return "", false
	}

	switch intent.Intent {
	case "place_order":
		if intent.Product == "" || intent.Dealer == "" || intent.Quantity < 1 {
			return MsgOrderMissingDetails, true
		}
		res, err := a.Orders.Place(ctx, sess, OrderRequest{
			ProductText: intent.Product,
			DealerName:  intent.Dealer,
			Warehouse:   intent.Warehouse,
			Quantity:    intent.Quantity,
		})
		switch {
		case err == nil:
			return res.Message, true
		case errors.Is(err, ErrInsufficientStock):
			return fmt.Sprintf("Not enough stock to order %d x %s. Try a smaller quantity or check availability first.", intent.Quantity, intent.Product), true
		case errors.Is(err, ErrValidation):
			return capitalize(strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")) + ".", true
		case errors.Is(err, ErrNotSalesRep):
			return MsgOrderRoleDenied, true
		default:
			log.Error().Err(err).Msg("order placement failed")
			return MsgFallback, true
		}

	case "check_stock":
		if intent.Product == "" {
			return "Which product would you like to check stock for?", true
		}
		summary, _, err := a.Orders.StockSummary(ctx, intent.Product)
		if err != nil {
			if errors.Is(err, ErrValidation) {
				return capitalize(strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")) + ".", true
			}
			log.Error().Err(err).Msg("stock summary failed")
			return MsgFallback, true
		}
		return summary, true

	case "unknown":
		return MsgIntentUnknown, true
	}

	// order_history and plain questions go through SQL + retrieval, which
	// answer them from the orders table and the index.
	return "", false
}

// answerQuestion runs the dual retrieval paths concurrently and synthesizes
// the reply. Either path failing leaves its context empty rather than
// sinking the whole answer.
func (a *Assistant) answerQuestion(ctx context.Context, sess *domain.UserSession, sessionID, corrected string) string {
	embedQuery := a.Memory.Enhance(sessionID, corrected)
	history := a.Memory.RecentContext(sessionID, groundingWindow)

	var sqlContext, vectorContext string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := a.SQL.Answer(gctx, sess, corrected, history)
		if err != nil {
			log.Warn().Err(err).Msg("sql path failed")
			return nil
		}
		sqlContext = res.Context
		return nil
	})
	g.Go(func() error {
		vctx, err := a.Retrieval.Retrieve(gctx, sess, corrected, embedQuery)
		if err != nil {
			log.Warn().Err(err).Msg("retrieval path failed")
			return nil
		}
		vectorContext = vctx
		return nil
	})
	_ = g.Wait()

	if sqlContext == "" && vectorContext == "" {
		return MsgFallback
	}
	return a.Answers.Synthesize(ctx, sess, sessionID, corrected, sqlContext, vectorContext)
}

// record stores the turn in session memory and the durable log. Logging
// failures are reported but never surfaced to the user.
func (a *Assistant) record(ctx context.Context, sess *domain.UserSession, sessionID, query, answer, kind string) {
	a.Memory.Append(sessionID, Turn{
		Query:   query,
		Answer:  answer,
		QueryAt: time.Now().UTC(),
		Kind:    kind,
	})
	if a.Audit == nil {
		return
	}
	if _, err := a.Audit.AppendConversationLog(ctx, a.DB, sess.UserID, sess.DealerID, sessionID, query, answer, kind); err != nil {
		log.Error().Err(err).Msg("conversation log append failed")
	}
}

// extractJSON pulls the first {...} block out of model output that may be
// wrapped in fences or prose.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
