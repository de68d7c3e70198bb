// Package services – AnswerService
//
// Final answer synthesis. The SQL context and vector context produced by the
// two retrieval paths are merged into one prompt, along with the last couple
// of answers for conversational continuity, and the model writes the reply
// the user sees. The model's text is returned verbatim; when generation
// fails the caller gets MsgFallback, never an error page.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wheely/go-dealer-assist/internal/domain"
)

// answerHistoryWindow is how many prior turns ride along in the prompt.
const answerHistoryWindow = 2

const answerSystemPrompt = `You are an assistant for a tyre distribution business serving dealers, sales representatives, and administrators.
Answer using ONLY the provided database results and context passages. If neither contains the answer, say you don't have that information.
Be concise and factual. Report quantities, prices, and totals exactly as given. Do not invent dealers, products, or numbers.`

// AnswerService merges retrieval output into the user-facing reply.
type AnswerService struct {
	Oracle Generator
	Memory *Memory
}

// Synthesize produces the final answer text. It never returns an error to
// the user path: on any failure it returns MsgFallback.
func (s *AnswerService) Synthesize(ctx context.Context, sess *domain.UserSession, sessionID, question, sqlContext, vectorContext string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Caller role: %s\n", roleInstruction(sess))
	if hist := s.Memory.RecentContext(sessionID, answerHistoryWindow); hist != "" {
		b.WriteString("\nRecent conversation:\n")
		b.WriteString(hist)
		b.WriteString("\n")
	}
	if sqlContext != "" {
		b.WriteString("\nDatabase results:\n")
		b.WriteString(sqlContext)
		b.WriteString("\n")
	}
	if vectorContext != "" {
		b.WriteString("\nContext passages:\n")
		b.WriteString(vectorContext)
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)

	answer, err := s.Oracle.Generate(ctx, answerSystemPrompt, b.String(), 1024, 0.2)
	if err != nil || strings.TrimSpace(answer) == "" {
		log.Error().Err(err).Msg("answer synthesis failed")
		return MsgFallback
	}
	return answer
}

// roleInstruction states, inside the prompt, what the caller may see. The
// data handed to the model is already filtered; this only shapes tone and
// stops the model offering data the caller cannot have.
func roleInstruction(sess *domain.UserSession) string {
	switch {
	case sess.IsDealer():
		if sess.DealerName != "" {
			return fmt.Sprintf("dealer %q; only this dealer's own sales, claims, and orders may be discussed, and dealers cannot place orders through this assistant", sess.DealerName)
		}
		return "dealer; only this dealer's own sales, claims, and orders may be discussed, and dealers cannot place orders through this assistant"
	case sess.IsSalesRep():
		return "sales representative; may see all dealers' data and place orders"
	case sess.IsAdmin():
		return "administrator; unrestricted"
	default:
		return "unknown; answer only from general context"
	}
}
