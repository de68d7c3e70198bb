// Package services – SQLService
//
// Text-to-SQL with a defensive gate. The language model is given the schema
// and the caller's role, and asked for a single SELECT (or the NO_SQL
// sentinel when the question has no tabular answer). Model output is never
// trusted: the gate strips code fences, rejects anything that is not a bare
// SELECT, and for dealer sessions rewrites queries over the dealer-scoped
// tables to carry the caller's dealer_id before execution. Rows are rendered
// as plain text for the answer synthesizer.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/wheely/go-dealer-assist/internal/domain"
	"github.com/wheely/go-dealer-assist/internal/repo"
)

// NoSQLSentinel is what the model must answer when no SQL applies.
const NoSQLSentinel = "NO_SQL"

// Generator is the language-model contract used across the service layer.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)
}

// SQLRunner executes vetted read-only SQL.
type SQLRunner interface {
	RunSelect(ctx context.Context, db *gorm.DB, query string) ([]string, []repo.Row, error)
}

// SQLService turns a natural-language question into SQL context text.
type SQLService struct {
	DB     *gorm.DB
	Oracle Generator
	Runner SQLRunner
}

// schemaPrompt describes the queryable tables. Kept in one place so the
// model and the gate agree on table names.
const schemaPrompt = `You translate questions about a tyre distribution business into SQLite SELECT statements.

Schema:
  dealer(dealer_id, name)
  product(product_id, product_name, category, price, section_width, aspect_ratio, construction_type, rim_diameter_inch)
  warehouse(warehouse_id, location, zone)
  sales(sales_id, dealer_id, product_id, warehouse_id, quantity, cost, date)
  claim(claim_id, dealer_id, status)
  inventory(product_id, warehouse_id, quantity)
  orders(order_id, dealer_id, product_id, warehouse_id, quantity, unit_price, total_cost, order_date, status, sales_rep_id)

Rules:
- Answer with exactly one SQLite SELECT statement and nothing else.
- No INSERT, UPDATE, DELETE, DROP, ALTER, or PRAGMA. Never modify data.
- If the question cannot be answered from these tables, answer exactly NO_SQL.`

var (
	fenceRE     = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	forbiddenRE = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|replace|attach|pragma|vacuum|truncate|grant)\b`)
	// matches "FROM sales" / "JOIN claim c" over the dealer-scoped tables
	scopedTableRE = regexp.MustCompile(`(?i)\b(from|join)\s+(sales|claim|orders)\b`)
)

// SQLResult carries the generated statement and its rendered rows.
type SQLResult struct {
	Statement string // empty when the model answered NO_SQL or the gate refused
	Context   string // rendered rows, or MsgNoResults when gated or empty
}

// Answer generates, vets, and executes SQL for the question, returning the
// rendered result text. History (recent prompt-ready turns) may be empty.
func (s *SQLService) Answer(ctx context.Context, sess *domain.UserSession, question, history string) (SQLResult, error) {
	tr := otel.Tracer("services/SQLService")
	ctx, span := tr.Start(ctx, "Answer",
		trace.WithAttributes(attribute.String("user.role", sess.Role)),
	)
	defer span.End()

	userPrompt := buildSQLUserPrompt(sess, question, history)

	raw, err := s.Oracle.Generate(ctx, schemaPrompt, userPrompt, 512, 0.0)
	if err != nil {
		return SQLResult{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	stmt, ok := VetSQL(raw)
	if !ok {
		return SQLResult{Context: MsgNoResults}, nil
	}
	stmt = ScopeToDealer(stmt, sess)

	cols, rows, err := s.Runner.RunSelect(ctx, s.DB, stmt)
	if err != nil {
		// Generated SQL that fails to execute is treated as no result, not a
		// request failure; the vector path can still answer.
		log.Warn().Err(err).Str("stmt", stmt).Msg("generated sql failed")
		return SQLResult{Statement: stmt, Context: MsgNoResults}, nil
	}
	return SQLResult{Statement: stmt, Context: RenderRows(cols, rows)}, nil
}

// buildSQLUserPrompt annotates the question with the caller's role so the
// model writes appropriately scoped SQL. The gate re-enforces scoping
// afterwards regardless of what comes back.
func buildSQLUserPrompt(sess *domain.UserSession, question, history string) string {
	var b strings.Builder
	if history != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n\n")
	}
	switch {
	case sess.IsDealer() && sess.DealerID != nil:
		fmt.Fprintf(&b, "The caller is dealer %q (dealer_id = %d) and may only see their own sales, claims, and orders.\n", sess.DealerName, *sess.DealerID)
	case sess.IsSalesRep():
		b.WriteString("The caller is a sales representative with access to all dealers' data.\n")
	case sess.IsAdmin():
		b.WriteString("The caller is an administrator with unrestricted access.\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

// VetSQL normalizes model output into an executable statement. It strips
// code fences and trailing semicolons, rejects the NO_SQL sentinel, and
// accepts only statements that start with SELECT and contain no mutating
// keyword. The boolean is false when nothing should be executed.
func VetSQL(raw string) (string, bool) {
	stmt := strings.TrimSpace(raw)
	if m := fenceRE.FindStringSubmatch(stmt); m != nil {
		stmt = strings.TrimSpace(m[1])
	}
	stmt = strings.TrimSuffix(strings.TrimSpace(stmt), ";")
	stmt = strings.TrimSpace(stmt)

	if stmt == "" || strings.EqualFold(stmt, NoSQLSentinel) {
		return "", false
	}
	upper := strings.ToUpper(stmt)
	if !strings.HasPrefix(upper, "SELECT") {
		return "", false
	}
	if strings.Contains(stmt, ";") {
		return "", false
	}
	if forbiddenRE.MatchString(stmt) {
		return "", false
	}
	return stmt, true
}

// ScopeToDealer forces a dealer_id conjunct into statements that touch the
// dealer-scoped tables (sales, claim, orders) when the session is a dealer.
// Statements from other roles pass through unchanged.
func ScopeToDealer(stmt string, sess *domain.UserSession) string {
	did := sess.DealerFilter()
	if did == nil {
		return stmt
	}
	if !scopedTableRE.MatchString(stmt) {
		return stmt
	}
	guard := fmt.Sprintf("dealer_id = %d", *did)
	if strings.Contains(stmt, guard) {
		return stmt
	}

	upper := strings.ToUpper(stmt)
	// Insert the guard before GROUP BY / ORDER BY / LIMIT if present.
	cut := len(stmt)
	for _, kw := range []string{" GROUP BY ", " ORDER BY ", " LIMIT "} {
		if i := strings.Index(upper, kw); i >= 0 && i < cut {
			cut = i
		}
	}
	head, tail := stmt[:cut], stmt[cut:]

	if strings.Contains(strings.ToUpper(head), " WHERE ") {
		return head + " AND " + guard + tail
	}
	return head + " WHERE " + guard + tail
}

// RenderRows serializes result rows as "col: val, col: val" lines separated
// by "---", or MsgNoResults when empty. Column order follows the statement's
// projection.
func RenderRows(cols []string, rows []repo.Row) string {
	if len(rows) == 0 {
		return MsgNoResults
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		parts := make([]string, 0, len(cols))
		for _, c := range cols {
			parts = append(parts, fmt.Sprintf("%s: %v", c, r[c]))
		}
		lines = append(lines, strings.Join(parts, ", "))
	}
	return strings.Join(lines, "\n---\n")
}
