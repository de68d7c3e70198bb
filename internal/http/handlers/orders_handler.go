package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wheely/go-dealer-assist/internal/domain"
	"github.com/wheely/go-dealer-assist/internal/services"
	"github.com/wheely/go-dealer-assist/internal/utils"
)

// HeaderUsername carries the caller identity on GET endpoints that have no
// request body.
const HeaderUsername = "X-Username"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// identify resolves the X-Username header to a session, failing the request
// with 401 when absent or unknown.
func (h *Handler) identify(c *gin.Context) (*domain.UserSession, bool) {
	username := c.GetHeader(HeaderUsername)
	if username == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "X-Username header is required")
		return nil, false
	}
	sess, err := h.Auth.Identify(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, services.ErrUnknownUser) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "unknown user")
		} else {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "identity lookup failed")
		}
		return nil, false
	}
	return sess, true
}

// ListOrders returns the caller's order history, newest first. Dealers see
// only their own orders; sales reps and admins see all dealers'.
//
// GET /api/v1/orders?page=&page_size=
func (h *Handler) ListOrders(c *gin.Context) {
	sess, okID := h.identify(c)
	if !okID {
		return
	}

	page := utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	size := utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if size < 1 {
		size = defaultPageSize
	}
	size = utils.ClampInt(size, 1, maxPageSize)

	ctx := c.Request.Context()
	scope := sess.DealerFilter()
	total, err := h.History.CountOrders(ctx, h.DB, scope)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to count orders")
		return
	}
	orders, err := h.History.ListOrdersPage(ctx, h.DB, scope, (page-1)*size, size)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to list orders")
		return
	}
	ok(c, http.StatusOK, gin.H{
		"page":      page,
		"page_size": size,
		"total":     total,
		"orders":    orders,
	})
}

// Stock returns per-warehouse availability for a product.
//
// GET /api/v1/stock/:product_id?quantity=
//
// When quantity is given the response also reports whether that many units
// are available across all warehouses.
func (h *Handler) Stock(c *gin.Context) {
	if _, okID := h.identify(c); !okID {
		return
	}

	productID := c.Param("product_id")
	summary, levels, err := h.Orders.StockSummary(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown product")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeStockFailed, "failed to read stock")
		return
	}

	var total int
	for _, l := range levels {
		total += l.Quantity
	}
	body := gin.H{
		"product_id": productID,
		"summary":    summary,
		"levels":     levels,
		"total":      total,
	}
	if q := utils.AtoiDefault(c.Query("quantity"), 0); q > 0 {
		body["requested"] = q
		body["sufficient"] = total >= q
	}
	ok(c, http.StatusOK, body)
}
