package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
	"github.com/kirinyoku/tix-ledger/internal/service"
	"github.com/kirinyoku/tix-ledger/internal/service/admin"
	"github.com/kirinyoku/tix-ledger/internal/service/health"
	"github.com/kirinyoku/tix-ledger/internal/service/payouts"
	"github.com/kirinyoku/tix-ledger/internal/service/query"
	"github.com/kirinyoku/tix-ledger/internal/service/resale"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const callerHeader = "X-Caller-ID"

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/readyz", handleReady(svcs))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/ledgers", handleCreateLedger(svcs))

	ledgers := r.Group("/ledgers/:id")
	{
		ledgers.GET("", handleGetLedger(svcs))
		ledgers.GET("/price", handleGetPrice(svcs))
		ledgers.GET("/events", handleListEvents(svcs))
		ledgers.GET("/holders/:holder/tickets", handleListHolderTickets(svcs))

		ledgers.POST("/tickets", handleIssueTicket(svcs, idem, logger))
		ledgers.GET("/tickets/:ticket", handleGetTicket(svcs))
		ledgers.POST("/tickets/:ticket/resell", handleResell(svcs))
		ledgers.POST("/tickets/:ticket/validate", handleValidate(svcs))
		ledgers.POST("/tickets/:ticket/refund", handleRefund(svcs))
	}

	r.GET("/identities/:id/payouts", handleListPayouts(svcs))

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Create ledger
// @Param    req body  CreateLedgerRequest true "payload"
// @Success  201 {object} CreateLedgerResponse
// @Failure  400 {object} ErrorResponse
// @Router   /ledgers [post]
func handleCreateLedger(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLedgerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		eventAt, err := parseRFC3339(req.EventAt)
		if err != nil {
			badRequest(c, "invalid event_at (RFC3339)")
			return
		}
		id, err := svcs.Admin.CreateLedger(c.Request.Context(), domain.LedgerConfig{
			EventName:     req.EventName,
			Administrator: domain.Identity(req.Administrator),
			TotalSupply:   req.TotalSupply,
			EventAt:       eventAt.UTC(),
			BasePrice:     req.BasePrice,
			RoyaltyRate:   req.RoyaltyRate,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateLedgerResponse{LedgerID: id.String()})
	}
}

// @Summary  Get ledger
// @Param    id  path  string  true  "Ledger ID (uuid)"
// @Success  200  {object}  domain.LedgerInfo
// @Failure  404  {object}  ErrorResponse
// @Router   /ledgers/{id} [get]
func handleGetLedger(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ledgerID, ok := parseLedgerID(c)
		if !ok {
			return
		}
		info, err := svcs.Query.GetLedger(c.Request.Context(), ledgerID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, info, "public, max-age=5", true)
	}
}

// @Summary  Quote the dynamic price of the next ticket
// @Param    id  path  string  true  "Ledger ID (uuid)"
// @Success  200  {object}  PriceResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /ledgers/{id}/price [get]
func handleGetPrice(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ledgerID, ok := parseLedgerID(c)
		if !ok {
			return
		}
		price, err := svcs.Resale.Quote(ledgerID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, PriceResponse{LedgerID: ledgerID.String(), Price: price})
	}
}

// @Summary  List ledger notifications
// @Param    id     path   string  true  "Ledger ID (uuid)"
// @Param    after  query  int     false "return notifications with a greater sequence"
// @Param    limit  query  int     false "page size"
// @Success  200  {array}   domain.Notification
// @Failure  404  {object}  ErrorResponse
// @Router   /ledgers/{id}/events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ledgerID, ok := parseLedgerID(c)
		if !ok {
			return
		}
		after, err := parseUintDefault(c.Query("after"), 0)
		if err != nil {
			badRequest(c, "invalid after")
			return
		}
		limit := parseIntDefault(c.Query("limit"), 100)

		events, err := svcs.Query.ListNotifications(c.Request.Context(), ledgerID, after, limit)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

// @Summary  List tickets currently held by an identity
// @Param    id      path  string  true  "Ledger ID (uuid)"
// @Param    holder  path  string  true  "Holder identity"
// @Success  200  {object}  HolderTicketsResponse
// @Router   /ledgers/{id}/holders/{holder}/tickets [get]
func handleListHolderTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ledgerID, ok := parseLedgerID(c)
		if !ok {
			return
		}
		holder := domain.Identity(c.Param("holder"))

		ids, err := svcs.Query.ListHolderTickets(c.Request.Context(), ledgerID, holder)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, HolderTicketsResponse{Holder: holder, TicketIDs: ids}, "no-cache", true)
	}
}

// @Summary  Issue ticket (idempotent)
// @Param    id         path    string  true  "Ledger ID (uuid)"
// @Param    X-Caller-ID header string  true  "Caller identity, must be the administrator"
// @Param    req body  IssueTicketRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} IssueTicketResponse
// @Failure  403 {object} ErrorResponse "not administrator"
// @Failure  409 {object} ErrorResponse "sold out / idem in progress"
// @Failure  422 {object} ErrorResponse "idempotency key reused"
// @Router   /ledgers/{id}/tickets [post]
func handleIssueTicket(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ledgerID, ok := parseLedgerID(c)
		if !ok {
			return
		}
		var req IssueTicketRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		caller := callerFrom(c)
		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var storageKey, fp string
		if idem != nil && idemKey != "" {
			storageKey = redisrepo.KeyIdemIssue(ledgerID, caller, idemKey)
			b, _ := json.Marshal(req)
			fp = redisrepo.Fingerprint(b)

			claim, err := idem.Begin(ctx, storageKey, fp)
			if err != nil {
				respondErr(c, err)
				return
			}

			switch claim.State {
			case redisrepo.Replay:
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", claim.Body)
				return
			case redisrepo.InProgress:
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			case redisrepo.Mismatch:
				c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "idempotency key reused with a different request"})
				return
			}
		}

		t, err := svcs.Admin.Issue(ctx, ledgerID, caller, domain.Identity(req.Buyer), req.Category, req.Resellable)
		if err != nil {
			if storageKey != "" {
				_ = idem.Abandon(ctx, storageKey)
			}
			respondErr(c, err)
			return
		}

		resp := IssueTicketResponse{TicketID: t.ID, Price: t.Price}

		if storageKey != "" {
			b, _ := json.Marshal(resp)
			if err := idem.Complete(ctx, storageKey, fp, b); err != nil {
				logger.Error("idempotency result not stored",
					"ledger_id", ledgerID, "ticket_id", t.ID, "key", idemKey, "error", err)
			}
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Get ticket
// @Param    id      path  string  true  "Ledger ID (uuid)"
// @Param    ticket  path  int     true  "Ticket ID"
// @Success  200  {object}  domain.Ticket
// @Failure  404  {object}  ErrorResponse
// @Router   /ledgers/{id}/tickets/{ticket} [get]
func handleGetTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ledgerID, ticketID, ok := parseTicketRef(c)
		if !ok {
			return
		}
		t, err := svcs.Query.GetTicket(c.Request.Context(), ledgerID, ticketID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, t, "no-cache", true)
	}
}

// @Summary  Resell ticket
// @Param    id          path    string  true  "Ledger ID (uuid)"
// @Param    ticket      path    int     true  "Ticket ID"
// @Param    X-Caller-ID header  string  true  "Caller identity, must hold the ticket"
// @Param    req body  ResellRequest true "payload"
// @Success  200 {object} ResellResponse
// @Failure  400 {object} ErrorResponse "invalid recipient / price"
// @Failure  403 {object} ErrorResponse "not owner"
// @Failure  404 {object} ErrorResponse "unknown ticket"
// @Failure  409 {object} ErrorResponse "not resellable"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /ledgers/{id}/tickets/{ticket}/resell [post]
func handleResell(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ledgerID, ticketID, ok := parseTicketRef(c)
		if !ok {
			return
		}
		var req ResellRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		r, err := svcs.Resale.Resell(
			c.Request.Context(),
			ledgerID,
			ticketID,
			req.Price,
			domain.Identity(req.NewHolder),
			callerFrom(c),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ResellResponse{
			TicketID:       r.Ticket.ID,
			PreviousHolder: r.Previous,
			Holder:         r.Ticket.Holder,
			Price:          r.Ticket.Price,
			Royalty:        r.Royalty,
			SellerProceeds: r.SellerProceeds,
		})
	}
}

// @Summary  Validate ticket at the gate
// @Param    id          path    string  true  "Ledger ID (uuid)"
// @Param    ticket      path    int     true  "Ticket ID"
// @Param    X-Caller-ID header  string  true  "Caller identity, must be the administrator"
// @Success  200 {object} ValidateResponse
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already admitted"
// @Router   /ledgers/{id}/tickets/{ticket}/validate [post]
func handleValidate(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ledgerID, ticketID, ok := parseTicketRef(c)
		if !ok {
			return
		}
		t, err := svcs.Admin.Validate(c.Request.Context(), ledgerID, ticketID, callerFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ValidateResponse{TicketID: t.ID, Holder: t.Holder, Admitted: t.Admitted})
	}
}

// @Summary  Refund ticket
// @Param    id          path    string  true  "Ledger ID (uuid)"
// @Param    ticket      path    int     true  "Ticket ID"
// @Param    X-Caller-ID header  string  true  "Caller identity, must be the administrator"
// @Success  200 {object} RefundResponse
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /ledgers/{id}/tickets/{ticket}/refund [post]
func handleRefund(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ledgerID, ticketID, ok := parseTicketRef(c)
		if !ok {
			return
		}
		r, err := svcs.Admin.Refund(c.Request.Context(), ledgerID, ticketID, callerFrom(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, RefundResponse{TicketID: r.TicketID, Holder: r.Holder, Refund: r.Amount})
	}
}

// @Summary  List payouts credited to an identity
// @Param    id     path   string  true  "Identity"
// @Param    limit  query  int     false "page size"
// @Param    offset query  int     false "offset"
// @Success  200  {array}   domain.Payout
// @Router   /identities/{id}/payouts [get]
func handleListPayouts(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		recipient := domain.Identity(c.Param("id"))
		limit := parseIntDefault(c.Query("limit"), 50)
		offset := parseIntDefault(c.Query("offset"), 0)

		out, err := svcs.Payouts.ListForRecipient(c.Request.Context(), recipient, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// --- Helpers ---

func callerFrom(c *gin.Context) domain.Identity {
	return domain.Identity(strings.TrimSpace(c.GetHeader(callerHeader)))
}

func parseLedgerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func parseTicketRef(c *gin.Context) (uuid.UUID, domain.TicketID, bool) {
	ledgerID, ok := parseLedgerID(c)
	if !ok {
		return uuid.Nil, 0, false
	}
	v, err := strconv.ParseUint(c.Param("ticket"), 10, 64)
	if err != nil {
		badRequest(c, "invalid ticket")
		return uuid.Nil, 0, false
	}
	return ledgerID, domain.TicketID(v), true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseUintDefault(s string, def uint64) (uint64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl resale.RateLimitedError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	}

	switch {
	case errors.Is(err, ledger.ErrOutOfSync):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "ledger reloaded, retry"})
	// ledger rules
	case errors.Is(err, ledger.ErrInvalidConfiguration):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid configuration"})
	case errors.Is(err, ledger.ErrNotAdministrator):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not administrator"})
	case errors.Is(err, ledger.ErrNotOwner):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not owner"})
	case errors.Is(err, ledger.ErrSoldOut):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "sold out"})
	case errors.Is(err, ledger.ErrNotResellable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "not resellable"})
	case errors.Is(err, ledger.ErrAlreadyAdmitted):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already admitted"})
	case errors.Is(err, ledger.ErrInvalidRecipient):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid recipient"})
	case errors.Is(err, ledger.ErrInvalidPrice):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid price"})
	case errors.Is(err, ledger.ErrUnknownTicket):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown ticket"})
	// admin service
	case errors.Is(err, admin.ErrLedgerConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "ledger conflict"})
	case errors.Is(err, admin.ErrLedgerNotFound),
		errors.Is(err, resale.ErrLedgerNotFound),
		errors.Is(err, query.ErrLedgerNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ledger not found"})
	// query service
	case errors.Is(err, query.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
	// payouts service
	case errors.Is(err, payouts.ErrInvalidRecipient):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid recipient"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// @Summary  Readiness of postgres and redis
// @Success  200  {object}  health.Report
// @Failure  503  {object}  health.Report
// @Router   /readyz [get]
func handleReady(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svcs.Health == nil {
			c.JSON(http.StatusOK, health.Report{Ready: true, Checks: map[string]string{}})
			return
		}

		rep := svcs.Health.Check(c.Request.Context())
		status := http.StatusOK
		if !rep.Ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, rep)
	}
}
