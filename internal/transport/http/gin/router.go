package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/pricing"
	"github.com/kirinyoku/tix-booking/internal/proof"
	redisrepo "github.com/kirinyoku/tix-booking/internal/repository/redis"
	"github.com/kirinyoku/tix-booking/internal/service"
	"github.com/kirinyoku/tix-booking/internal/service/booking"
	"github.com/kirinyoku/tix-booking/internal/service/catalog"
	"github.com/kirinyoku/tix-booking/internal/service/query"
)

const (
	scopeBookings = "bookings"
	scopeProofs   = "proofs"

	idemLockTTL = 60 * time.Second
)

// IdempotencyStore is satisfied by *redisrepo.IdempotencyStore.
type IdempotencyStore interface {
	GetResult(ctx context.Context, key string) (string, bool, error)
	AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	SaveResult(ctx context.Context, key string, jsonPayload string) error
	Release(ctx context.Context, key string) error
}

// Deps are the collaborators of the HTTP surface. Idem, Limiter and Health may be nil.
type Deps struct {
	Services *service.Services
	Proofs   *proof.Store
	Tokens   TokenParser
	Idem     IdempotencyStore
	Limiter  RateLimiter
	Health   func(ctx context.Context) error
	Logger   *slog.Logger
}

func NewRouter(deps Deps, middlewares ...gin.HandlerFunc) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(deps.Logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", handleHealth(deps.Health))

	// Public API
	r.GET("/event", handleGetEvent(deps.Services))
	r.GET("/tiers/:id/price", handleGetPrice(deps.Services))
	r.GET("/tiers/:id/availability", handleGetAvailability(deps.Services))

	r.POST("/proofs", RateLimit(deps.Limiter, scopeProofs, deps.Logger), handleUploadProof(deps.Proofs))
	r.GET("/proofs/:id", handleGetProof(deps.Proofs))

	r.POST("/bookings", RateLimit(deps.Limiter, scopeBookings, deps.Logger), handleCreateBooking(deps.Services, deps.Idem))

	// Operator API
	admin := r.Group("/admin", Authenticate(deps.Tokens))
	{
		// The engine owns the operator check for lifecycle events.
		admin.PATCH("/bookings/:id/status", handleSetStatus(deps.Services))

		op := admin.Group("", RequireOperator())
		op.GET("/bookings/:id", handleGetBooking(deps.Services))
		op.GET("/tiers/:id/bookings", handleListTierBookings(deps.Services))
		op.GET("/tiers/:id/stats", handleTierStats(deps.Services))
		op.PUT("/event", handleUpsertEvent(deps.Services))
		op.POST("/tiers", handleCreateTier(deps.Services))
		op.PATCH("/tiers/:id", handleUpdateTier(deps.Services))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Liveness and dependency check
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  ErrorResponse
// @Router   /healthz [get]
func handleHealth(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := check(ctx); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// @Summary  Get the event with its tiers
// @Success  200  {object}  domain.EventWithTiers
// @Failure  404  {object}  ErrorResponse
// @Router   /event [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := svcs.Query.EventSummary(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, e, 60*time.Second)
	}
}

// @Summary  Quote the current unit price of a tier
// @Param    id  path  int  true  "Tier ID"
// @Success  200  {object}  PriceResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /tiers/{id}/price [get]
func handleGetPrice(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tierID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		price, err := svcs.Inventory.CurrentPrice(c.Request.Context(), tierID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, PriceResponse{
			TierID:         tierID,
			UnitPriceCents: price,
			QuotedAt:       time.Now().UTC(),
		})
	}
}

// @Summary  Get availability counters of a tier
// @Param    id  path  int  true  "Tier ID"
// @Success  200  {object}  domain.TierAvailability
// @Failure  404  {object}  ErrorResponse
// @Router   /tiers/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tierID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		a, err := svcs.Inventory.Availability(c.Request.Context(), tierID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, a, 15*time.Second)
	}
}

// @Summary  Upload a payment proof image
// @Accept   multipart/form-data
// @Param    file  formData  file  true  "image"
// @Success  201  {object}  UploadProofResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  413  {object}  ErrorResponse
// @Failure  415  {object}  ErrorResponse
// @Failure  429  {object}  ErrorResponse "rate limited"
// @Router   /proofs [post]
func handleUploadProof(proofs *proof.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			badRequest(c, "missing multipart file field \"file\"")
			return
		}
		if fh.Size > proofs.MaxBytes() {
			respondErr(c, proof.ErrTooLarge)
			return
		}

		f, err := fh.Open()
		if err != nil {
			respondErr(c, err)
			return
		}
		defer f.Close()

		// One byte past the limit lets Save tell a full-size payload from an oversized one.
		payload, err := io.ReadAll(io.LimitReader(f, proofs.MaxBytes()+1))
		if err != nil {
			respondErr(c, err)
			return
		}

		url, err := proofs.Save(c.Request.Context(), payload)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, UploadProofResponse{URL: url})
	}
}

// @Summary  Download a payment proof image
// @Param    id  path  string  true  "Proof ID (uuid)"
// @Success  200  {file}  binary
// @Failure  404  {object}  ErrorResponse
// @Router   /proofs/{id} [get]
func handleGetProof(proofs *proof.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		contentType, data, err := proofs.Open(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "private, max-age=86400")
		c.Data(http.StatusOK, contentType, data)
	}
}

// @Summary  Submit a booking (idempotent)
// @Param    req body  CreateBookingRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.Booking
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "sold out / duplicate payment ref / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(svcs *service.Services, idem IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(idemKey)

			if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
				replay(c, idemKey, payload)
				return
			}

			locked, err := idem.AcquireLock(ctx, idemStorageKey, idemLockTTL)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
					replay(c, idemKey, payload)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		b, err := svcs.Booking.CreateBooking(ctx, req.toInput())
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" {
			payload, _ := json.Marshal(b)
			_ = idem.SaveResult(ctx, idemStorageKey, string(payload))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, b)
	}
}

func replay(c *gin.Context, idemKey, payload string) {
	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
}

// @Summary  Get a booking
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Router   /admin/bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Booking.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Apply a lifecycle event to a booking
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Param    req body  SetStatusRequest true "confirmed, rejected or cancelled"
// @Success  200 {object} domain.Booking
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "sold out / invalid transition"
// @Router   /admin/bookings/{id}/status [patch]
func handleSetStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req SetStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		identity, _ := identityFrom(c)
		b, err := svcs.Booking.SetStatus(
			c.Request.Context(),
			id,
			domain.BookingStatus(strings.ToLower(strings.TrimSpace(req.Status))),
			identity.IsOperator(),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  List bookings of a tier
// @Security BearerAuth
// @Param    id      path   int     true  "Tier ID"
// @Param    status  query  string  false "pending, confirmed, rejected or cancelled"
// @Param    limit   query  int     false "page size"
// @Param    offset  query  int     false "offset"
// @Success  200  {array}   domain.Booking
// @Failure  400  {object}  ErrorResponse
// @Router   /admin/tiers/{id}/bookings [get]
func handleListTierBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tierID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		status := domain.BookingStatus(strings.ToLower(c.Query("status")))
		limit := parseIntDefault(c.Query("limit"), 0)
		offset := parseIntDefault(c.Query("offset"), 0)

		bookings, err := svcs.Query.ListTierBookings(c.Request.Context(), tierID, status, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		if bookings == nil {
			bookings = []domain.Booking{}
		}
		c.JSON(http.StatusOK, bookings)
	}
}

// @Summary  Booking counts of a tier per status
// @Security BearerAuth
// @Param    id  path  int  true  "Tier ID"
// @Success  200  {object}  domain.TierBookingStats
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/tiers/{id}/stats [get]
func handleTierStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tierID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		stats, err := svcs.Query.TierStats(c.Request.Context(), tierID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// @Summary  Create or replace the event
// @Security BearerAuth
// @Param    req body  UpsertEventRequest true "payload"
// @Success  200 {object} UpsertEventResponse
// @Failure  400 {object} ErrorResponse
// @Router   /admin/event [put]
func handleUpsertEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpsertEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		in, err := req.toInput()
		if err != nil {
			badRequest(c, "invalid starts_at or ends_at (RFC3339)")
			return
		}
		id, err := svcs.Catalog.UpsertEvent(c.Request.Context(), in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, UpsertEventResponse{EventID: id})
	}
}

// @Summary  Create a ticket tier
// @Security BearerAuth
// @Param    req body  CreateTierRequest true "payload"
// @Success  201 {object} CreateTierResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Router   /admin/tiers [post]
func handleCreateTier(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		in, err := req.toInput()
		if err != nil {
			badRequest(c, "invalid discount_ends_at (RFC3339)")
			return
		}
		id, err := svcs.Catalog.CreateTier(c.Request.Context(), in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateTierResponse{TierID: id})
	}
}

// @Summary  Update a ticket tier
// @Security BearerAuth
// @Param    id  path  int  true  "Tier ID"
// @Param    req body  UpdateTierRequest true "payload"
// @Success  200 {object} domain.TicketTier
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "capacity below sold"
// @Router   /admin/tiers/{id} [patch]
func handleUpdateTier(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tierID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateTierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, err := req.toUpdate()
		if err != nil {
			badRequest(c, "invalid discount_ends_at (RFC3339)")
			return
		}
		t, err := svcs.Catalog.UpdateTier(c.Request.Context(), tierID, u)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
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

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		verr booking.ValidationError
		ierr catalog.InputError
	)

	switch {
	// input
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Reason, Field: verr.Field})
	case errors.As(err, &ierr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ierr.Reason, Field: ierr.Field})
	case errors.Is(err, booking.ErrValidation),
		errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, query.ErrInvalidFilter),
		errors.Is(err, proof.ErrEmpty):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: rootMessage(err)})
	case errors.Is(err, proof.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "payment proof too large"})
	case errors.Is(err, proof.ErrNotImage):
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: "payment proof must be an image"})

	// authorization
	case errors.Is(err, booking.ErrUnauthorized):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "operator role required"})

	// conflicts
	case errors.Is(err, booking.ErrSoldOut):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "sold out"})
	case errors.Is(err, booking.ErrInvalidTransition):
		var terr booking.InvalidTransitionError
		if errors.As(err, &terr) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: terr.Error()})
			return
		}
		c.JSON(http.StatusConflict, ErrorResponse{Error: "invalid status transition"})
	case errors.Is(err, booking.ErrConcurrentUpdate):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking changed concurrently"})
	case errors.Is(err, booking.ErrDuplicatePaymentRef):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "payment reference already used", Field: "payment_ref"})
	case errors.Is(err, catalog.ErrTierConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "tier conflict", Field: "name"})
	case errors.Is(err, catalog.ErrCapacityBelowSold):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "capacity below units already sold", Field: "capacity"})

	// not found
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	case errors.Is(err, booking.ErrTierNotFound),
		errors.Is(err, query.ErrTierNotFound),
		errors.Is(err, catalog.ErrTierNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "tier not found"})
	case errors.Is(err, query.ErrEventNotFound),
		errors.Is(err, catalog.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not configured"})
	case errors.Is(err, proof.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "payment proof not found"})

	case errors.Is(err, pricing.ErrMalformedTier):
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "tier pricing misconfigured"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// rootMessage strips the "op: " prefixes the services wrap errors with.
func rootMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
