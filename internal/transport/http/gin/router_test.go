package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tix-booking/internal/auth"
	"github.com/kirinyoku/tix-booking/internal/clock"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/proof"
	redisrepo "github.com/kirinyoku/tix-booking/internal/repository/redis"
	"github.com/kirinyoku/tix-booking/internal/service"
	"github.com/kirinyoku/tix-booking/internal/service/booking"
	"github.com/kirinyoku/tix-booking/internal/service/catalog"
	"github.com/kirinyoku/tix-booking/internal/service/inventory"
	"github.com/kirinyoku/tix-booking/internal/service/query"
	"github.com/kirinyoku/tix-booking/internal/testutil/memstore"
)

var testNow = time.Date(2026, 4, 30, 12, 0, 0, 0, time.UTC)

var pngHeader = []byte{
	0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
}

type memIdem struct {
	mu   sync.Mutex
	vals map[string]string
}

func (m *memIdem) GetResult(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	if !ok || v == "LOCK" {
		return "", false, nil
	}
	return v, true, nil
}

func (m *memIdem) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vals[key]; ok {
		return false, nil
	}
	m.vals[key] = "LOCK"
	return true, nil
}

func (m *memIdem) SaveResult(_ context.Context, key, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = payload
	return nil
}

func (m *memIdem) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}

type limiterFunc func(scope, id string) (redisrepo.Decision, error)

func (f limiterFunc) Allow(_ context.Context, scope, id string) (redisrepo.Decision, error) {
	return f(scope, id)
}

type harness struct {
	st     *memstore.Store
	router *gin.Engine
	tokens *auth.Issuer
	idem   *memIdem
}

func newHarness(t *testing.T, opts ...func(*Deps)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memstore.New()
	_, err := st.Catalog().UpsertEvent(context.Background(), domain.Event{
		Name:     "Campus Night",
		Starts:   testNow.Add(30 * 24 * time.Hour),
		Ends:     testNow.Add(30*24*time.Hour + 5*time.Hour),
		Currency: "KES",
	})
	require.NoError(t, err)
	st.PutTier(domain.TicketTier{
		ID:                 1,
		EventID:            1,
		Name:               "Early Bird",
		PriceCents:         1000,
		DiscountPriceCents: 800,
		DiscountEndsAt:     testNow.Add(time.Hour),
		Capacity:           2,
		Active:             true,
	})

	clk := clock.NewFixed(testNow)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := inventory.New(st.Tiers(), nil, nil, clk, logger)

	tokens, err := auth.NewIssuer(auth.Config{Secret: "router-test-secret"}, clk)
	require.NoError(t, err)

	idem := &memIdem{vals: map[string]string{}}
	deps := Deps{
		Services: &service.Services{
			Inventory: ledger,
			Booking:   booking.New(st.Bookings(), ledger, st, nil, clk, logger, booking.Config{MaxQuantity: 10}),
			Query:     query.New(st.Query(), nil, query.Config{}),
			Catalog:   catalog.New(st.Catalog(), st.Tiers(), st, nil, ledger, logger),
		},
		Proofs: proof.New(st.Proofs(), proof.Config{BaseURL: "https://tix.example", MaxBytes: 1 << 10}),
		Tokens: tokens,
		Idem:   idem,
		Logger: logger,
	}
	for _, o := range opts {
		o(&deps)
	}

	return &harness{st: st, router: NewRouter(deps), tokens: tokens, idem: idem}
}

func (h *harness) token(t *testing.T, role string) string {
	t.Helper()
	tok, _, err := h.tokens.Issue("alice", role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func bookingBody(ref string, qty int) CreateBookingRequest {
	return CreateBookingRequest{
		Name:            "Amina Otieno",
		Email:           "Amina@Example.com",
		Phone:           "+254700000001",
		TierID:          1,
		Quantity:        qty,
		PaymentRef:      ref,
		PaymentProofURL: "https://tix.example/proofs/6f1f7c1e-4a57-4f39-9b9c-0d6f2b4f8a11",
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/bookings", bookingBody("MP0001", 2))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := decode[domain.Booking](t, w)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, "amina@example.com", b.Buyer.Email)
	assert.Nil(t, b.UnitPriceCents)

	statusPath := fmt.Sprintf("/admin/bookings/%s/status", b.ID)
	confirm := SetStatusRequest{Status: "confirmed"}

	w = h.do(t, http.MethodPatch, statusPath, confirm)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodPatch, statusPath, confirm, "Authorization", "Bearer "+h.token(t, auth.RoleViewer))
	assert.Equal(t, http.StatusForbidden, w.Code)

	op := "Bearer " + h.token(t, auth.RoleOperator)
	w = h.do(t, http.MethodPatch, statusPath, confirm, "Authorization", op)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	b = decode[domain.Booking](t, w)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	require.NotNil(t, b.UnitPriceCents)
	assert.Equal(t, int64(800), *b.UnitPriceCents)

	// Approving again is a no-op.
	w = h.do(t, http.MethodPatch, statusPath, confirm, "Authorization", op)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/tiers/1/availability", nil)
	require.Equal(t, http.StatusOK, w.Code)
	a := decode[domain.TierAvailability](t, w)
	assert.Equal(t, 2, a.Sold)
	assert.Equal(t, 0, a.Remaining)

	w = h.do(t, http.MethodPatch, statusPath, SetStatusRequest{Status: "pending"}, "Authorization", op)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodPatch, statusPath, SetStatusRequest{Status: "cancelled"}, "Authorization", op)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/admin/tiers/1/stats", nil, "Authorization", op)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[domain.TierBookingStats](t, w)
	assert.Equal(t, 2, stats.Quantity[domain.BookingCancelled])
	assert.Equal(t, 2, stats.Available.Remaining)
}

func TestCreateBooking_Errors(t *testing.T) {
	h := newHarness(t)

	bad := bookingBody("MP0002", 1)
	bad.Email = "not-an-email"
	w := h.do(t, http.MethodPost, "/bookings", bad)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", decode[ErrorResponse](t, w).Field)

	w = h.do(t, http.MethodPost, "/bookings", bookingBody("MP0003", 3))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodPost, "/bookings", bookingBody("MP0004", 1))
	require.Equal(t, http.StatusCreated, w.Code)
	w = h.do(t, http.MethodPost, "/bookings", bookingBody("MP0004", 1))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "payment_ref", decode[ErrorResponse](t, w).Field)

	w = h.do(t, http.MethodPost, "/bookings", strings.Repeat("x", 3))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBooking_IdempotencyKeyReplays(t *testing.T) {
	h := newHarness(t)

	first := h.do(t, http.MethodPost, "/bookings", bookingBody("MP0005", 1), "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "k-1", first.Header().Get("Idempotency-Key"))

	second := h.do(t, http.MethodPost, "/bookings", bookingBody("MP0005", 1), "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	list, err := h.st.Bookings().ListByTier(context.Background(), 1, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// A failed request frees the key for a retry.
	bad := bookingBody("MP0006", 1)
	bad.Phone = "1"
	w := h.do(t, http.MethodPost, "/bookings", bad, "Idempotency-Key", "k-2")
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(t, http.MethodPost, "/bookings", bookingBody("MP0006", 1), "Idempotency-Key", "k-2")
	assert.Equal(t, http.StatusCreated, w.Code)

	h.idem.vals[redisrepo.KeyIdemBooking("k-3")] = "LOCK"
	w = h.do(t, http.MethodPost, "/bookings", bookingBody("MP0007", 1), "Idempotency-Key", "k-3")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimit(t *testing.T) {
	var scopes []string
	h := newHarness(t, func(d *Deps) {
		d.Limiter = limiterFunc(func(scope, _ string) (redisrepo.Decision, error) {
			scopes = append(scopes, scope)
			return redisrepo.Decision{Allowed: false, RetryAfter: 1500 * time.Millisecond}, nil
		})
	})

	w := h.do(t, http.MethodPost, "/bookings", bookingBody("MP0008", 1))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, []string{scopeBookings}, scopes)

	failing := newHarness(t, func(d *Deps) {
		d.Limiter = limiterFunc(func(string, string) (redisrepo.Decision, error) {
			return redisrepo.Decision{}, errors.New("redis down")
		})
	})
	w = failing.do(t, http.MethodPost, "/bookings", bookingBody("MP0009", 1))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestGetEvent_ETag(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/event", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))
	summary := decode[domain.EventWithTiers](t, w)
	assert.Equal(t, "Campus Night", summary.Event.Name)
	require.Len(t, summary.Tiers, 1)

	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	w = h.do(t, http.MethodGet, "/event", nil, "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestGetPrice(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/tiers/1/price", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(800), decode[PriceResponse](t, w).UnitPriceCents)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/tiers/9/price", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/tiers/abc/price", nil).Code)
}

func uploadFile(t *testing.T, h *harness, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "proof.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/proofs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestProofs(t *testing.T) {
	h := newHarness(t)

	w := uploadFile(t, h, pngHeader)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	url := decode[UploadProofResponse](t, w).URL
	require.True(t, strings.HasPrefix(url, "https://tix.example/proofs/"), url)

	w = h.do(t, http.MethodGet, strings.TrimPrefix(url, "https://tix.example"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, w.Body.Bytes())

	assert.Equal(t, http.StatusUnsupportedMediaType, uploadFile(t, h, []byte("plain text, not an image")).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, uploadFile(t, h, bytes.Repeat([]byte{1}, 2<<10)).Code)

	w = h.do(t, http.MethodGet, "/proofs/6f1f7c1e-4a57-4f39-9b9c-0d6f2b4f8a11", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminCatalog(t *testing.T) {
	h := newHarness(t)
	op := "Bearer " + h.token(t, auth.RoleOperator)

	w := h.do(t, http.MethodPost, "/admin/tiers", CreateTierRequest{Name: "VIP", PriceCents: 2500, Capacity: 5})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodPost, "/admin/tiers", CreateTierRequest{Name: "VIP", PriceCents: 2500, Capacity: 5},
		"Authorization", "Bearer "+h.token(t, auth.RoleViewer))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodPost, "/admin/tiers", CreateTierRequest{Name: "VIP", PriceCents: 2500, Capacity: 5},
		"Authorization", op)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int64(2), decode[CreateTierResponse](t, w).TierID)

	w = h.do(t, http.MethodPost, "/admin/tiers", CreateTierRequest{Name: "VIP", PriceCents: 2500, Capacity: 5},
		"Authorization", op)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Sell both early-bird tickets, then try to shrink the tier below that.
	for _, ref := range []string{"MP0010", "MP0011"} {
		w = h.do(t, http.MethodPost, "/bookings", bookingBody(ref, 1))
		require.Equal(t, http.StatusCreated, w.Code)
		id := decode[domain.Booking](t, w).ID
		w = h.do(t, http.MethodPatch, fmt.Sprintf("/admin/bookings/%s/status", id),
			SetStatusRequest{Status: "confirmed"}, "Authorization", op)
		require.Equal(t, http.StatusOK, w.Code)
	}

	capacity := 1
	w = h.do(t, http.MethodPatch, "/admin/tiers/1", UpdateTierRequest{Capacity: &capacity}, "Authorization", op)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "capacity", decode[ErrorResponse](t, w).Field)

	capacity = 4
	w = h.do(t, http.MethodPatch, "/admin/tiers/1", UpdateTierRequest{Capacity: &capacity}, "Authorization", op)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, decode[domain.TicketTier](t, w).Capacity)

	w = h.do(t, http.MethodGet, "/admin/tiers/1/bookings?status=confirmed&limit=1", nil, "Authorization", op)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Booking](t, w), 1)

	w = h.do(t, http.MethodGet, "/admin/tiers/1/bookings?status=paid", nil, "Authorization", op)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		d.Health = func(context.Context) error { return errors.New("postgres unreachable") }
	})
	assert.Equal(t, http.StatusServiceUnavailable, h.do(t, http.MethodGet, "/healthz", nil).Code)

	ok := newHarness(t)
	assert.Equal(t, http.StatusOK, ok.do(t, http.MethodGet, "/healthz", nil).Code)
}

func TestEtagMatches(t *testing.T) {
	tag := `W/"abc"`

	cases := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`W/"abc"`, true},
		{`"abc"`, true},
		{`"x", W/"abc"`, true},
		{"*", true},
		{`"abd"`, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, etagMatches(tc.header, tag), tc.header)
	}
}
