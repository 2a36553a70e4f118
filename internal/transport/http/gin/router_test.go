package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	"github.com/kirinyoku/tix-ledger/internal/repository"
	redisrepo "github.com/kirinyoku/tix-ledger/internal/repository/redis"
	"github.com/kirinyoku/tix-ledger/internal/service"
	"github.com/kirinyoku/tix-ledger/internal/service/admin"
	"github.com/kirinyoku/tix-ledger/internal/service/health"
	"github.com/kirinyoku/tix-ledger/internal/service/payouts"
	"github.com/kirinyoku/tix-ledger/internal/service/query"
	"github.com/kirinyoku/tix-ledger/internal/service/resale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// memJournal records transitions and serves reads straight from the
// registry so handlers can be exercised without Postgres.
type memJournal struct {
	mu      sync.Mutex
	reg     *ledger.Registry
	events  []domain.Notification
	payouts []domain.Payout
}

func (j *memJournal) CreateLedger(ctx context.Context, st ledger.State) error { return nil }

func (j *memJournal) LoadLedger(ctx context.Context, id uuid.UUID) (ledger.State, error) {
	return ledger.State{}, repository.ErrNotFound
}

func (j *memJournal) Commit(ctx context.Context, tr ledger.Transition) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, tr.Notification)
	j.payouts = append(j.payouts, tr.Payouts...)
	return nil
}

func (j *memJournal) GetLedger(ctx context.Context, id uuid.UUID) (*domain.LedgerInfo, error) {
	l, err := j.reg.Get(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	info := l.Info()
	return &info, nil
}

func (j *memJournal) GetTicket(ctx context.Context, ledgerID uuid.UUID, id domain.TicketID) (*domain.Ticket, error) {
	l, err := j.reg.Get(ledgerID)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	t, err := l.Ticket(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (j *memJournal) ListHolderTickets(ctx context.Context, ledgerID uuid.UUID, holder domain.Identity) ([]domain.TicketID, error) {
	l, err := j.reg.Get(ledgerID)
	if err != nil {
		return []domain.TicketID{}, nil
	}
	ids := l.TicketsOf(holder)
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids, nil
}

func (j *memJournal) ListNotifications(ctx context.Context, ledgerID uuid.UUID, afterSeq uint64, limit int) ([]domain.Notification, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := []domain.Notification{}
	for _, n := range j.events {
		if n.LedgerID == ledgerID && n.Seq > afterSeq && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (j *memJournal) ListPayouts(ctx context.Context, recipient domain.Identity, limit, offset int) ([]domain.Payout, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := []domain.Payout{}
	for _, p := range j.payouts {
		if p.Recipient == recipient {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubLimiter struct {
	allow bool
	retry time.Duration
}

func (s stubLimiter) Allow(ctx context.Context, suffix string) (redisrepo.Decision, error) {
	return redisrepo.Decision{Allowed: s.allow, Count: 1, RetryAfter: s.retry}, nil
}

type harness struct {
	router *gin.Engine
	reg    *ledger.Registry
}

func newHarness(t *testing.T, limiter resale.Limiter, idem *redisrepo.IdempotencyStore) *harness {
	t.Helper()

	reg := ledger.NewRegistry()
	j := &memJournal{reg: reg}

	svcs := &service.Services{
		Admin:   admin.New(reg, j, clock.NewFixed(now), admin.Config{}),
		Resale:  resale.New(reg, limiter),
		Query:   query.New(reg, j, nil, query.Config{}),
		Payouts: payouts.New(j),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &harness{router: NewRouter(svcs, idem, logger), reg: reg}
}

func (h *harness) do(t *testing.T, method, path, caller string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) createLedger(t *testing.T) string {
	t.Helper()

	w := h.do(t, http.MethodPost, "/ledgers", "", CreateLedgerRequest{
		EventName:     "Concert",
		Administrator: "admin",
		TotalSupply:   10,
		EventAt:       now.Add(72 * time.Hour).Format(time.RFC3339),
		BasePrice:     100,
		RoyaltyRate:   10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp CreateLedgerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.LedgerID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestScenario_IssueResellRefund(t *testing.T) {
	h := newHarness(t, nil, nil)
	id := h.createLedger(t)
	base := "/ledgers/" + id

	for _, buyer := range []string{"b1", "b2", "b3", "b4", "b5"} {
		w := h.do(t, http.MethodPost, base+"/tickets", "admin", IssueTicketRequest{Buyer: buyer, Category: "GA", Resellable: true})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := h.do(t, http.MethodGet, base+"/price", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(150), decode[PriceResponse](t, w).Price)

	w = h.do(t, http.MethodPost, base+"/tickets/3/resell", "b3", ResellRequest{NewHolder: "carol", Price: 200})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rs := decode[ResellResponse](t, w)
	assert.Equal(t, int64(20), rs.Royalty)
	assert.Equal(t, int64(180), rs.SellerProceeds)
	assert.Equal(t, domain.Identity("carol"), rs.Holder)

	w = h.do(t, http.MethodGet, base+"/holders/carol/tickets", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []domain.TicketID{3}, decode[HolderTicketsResponse](t, w).TicketIDs)

	w = h.do(t, http.MethodGet, base+"/holders/b3/tickets", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[HolderTicketsResponse](t, w).TicketIDs)

	w = h.do(t, http.MethodPost, base+"/tickets/3/refund", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rf := decode[RefundResponse](t, w)
	assert.Equal(t, int64(200), rf.Refund)
	assert.Equal(t, domain.Identity("carol"), rf.Holder)

	w = h.do(t, http.MethodPost, base+"/tickets/3/validate", "admin", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodGet, base+"/events?after=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decode[[]domain.Notification](t, w)
	require.Len(t, events, 2)
	assert.Equal(t, domain.KindResold, events[0].Kind)
	assert.Equal(t, domain.KindRefunded, events[1].Kind)

	w = h.do(t, http.MethodGet, "/identities/admin/payouts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ps := decode[[]domain.Payout](t, w)
	require.Len(t, ps, 1)
	assert.Equal(t, int64(20), ps[0].Amount)
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t, nil, nil)
	id := h.createLedger(t)
	base := "/ledgers/" + id

	w := h.do(t, http.MethodPost, base+"/tickets", "mallory", IssueTicketRequest{Buyer: "alice"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodPost, base+"/tickets", "admin", IssueTicketRequest{Buyer: "alice", Resellable: false})
	require.Equal(t, http.StatusCreated, w.Code)

	cases := []struct {
		name   string
		method string
		path   string
		caller string
		body   any
		want   int
	}{
		{"bad ledger id", http.MethodGet, "/ledgers/nope", "", nil, http.StatusBadRequest},
		{"bad ticket id", http.MethodGet, base + "/tickets/x", "", nil, http.StatusBadRequest},
		{"unknown ledger", http.MethodGet, "/ledgers/" + uuid.NewString() + "/price", "", nil, http.StatusNotFound},
		{"unknown ticket", http.MethodGet, base + "/tickets/9", "", nil, http.StatusNotFound},
		{"not owner", http.MethodPost, base + "/tickets/1/resell", "bob", ResellRequest{NewHolder: "bob", Price: 5}, http.StatusForbidden},
		{"not resellable", http.MethodPost, base + "/tickets/1/resell", "alice", ResellRequest{NewHolder: "bob", Price: 5}, http.StatusConflict},
		{"resell unknown", http.MethodPost, base + "/tickets/7/resell", "alice", ResellRequest{NewHolder: "bob"}, http.StatusNotFound},
		{"validate not admin", http.MethodPost, base + "/tickets/1/validate", "alice", nil, http.StatusForbidden},
		{"refund unknown", http.MethodPost, base + "/tickets/8/refund", "admin", nil, http.StatusNotFound},
		{"payouts empty identity", http.MethodGet, "/identities/%20/payouts", "", nil, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := h.do(t, tc.method, tc.path, tc.caller, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestCreateLedger_Invalid(t *testing.T) {
	h := newHarness(t, nil, nil)

	w := h.do(t, http.MethodPost, "/ledgers", "", CreateLedgerRequest{
		EventName:     "Past",
		Administrator: "admin",
		TotalSupply:   1,
		EventAt:       now.Add(-time.Hour).Format(time.RFC3339),
		BasePrice:     10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/ledgers", "", CreateLedgerRequest{
		EventName:     "Bad date",
		Administrator: "admin",
		EventAt:       "tomorrow",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSoldOut(t *testing.T) {
	h := newHarness(t, nil, nil)

	w := h.do(t, http.MethodPost, "/ledgers", "", CreateLedgerRequest{
		EventName:     "Tiny",
		Administrator: "admin",
		TotalSupply:   1,
		EventAt:       now.Add(time.Hour).Format(time.RFC3339),
		BasePrice:     10,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[CreateLedgerResponse](t, w).LedgerID

	w = h.do(t, http.MethodPost, "/ledgers/"+id+"/tickets", "admin", IssueTicketRequest{Buyer: "a"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(t, http.MethodPost, "/ledgers/"+id+"/tickets", "admin", IssueTicketRequest{Buyer: "b"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestResell_RateLimited(t *testing.T) {
	h := newHarness(t, stubLimiter{allow: false, retry: 1500 * time.Millisecond}, nil)
	id := h.createLedger(t)

	w := h.do(t, http.MethodPost, "/ledgers/"+id+"/tickets", "admin", IssueTicketRequest{Buyer: "alice", Resellable: true})
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(t, http.MethodPost, "/ledgers/"+id+"/tickets/1/resell", "alice", ResellRequest{NewHolder: "bob", Price: 50})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestIssue_IdempotentReplay(t *testing.T) {
	db, mock := redismock.NewClientMock()
	idem := redisrepo.NewIdempotencyStore(db, time.Hour)

	h := newHarness(t, nil, idem)
	id := h.createLedger(t)

	key := redisrepo.KeyIdemIssue(uuid.MustParse(id), "admin", "k-1")
	body, err := json.Marshal(IssueTicketRequest{Buyer: "alice"})
	require.NoError(t, err)
	fp := redisrepo.Fingerprint(body)

	mock.ExpectSetNX(key, `{"state":"pending","fp":"`+fp+`"}`, time.Minute).SetVal(false)
	mock.ExpectGet(key).SetVal(`{"state":"done","fp":"` + fp + `","body":{"ticket_id":1,"price":100}}`)

	w := h.do(t, http.MethodPost, "/ledgers/"+id+"/tickets", "admin",
		IssueTicketRequest{Buyer: "alice"}, "Idempotency-Key", "k-1")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "k-1", w.Header().Get("Idempotency-Key"))
	assert.JSONEq(t, `{"ticket_id":1,"price":100}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())

	l, err := h.reg.Get(uuid.MustParse(id))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), l.Info().IssuedCount)
}

func TestIssue_IdempotencyKeyReusedWithOtherBody(t *testing.T) {
	db, mock := redismock.NewClientMock()
	idem := redisrepo.NewIdempotencyStore(db, time.Hour)

	h := newHarness(t, nil, idem)
	id := h.createLedger(t)

	key := redisrepo.KeyIdemIssue(uuid.MustParse(id), "admin", "k-2")
	body, err := json.Marshal(IssueTicketRequest{Buyer: "bob"})
	require.NoError(t, err)

	mock.ExpectSetNX(key, `{"state":"pending","fp":"`+redisrepo.Fingerprint(body)+`"}`, time.Minute).SetVal(false)
	mock.ExpectGet(key).SetVal(`{"state":"done","fp":"other","body":{"ticket_id":1,"price":100}}`)

	w := h.do(t, http.MethodPost, "/ledgers/"+id+"/tickets", "admin",
		IssueTicketRequest{Buyer: "bob"}, "Idempotency-Key", "k-2")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssue_IdempotencyStoreDownStillIssues(t *testing.T) {
	db, mock := redismock.NewClientMock()
	idem := redisrepo.NewIdempotencyStore(db, time.Hour)

	h := newHarness(t, nil, idem)
	id := h.createLedger(t)

	key := redisrepo.KeyIdemIssue(uuid.MustParse(id), "admin", "k-3")
	body, err := json.Marshal(IssueTicketRequest{Buyer: "alice"})
	require.NoError(t, err)
	fp := redisrepo.Fingerprint(body)

	mock.ExpectSetNX(key, `{"state":"pending","fp":"`+fp+`"}`, time.Minute).SetVal(true)
	mock.ExpectSet(key, `{"state":"done","fp":"`+fp+`","body":{"ticket_id":1,"price":100}}`, time.Hour).
		SetErr(errors.New("connection reset"))
	mock.ExpectExpire(key, time.Hour).SetVal(true)

	w := h.do(t, http.MethodPost, "/ledgers/"+id+"/tickets", "admin",
		IssueTicketRequest{Buyer: "alice"}, "Idempotency-Key", "k-3")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"ticket_id":1,"price":100}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTicket_NotModified(t *testing.T) {
	h := newHarness(t, nil, nil)
	id := h.createLedger(t)

	w := h.do(t, http.MethodPost, "/ledgers/"+id+"/tickets", "admin", IssueTicketRequest{Buyer: "alice"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(t, http.MethodGet, "/ledgers/"+id+"/tickets/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = h.do(t, http.MethodGet, "/ledgers/"+id+"/tickets/1", "", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, nil, nil)

	w := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

type downPinger struct{}

func (downPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestReady(t *testing.T) {
	h := newHarness(t, nil, nil)

	w := h.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	hc := health.New(time.Second)
	hc.Register("redis", downPinger{})
	svcs := &service.Services{Health: hc}
	r := NewRouter(svcs, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"ready":false,"checks":{"redis":"connection refused"}}`, w.Body.String())
}

func TestRespondErr_OutOfSyncAsksForRetry(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondErr(c, fmt.Errorf("service.admin.Issue: %w", ledger.ErrOutOfSync))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}
