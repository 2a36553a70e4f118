package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/kirinyoku/tix-ledger/internal/domain"
)

// Policy holds the admission rules a ledger is operated under.
type Policy struct {
	// SingleUseAdmission rejects a second validation of the same ticket.
	// When false, repeated validations succeed and re-emit a notification.
	SingleUseAdmission bool
}

// Transition is the complete effect of one operation. It is computed before
// anything is applied and handed to the Committer as a single unit.
type Transition struct {
	LedgerID    uuid.UUID
	IssuedCount uint64
	Seq         uint64
	// Put is the ticket record after the operation, nil when the ticket is burned.
	Put *domain.Ticket
	// Delete is set when the ticket is burned.
	Delete domain.TicketID
	// Previous is the holder before the operation for moves and burns.
	Previous     domain.Identity
	Payouts      []domain.Payout
	Notification domain.Notification
}

// Committer durably applies a transition (state rows, payouts, notification).
// A non-nil error means nothing was applied and the ledger stays unchanged.
type Committer interface {
	Commit(ctx context.Context, tr Transition) error
}

type CommitFunc func(ctx context.Context, tr Transition) error

func (f CommitFunc) Commit(ctx context.Context, tr Transition) error {
	return f(ctx, tr)
}

// Reloader reads the durable state of a ledger.
type Reloader func(ctx context.Context, id uuid.UUID) (State, error)

type Option func(*Ledger)

func WithClock(c clock.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

func WithCommitter(c Committer) Option {
	return func(l *Ledger) { l.committer = c }
}

// WithReloader lets the ledger resynchronize itself when its committer
// reports ErrOutOfSync.
func WithReloader(r Reloader) Option {
	return func(l *Ledger) { l.reloader = r }
}

func WithPolicy(p Policy) Option {
	return func(l *Ledger) { l.policy = p }
}

// Ledger owns the tickets of one event, the reverse holder index and the
// supply counters. All operations are serialized by mu.
type Ledger struct {
	mu sync.Mutex

	id     uuid.UUID
	cfg    domain.LedgerConfig
	policy Policy

	issued  uint64
	seq     uint64
	tickets map[domain.TicketID]domain.Ticket
	index   *holderIndex

	clock     clock.Clock
	committer Committer
	reloader  Reloader
}

// Resale describes a completed resale.
type Resale struct {
	Ticket         domain.Ticket
	Previous       domain.Identity
	Royalty        int64
	SellerProceeds int64
}

// Refund describes a completed refund.
type Refund struct {
	TicketID domain.TicketID
	Holder   domain.Identity
	Amount   int64
}

// State is a point-in-time copy of a ledger used for persistence and restore.
type State struct {
	ID          uuid.UUID
	Config      domain.LedgerConfig
	Policy      Policy
	IssuedCount uint64
	LastSeq     uint64
	Tickets     []domain.Ticket
}

// New creates an empty ledger after validating cfg against the current time.
//
// Parameters:
//   - id: ledger identity.
//   - cfg: immutable configuration of the event.
//   - opts: clock, committer and policy options.
//
// Returns:
//   - *Ledger: the ledger on success.
//   - error: ErrInvalidConfiguration if any parameter is out of range or the
//     event does not lie strictly in the future.
func New(id uuid.UUID, cfg domain.LedgerConfig, opts ...Option) (*Ledger, error) {
	l := newLedger(id, cfg, opts)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	if !cfg.EventAt.After(l.clock.Now()) {
		return nil, fmt.Errorf("%w: event time must be in the future", ErrInvalidConfiguration)
	}

	return l, nil
}

// Restore rebuilds a ledger from a persisted state. The event time is not
// checked against the clock since a stored event may already have started.
func Restore(st State, opts ...Option) (*Ledger, error) {
	l := newLedger(st.ID, st.Config, opts)
	l.policy = st.Policy

	if err := validateConfig(st.Config); err != nil {
		return nil, err
	}

	if err := l.load(st); err != nil {
		return nil, err
	}

	return l, nil
}

// load replaces tickets, index and counters with st. Nothing changes when st
// is inconsistent.
func (l *Ledger) load(st State) error {
	if st.IssuedCount > st.Config.TotalSupply {
		return fmt.Errorf("%w: issued count %d exceeds supply %d",
			ErrInvalidConfiguration, st.IssuedCount, st.Config.TotalSupply)
	}

	sorted := make([]domain.Ticket, len(st.Tickets))
	copy(sorted, st.Tickets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	tickets := make(map[domain.TicketID]domain.Ticket, len(sorted))
	index := newHolderIndex()
	for _, t := range sorted {
		if t.ID == 0 || uint64(t.ID) > st.IssuedCount {
			return fmt.Errorf("%w: ticket %d outside issued range", ErrInvalidConfiguration, t.ID)
		}
		if _, dup := tickets[t.ID]; dup {
			return fmt.Errorf("%w: duplicate ticket %d", ErrInvalidConfiguration, t.ID)
		}
		if t.Holder.IsZero() {
			return fmt.Errorf("%w: ticket %d has no holder", ErrInvalidConfiguration, t.ID)
		}
		tickets[t.ID] = t
		index.insert(t.Holder, t.ID)
	}

	l.tickets = tickets
	l.index = index
	l.issued = st.IssuedCount
	l.seq = st.LastSeq

	return nil
}

func newLedger(id uuid.UUID, cfg domain.LedgerConfig, opts []Option) *Ledger {
	l := &Ledger{
		id:      id,
		cfg:     cfg,
		tickets: make(map[domain.TicketID]domain.Ticket),
		index:   newHolderIndex(),
		clock:   clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func validateConfig(cfg domain.LedgerConfig) error {
	switch {
	case cfg.TotalSupply == 0:
		return fmt.Errorf("%w: total supply must be positive", ErrInvalidConfiguration)
	case cfg.BasePrice <= 0:
		return fmt.Errorf("%w: base price must be positive", ErrInvalidConfiguration)
	case cfg.BasePrice > math.MaxInt64/2:
		return fmt.Errorf("%w: base price too large", ErrInvalidConfiguration)
	case cfg.RoyaltyRate > 100:
		return fmt.Errorf("%w: royalty rate must be within [0,100]", ErrInvalidConfiguration)
	case cfg.Administrator.IsZero():
		return fmt.Errorf("%w: administrator is required", ErrInvalidConfiguration)
	}
	return nil
}

func (l *Ledger) ID() uuid.UUID { return l.id }

func (l *Ledger) Config() domain.LedgerConfig { return l.cfg }

func (l *Ledger) Info() domain.LedgerInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	return domain.LedgerInfo{
		ID:            l.id,
		EventName:     l.cfg.EventName,
		Administrator: l.cfg.Administrator,
		TotalSupply:   l.cfg.TotalSupply,
		IssuedCount:   l.issued,
		EventAt:       l.cfg.EventAt,
		BasePrice:     l.cfg.BasePrice,
		RoyaltyRate:   l.cfg.RoyaltyRate,
		LastSeq:       l.seq,
	}
}

// Snapshot returns a copy of the full ledger state.
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	tickets := make([]domain.Ticket, 0, len(l.tickets))
	for _, t := range l.tickets {
		tickets = append(tickets, t)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })

	return State{
		ID:          l.id,
		Config:      l.cfg,
		Policy:      l.policy,
		IssuedCount: l.issued,
		LastSeq:     l.seq,
		Tickets:     tickets,
	}
}

// Issue mints the next ticket to buyer at the base price.
//
// Parameters:
//   - ctx: request-scoped context passed to the committer.
//   - caller: identity invoking the operation, must be the administrator.
//   - buyer: identity receiving the ticket.
//   - category: free-form label such as "VIP".
//   - resellable: whether the ticket may later be resold.
//
// Returns:
//   - domain.Ticket: the issued ticket.
//   - error: ErrNotAdministrator, ErrInvalidRecipient, ErrSoldOut, or the
//     committer error.
func (l *Ledger) Issue(
	ctx context.Context,
	caller, buyer domain.Identity,
	category string,
	resellable bool,
) (domain.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return domain.Ticket{}, err
	}

	if buyer.IsZero() {
		return domain.Ticket{}, ErrInvalidRecipient
	}

	if l.issued == l.cfg.TotalSupply {
		return domain.Ticket{}, ErrSoldOut
	}

	t := domain.Ticket{
		ID:         domain.TicketID(l.issued + 1),
		Price:      l.cfg.BasePrice,
		Holder:     buyer,
		Resellable: resellable,
		Category:   category,
	}

	tr := l.transition(domain.Notification{
		Kind:     domain.KindIssued,
		TicketID: t.ID,
		To:       buyer,
		Amount:   t.Price,
		Category: category,
	})
	tr.IssuedCount = l.issued + 1
	tr.Put = &t

	if err := l.commit(ctx, tr); err != nil {
		return domain.Ticket{}, err
	}

	l.tickets[t.ID] = t
	l.index.insert(buyer, t.ID)
	l.issued = tr.IssuedCount
	l.seq = tr.Seq

	return t, nil
}

// Resell transfers a ticket from its holder to newHolder at resalePrice and
// routes the royalty to the administrator.
//
// Parameters:
//   - ctx: request-scoped context passed to the committer.
//   - id: ticket to resell.
//   - resalePrice: price paid by newHolder.
//   - newHolder: identity receiving the ticket.
//   - caller: identity invoking the operation, must be the current holder.
//
// Returns:
//   - Resale: the updated ticket with royalty and seller proceeds.
//   - error: ErrUnknownTicket, ErrNotOwner, ErrNotResellable,
//     ErrInvalidRecipient, ErrInvalidPrice, or the committer error.
func (l *Ledger) Resell(
	ctx context.Context,
	id domain.TicketID,
	resalePrice int64,
	newHolder, caller domain.Identity,
) (Resale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, ok := l.tickets[id]
	if !ok {
		return Resale{}, ErrUnknownTicket
	}

	if caller != cur.Holder {
		return Resale{}, ErrNotOwner
	}

	if !cur.Resellable {
		return Resale{}, ErrNotResellable
	}

	if newHolder.IsZero() {
		return Resale{}, ErrInvalidRecipient
	}

	if resalePrice < 0 {
		return Resale{}, ErrInvalidPrice
	}

	royalty := royaltyOf(resalePrice, l.cfg.RoyaltyRate)

	next := cur
	next.Price = resalePrice
	next.Holder = newHolder

	tr := l.transition(domain.Notification{
		Kind:     domain.KindResold,
		TicketID: id,
		From:     cur.Holder,
		To:       newHolder,
		Amount:   resalePrice,
		Royalty:  royalty,
	})
	tr.Put = &next
	tr.Previous = cur.Holder
	if royalty > 0 {
		tr.Payouts = append(tr.Payouts, l.payout(tr.Seq, l.cfg.Administrator, royalty, domain.PayoutRoyalty))
	}

	if err := l.commit(ctx, tr); err != nil {
		return Resale{}, err
	}

	l.tickets[id] = next
	l.index.move(cur.Holder, newHolder, id)
	l.seq = tr.Seq

	return Resale{
		Ticket:         next,
		Previous:       cur.Holder,
		Royalty:        royalty,
		SellerProceeds: resalePrice - royalty,
	}, nil
}

// DynamicPrice quotes the price of the next issuance:
// basePrice + floor(basePrice * issuedCount / totalSupply).
func (l *Ledger) DynamicPrice() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	hi, lo := bits.Mul64(uint64(l.cfg.BasePrice), l.issued)
	q, _ := bits.Div64(hi, lo, l.cfg.TotalSupply)

	return l.cfg.BasePrice + int64(q)
}

// Validate performs the admission check of a ticket at the event.
//
// Parameters:
//   - ctx: request-scoped context passed to the committer.
//   - id: ticket presented for admission.
//   - caller: identity invoking the operation, must be the administrator.
//
// Returns:
//   - domain.Ticket: the ticket with its current holder.
//   - error: ErrNotAdministrator, ErrUnknownTicket, ErrAlreadyAdmitted under
//     the single-use policy, or the committer error.
func (l *Ledger) Validate(ctx context.Context, id domain.TicketID, caller domain.Identity) (domain.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return domain.Ticket{}, err
	}

	cur, ok := l.tickets[id]
	if !ok {
		return domain.Ticket{}, ErrUnknownTicket
	}

	if l.policy.SingleUseAdmission && cur.Admitted {
		return domain.Ticket{}, ErrAlreadyAdmitted
	}

	tr := l.transition(domain.Notification{
		Kind:     domain.KindValidated,
		TicketID: id,
		To:       cur.Holder,
		Amount:   cur.Price,
	})

	next := cur
	if l.policy.SingleUseAdmission {
		next.Admitted = true
		tr.Put = &next
	}

	if err := l.commit(ctx, tr); err != nil {
		return domain.Ticket{}, err
	}

	l.tickets[id] = next
	l.seq = tr.Seq

	return next, nil
}

// Refund burns a ticket and pays its stored price back to the holder.
//
// Parameters:
//   - ctx: request-scoped context passed to the committer.
//   - id: ticket to refund.
//   - caller: identity invoking the operation, must be the administrator.
//
// Returns:
//   - Refund: the former holder and the refunded amount.
//   - error: ErrNotAdministrator, ErrUnknownTicket, or the committer error.
func (l *Ledger) Refund(ctx context.Context, id domain.TicketID, caller domain.Identity) (Refund, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return Refund{}, err
	}

	cur, ok := l.tickets[id]
	if !ok {
		return Refund{}, ErrUnknownTicket
	}

	tr := l.transition(domain.Notification{
		Kind:     domain.KindRefunded,
		TicketID: id,
		From:     cur.Holder,
		Amount:   cur.Price,
	})
	tr.Delete = id
	tr.Previous = cur.Holder
	if cur.Price > 0 {
		tr.Payouts = append(tr.Payouts, l.payout(tr.Seq, cur.Holder, cur.Price, domain.PayoutRefund))
	}

	if err := l.commit(ctx, tr); err != nil {
		return Refund{}, err
	}

	delete(l.tickets, id)
	l.index.remove(cur.Holder, id)
	l.seq = tr.Seq

	return Refund{TicketID: id, Holder: cur.Holder, Amount: cur.Price}, nil
}

// Ticket returns the current record of a ticket.
func (l *Ledger) Ticket(id domain.TicketID) (domain.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tickets[id]
	if !ok {
		return domain.Ticket{}, ErrUnknownTicket
	}
	return t, nil
}

// TicketsOf returns the ids currently held by holder, in no particular order.
func (l *Ledger) TicketsOf(holder domain.Identity) []domain.TicketID {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.index.list(holder)
}

func (l *Ledger) requireAdmin(caller domain.Identity) error {
	if caller.IsZero() || caller != l.cfg.Administrator {
		return ErrNotAdministrator
	}
	return nil
}

func (l *Ledger) transition(n domain.Notification) Transition {
	seq := l.seq + 1

	n.LedgerID = l.id
	n.Seq = seq
	n.OccurredAt = l.clock.Now()

	return Transition{
		LedgerID:     l.id,
		IssuedCount:  l.issued,
		Seq:          seq,
		Notification: n,
	}
}

func (l *Ledger) payout(seq uint64, to domain.Identity, amount int64, reason domain.PayoutReason) domain.Payout {
	return domain.Payout{
		LedgerID:  l.id,
		Seq:       seq,
		Recipient: to,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: l.clock.Now(),
	}
}

func (l *Ledger) commit(ctx context.Context, tr Transition) error {
	if l.committer == nil {
		return nil
	}

	err := l.committer.Commit(ctx, tr)
	if err != nil && errors.Is(err, ErrOutOfSync) && l.reloader != nil {
		if rerr := l.resync(ctx); rerr != nil {
			return errors.Join(err, rerr)
		}
	}

	return err
}

// resync reloads the durable state. The operation that detected the drift
// still fails; the next one runs against the reloaded state.
func (l *Ledger) resync(ctx context.Context) error {
	st, err := l.reloader(ctx, l.id)
	if err != nil {
		return fmt.Errorf("ledger: resync %s: %w", l.id, err)
	}

	if st.ID != l.id {
		return fmt.Errorf("ledger: resync %s: got state of %s", l.id, st.ID)
	}

	st.Config = l.cfg
	if err := l.load(st); err != nil {
		return fmt.Errorf("ledger: resync %s: %w", l.id, err)
	}

	return nil
}

// royaltyOf returns floor(price * rate / 100) without intermediate overflow.
func royaltyOf(price int64, rate uint8) int64 {
	hi, lo := bits.Mul64(uint64(price), uint64(rate))
	q, _ := bits.Div64(hi, lo, 100)
	return int64(q)
}
