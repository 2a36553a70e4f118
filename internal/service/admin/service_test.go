package admin_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/clock"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	"github.com/kirinyoku/tix-ledger/internal/repository"
	"github.com/kirinyoku/tix-ledger/internal/service/admin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

type fakeJournal struct {
	created   []ledger.State
	commits   []ledger.Transition
	createErr error
	commitErr error
}

func (f *fakeJournal) CreateLedger(ctx context.Context, st ledger.State) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, st)
	return nil
}

func (f *fakeJournal) Commit(ctx context.Context, tr ledger.Transition) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits = append(f.commits, tr)
	return nil
}

func (f *fakeJournal) LoadLedger(ctx context.Context, id uuid.UUID) (ledger.State, error) {
	for _, st := range f.created {
		if st.ID == id {
			return st, nil
		}
	}
	return ledger.State{}, repository.ErrNotFound
}

func config() domain.LedgerConfig {
	return domain.LedgerConfig{
		EventName:     "Festival",
		Administrator: "admin",
		TotalSupply:   2,
		EventAt:       now.Add(7 * 24 * time.Hour),
		BasePrice:     80,
		RoyaltyRate:   5,
	}
}

func newService(j *fakeJournal, policy ledger.Policy) (*admin.Service, *ledger.Registry) {
	reg := ledger.NewRegistry()
	return admin.New(reg, j, clock.NewFixed(now), admin.Config{Policy: policy}), reg
}

func TestCreateLedger_RegistersAndPersists(t *testing.T) {
	j := &fakeJournal{}
	svc, reg := newService(j, ledger.Policy{})

	id, err := svc.CreateLedger(context.Background(), config())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	require.Len(t, j.created, 1)
	assert.Equal(t, id, j.created[0].ID)

	_, err = reg.Get(id)
	assert.NoError(t, err)
}

func TestCreateLedger_InvalidConfiguration(t *testing.T) {
	j := &fakeJournal{}
	svc, reg := newService(j, ledger.Policy{})

	cfg := config()
	cfg.EventAt = now.Add(-time.Minute)

	_, err := svc.CreateLedger(context.Background(), cfg)
	assert.ErrorIs(t, err, ledger.ErrInvalidConfiguration)
	assert.Empty(t, j.created)
	assert.Zero(t, reg.Len())
}

func TestCreateLedger_Conflict(t *testing.T) {
	j := &fakeJournal{createErr: repository.ErrConflict}
	svc, reg := newService(j, ledger.Policy{})

	_, err := svc.CreateLedger(context.Background(), config())
	assert.ErrorIs(t, err, admin.ErrLedgerConflict)
	assert.Zero(t, reg.Len())
}

func TestIssueValidateRefund(t *testing.T) {
	ctx := context.Background()
	j := &fakeJournal{}
	svc, _ := newService(j, ledger.Policy{})

	id, err := svc.CreateLedger(ctx, config())
	require.NoError(t, err)

	tk, err := svc.Issue(ctx, id, "admin", "alice", "VIP", true)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketID(1), tk.ID)
	assert.Equal(t, int64(80), tk.Price)

	got, err := svc.Validate(ctx, id, tk.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("alice"), got.Holder)

	r, err := svc.Refund(ctx, id, tk.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(80), r.Amount)
	assert.Equal(t, domain.Identity("alice"), r.Holder)

	_, err = svc.Validate(ctx, id, tk.ID, "admin")
	assert.ErrorIs(t, err, ledger.ErrUnknownTicket)

	assert.Len(t, j.commits, 3)
}

func TestIssue_Errors(t *testing.T) {
	ctx := context.Background()
	j := &fakeJournal{}
	svc, _ := newService(j, ledger.Policy{})

	_, err := svc.Issue(ctx, uuid.New(), "admin", "alice", "GA", true)
	assert.ErrorIs(t, err, admin.ErrLedgerNotFound)

	id, err := svc.CreateLedger(ctx, config())
	require.NoError(t, err)

	_, err = svc.Issue(ctx, id, "alice", "alice", "GA", true)
	assert.ErrorIs(t, err, ledger.ErrNotAdministrator)

	for i := 0; i < 2; i++ {
		_, err = svc.Issue(ctx, id, "admin", "alice", "GA", true)
		require.NoError(t, err)
	}

	_, err = svc.Issue(ctx, id, "admin", "alice", "GA", true)
	assert.ErrorIs(t, err, ledger.ErrSoldOut)
}

func TestIssue_CommitFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	j := &fakeJournal{}
	svc, _ := newService(j, ledger.Policy{})

	id, err := svc.CreateLedger(ctx, config())
	require.NoError(t, err)

	boom := errors.New("db down")
	j.commitErr = boom

	_, err = svc.Issue(ctx, id, "admin", "alice", "GA", true)
	assert.ErrorIs(t, err, boom)

	j.commitErr = nil
	tk, err := svc.Issue(ctx, id, "admin", "alice", "GA", true)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketID(1), tk.ID)
}

func TestValidate_SingleUsePolicy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(&fakeJournal{}, ledger.Policy{SingleUseAdmission: true})

	id, err := svc.CreateLedger(ctx, config())
	require.NoError(t, err)

	tk, err := svc.Issue(ctx, id, "admin", "bob", "GA", false)
	require.NoError(t, err)

	got, err := svc.Validate(ctx, id, tk.ID, "admin")
	require.NoError(t, err)
	assert.True(t, got.Admitted)

	_, err = svc.Validate(ctx, id, tk.ID, "admin")
	assert.ErrorIs(t, err, ledger.ErrAlreadyAdmitted)
}
