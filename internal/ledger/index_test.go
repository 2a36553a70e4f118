package ledger

import (
	"testing"

	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestHolderIndex_SwapRemove(t *testing.T) {
	x := newHolderIndex()
	for id := domain.TicketID(1); id <= 4; id++ {
		x.insert(alice, id)
	}

	x.remove(alice, 2)

	assert.Equal(t, []domain.TicketID{1, 4, 3}, x.list(alice))
	assert.Equal(t, 1, x.pos[4])
	_, ok := x.pos[2]
	assert.False(t, ok)

	x.remove(alice, 3)
	assert.Equal(t, []domain.TicketID{1, 4}, x.list(alice))
}

func TestHolderIndex_RemoveLastDropsHolder(t *testing.T) {
	x := newHolderIndex()
	x.insert(bob, 7)
	x.remove(bob, 7)

	assert.Empty(t, x.list(bob))
	_, ok := x.byHolder[bob]
	assert.False(t, ok)
}

func TestHolderIndex_RemoveIgnoresForeignTicket(t *testing.T) {
	x := newHolderIndex()
	x.insert(alice, 1)
	x.insert(bob, 2)

	x.remove(alice, 2)

	assert.Equal(t, []domain.TicketID{1}, x.list(alice))
	assert.Equal(t, []domain.TicketID{2}, x.list(bob))
}

func TestHolderIndex_ListIsACopy(t *testing.T) {
	x := newHolderIndex()
	x.insert(alice, 1)

	ids := x.list(alice)
	ids[0] = 99

	assert.Equal(t, []domain.TicketID{1}, x.list(alice))
}
