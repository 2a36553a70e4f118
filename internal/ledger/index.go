package ledger

import "github.com/kirinyoku/tix-ledger/internal/domain"

// holderIndex maps a holder to the unordered set of tickets it holds.
// pos records where each ticket sits in its holder's slice so removal is
// a swap with the last element followed by a truncate.
type holderIndex struct {
	byHolder map[domain.Identity][]domain.TicketID
	pos      map[domain.TicketID]int
}

func newHolderIndex() *holderIndex {
	return &holderIndex{
		byHolder: make(map[domain.Identity][]domain.TicketID),
		pos:      make(map[domain.TicketID]int),
	}
}

func (x *holderIndex) insert(holder domain.Identity, id domain.TicketID) {
	ids := x.byHolder[holder]
	x.pos[id] = len(ids)
	x.byHolder[holder] = append(ids, id)
}

func (x *holderIndex) remove(holder domain.Identity, id domain.TicketID) {
	ids := x.byHolder[holder]
	i, ok := x.pos[id]
	if !ok || i >= len(ids) || ids[i] != id {
		return
	}

	last := len(ids) - 1
	if i != last {
		moved := ids[last]
		ids[i] = moved
		x.pos[moved] = i
	}
	ids = ids[:last]
	delete(x.pos, id)

	if len(ids) == 0 {
		delete(x.byHolder, holder)
		return
	}
	x.byHolder[holder] = ids
}

func (x *holderIndex) move(from, to domain.Identity, id domain.TicketID) {
	x.remove(from, id)
	x.insert(to, id)
}

func (x *holderIndex) list(holder domain.Identity) []domain.TicketID {
	ids := x.byHolder[holder]
	out := make([]domain.TicketID, len(ids))
	copy(out, ids)
	return out
}
