package tickets

import (
	"slices"

	"raffle/internal/models"
)

// FindOwner returns a copy of the participant holding ticket, or nil if nobody does.
func FindOwner(ticket int, pool []models.TicketedParticipant) *models.TicketedParticipant {
	idx := ownerIndex(ticket, pool)
	if idx < 0 {
		return nil
	}
	owner := pool[idx]
	return &owner
}

// Owns reports whether ticket is in p's block.
func Owns(p models.TicketedParticipant, ticket int) bool {
	_, found := slices.BinarySearch(p.TicketNumbers, ticket)
	return found
}

func ownerIndex(ticket int, pool []models.TicketedParticipant) int {
	return slices.IndexFunc(pool, func(p models.TicketedParticipant) bool {
		return Owns(p, ticket)
	})
}

// CountTickets sums the ticket blocks of pool.
func CountTickets(pool []models.TicketedParticipant) int {
	n := 0
	for _, p := range pool {
		n += len(p.TicketNumbers)
	}
	return n
}

// Exclude returns the participants of pool whose ids are not in ids, keeping pool order.
func Exclude(pool []models.TicketedParticipant, ids []int) []models.TicketedParticipant {
	skip := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := make([]models.TicketedParticipant, 0, len(pool))
	for _, p := range pool {
		if _, ok := skip[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}
