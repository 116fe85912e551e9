package tickets

import (
	"errors"
	"fmt"
	"slices"

	"raffle/internal/models"
)

// ErrOrphanTicket means a drawn ticket could not be traced back to a participant.
// It can only happen if the pool was not produced by a single allocation run.
var ErrOrphanTicket = errors.New("drawn ticket has no owner")

// DrawResult holds the winners of one draw. Winners[i] was drawn with DrawnTickets[i].
type DrawResult struct {
	Winners      []models.TicketedParticipant `json:"winners"`
	DrawnTickets []int                        `json:"drawnTickets"`
}

// Draw selects up to count winners from pool. Each round picks one ticket uniformly
// from every ticket still in play, so a participant's chance is proportional to the
// number of tickets they hold. The winner's whole block then leaves the pool, so
// nobody wins twice within one call.
//
// Fewer than count winners are returned when the pool runs out of tickets; callers
// decide whether that is acceptable. pool itself is never modified.
func Draw(src Source, pool []models.TicketedParticipant, count int) (DrawResult, error) {
	src = orDefault(src)
	res := DrawResult{
		Winners:      []models.TicketedParticipant{},
		DrawnTickets: []int{},
	}

	working := slices.Clone(pool)
	for len(res.Winners) < count {
		available := CountTickets(working)
		if available == 0 {
			break
		}

		ticket := ticketAt(working, src.Intn(available))
		idx := ownerIndex(ticket, working)
		if idx < 0 {
			return res, fmt.Errorf("%w: ticket %d", ErrOrphanTicket, ticket)
		}

		res.Winners = append(res.Winners, working[idx])
		res.DrawnTickets = append(res.DrawnTickets, ticket)
		working = slices.Delete(working, idx, idx+1)
	}
	return res, nil
}

// ticketAt returns the k-th ticket of the pool, counting blocks in pool order.
func ticketAt(pool []models.TicketedParticipant, k int) int {
	for _, p := range pool {
		if k < len(p.TicketNumbers) {
			return p.TicketNumbers[k]
		}
		k -= len(p.TicketNumbers)
	}
	return 0
}
