// Package tickets assigns raffle ticket numbers to participants and runs
// weighted draws over the resulting ticket pool.
package tickets

import (
	"cmp"
	"fmt"
	"slices"

	"raffle/internal/models"
)

// Strategy selects how ticket numbers are distributed over participants.
type Strategy string

const (
	// Shuffled hands each participant a scattered set of numbers taken from a shuffled 1..T.
	Shuffled Strategy = "shuffled"
	// Contiguous hands each participant one consecutive block of numbers.
	Contiguous Strategy = "contiguous"
)

// ParseStrategy maps a configuration value to a Strategy. Empty means Shuffled.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", Shuffled:
		return Shuffled, nil
	case Contiguous:
		return Contiguous, nil
	}
	return "", fmt.Errorf("unknown allocation strategy %q", s)
}

// Allocator partitions the ticket space 1..T over a roster, where T is the sum of all quotas.
type Allocator struct {
	Strategy Strategy
	Source   Source
}

// NewAllocator creates an Allocator. A nil source uses Default.
func NewAllocator(strategy Strategy, src Source) *Allocator {
	return &Allocator{Strategy: strategy, Source: src}
}

// Allocate assigns every participant exactly TotalTickets distinct numbers so that
// together they cover 1..T with no gaps and no overlaps. Participants are served in
// descending quota order (stable for equal quotas) and the result is returned in
// ascending id order. The input slice is not modified.
func (a *Allocator) Allocate(participants []models.Participant) []models.TicketedParticipant {
	if len(participants) == 0 {
		return []models.TicketedParticipant{}
	}

	total := 0
	for _, p := range participants {
		total += quota(p)
	}

	numbers := make([]int, total)
	for i := range numbers {
		numbers[i] = i + 1
	}
	if a.Strategy != Contiguous {
		shuffle(numbers, orDefault(a.Source))
	}

	order := slices.Clone(participants)
	slices.SortStableFunc(order, func(x, y models.Participant) int {
		return cmp.Compare(quota(y), quota(x))
	})

	out := make([]models.TicketedParticipant, 0, len(order))
	next := 0
	for _, p := range order {
		n := quota(p)
		block := slices.Clone(numbers[next : next+n])
		next += n
		slices.Sort(block)
		out = append(out, newTicketed(p, block))
	}

	slices.SortStableFunc(out, func(x, y models.TicketedParticipant) int {
		return cmp.Compare(x.ID, y.ID)
	})
	return out
}

// shuffle is an in-place Fisher-Yates shuffle.
func shuffle(numbers []int, src Source) {
	for i := len(numbers) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		numbers[i], numbers[j] = numbers[j], numbers[i]
	}
}

func quota(p models.Participant) int {
	return max(p.TotalTickets, 0)
}

func newTicketed(p models.Participant, block []int) models.TicketedParticipant {
	if block == nil {
		block = []int{}
	}
	tp := models.TicketedParticipant{Participant: p, TicketNumbers: block}
	if len(block) > 0 {
		tp.TicketRange = models.TicketRange{Start: block[0], End: block[len(block)-1]}
	}
	return tp
}
