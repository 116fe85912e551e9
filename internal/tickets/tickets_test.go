package tickets

import (
	"errors"
	"slices"
	"testing"

	"raffle/internal/models"
)

// fixedSource replays a script of values, wrapping each into range.
type fixedSource struct {
	values []int
	calls  []int
}

func (f *fixedSource) Intn(n int) int {
	f.calls = append(f.calls, n)
	v := f.values[0]
	f.values = f.values[1:]
	return v % n
}

func roster() []models.Participant {
	return []models.Participant{
		{ID: 4, Name: "Dana", TotalTickets: 2},
		{ID: 1, Name: "Alice", TotalTickets: 5},
		{ID: 3, Name: "Carol", TotalTickets: 0},
		{ID: 2, Name: "Bob", TotalTickets: 5},
		{ID: 5, Name: "Eve", TotalTickets: 1},
	}
}

func checkPartition(t *testing.T, pool []models.TicketedParticipant, in []models.Participant) {
	t.Helper()
	total := 0
	for _, p := range in {
		total += p.TotalTickets
	}

	seen := make(map[int]int)
	for _, p := range pool {
		if len(p.TicketNumbers) != p.TotalTickets {
			t.Errorf("participant %d: expected %d tickets, got %d", p.ID, p.TotalTickets, len(p.TicketNumbers))
		}
		if !slices.IsSorted(p.TicketNumbers) {
			t.Errorf("participant %d: tickets not sorted: %v", p.ID, p.TicketNumbers)
		}
		for _, n := range p.TicketNumbers {
			if owner, dup := seen[n]; dup {
				t.Errorf("ticket %d owned by both %d and %d", n, owner, p.ID)
			}
			seen[n] = p.ID
		}
		if len(p.TicketNumbers) > 0 {
			if p.TicketRange.Start != p.TicketNumbers[0] || p.TicketRange.End != p.TicketNumbers[len(p.TicketNumbers)-1] {
				t.Errorf("participant %d: range %+v does not match tickets", p.ID, p.TicketRange)
			}
		}
	}
	if len(seen) != total {
		t.Fatalf("expected %d distinct tickets, got %d", total, len(seen))
	}
	for n := 1; n <= total; n++ {
		if _, ok := seen[n]; !ok {
			t.Errorf("ticket %d was not assigned", n)
		}
	}
}

func TestAllocator_Allocate(t *testing.T) {
	for _, strategy := range []Strategy{Shuffled, Contiguous} {
		t.Run(string(strategy), func(t *testing.T) {
			in := roster()
			pool := NewAllocator(strategy, NewSeededSource(7)).Allocate(in)

			if len(pool) != len(in) {
				t.Fatalf("Expected %d participants, got %d", len(in), len(pool))
			}
			checkPartition(t, pool, in)

			ids := make([]int, len(pool))
			for i, p := range pool {
				ids[i] = p.ID
			}
			if !slices.Equal(ids, []int{1, 2, 3, 4, 5}) {
				t.Errorf("Expected output ordered by id, got %v", ids)
			}
			if in[0].ID != 4 {
				t.Errorf("Input roster was reordered")
			}
		})
	}

	t.Run("Contiguous blocks follow descending quota, stable on ties", func(t *testing.T) {
		pool := NewAllocator(Contiguous, nil).Allocate(roster())
		want := map[int]models.TicketRange{
			1: {Start: 1, End: 5},
			2: {Start: 6, End: 10},
			4: {Start: 11, End: 12},
			5: {Start: 13, End: 13},
			3: {},
		}
		for _, p := range pool {
			if p.TicketRange != want[p.ID] {
				t.Errorf("participant %d: expected range %+v, got %+v", p.ID, want[p.ID], p.TicketRange)
			}
		}
	})

	t.Run("Shuffled allocation is reproducible with the same seed", func(t *testing.T) {
		a := NewAllocator(Shuffled, NewSeededSource(99)).Allocate(roster())
		b := NewAllocator(Shuffled, NewSeededSource(99)).Allocate(roster())
		for i := range a {
			if !slices.Equal(a[i].TicketNumbers, b[i].TicketNumbers) {
				t.Fatalf("participant %d: %v != %v", a[i].ID, a[i].TicketNumbers, b[i].TicketNumbers)
			}
		}
	})

	t.Run("Empty roster", func(t *testing.T) {
		pool := NewAllocator(Shuffled, nil).Allocate(nil)
		if pool == nil || len(pool) != 0 {
			t.Fatalf("Expected empty non-nil slice, got %#v", pool)
		}
	})

	t.Run("Zero quota participant gets no tickets", func(t *testing.T) {
		pool := NewAllocator(Shuffled, nil).Allocate([]models.Participant{{ID: 1, TotalTickets: 0}})
		if len(pool[0].TicketNumbers) != 0 {
			t.Fatalf("Expected no tickets, got %v", pool[0].TicketNumbers)
		}
		res, err := Draw(nil, pool, 3)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(res.Winners) != 0 {
			t.Errorf("Expected no winners, got %d", len(res.Winners))
		}
	})
}

func TestParseStrategy(t *testing.T) {
	if s, err := ParseStrategy(""); err != nil || s != Shuffled {
		t.Errorf("Expected shuffled default, got %q, %v", s, err)
	}
	if s, err := ParseStrategy("contiguous"); err != nil || s != Contiguous {
		t.Errorf("Expected contiguous, got %q, %v", s, err)
	}
	if _, err := ParseStrategy("round-robin"); err == nil {
		t.Error("Expected an error for an unknown strategy")
	}
}

func TestDraw(t *testing.T) {
	sample := []models.Participant{
		{ID: 1, TotalTickets: 3},
		{ID: 2, TotalTickets: 2},
	}

	t.Run("Winners own their drawn tickets", func(t *testing.T) {
		pool := NewAllocator(Shuffled, NewSeededSource(1)).Allocate(sample)
		res, err := Draw(NewSeededSource(2), pool, 2)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if len(res.Winners) != 2 || len(res.DrawnTickets) != 2 {
			t.Fatalf("Expected 2 winners and 2 tickets, got %d and %d", len(res.Winners), len(res.DrawnTickets))
		}
		if res.Winners[0].ID == res.Winners[1].ID {
			t.Errorf("Participant %d won twice", res.Winners[0].ID)
		}
		if res.DrawnTickets[0] == res.DrawnTickets[1] {
			t.Errorf("Ticket %d drawn twice", res.DrawnTickets[0])
		}
		for i, w := range res.Winners {
			if !Owns(w, res.DrawnTickets[i]) {
				t.Errorf("Winner %d does not own ticket %d", w.ID, res.DrawnTickets[i])
			}
		}
	})

	t.Run("Selection is uniform over tickets and removes the whole block", func(t *testing.T) {
		pool := NewAllocator(Contiguous, nil).Allocate(sample)
		src := &fixedSource{values: []int{4, 0}}

		res, err := Draw(src, pool, 2)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if !slices.Equal(src.calls, []int{5, 3}) {
			t.Errorf("Expected draws over 5 then 3 tickets, got %v", src.calls)
		}
		if res.Winners[0].ID != 2 || res.DrawnTickets[0] != 5 {
			t.Errorf("Expected participant 2 with ticket 5, got %d with %d", res.Winners[0].ID, res.DrawnTickets[0])
		}
		if res.Winners[1].ID != 1 || res.DrawnTickets[1] != 1 {
			t.Errorf("Expected participant 1 with ticket 1, got %d with %d", res.Winners[1].ID, res.DrawnTickets[1])
		}
	})

	t.Run("Heavy participant still wins at most once", func(t *testing.T) {
		pool := NewAllocator(Shuffled, NewSeededSource(3)).Allocate([]models.Participant{
			{ID: 1, TotalTickets: 1000},
			{ID: 2, TotalTickets: 1},
			{ID: 3, TotalTickets: 1},
		})
		src := NewSeededSource(4)
		for range 50 {
			res, err := Draw(src, pool, 3)
			if err != nil {
				t.Fatalf("Expected no error, but got %v", err)
			}
			seen := make(map[int]bool)
			for _, w := range res.Winners {
				if seen[w.ID] {
					t.Fatalf("Participant %d won twice in one draw", w.ID)
				}
				seen[w.ID] = true
			}
			if len(seen) != 3 {
				t.Fatalf("Expected 3 distinct winners, got %d", len(seen))
			}
		}
	})

	t.Run("Exhausted pool returns a short result", func(t *testing.T) {
		pool := NewAllocator(Shuffled, NewSeededSource(5)).Allocate(sample)
		res, err := Draw(NewSeededSource(6), pool, 10)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if len(res.Winners) != 2 || len(res.DrawnTickets) != 2 {
			t.Errorf("Expected 2 winners, got %d", len(res.Winners))
		}
	})

	t.Run("Zero count and empty pool", func(t *testing.T) {
		pool := NewAllocator(Shuffled, nil).Allocate(sample)
		res, err := Draw(nil, pool, 0)
		if err != nil || len(res.Winners) != 0 {
			t.Errorf("Expected nothing drawn, got %d winners, %v", len(res.Winners), err)
		}
		res, err = Draw(nil, nil, 3)
		if err != nil || len(res.Winners) != 0 {
			t.Errorf("Expected nothing drawn, got %d winners, %v", len(res.Winners), err)
		}
	})

	t.Run("Input pool is not mutated", func(t *testing.T) {
		pool := NewAllocator(Shuffled, NewSeededSource(8)).Allocate(roster())
		before := slices.Clone(pool)
		if _, err := Draw(NewSeededSource(9), pool, 3); err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		for i := range pool {
			if pool[i].ID != before[i].ID || !slices.Equal(pool[i].TicketNumbers, before[i].TicketNumbers) {
				t.Fatalf("Pool entry %d changed", i)
			}
		}
	})

	t.Run("Orphan ticket is reported", func(t *testing.T) {
		// Unsorted block defeats the membership search.
		pool := []models.TicketedParticipant{
			{Participant: models.Participant{ID: 1, TotalTickets: 3}, TicketNumbers: []int{3, 1, 2}},
		}
		_, err := Draw(&fixedSource{values: []int{0}}, pool, 1)
		if !errors.Is(err, ErrOrphanTicket) {
			t.Fatalf("Expected ErrOrphanTicket, got %v", err)
		}
	})
}

func TestDraw_WeightedFairness(t *testing.T) {
	pool := NewAllocator(Shuffled, NewSeededSource(11)).Allocate([]models.Participant{
		{ID: 1, TotalTickets: 3},
		{ID: 2, TotalTickets: 1},
	})

	const rounds = 20000
	src := NewSeededSource(12)
	wins := 0
	for range rounds {
		res, err := Draw(src, pool, 1)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if res.Winners[0].ID == 1 {
			wins++
		}
	}

	share := float64(wins) / rounds
	if share < 0.73 || share > 0.77 {
		t.Errorf("Expected participant 1 to win about 75%% of draws, got %.3f", share)
	}
}

func TestFindOwner(t *testing.T) {
	pool := NewAllocator(Shuffled, NewSeededSource(13)).Allocate(roster())

	for _, p := range pool {
		for _, n := range p.TicketNumbers {
			owner := FindOwner(n, pool)
			if owner == nil || owner.ID != p.ID {
				t.Fatalf("ticket %d: expected owner %d, got %v", n, p.ID, owner)
			}
		}
	}

	if owner := FindOwner(0, pool); owner != nil {
		t.Errorf("Expected no owner for ticket 0, got %d", owner.ID)
	}
	if owner := FindOwner(CountTickets(pool)+1, pool); owner != nil {
		t.Errorf("Expected no owner past the last ticket, got %d", owner.ID)
	}
	if owner := FindOwner(1, nil); owner != nil {
		t.Errorf("Expected no owner in an empty pool")
	}
}

func TestExclude(t *testing.T) {
	pool := NewAllocator(Contiguous, nil).Allocate(roster())
	rest := Exclude(pool, []int{2, 5, 42})

	var ids []int
	for _, p := range rest {
		ids = append(ids, p.ID)
	}
	if !slices.Equal(ids, []int{1, 3, 4}) {
		t.Errorf("Expected remaining ids [1 3 4], got %v", ids)
	}
	if len(pool) != 5 {
		t.Errorf("Exclude modified its input")
	}
}
