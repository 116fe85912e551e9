package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"raffle/internal/models"
	"raffle/internal/notify"
	"raffle/internal/store"
	"raffle/internal/tickets"
)

var (
	ErrPrizeNotFound         = errors.New("prize category does not exist")
	ErrPrizeExhausted        = errors.New("prize category already has all its winners")
	ErrInvalidPrize          = errors.New("invalid prize category")
	ErrNotEnoughParticipants = errors.New("not enough eligible participants for this prize")
	ErrDuplicateParticipant  = errors.New("participant id already exists")
	ErrNegativeTickets       = errors.New("ticket count cannot be negative")
	ErrTicketNotFound        = errors.New("no participant holds this ticket")
)

// RaffleSession holds the data for a single tenant. Pool is the cached
// allocation of Participants and is rebuilt whenever the roster changes.
type RaffleSession struct {
	mu           sync.Mutex
	Participants []models.Participant
	Pool         []models.TicketedParticipant
	Prizes       []models.PrizeCategory
	LastActivity time.Time
}

// Options configures a RaffleService.
type Options struct {
	Strategy   tickets.Strategy
	Source     tickets.Source
	Notifier   notify.Notifier
	Roster     []models.Participant
	SessionTTL time.Duration
}

// RaffleService manages raffle sessions and records their winners.
type RaffleService struct {
	mu         sync.RWMutex
	sessions   map[string]*RaffleSession // Key: tenantID
	allocator  *tickets.Allocator
	rng        tickets.Source
	winners    store.WinnerStore
	notifier   notify.Notifier
	roster     []models.Participant
	sessionTTL time.Duration
	now        func() time.Time
	newID      func() string
}

// NewRaffleService creates a RaffleService persisting winners to winners.
// Every new session starts from opts.Roster and DefaultPrizes.
func NewRaffleService(winners store.WinnerStore, opts Options) *RaffleService {
	src := tickets.Locked(opts.Source)
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	return &RaffleService{
		sessions:   make(map[string]*RaffleSession),
		allocator:  tickets.NewAllocator(opts.Strategy, src),
		rng:        src,
		winners:    winners,
		notifier:   opts.Notifier,
		roster:     slices.Clone(opts.Roster),
		sessionTTL: opts.SessionTTL,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// session returns the tenant's session locked, creating it if it doesn't exist.
// Callers must unlock it.
func (s *RaffleService) session(tenantID string) *RaffleSession {
	s.mu.Lock()
	sess, exists := s.sessions[tenantID]
	if !exists {
		sess = &RaffleSession{
			Participants: slices.Clone(s.roster),
			Prizes:       DefaultPrizes(),
		}
		sess.Pool = s.allocator.Allocate(sess.Participants)
		s.sessions[tenantID] = sess
		logger.Infof("Created session for tenant %s with %d participants", tenantID, len(sess.Participants))
	}
	s.mu.Unlock()

	sess.mu.Lock()
	sess.LastActivity = s.now()
	return sess
}

// LoadRoster replaces the tenant's roster and reallocates its tickets.
func (s *RaffleService) LoadRoster(tenantID string, participants []models.Participant) error {
	if err := validateRoster(participants); err != nil {
		return err
	}
	sess := s.session(tenantID)
	defer sess.mu.Unlock()

	sess.Participants = slices.Clone(participants)
	sess.Pool = s.allocator.Allocate(sess.Participants)
	logger.Infof("Loaded %d participants (%d tickets) for tenant %s",
		len(sess.Participants), tickets.CountTickets(sess.Pool), tenantID)
	return nil
}

// AddParticipant appends p to the tenant's roster and reallocates its tickets.
func (s *RaffleService) AddParticipant(tenantID string, p models.Participant) error {
	if p.TotalTickets < 0 {
		return fmt.Errorf("%w: participant %d has %d", ErrNegativeTickets, p.ID, p.TotalTickets)
	}
	sess := s.session(tenantID)
	defer sess.mu.Unlock()

	for _, existing := range sess.Participants {
		if existing.ID == p.ID {
			return fmt.Errorf("%w: %d", ErrDuplicateParticipant, p.ID)
		}
	}
	sess.Participants = append(sess.Participants, p)
	sess.Pool = s.allocator.Allocate(sess.Participants)
	return nil
}

// Reallocate throws away the cached allocation and assigns tickets again.
func (s *RaffleService) Reallocate(tenantID string) []models.TicketedParticipant {
	sess := s.session(tenantID)
	defer sess.mu.Unlock()

	sess.Pool = s.allocator.Allocate(sess.Participants)
	return slices.Clone(sess.Pool)
}

// Pool returns the tenant's ticketed participants in id order.
func (s *RaffleService) Pool(tenantID string) []models.TicketedParticipant {
	sess := s.session(tenantID)
	defer sess.mu.Unlock()
	return slices.Clone(sess.Pool)
}

// AvailablePool returns the tenant's pool minus everyone who has already won.
func (s *RaffleService) AvailablePool(ctx context.Context, tenantID string) ([]models.TicketedParticipant, error) {
	sess := s.session(tenantID)
	defer sess.mu.Unlock()
	return s.availableLocked(ctx, tenantID, sess)
}

func (s *RaffleService) availableLocked(ctx context.Context, tenantID string, sess *RaffleSession) ([]models.TicketedParticipant, error) {
	ids, err := s.winners.WinnerIDs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load winner ids: %w", err)
	}
	return tickets.Exclude(sess.Pool, ids), nil
}

// Prizes returns the tenant's prize catalog.
func (s *RaffleService) Prizes(tenantID string) []models.PrizeCategory {
	sess := s.session(tenantID)
	defer sess.mu.Unlock()
	return slices.Clone(sess.Prizes)
}

// Prize returns one category of the tenant's catalog.
func (s *RaffleService) Prize(tenantID, categoryID string) (models.PrizeCategory, error) {
	sess := s.session(tenantID)
	defer sess.mu.Unlock()
	return findPrize(sess.Prizes, categoryID)
}

func findPrize(prizes []models.PrizeCategory, categoryID string) (models.PrizeCategory, error) {
	for _, p := range prizes {
		if p.ID == categoryID {
			return p, nil
		}
	}
	return models.PrizeCategory{}, fmt.Errorf("%w: %s", ErrPrizeNotFound, categoryID)
}

// AddPrize adds a new prize category for a specific tenant.
func (s *RaffleService) AddPrize(tenantID string, c models.PrizeCategory) error {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	if c.ID == "" || c.Name == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidPrize)
	}
	if c.WinnerCount <= 0 {
		return fmt.Errorf("%w: winner count must be positive", ErrInvalidPrize)
	}

	sess := s.session(tenantID)
	defer sess.mu.Unlock()
	if _, err := findPrize(sess.Prizes, c.ID); err == nil {
		return fmt.Errorf("%w: %s already exists", ErrInvalidPrize, c.ID)
	}
	sess.Prizes = append(sess.Prizes, c)
	return nil
}

// DrawOutcome is the result of one prize draw. Winners[i] was drawn with DrawnTickets[i].
type DrawOutcome struct {
	Prize        models.PrizeCategory  `json:"prize"`
	Winners      []models.WinnerRecord `json:"winners"`
	DrawnTickets []int                 `json:"drawnTickets"`
}

// DrawPrize draws the remaining winners of a prize category from everyone who has not
// won yet and persists them. A draw that cannot fill the category is refused as a whole.
func (s *RaffleService) DrawPrize(ctx context.Context, tenantID, categoryID string) (*DrawOutcome, error) {
	sess := s.session(tenantID)
	defer sess.mu.Unlock()

	prize, err := findPrize(sess.Prizes, categoryID)
	if err != nil {
		return nil, err
	}

	records, err := s.winners.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load winners: %w", err)
	}
	need := prize.WinnerCount - countCategory(records, prize.ID)
	if need <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrPrizeExhausted, prize.Name)
	}

	available, err := s.availableLocked(ctx, tenantID, sess)
	if err != nil {
		return nil, err
	}
	eligible := slices.DeleteFunc(available, func(p models.TicketedParticipant) bool {
		return len(p.TicketNumbers) == 0
	})
	if len(eligible) < need {
		s.notifier.Notify(fmt.Sprintf("Draw for %s refused: %d winners needed, %d eligible participants left.",
			prize.Name, need, len(eligible)))
		return nil, fmt.Errorf("%w: need %d, have %d", ErrNotEnoughParticipants, need, len(eligible))
	}

	res, err := tickets.Draw(s.rng, eligible, need)
	if err != nil {
		logger.Errorf("Ticket allocation for tenant %s is inconsistent: %v", tenantID, err)
		return nil, err
	}
	if len(res.Winners) < need {
		return nil, fmt.Errorf("%w: need %d, drew %d", ErrNotEnoughParticipants, need, len(res.Winners))
	}

	now := s.now().UTC()
	out := &DrawOutcome{Prize: prize, DrawnTickets: res.DrawnTickets}
	for i, w := range res.Winners {
		out.Winners = append(out.Winners, models.WinnerRecord{
			ID:            s.newID(),
			TenantID:      tenantID,
			ParticipantID: w.ID,
			Name:          w.Name,
			Supervisor:    w.Supervisor,
			Department:    w.Department,
			NPS:           w.NPS,
			NRPC:          w.NRPC,
			RefundPercent: w.RefundPercent,
			TotalTickets:  w.TotalTickets,
			PrizeCategory: prize.ID,
			PrizeName:     prize.Name,
			TicketNumbers: slices.Clone(w.TicketNumbers),
			DrawnTicket:   res.DrawnTickets[i],
			WonAt:         now,
			CreatedAt:     now,
		})
	}

	if err := s.winners.Add(ctx, out.Winners); err != nil {
		return nil, fmt.Errorf("save winners: %w", err)
	}

	logger.Infof("Tenant %s drew %d winner(s) for %s", tenantID, len(out.Winners), prize.Name)
	s.notifier.Notify(drawMessage(out))
	return out, nil
}

func countCategory(records []models.WinnerRecord, categoryID string) int {
	n := 0
	for _, r := range records {
		if r.PrizeCategory == categoryID {
			n++
		}
	}
	return n
}

func drawMessage(out *DrawOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", out.Prize.Icon, out.Prize.Name)
	for _, w := range out.Winners {
		fmt.Fprintf(&b, "#%04d %s (%s)\n", w.DrawnTicket, w.Name, w.Department)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Winners returns the tenant's winner records, most recent first.
func (s *RaffleService) Winners(ctx context.Context, tenantID string) ([]models.WinnerRecord, error) {
	return s.winners.List(ctx, tenantID)
}

// PurgeWinners deletes every winner record of the tenant.
func (s *RaffleService) PurgeWinners(ctx context.Context, tenantID string) (int64, error) {
	sess := s.session(tenantID)
	defer sess.mu.Unlock()

	n, err := s.winners.Purge(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("purge winners: %w", err)
	}
	logger.Infof("Purged %d winner(s) for tenant %s", n, tenantID)
	return n, nil
}

// FindTicket returns the participant holding ticket in the tenant's current allocation.
func (s *RaffleService) FindTicket(tenantID string, ticket int) (*models.TicketedParticipant, error) {
	sess := s.session(tenantID)
	defer sess.mu.Unlock()

	owner := tickets.FindOwner(ticket, sess.Pool)
	if owner == nil {
		return nil, fmt.Errorf("%w: %d", ErrTicketNotFound, ticket)
	}
	return owner, nil
}

// PrizeStat reports how far a prize category has been drawn.
type PrizeStat struct {
	Category models.PrizeCategory `json:"category"`
	Drawn    int                  `json:"drawn"`
	Complete bool                 `json:"complete"`
}

// Stats summarises a tenant's raffle.
type Stats struct {
	Participants          int         `json:"participants"`
	AvailableParticipants int         `json:"availableParticipants"`
	TotalTickets          int         `json:"totalTickets"`
	AvailableTickets      int         `json:"availableTickets"`
	AverageNPS            float64     `json:"averageNps"`
	Winners               int         `json:"winners"`
	Prizes                []PrizeStat `json:"prizes"`
}

// Stats computes the dashboard summary for a tenant.
func (s *RaffleService) Stats(ctx context.Context, tenantID string) (*Stats, error) {
	sess := s.session(tenantID)
	defer sess.mu.Unlock()

	records, err := s.winners.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load winners: %w", err)
	}
	available, err := s.availableLocked(ctx, tenantID, sess)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		Participants:          len(sess.Pool),
		AvailableParticipants: len(available),
		TotalTickets:          tickets.CountTickets(sess.Pool),
		AvailableTickets:      tickets.CountTickets(available),
		Winners:               len(records),
	}
	if len(available) > 0 {
		var sum float64
		for _, p := range available {
			sum += p.NPS
		}
		st.AverageNPS = sum / float64(len(available))
	}
	for _, c := range sess.Prizes {
		drawn := countCategory(records, c.ID)
		st.Prizes = append(st.Prizes, PrizeStat{Category: c, Drawn: drawn, Complete: drawn >= c.WinnerCount})
	}
	return st, nil
}

// CleanUpInactiveSessions removes sessions that have been inactive for longer than the session TTL.
func (s *RaffleService) CleanUpInactiveSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tenantID, sess := range s.sessions {
		sess.mu.Lock()
		idle := s.now().Sub(sess.LastActivity)
		sess.mu.Unlock()
		if idle > s.sessionTTL {
			logger.Infof("Removing inactive session for tenant %s (idle %s)", tenantID, idle.Round(time.Second))
			delete(s.sessions, tenantID)
		}
	}
}

// ClearSession removes all in-memory data associated with a specific tenant.
// Winner records are kept; use PurgeWinners for those.
func (s *RaffleService) ClearSession(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tenantID)
	logger.Infof("Cleared session for tenant: %s", tenantID)
}
