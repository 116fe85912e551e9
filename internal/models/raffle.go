package models

import "time"

// PrizeCategory represents a single prize tier in the raffle.
// WinnerCount is how many distinct participants the tier pays out to.
type PrizeCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	WinnerCount int    `json:"winnerCount"`
	Icon        string `json:"icon"`
}

// Participant represents a person entered in the raffle.
// TotalTickets is their weight in every draw; the metrics are carried for display only.
type Participant struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Supervisor    string  `json:"supervisor"`
	Department    string  `json:"department"`
	NPS           float64 `json:"nps"`
	NRPC          float64 `json:"nrpc"`
	RefundPercent float64 `json:"refundPercent"`
	TotalTickets  int     `json:"totalTickets"`
}

// TicketRange is the lowest and highest ticket number a participant holds.
// It is not guaranteed to be contiguous.
type TicketRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TicketedParticipant is a participant together with the tickets assigned to them
// by one allocation run. TicketNumbers is always sorted ascending.
type TicketedParticipant struct {
	Participant
	TicketNumbers []int       `json:"ticketNumbers"`
	TicketRange   TicketRange `json:"ticketRange"`
}

// WinnerRecord stores the outcome of a draw for one winner,
// linking a participant snapshot to a prize category and the ticket that was drawn.
type WinnerRecord struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenantId"`
	ParticipantID int       `json:"participantId"`
	Name          string    `json:"name"`
	Supervisor    string    `json:"supervisor"`
	Department    string    `json:"department"`
	NPS           float64   `json:"nps"`
	NRPC          float64   `json:"nrpc"`
	RefundPercent float64   `json:"refundPercent"`
	TotalTickets  int       `json:"totalTickets"`
	PrizeCategory string    `json:"prizeCategory"`
	PrizeName     string    `json:"prizeName"`
	TicketNumbers []int     `json:"ticketNumbers"`
	DrawnTicket   int       `json:"drawnTicket"`
	WonAt         time.Time `json:"wonAt"`
	CreatedAt     time.Time `json:"createdAt"`
}
