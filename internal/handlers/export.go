package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"raffle/internal/models"
)

// FormatTicket renders a ticket number for display, e.g. 42 -> "#0042".
func FormatTicket(n int) string {
	return fmt.Sprintf("#%04d", n)
}

// FormatRange renders a participant's lowest and highest ticket, or "No tickets".
func FormatRange(p models.TicketedParticipant) string {
	if len(p.TicketNumbers) == 0 {
		return "No tickets"
	}
	return FormatTicket(p.TicketRange.Start) + "-" + FormatTicket(p.TicketRange.End)
}

func formatTickets(numbers []int) string {
	if len(numbers) == 0 {
		return "No tickets"
	}
	labels := make([]string, len(numbers))
	for i, n := range numbers {
		labels[i] = FormatTicket(n)
	}
	return strings.Join(labels, ", ")
}

func performanceTier(nps float64) string {
	switch {
	case nps >= 90:
		return "Excellent"
	case nps >= 80:
		return "Good"
	case nps >= 70:
		return "Average"
	}
	return "Below Average"
}

func nrpcTier(nrpc float64) string {
	switch {
	case nrpc >= 90:
		return "Excellent"
	case nrpc >= 85:
		return "Good"
	case nrpc >= 80:
		return "Average"
	}
	return "Below Average"
}

func refundRisk(refund float64) string {
	switch {
	case refund <= 3:
		return "Low"
	case refund <= 5:
		return "Medium"
	}
	return "High"
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// writeCSV streams rows as a UTF-8 CSV attachment. The BOM keeps Excel from
// mangling non-ASCII names.
func writeCSV(c *gin.Context, filename string, header []string, rows [][]string) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename="+filename)
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)
	if err := w.Write(header); err != nil {
		logger.Infof("Error writing CSV header: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
		return
	}
	if err := w.WriteAll(rows); err != nil {
		logger.Infof("Error writing CSV rows: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
	}
}

// ExportResultsCSV handles the request to download the winner records as a CSV file.
func (h *HTTPHandler) ExportResultsCSV(c *gin.Context) {
	winners, err := h.service.Winners(c.Request.Context(), tenantID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	prizes := make(map[string]models.PrizeCategory)
	for _, p := range h.service.Prizes(tenantID(c)) {
		prizes[p.ID] = p
	}

	header := []string{"Prize Category", "Prize Icon", "Drawn Ticket", "Winner Name", "Department", "Supervisor",
		"NPS Score", "NRPC Score", "Refund Percentage", "Total Tickets Owned", "Ticket Range Start",
		"Ticket Range End", "All Ticket Numbers", "Won Date", "Won Time", "Guide ID"}

	rows := make([][]string, 0, len(winners))
	for _, w := range winners {
		name := w.PrizeName
		if p, ok := prizes[w.PrizeCategory]; ok {
			name = p.Name
		}
		start, end := "N/A", "N/A"
		if len(w.TicketNumbers) > 0 {
			start = FormatTicket(w.TicketNumbers[0])
			end = FormatTicket(w.TicketNumbers[len(w.TicketNumbers)-1])
		}
		rows = append(rows, []string{
			name,
			prizes[w.PrizeCategory].Icon,
			FormatTicket(w.DrawnTicket),
			w.Name,
			w.Department,
			w.Supervisor,
			fmtFloat(w.NPS),
			fmtFloat(w.NRPC),
			fmtFloat(w.RefundPercent),
			strconv.Itoa(w.TotalTickets),
			start,
			end,
			formatTickets(w.TicketNumbers),
			w.WonAt.Format(time.DateOnly),
			w.WonAt.Format(time.TimeOnly),
			strconv.Itoa(w.ParticipantID),
		})
	}

	filename := fmt.Sprintf("Contest_Winners_Detailed_%s.csv", time.Now().Format(time.DateOnly))
	writeCSV(c, filename, header, rows)
}

// ExportPoolCSV handles the request to download every participant with their tickets.
func (h *HTTPHandler) ExportPoolCSV(c *gin.Context) {
	pool := h.service.Pool(tenantID(c))

	header := []string{"Guide ID", "Name", "Department", "Supervisor", "NPS Score", "NRPC Score",
		"Refund Percentage", "Total Tickets Assigned", "Ticket Range Start", "Ticket Range End",
		"All Assigned Tickets", "Ticket Count Verification", "Performance Tier", "NRPC Tier", "Refund Risk"}

	rows := make([][]string, 0, len(pool))
	for _, p := range pool {
		start, end := "N/A", "N/A"
		if len(p.TicketNumbers) > 0 {
			start = FormatTicket(p.TicketRange.Start)
			end = FormatTicket(p.TicketRange.End)
		}
		rows = append(rows, []string{
			strconv.Itoa(p.ID),
			p.Name,
			p.Department,
			p.Supervisor,
			fmtFloat(p.NPS),
			fmtFloat(p.NRPC),
			fmtFloat(p.RefundPercent),
			strconv.Itoa(p.TotalTickets),
			start,
			end,
			formatTickets(p.TicketNumbers),
			strconv.Itoa(len(p.TicketNumbers)),
			performanceTier(p.NPS),
			nrpcTier(p.NRPC),
			refundRisk(p.RefundPercent),
		})
	}

	filename := fmt.Sprintf("Universal_Pool_Complete_Data_%s.csv", time.Now().Format(time.DateOnly))
	writeCSV(c, filename, header, rows)
}
