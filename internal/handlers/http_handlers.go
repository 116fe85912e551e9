package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"raffle/internal/models"
	"raffle/internal/services"
	"raffle/internal/tickets"
)

const (
	tenantHeader  = "X-Tenant-ID"
	tenantCookie  = "tenant_id"
	tenantKey     = "tenantID"
	defaultTenant = "default"
)

// HTTPHandler holds the dependencies for the HTTP handlers, like the raffle service.
type HTTPHandler struct {
	service *services.RaffleService
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.RaffleService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// TenantMiddleware resolves the tenant from the X-Tenant-ID header or the
// tenant_id cookie, falling back to the default tenant.
func (h *HTTPHandler) TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.GetHeader(tenantHeader))
		if tenantID == "" {
			if cookie, err := c.Cookie(tenantCookie); err == nil {
				tenantID = strings.TrimSpace(cookie)
			}
		}
		if tenantID == "" {
			tenantID = defaultTenant
		}
		c.Set(tenantKey, tenantID)
		c.Next()
	}
}

func tenantID(c *gin.Context) string {
	return c.GetString(tenantKey)
}

// RegisterPublicRoutes registers the routes that need no tenant.
func (h *HTTPHandler) RegisterPublicRoutes(router gin.IRoutes) {
	router.GET("/health", h.Health)
}

// RegisterTenantRoutes registers all the tenant-scoped application routes.
func (h *HTTPHandler) RegisterTenantRoutes(router gin.IRoutes) {
	router.GET("/participants", h.ListParticipants)
	router.POST("/participants", h.AddParticipant)
	router.PUT("/participants", h.ReplaceParticipants)
	router.POST("/upload-participants-csv", h.UploadParticipantsCSV)
	router.POST("/reallocate", h.Reallocate)
	router.GET("/tickets/:number", h.FindTicket)
	router.GET("/prizes", h.ListPrizes)
	router.POST("/prizes", h.AddPrize)
	router.POST("/draw", h.PerformDraw)
	router.GET("/winners", h.ListWinners)
	router.DELETE("/winners", h.PurgeWinners)
	router.GET("/stats", h.Stats)
	router.GET("/export-results-csv", h.ExportResultsCSV)
	router.GET("/export-pool-csv", h.ExportPoolCSV)
}

// writeError maps service errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrPrizeNotFound), errors.Is(err, services.ErrTicketNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrPrizeExhausted),
		errors.Is(err, services.ErrNotEnoughParticipants),
		errors.Is(err, services.ErrDuplicateParticipant):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidPrize), errors.Is(err, services.ErrNegativeTickets):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Health handles liveness checks.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// participantView decorates a ticketed participant with display labels.
type participantView struct {
	models.TicketedParticipant
	TicketLabels []string `json:"ticketLabels"`
	RangeLabel   string   `json:"rangeLabel"`
}

func newParticipantView(p models.TicketedParticipant) participantView {
	labels := make([]string, len(p.TicketNumbers))
	for i, n := range p.TicketNumbers {
		labels[i] = FormatTicket(n)
	}
	return participantView{TicketedParticipant: p, TicketLabels: labels, RangeLabel: FormatRange(p)}
}

func participantViews(pool []models.TicketedParticipant) []participantView {
	views := make([]participantView, len(pool))
	for i, p := range pool {
		views[i] = newParticipantView(p)
	}
	return views
}

// ListParticipants returns the ticketed pool. ?available=true drops past winners.
func (h *HTTPHandler) ListParticipants(c *gin.Context) {
	pool := h.service.Pool(tenantID(c))
	if c.Query("available") == "true" {
		var err error
		if pool, err = h.service.AvailablePool(c.Request.Context(), tenantID(c)); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"participants": participantViews(pool),
		"totalTickets": tickets.CountTickets(pool),
	})
}

// AddParticipant handles adding a single participant.
func (h *HTTPHandler) AddParticipant(c *gin.Context) {
	var p models.Participant
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant: " + err.Error()})
		return
	}
	if strings.TrimSpace(p.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "participant name cannot be empty"})
		return
	}
	if err := h.service.AddParticipant(tenantID(c), p); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"participants": participantViews(h.service.Pool(tenantID(c)))})
}

// ReplaceParticipants replaces the roster with a JSON array of participants.
func (h *HTTPHandler) ReplaceParticipants(c *gin.Context) {
	var participants []models.Participant
	if err := c.ShouldBindJSON(&participants); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid roster: " + err.Error()})
		return
	}
	if err := h.service.LoadRoster(tenantID(c), participants); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participantViews(h.service.Pool(tenantID(c)))})
}

// UploadParticipantsCSV handles the CSV upload for participants.
func (h *HTTPHandler) UploadParticipantsCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("participantCSV")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error retrieving file: " + err.Error()})
		return
	}
	defer file.Close()

	participants, err := services.ParseRosterCSV(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.LoadRoster(tenantID(c), participants); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participantViews(h.service.Pool(tenantID(c)))})
}

// Reallocate reassigns every participant's tickets.
func (h *HTTPHandler) Reallocate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"participants": participantViews(h.service.Reallocate(tenantID(c)))})
}

// FindTicket resolves a ticket number, with or without a leading '#', to its owner.
func (h *HTTPHandler) FindTicket(c *gin.Context) {
	number, err := strconv.Atoi(strings.TrimPrefix(c.Param("number"), "#"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket number"})
		return
	}
	owner, err := h.service.FindTicket(tenantID(c), number)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": FormatTicket(number), "owner": newParticipantView(*owner)})
}

// ListPrizes returns the prize catalog with draw progress.
func (h *HTTPHandler) ListPrizes(c *gin.Context) {
	st, err := h.service.Stats(c.Request.Context(), tenantID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prizes": st.Prizes})
}

// AddPrize handles adding a new prize category.
func (h *HTTPHandler) AddPrize(c *gin.Context) {
	var p models.PrizeCategory
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prize: " + err.Error()})
		return
	}
	if err := h.service.AddPrize(tenantID(c), p); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"prizes": h.service.Prizes(tenantID(c))})
}

type drawRequest struct {
	CategoryID string `json:"categoryId" form:"categoryId" binding:"required"`
}

// PerformDraw handles the request to draw the winners of a prize category.
func (h *HTTPHandler) PerformDraw(c *gin.Context) {
	var req drawRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please select a prize category"})
		return
	}

	out, err := h.service.DrawPrize(c.Request.Context(), tenantID(c), req.CategoryID)
	if err != nil {
		writeError(c, err)
		return
	}

	labels := make([]string, len(out.DrawnTickets))
	for i, n := range out.DrawnTickets {
		labels[i] = FormatTicket(n)
	}
	c.JSON(http.StatusOK, gin.H{
		"prize":        out.Prize,
		"winners":      out.Winners,
		"drawnTickets": out.DrawnTickets,
		"ticketLabels": labels,
	})
}

// ListWinners returns the winner records, most recent first.
func (h *HTTPHandler) ListWinners(c *gin.Context) {
	winners, err := h.service.Winners(c.Request.Context(), tenantID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"winners": winners})
}

// PurgeWinners deletes every winner record of the tenant.
func (h *HTTPHandler) PurgeWinners(c *gin.Context) {
	n, err := h.service.PurgeWinners(c.Request.Context(), tenantID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": n})
}

// Stats returns the dashboard summary.
func (h *HTTPHandler) Stats(c *gin.Context) {
	st, err := h.service.Stats(c.Request.Context(), tenantID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
