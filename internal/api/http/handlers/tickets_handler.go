package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/ticketing/internal/api/dto"
	"github.com/opsdesk/ticketing/internal/auth"
	"github.com/opsdesk/ticketing/internal/domain"
	"github.com/opsdesk/ticketing/internal/repository"
	"github.com/opsdesk/ticketing/internal/service"
	apperrors "github.com/opsdesk/ticketing/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.SiteID == "" || req.Type == "" || strings.TrimSpace(req.Description) == "" {
		return apperrors.NewValidationError("site_id, type, description required", nil)
	}

	input := service.TicketCreateInput{
		SiteID:         req.SiteID,
		TypeKey:        req.Type,
		Description:    req.Description,
		Priority:       req.Priority,
		Details:        req.Details,
		AssignedUserID: req.AssignedUserID,
		DueAt:          req.DueAt,
		CustomFields:   req.CustomFields,
	}
	if req.Status != nil {
		input.Status = *req.Status
	}
	ticket, err := h.service.Create(c.UserContext(), principal.TenantID, principal.UserID, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.List(c.UserContext(), principal.TenantID, parseTicketFilter(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.Get(c.UserContext(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicketHistory GET /tickets/:id/history.
func (h *TicketsHandler) GetTicketHistory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	entries, err := h.service.History(c.UserContext(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, historyResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Update(c.UserContext(), principal.TenantID, principal.UserID, c.Params("id"), ticketPatch(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// BulkUpdateTickets POST /tickets/bulk-update.
func (h *TicketsHandler) BulkUpdateTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.BulkUpdateTicketsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	tickets, err := h.service.BulkUpdate(c.UserContext(), principal.TenantID, principal.UserID, req.IDs, ticketPatch(req.Patch))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// BulkDeleteTickets POST /tickets/bulk-delete.
func (h *TicketsHandler) BulkDeleteTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.BulkDeleteTicketsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	deleted, err := h.service.BulkDelete(c.UserContext(), principal.TenantID, principal.UserID, req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": deleted}})
}

func ticketPatch(req dto.UpdateTicketRequest) service.TicketPatch {
	return service.TicketPatch{
		SiteID:            req.SiteID,
		TypeKey:           req.Type,
		Description:       req.Description,
		Status:            req.Status,
		Priority:          req.Priority,
		Details:           req.Details,
		AssignedUserID:    req.AssignedUserID,
		DueAt:             req.DueAt,
		CustomFields:      req.CustomFields,
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
	}
}

func parseTicketFilter(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if v := c.Query("site_id"); v != "" {
		filter.SiteID = &v
	}
	if v := c.Query("status"); v != "" {
		status := domain.TicketStatus(v)
		filter.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := domain.TicketPriority(v)
		filter.Priority = &priority
	}
	if v := c.Query("type"); v != "" {
		filter.TypeKey = &v
	}
	if v := c.Query("search"); v != "" {
		filter.Search = &v
	}
	if v := c.Query("field_key"); v != "" {
		filter.CustomFieldKey = &v
	}
	if v := c.Query("field_value"); v != "" {
		filter.CustomFieldVal = &v
	}
	if v := c.Query("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			filter.Limit = limit
		}
	}
	if v := c.Query("cursor"); v != "" {
		filter.Cursor = &v
	}
	return filter
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:              t.ID,
		SiteID:          t.SiteID,
		Type:            t.IssueTypeKey,
		Description:     t.Description,
		Details:         t.Details,
		Status:          t.Status,
		Priority:        t.Priority,
		AssignedUserID:  t.AssignedUserID,
		DueAt:           t.DueAt,
		CustomFields:    t.CustomFields,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		FirstResponseAt: t.FirstResponseAt,
		ResolvedAt:      t.ResolvedAt,
	}
}

func historyResponse(e *domain.HistoryEntry) dto.HistoryEntryResponse {
	return dto.HistoryEntryResponse{
		ID:          e.ID,
		TicketID:    e.TicketID,
		ActorUserID: e.ActorUserID,
		At:          e.At,
		Changes:     e.Changes,
	}
}
