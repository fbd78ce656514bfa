package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/ticketing/internal/api/dto"
	"github.com/opsdesk/ticketing/internal/auth"
	"github.com/opsdesk/ticketing/internal/domain"
	"github.com/opsdesk/ticketing/internal/service"
	apperrors "github.com/opsdesk/ticketing/pkg/util"
)

// RecurringHandler manages recurring-ticket template endpoints.
type RecurringHandler struct {
	service *service.RecurringService
}

// NewRecurringHandler constructs handler.
func NewRecurringHandler(recurringService *service.RecurringService) *RecurringHandler {
	return &RecurringHandler{service: recurringService}
}

// CreateRecurring POST /recurring-tickets.
func (h *RecurringHandler) CreateRecurring(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateRecurringRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.SiteID == "" || req.Type == "" || strings.TrimSpace(req.Description) == "" || req.StartDate == "" {
		return apperrors.NewValidationError("site_id, type, description, start_date required", nil)
	}

	rec, err := h.service.Create(c.UserContext(), principal.TenantID, service.RecurringCreateInput{
		OriginTicketID: req.OriginTicketID,
		SiteID:         req.SiteID,
		TypeKey:        req.Type,
		Description:    req.Description,
		Priority:       req.Priority,
		Details:        req.Details,
		AssignedUserID: req.AssignedUserID,
		CustomFields:   req.CustomFields,
		Frequency:      req.Frequency,
		IntervalValue:  req.IntervalValue,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		LeadTimeDays:   req.LeadTimeDays,
		IsActive:       req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": recurringResponse(rec)})
}

// ListRecurring GET /recurring-tickets.
func (h *RecurringHandler) ListRecurring(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var isActive *bool
	if v := c.Query("is_active"); v != "" {
		active := v == "true"
		isActive = &active
	}
	templates, err := h.service.List(c.UserContext(), principal.TenantID, isActive)
	if err != nil {
		return err
	}
	items := make([]dto.RecurringResponse, 0, len(templates))
	for i := range templates {
		items = append(items, recurringResponse(&templates[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetRecurring GET /recurring-tickets/:id.
func (h *RecurringHandler) GetRecurring(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	rec, err := h.service.Get(c.UserContext(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": recurringResponse(rec)})
}

// GetRecurringByTicket GET /tickets/:id/recurring.
func (h *RecurringHandler) GetRecurringByTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	rec, err := h.service.GetByOriginTicket(c.UserContext(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": recurringResponse(rec)})
}

// UpdateRecurring PATCH /recurring-tickets/:id.
func (h *RecurringHandler) UpdateRecurring(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateRecurringRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rec, err := h.service.Update(c.UserContext(), principal.TenantID, c.Params("id"), service.RecurringPatch{
		SiteID:         req.SiteID,
		TypeKey:        req.Type,
		Description:    req.Description,
		Priority:       req.Priority,
		Details:        req.Details,
		AssignedUserID: req.AssignedUserID,
		CustomFields:   req.CustomFields,
		Frequency:      req.Frequency,
		IntervalValue:  req.IntervalValue,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		LeadTimeDays:   req.LeadTimeDays,
		IsActive:       req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": recurringResponse(rec)})
}

// DeleteRecurring DELETE /recurring-tickets/:id.
func (h *RecurringHandler) DeleteRecurring(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.UserContext(), principal.TenantID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func recurringResponse(rec *domain.RecurringTicket) dto.RecurringResponse {
	return dto.RecurringResponse{
		ID:              rec.ID,
		OriginTicketID:  rec.OriginTicketID,
		SiteID:          rec.SiteID,
		Type:            rec.TypeKey,
		Description:     rec.Description,
		Priority:        rec.Priority,
		Details:         rec.Details,
		AssignedUserID:  rec.AssignedUserID,
		CustomFields:    rec.CustomFields,
		Frequency:       rec.Frequency,
		IntervalValue:   rec.IntervalValue,
		StartDate:       rec.StartDate,
		EndDate:         rec.EndDate,
		LeadTimeDays:    rec.LeadTimeDays,
		IsActive:        rec.IsActive,
		NextScheduledAt: rec.NextScheduledAt,
		LastGeneratedAt: rec.LastGeneratedAt,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}
