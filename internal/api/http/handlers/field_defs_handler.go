package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/ticketing/internal/api/dto"
	"github.com/opsdesk/ticketing/internal/auth"
	"github.com/opsdesk/ticketing/internal/domain"
	"github.com/opsdesk/ticketing/internal/service"
	apperrors "github.com/opsdesk/ticketing/pkg/util"
)

// FieldDefsHandler manages custom-field schema endpoints.
type FieldDefsHandler struct {
	service *service.FieldDefService
}

// NewFieldDefsHandler constructs handler.
func NewFieldDefsHandler(fieldDefService *service.FieldDefService) *FieldDefsHandler {
	return &FieldDefsHandler{service: fieldDefService}
}

// ListFieldDefs GET /field-defs.
func (h *FieldDefsHandler) ListFieldDefs(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	defs, err := h.service.List(c.UserContext(), principal.TenantID)
	if err != nil {
		return err
	}
	items := make([]dto.FieldDefResponse, 0, len(defs))
	for i := range defs {
		items = append(items, fieldDefResponse(&defs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateFieldDef POST /field-defs.
func (h *FieldDefsHandler) CreateFieldDef(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateFieldDefRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	def, err := h.service.Create(c.UserContext(), principal.TenantID, domain.FieldDefinition{
		Key:         req.Key,
		Label:       req.Label,
		Datatype:    req.Datatype,
		Required:    req.Required,
		EnumOptions: req.EnumOptions,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fieldDefResponse(def)})
}

func fieldDefResponse(def *domain.FieldDefinition) dto.FieldDefResponse {
	return dto.FieldDefResponse{
		ID:          def.ID,
		Key:         def.Key,
		Label:       def.Label,
		Datatype:    def.Datatype,
		Required:    def.Required,
		EnumOptions: def.EnumOptions,
		CreatedAt:   def.CreatedAt,
	}
}
