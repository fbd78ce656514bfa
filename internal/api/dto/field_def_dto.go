package dto

import (
	"time"

	"github.com/opsdesk/ticketing/internal/domain"
)

// CreateFieldDefRequest payload.
type CreateFieldDefRequest struct {
	Key         string               `json:"key"`
	Label       string               `json:"label"`
	Datatype    domain.FieldDatatype `json:"datatype"`
	Required    bool                 `json:"required"`
	EnumOptions []string             `json:"enum_options"`
}

// FieldDefResponse is one custom-field definition.
type FieldDefResponse struct {
	ID          string               `json:"id"`
	Key         string               `json:"key"`
	Label       string               `json:"label"`
	Datatype    domain.FieldDatatype `json:"datatype"`
	Required    bool                 `json:"required"`
	EnumOptions []string             `json:"enum_options"`
	CreatedAt   time.Time            `json:"created_at"`
}
