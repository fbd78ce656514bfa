package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/opsdesk/ticketing/internal/domain"
	"github.com/opsdesk/ticketing/internal/repository"
	apperrors "github.com/opsdesk/ticketing/pkg/util"
)

// FieldDefService manages the tenant custom-field schema.
type FieldDefService struct {
	store repository.Store
}

// NewFieldDefService constructs the service.
func NewFieldDefService(store repository.Store) *FieldDefService {
	return &FieldDefService{store: store}
}

// List returns a tenant's field definitions.
func (s *FieldDefService) List(ctx context.Context, tenantID string) ([]domain.FieldDefinition, error) {
	defs, err := s.store.FieldDefs().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return defs, nil
}

// Create declares a new custom field for the tenant. Keys are unique per
// tenant; enum fields must declare at least one option.
func (s *FieldDefService) Create(ctx context.Context, tenantID string, def domain.FieldDefinition) (*domain.FieldDefinition, error) {
	def.Key = strings.TrimSpace(def.Key)
	if def.Key == "" {
		return nil, apperrors.NewValidationError("key required", nil)
	}
	if !def.Datatype.Valid() {
		return nil, apperrors.NewValidationError("invalid datatype", map[string]any{"datatype": def.Datatype})
	}
	if def.Datatype == domain.FieldDatatypeEnum && len(def.EnumOptions) == 0 {
		return nil, apperrors.NewValidationError("enum fields require options", map[string]any{"key": def.Key})
	}
	if def.Datatype != domain.FieldDatatypeEnum {
		def.EnumOptions = nil
	}

	existing, err := s.store.FieldDefs().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, other := range existing {
		if other.Key == def.Key {
			return nil, apperrors.NewValidationError("duplicate field key", map[string]any{"key": def.Key})
		}
	}

	def.ID = uuid.NewString()
	def.TenantID = tenantID
	if err := s.store.FieldDefs().Create(ctx, &def); err != nil {
		return nil, apperrors.MapError(err)
	}
	return &def, nil
}
