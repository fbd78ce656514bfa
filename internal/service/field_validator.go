package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/opsdesk/ticketing/internal/domain"
	apperrors "github.com/opsdesk/ticketing/pkg/util"
)

// isoTimeLayouts are the accepted ISO-8601 shapes, tried in order.
var isoTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseISOTime(value string) (time.Time, bool) {
	for _, layout := range isoTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidateCustomFields checks a candidate custom-fields map against a
// tenant's field definitions and converts it to typed values. Pure; returns
// the first violation found, walking keys in sorted order so failures are
// deterministic. Null values are accepted as "clear this field" unless the
// definition marks the key required.
func ValidateCustomFields(defs []domain.FieldDefinition, raw map[string]any) (map[string]domain.FieldValue, error) {
	defsByKey := make(map[string]domain.FieldDefinition, len(defs))
	for _, def := range defs {
		defsByKey[def.Key] = def
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	typed := make(map[string]domain.FieldValue, len(raw))
	for _, key := range keys {
		def, ok := defsByKey[key]
		if !ok {
			return nil, apperrors.NewSchemaViolation(
				fmt.Sprintf("unknown custom field: %s", key), map[string]any{"field": key})
		}
		val := raw[key]
		if val == nil {
			typed[key] = domain.NullValue(def.Datatype)
			continue
		}
		fv, err := typeCheck(def, val)
		if err != nil {
			return nil, err
		}
		typed[key] = fv
	}

	defKeys := make([]string, 0, len(defsByKey))
	for key := range defsByKey {
		defKeys = append(defKeys, key)
	}
	sort.Strings(defKeys)

	for _, key := range defKeys {
		if !defsByKey[key].Required {
			continue
		}
		fv, present := typed[key]
		if !present || fv.Null {
			return nil, apperrors.NewSchemaViolation(
				fmt.Sprintf("missing required custom field: %s", key), map[string]any{"field": key})
		}
	}
	return typed, nil
}

func typeCheck(def domain.FieldDefinition, val any) (domain.FieldValue, error) {
	switch def.Datatype {
	case domain.FieldDatatypeString:
		s, ok := val.(string)
		if !ok {
			return domain.FieldValue{}, violation(def.Key, "must be a string")
		}
		return domain.StringValue(s), nil

	case domain.FieldDatatypeNumber:
		switch n := val.(type) {
		case float64:
			return domain.NumberValue(n), nil
		case int:
			return domain.NumberValue(float64(n)), nil
		case int64:
			return domain.NumberValue(float64(n)), nil
		}
		return domain.FieldValue{}, violation(def.Key, "must be a number")

	case domain.FieldDatatypeBoolean:
		b, ok := val.(bool)
		if !ok {
			return domain.FieldValue{}, violation(def.Key, "must be a boolean")
		}
		return domain.BoolValue(b), nil

	case domain.FieldDatatypeDate:
		s, ok := val.(string)
		if !ok {
			return domain.FieldValue{}, violation(def.Key, "must be an ISO date string")
		}
		t, ok := parseISOTime(s)
		if !ok {
			return domain.FieldValue{}, violation(def.Key, "must be an ISO date string")
		}
		return domain.DateValue(t), nil

	case domain.FieldDatatypeEnum:
		s, ok := val.(string)
		if !ok {
			return domain.FieldValue{}, violation(def.Key, "must be a string enum value")
		}
		for _, option := range def.EnumOptions {
			if s == option {
				return domain.EnumValue(s), nil
			}
		}
		return domain.FieldValue{}, apperrors.NewSchemaViolation(
			fmt.Sprintf("%s must be one of the allowed values", def.Key),
			map[string]any{"field": def.Key, "allowed": def.EnumOptions})
	}
	return domain.FieldValue{}, violation(def.Key, "has an unsupported datatype")
}

func violation(key, problem string) error {
	return apperrors.NewSchemaViolation(
		fmt.Sprintf("%s %s", key, problem), map[string]any{"field": key})
}
