package domain

import "time"

// FieldDatatype enumerates the types a tenant may declare for a custom field.
type FieldDatatype string

const (
	FieldDatatypeString  FieldDatatype = "string"
	FieldDatatypeNumber  FieldDatatype = "number"
	FieldDatatypeBoolean FieldDatatype = "boolean"
	FieldDatatypeDate    FieldDatatype = "date"
	FieldDatatypeEnum    FieldDatatype = "enum"
)

// Valid reports whether the datatype is supported.
func (d FieldDatatype) Valid() bool {
	switch d {
	case FieldDatatypeString, FieldDatatypeNumber, FieldDatatypeBoolean,
		FieldDatatypeDate, FieldDatatypeEnum:
		return true
	}
	return false
}

// FieldDefinition declares a tenant-scoped custom field schema entry.
// Key is unique within a tenant; EnumOptions is populated only for enum.
type FieldDefinition struct {
	ID          string
	TenantID    string
	Key         string
	Label       string
	Datatype    FieldDatatype
	Required    bool
	EnumOptions []string
	CreatedAt   time.Time
}

// FieldValue is a typed custom-field value, keyed by the declared datatype.
// Exactly one payload field is meaningful for a given Kind; Null marks an
// explicit clear.
type FieldValue struct {
	Kind FieldDatatype
	Null bool

	String string
	Number float64
	Bool   bool
	Time   time.Time
	Enum   string
}

// StringValue builds a string-typed value.
func StringValue(s string) FieldValue {
	return FieldValue{Kind: FieldDatatypeString, String: s}
}

// NumberValue builds a number-typed value.
func NumberValue(n float64) FieldValue {
	return FieldValue{Kind: FieldDatatypeNumber, Number: n}
}

// BoolValue builds a boolean-typed value.
func BoolValue(b bool) FieldValue {
	return FieldValue{Kind: FieldDatatypeBoolean, Bool: b}
}

// DateValue builds a date-typed value.
func DateValue(t time.Time) FieldValue {
	return FieldValue{Kind: FieldDatatypeDate, Time: t}
}

// EnumValue builds an enum-typed value.
func EnumValue(option string) FieldValue {
	return FieldValue{Kind: FieldDatatypeEnum, Enum: option}
}

// NullValue marks a cleared field of the given declared type.
func NullValue(kind FieldDatatype) FieldValue {
	return FieldValue{Kind: kind, Null: true}
}
