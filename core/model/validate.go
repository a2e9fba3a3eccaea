package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"graph-store/core/utils"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one failing attribute.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationError lists the failing attributes of one object.
type ValidationError struct {
	Entity string       `json:"entity"`
	Fields []FieldError `json:"fields"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		messages = append(messages, f.Message)
	}
	return fmt.Sprintf("%s: %s", e.Entity, strings.Join(messages, "; "))
}

// Validate checks field values against the entity's attribute types and rules.
// It implements graph.Validator.
func (m *Model) Validate(entity string, fields map[string]any) error {
	e, err := m.Entity(entity)
	if err != nil {
		return err
	}

	rules := make(map[string]any)
	var failures []FieldError
	for _, name := range e.AttributeNames() {
		attr := e.Attributes[name]
		value, present := fields[name]
		if present && value != nil && !matchesType(attr.Type, value) {
			failures = append(failures, FieldError{
				Field:   name,
				Tag:     "type",
				Message: fmt.Sprintf("%s must be of type %s", name, attr.Type),
			})
			continue
		}
		if attr.Rules == "" {
			continue
		}
		if (!present || value == nil) && !hasRule(attr.Rules, "required") {
			continue
		}
		rules[name] = attr.Rules
	}

	for name, raw := range m.validate.ValidateMap(fields, rules) {
		err, _ := raw.(error)
		failures = append(failures, fieldError(name, err))
	}

	if len(failures) == 0 {
		return nil
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Field < failures[j].Field })
	return &ValidationError{Entity: entity, Fields: failures}
}

func fieldError(field string, err error) FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return FieldError{Field: field, Tag: "invalid", Message: fmt.Sprintf("%s is invalid", field)}
	}
	fe := verrs[0]
	return FieldError{Field: field, Tag: fe.Tag(), Message: msgForTag(field, fe)}
}

// msgForTag returns a human-readable error message for a validation tag.
func msgForTag(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func hasRule(rules, tag string) bool {
	for _, r := range strings.Split(rules, ",") {
		if strings.TrimSpace(r) == tag {
			return true
		}
	}
	return false
}

func matchesType(t string, value any) bool {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeInt:
		switch v := value.(type) {
		case int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
			return true
		case float64:
			// JSON-decoded storage returns every number as float64.
			return v == math.Trunc(v)
		default:
			return false
		}
	case TypeFloat:
		return utils.IsNumeric(value) && !isString(value)
	case TypeBool:
		_, ok := value.(bool)
		return ok
	default:
		return true
	}
}

func isString(value any) bool {
	switch value.(type) {
	case string, []byte:
		return true
	default:
		return false
	}
}

// Coerce converts the declared attributes of raw to their declared types.
// Undeclared keys, the identifier and nil values are dropped.
func (e *Entity) Coerce(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(e.Attributes))
	for name, attr := range e.Attributes {
		value, ok := raw[name]
		if !ok || value == nil {
			continue
		}

		switch attr.Type {
		case TypeString:
			out[name] = utils.ToString(value)
		case TypeInt:
			if !utils.IsNumeric(value) {
				return nil, fmt.Errorf("%s.%s: %v is not a number", e.Name, name, value)
			}
			f := utils.ToFloat(value)
			if f != math.Trunc(f) {
				return nil, fmt.Errorf("%s.%s: %v is not an integer", e.Name, name, value)
			}
			out[name] = int(f)
		case TypeFloat:
			if !utils.IsNumeric(value) {
				return nil, fmt.Errorf("%s.%s: %v is not a number", e.Name, name, value)
			}
			out[name] = utils.ToFloat(value)
		case TypeBool:
			out[name] = utils.ToBool(value)
		default:
			out[name] = value
		}
	}
	return out, nil
}
