package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind declares how a parameter value is coerced and rendered.
type Kind string

const (
	KindHead   Kind = "head" // section heading, carries no value
	KindText   Kind = "text"
	KindBool   Kind = "bool"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindSelect Kind = "select"
)

// Param is a single catalog entry. Value holds the coerced value
// according to Kind: string, bool, int64 or float64.
type Param struct {
	Name        string
	Title       string
	Description string
	Kind        Kind
	Value       any
	Options     []string // allowed values for KindSelect
}

// Coerce converts a raw string into the parameter's typed value.
func (p *Param) Coerce(raw string) (any, error) {
	switch p.Kind {
	case KindHead:
		return nil, nil
	case KindText, KindSelect:
		return raw, nil
	case KindBool:
		return parseBool(raw), nil
	case KindInt:
		if raw == "" {
			return int64(0), nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s expects an integer: %w", p.Name, err)
		}
		return n, nil
	case KindFloat:
		if raw == "" {
			return float64(0), nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s expects a number: %w", p.Name, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown parameter kind %q", p.Kind)
	}
}

// StringValue renders the current value the way it is persisted.
func (p *Param) StringValue() string {
	switch v := p.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parseBool accepts the forms the settings form and older persisted
// rows deliver.
func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
