package shibdata

import (
	"fmt"
	"strings"

	"github.com/DatabayAG/VhbShibAuth/pkg/config"
)

// ConfigAmbiguityError reports an aggregated attribute that cannot be
// resolved because aggregation resolution is disabled. This is fatal
// for the login flow; guessing a value could bind the account to the
// wrong institution's data.
type ConfigAmbiguityError struct {
	Attribute string
	Values    []string
}

func (e *ConfigAmbiguityError) Error() string {
	return fmt.Sprintf("attribute %s carries %d aggregated values and aggregation resolution is disabled",
		e.Attribute, len(e.Values))
}

// Identity is the canonical attribute set derived from one federated
// login. It is immutable once computed.
type Identity struct {
	Login         string
	GivenName     string
	Surname       string
	Mail          string
	Gender        string // m, f or n
	Matriculation string
	Entitlements  []string

	IsLocal       bool
	LocalUserName string // login without the local suffix, locals only
}

// Normalize derives the canonical identity from the raw attribute set
// and the current parameters.
func Normalize(attrs AttributeSet, cfg *config.Catalog) (*Identity, error) {
	suffix := cfg.GetString(config.ParamLocalUserSuffix)
	logins := attrs.Values(loginAttribute(cfg))

	// Local match has priority: the index of a login carrying the
	// local suffix selects the value of every aggregated attribute.
	index := -1
	id := &Identity{}
	if suffix != "" {
		for i, login := range logins {
			if name, ok := strings.CutSuffix(login, suffix); ok && name != "" {
				id.IsLocal = true
				id.LocalUserName = name
				index = i
				break
			}
		}
	}

	// Fall back to the canonical vhb login so de-aggregation does not
	// default to an unrelated institution's values.
	if index < 0 {
		for i, login := range logins {
			if strings.HasSuffix(login, VhbSuffix) && len(login) > len(VhbSuffix) {
				index = i
				break
			}
		}
	}
	if index < 0 {
		index = 0
	}

	resolve := cfg.GetBool(config.ParamResolveAggregation)
	pick := func(name string) (string, error) {
		values := attrs.Values(name)
		switch {
		case len(values) == 0:
			return "", nil
		case len(values) == 1:
			return values[0], nil
		case !resolve:
			return "", &ConfigAmbiguityError{Attribute: name, Values: values}
		case index < len(values):
			return values[index], nil
		default:
			return values[0], nil
		}
	}

	var err error
	if id.Login, err = pick(loginAttribute(cfg)); err != nil {
		return nil, err
	}
	if id.GivenName, err = pick(AttrGivenName); err != nil {
		return nil, err
	}
	if id.Surname, err = pick(AttrSurname); err != nil {
		return nil, err
	}
	if id.Mail, err = pick(AttrMail); err != nil {
		return nil, err
	}
	var gender, matriculation string
	if gender, err = pick(AttrGender); err != nil {
		return nil, err
	}
	if matriculation, err = pick(AttrMatriculation); err != nil {
		return nil, err
	}

	id.Gender = decodeGender(gender)
	id.Matriculation = deriveMatriculation(id, matriculation, cfg)

	// Entitlements are a legitimate multi-value list, never
	// de-aggregated by index.
	for _, e := range attrs.Values(entitlementAttribute(cfg)) {
		if e = strings.TrimSpace(e); e != "" {
			id.Entitlements = append(id.Entitlements, e)
		}
	}
	return id, nil
}

// decodeGender maps the numeric vhb encoding onto m/f/n.
func decodeGender(raw string) string {
	switch raw {
	case "m", "f":
		return raw
	case "1":
		return "m"
	case "2":
		return "f"
	default:
		return "n"
	}
}

// deriveMatriculation takes the numeric prefix of the vhb login for
// external callers when the option is enabled, otherwise the
// delivered attribute.
func deriveMatriculation(id *Identity, delivered string, cfg *config.Catalog) string {
	if !id.IsLocal && cfg.GetBool(config.ParamExternalMatriculation) {
		if prefix, ok := strings.CutSuffix(id.Login, VhbSuffix); ok && isDigits(prefix) {
			return prefix
		}
	}
	return delivered
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
