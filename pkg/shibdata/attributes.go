package shibdata

import (
	"net/url"
	"sort"
	"strings"

	"github.com/DatabayAG/VhbShibAuth/pkg/config"
)

// Delimiter joining the values of several identity providers inside
// one aggregated attribute.
const Delim = ";"

// VhbSuffix is the scope of the canonical federation-issued login.
const VhbSuffix = "@vhb.org"

// Federation attribute names as delivered by the service provider.
const (
	AttrPrincipalName = "eduPersonPrincipalName"
	AttrEntitlement   = "eduPersonEntitlement"
	AttrGivenName     = "givenName"
	AttrSurname       = "sn"
	AttrMail          = "mail"
	AttrGender        = "gender"
	AttrMatriculation = "matriculation"
)

// AttributeSet is the raw identity data of one request: attribute
// name to possibly aggregated string value.
type AttributeSet map[string]string

// Get returns the named attribute or the empty string.
func (a AttributeSet) Get(name string) string {
	return a[name]
}

// Values splits a possibly aggregated attribute into its parts.
func (a AttributeSet) Values(name string) []string {
	v := a[name]
	if v == "" {
		return nil
	}
	return strings.Split(v, Delim)
}

// Clone returns a shallow copy so overrides do not touch the request
// environment.
func (a AttributeSet) Clone() AttributeSet {
	out := make(AttributeSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Data renders the set as sorted "name=value" pairs for debug logging.
func (a AttributeSet) Data() string {
	names := make([]string, 0, len(a))
	for k := range a {
		names = append(names, k)
	}
	sort.Strings(names)
	pairs := make([]string, len(names))
	for i, k := range names {
		pairs[i] = k + "=" + a[k]
	}
	return strings.Join(pairs, " ")
}

// TestQueryParam activates the test attribute override.
const TestQueryParam = "testsource"

// ApplyTestOverride substitutes the five configured test values for
// their attributes when the request carries the configured activation
// value. Used for non-production verification only; a blank
// activation parameter disables the mechanism entirely.
func ApplyTestOverride(attrs AttributeSet, cfg *config.Catalog, query url.Values) AttributeSet {
	activation := cfg.GetString(config.ParamTestActivation)
	if activation == "" || query.Get(TestQueryParam) != activation {
		return attrs
	}

	out := attrs.Clone()
	out[AttrGivenName] = cfg.GetString(config.ParamTestGivenName)
	out[AttrSurname] = cfg.GetString(config.ParamTestSurname)
	out[AttrMail] = cfg.GetString(config.ParamTestMail)
	out[loginAttribute(cfg)] = cfg.GetString(config.ParamTestPrincipalName)
	out[entitlementAttribute(cfg)] = cfg.GetString(config.ParamTestEntitlement)
	return out
}

func loginAttribute(cfg *config.Catalog) string {
	if name := cfg.GetString(config.ParamLocalUserAttrib); name != "" {
		return name
	}
	return AttrPrincipalName
}

func entitlementAttribute(cfg *config.Catalog) string {
	if name := cfg.GetString(config.ParamEntitlementAttrib); name != "" {
		return name
	}
	return AttrEntitlement
}
