package matching

import (
	"strings"

	"github.com/DatabayAG/VhbShibAuth/pkg/config"
)

// Federation roles inside an entitlement.
const (
	RoleStudent   = "student"
	RoleEvaluator = "evaluation"
	RoleGuest     = "appr"
)

// AccessEntitlement is the marker granting platform access, e.g.
// urn:mace:vhb.org:entitlement:vhb-access.
const AccessEntitlement = "vhb-access"

// Entitlement is the structured decomposition of one colon delimited
// entitlement string.
type Entitlement struct {
	Role         string
	Scope        string
	CourseNumber string
}

// segmentLayout holds the positional convention of one federation
// partner's URN format. It comes from configuration, not structure.
type segmentLayout struct {
	role, scope, lvnr int
}

func layoutFromConfig(cfg *config.Catalog) segmentLayout {
	return segmentLayout{
		role:  int(cfg.GetInt(config.ParamEntitlementRoleIndex)),
		scope: int(cfg.GetInt(config.ParamEntitlementScopeIndex)),
		lvnr:  int(cfg.GetInt(config.ParamEntitlementLvnrIndex)),
	}
}

// parseEntitlement decomposes one raw entitlement. Returns false for
// entries whose role or course number segment is empty or missing.
func parseEntitlement(raw string, layout segmentLayout) (Entitlement, bool) {
	parts := strings.Split(raw, ":")
	pick := func(i int) string {
		if i < 0 || i >= len(parts) {
			return ""
		}
		return strings.TrimSpace(parts[i])
	}
	e := Entitlement{
		Role:         pick(layout.role),
		Scope:        pick(layout.scope),
		CourseNumber: pick(layout.lvnr),
	}
	if e.Role == "" || e.CourseNumber == "" {
		return Entitlement{}, false
	}
	return e, true
}

// EntitledCourses reduces the raw entitlement list to course number to
// role for the local scope. A later entry for the same course number
// wins. Malformed entries are skipped.
func EntitledCourses(entitlements []string, cfg *config.Catalog) map[string]string {
	layout := layoutFromConfig(cfg)
	localScope := cfg.GetString(config.ParamLocalScope)

	courses := make(map[string]string)
	for _, raw := range entitlements {
		e, ok := parseEntitlement(raw, layout)
		if !ok || e.Scope != localScope {
			continue
		}
		courses[e.CourseNumber] = e.Role
	}
	return courses
}

// HasAccessEntitlement reports whether the entitlement list carries
// the platform access marker.
func HasAccessEntitlement(entitlements []string) bool {
	for _, raw := range entitlements {
		if raw == AccessEntitlement || strings.HasSuffix(raw, ":"+AccessEntitlement) {
			return true
		}
	}
	return false
}
