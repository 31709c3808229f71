package matching

import (
	"context"
	"fmt"

	"github.com/DatabayAG/VhbShibAuth/pkg/config"
	"github.com/DatabayAG/VhbShibAuth/pkg/observability"
	"github.com/DatabayAG/VhbShibAuth/pkg/session"
	"github.com/DatabayAG/VhbShibAuth/pkg/shibdata"
)

// AccessDeniedError aborts the login flow before any account or
// membership mutation.
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string {
	return "access denied: " + e.Reason
}

// Matcher assigns entitled courses for one request. The course scan
// is memoized for the lifetime of the value, so the same instance
// serves both the assignment pass and the selection screen of a
// request.
type Matcher struct {
	cfg     *config.Catalog
	courses CourseStore
	members MembershipStore
	logger  *observability.Logger
	metrics *observability.Metrics // optional

	relevant []*Course // lazily loaded
	loaded   bool
}

// NewMatcher creates a request scoped matcher. metrics may be nil.
func NewMatcher(cfg *config.Catalog, courses CourseStore, members MembershipStore, logger *observability.Logger, metrics *observability.Metrics) *Matcher {
	return &Matcher{cfg: cfg, courses: courses, members: members, logger: logger, metrics: metrics}
}

func (m *Matcher) countAssignment(role string) {
	if m.metrics != nil {
		m.metrics.CourseAssignmentsTotal.WithLabelValues(role).Inc()
	}
}

// relevantCourses loads and memoizes the registered courses.
func (m *Matcher) relevantCourses(ctx context.Context) ([]*Course, error) {
	if !m.loaded {
		courses, err := m.courses.RelevantCourses(ctx)
		if err != nil {
			return nil, err
		}
		m.relevant = courses
		m.loaded = true
	}
	return m.relevant, nil
}

// MatchingCourses returns all registered courses whose pattern
// matches the course number.
func (m *Matcher) MatchingCourses(ctx context.Context, lvnr string) ([]*Course, error) {
	relevant, err := m.relevantCourses(ctx)
	if err != nil {
		return nil, err
	}
	var matched []*Course
	for _, course := range relevant {
		if course.MatchesCourseNumber(lvnr) {
			matched = append(matched, course)
		}
	}
	return matched, nil
}

// TargetCourseRef resolves a deep linked course number to the ref of
// the first matching course, or 0 when none matches.
func (m *Matcher) TargetCourseRef(ctx context.Context, lvnr string) (int64, error) {
	matched, err := m.MatchingCourses(ctx, lvnr)
	if err != nil {
		return 0, err
	}
	if len(matched) == 0 {
		return 0, nil
	}
	return matched[0].RefID, nil
}

// CheckAccess enforces the platform access gate. It must run before
// any account mutation. isNewAccount marks callers without an
// existing local account; provisioning one without a single
// qualifying course entitlement is refused.
func (m *Matcher) CheckAccess(id *shibdata.Identity, isNewAccount bool) error {
	if !m.cfg.GetBool(config.ParamCheckVhbAccess) {
		return nil
	}
	if !HasAccessEntitlement(id.Entitlements) {
		return &AccessDeniedError{Reason: "entitlement lacks the " + AccessEntitlement + " marker"}
	}
	if isNewAccount && len(EntitledCourses(id.Entitlements, m.cfg)) == 0 {
		return &AccessDeniedError{Reason: "new account without any course entitlement"}
	}
	return nil
}

// AssignEntitledCourses walks the entitled courses of the identity
// and either assigns them to the user or collects them as pending
// selection. Unmatched course numbers and malformed entitlements are
// skipped. The returned selection is empty when everything could be
// assigned directly.
func (m *Matcher) AssignEntitledCourses(ctx context.Context, userID int64, id *shibdata.Identity) (session.PendingSelection, error) {
	pending := session.PendingSelection{}

	for lvnr, role := range EntitledCourses(id.Entitlements, m.cfg) {
		matched, err := m.MatchingCourses(ctx, lvnr)
		if err != nil {
			return nil, err
		}
		if len(matched) == 0 {
			m.logger.WithField("lvnr", lvnr).Debug("no registered course for entitlement")
			continue
		}

		switch role {
		case RoleStudent:
			deferred, err := m.assignStudent(ctx, userID, lvnr, matched)
			if err != nil {
				return nil, err
			}
			if len(deferred) > 0 {
				pending[lvnr] = deferred
			}
		case RoleEvaluator:
			if err := m.assignCourseRole(ctx, userID, matched, m.cfg.GetString(config.ParamEvaluatorRole), RoleEvaluator); err != nil {
				return nil, err
			}
		case RoleGuest:
			if err := m.assignCourseRole(ctx, userID, matched, m.cfg.GetString(config.ParamGuestRole), RoleGuest); err != nil {
				return nil, err
			}
		default:
			m.logger.WithFields(map[string]interface{}{"lvnr": lvnr, "role": role}).
				Debug("unhandled entitlement role")
		}
	}
	return pending, nil
}

// assignStudent applies the multiplicity policy: an existing
// membership in any candidate settles the entitlement; a single
// direct-join candidate is assigned immediately; everything else is
// deferred to the selection screen.
func (m *Matcher) assignStudent(ctx context.Context, userID int64, lvnr string, matched []*Course) ([]int64, error) {
	for _, course := range matched {
		member, err := m.members.IsMember(ctx, userID, course.RefID)
		if err != nil {
			return nil, err
		}
		if member {
			return nil, nil
		}
	}

	if len(matched) == 1 && !matched[0].NeedsConfirmation {
		if err := m.joinCourse(ctx, userID, matched[0]); err != nil {
			return nil, err
		}
		return nil, nil
	}

	refs := make([]int64, 0, len(matched))
	for _, course := range matched {
		refs = append(refs, course.RefID)
	}
	m.logger.WithFields(map[string]interface{}{"lvnr": lvnr, "candidates": len(refs)}).
		Info("deferring course assignment to user selection")
	return refs, nil
}

// joinCourse adds the membership and the recommendation entry.
func (m *Matcher) joinCourse(ctx context.Context, userID int64, course *Course) error {
	member, err := m.members.IsMember(ctx, userID, course.RefID)
	if err != nil {
		return err
	}
	if !member {
		if err := m.members.AddMember(ctx, userID, course.RefID); err != nil {
			return fmt.Errorf("failed to add membership in course %d: %w", course.RefID, err)
		}
		m.countAssignment(RoleStudent)
	}
	return m.members.AddRecommendation(ctx, userID, course.RefID)
}

// assignCourseRole puts the user into the local course role whose
// title matches the configured glob pattern, for every matched
// course, and records a recommendation entry.
func (m *Matcher) assignCourseRole(ctx context.Context, userID int64, matched []*Course, pattern, vhbRole string) error {
	if pattern == "" {
		return nil
	}
	for _, course := range matched {
		member, err := m.members.IsMember(ctx, userID, course.RefID)
		if err != nil {
			return err
		}
		if member {
			continue
		}
		roles, err := m.members.LocalRoles(ctx, course.RefID)
		if err != nil {
			return err
		}
		for _, role := range roles {
			if Glob(pattern, role.Title) {
				if err := m.members.AssignRole(ctx, userID, role.ID); err != nil {
					return fmt.Errorf("failed to assign role %d: %w", role.ID, err)
				}
				m.countAssignment(vhbRole)
				if err := m.members.AddRecommendation(ctx, userID, course.RefID); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}
