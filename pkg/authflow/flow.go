package authflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/DatabayAG/VhbShibAuth/pkg/config"
	"github.com/DatabayAG/VhbShibAuth/pkg/matching"
	"github.com/DatabayAG/VhbShibAuth/pkg/observability"
	"github.com/DatabayAG/VhbShibAuth/pkg/provision"
	"github.com/DatabayAG/VhbShibAuth/pkg/session"
	"github.com/DatabayAG/VhbShibAuth/pkg/shibdata"
)

// DeepLinkParam carries the course number of a deep linked login.
const DeepLinkParam = "id"

// Login outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeAmbiguity = "ambiguity"
	OutcomeDenied    = "denied"
	OutcomeError     = "error"
)

// newAccountPreferences is written once when an account is created;
// existing accounts keep whatever the user chose since.
var newAccountPreferences = map[string]string{
	"public_profile": "n",
}

// Flow wires the login pipeline. It is safe for concurrent use; all
// per-request state lives in local values.
type Flow struct {
	cfg      *config.Catalog
	accounts provision.AccountStore
	courses  matching.CourseStore
	members  matching.MembershipStore
	sessions session.Store
	logger   *observability.Logger
	metrics  *observability.Metrics // optional

	baseURL      string
	startPageURL string
}

// Options carries the redirect targets of the flow.
type Options struct {
	// BaseURL of this service as seen by the browser.
	BaseURL string
	// StartPageURL is the platform page users land on when no deep
	// link applies; course deep links are resolved relative to it.
	StartPageURL string
}

func NewFlow(cfg *config.Catalog, accounts provision.AccountStore, courses matching.CourseStore,
	members matching.MembershipStore, sessions session.Store,
	logger *observability.Logger, metrics *observability.Metrics, opts Options) *Flow {
	return &Flow{
		cfg:          cfg,
		accounts:     accounts,
		courses:      courses,
		members:      members,
		sessions:     sessions,
		logger:       logger,
		metrics:      metrics,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		startPageURL: opts.StartPageURL,
	}
}

// Result is the outcome of one successful login.
type Result struct {
	Account *provision.Account
	IsNew   bool

	// Pending holds the course selections deferred to the user, and
	// SessionID the key they were stored under. Both are zero when
	// every entitlement could be assigned directly.
	Pending   session.PendingSelection
	SessionID string

	// RedirectURL is where the browser goes next: the selection
	// screen, the deep linked course, or the start page.
	RedirectURL string
}

// Authenticate runs the pipeline for one delivered attribute set.
// Normalization, account resolution and the access gate all run
// before the first mutation, so a rejected login leaves no trace.
func (f *Flow) Authenticate(ctx context.Context, attrs shibdata.AttributeSet, query url.Values) (*Result, error) {
	attrs = shibdata.ApplyTestOverride(attrs, f.cfg, query)
	f.logger.WithField("attributes", attrs.Data()).Debug("delivered attribute set")

	id, err := shibdata.Normalize(attrs, f.cfg)
	if err != nil {
		f.countLogin(OutcomeAmbiguity)
		return nil, err
	}
	if id.Login == "" {
		f.countLogin(OutcomeError)
		return nil, fmt.Errorf("request delivered no login attribute")
	}

	matcher := matching.NewMatcher(f.cfg, f.courses, f.members, f.logger, f.metrics)

	decision, err := provision.Resolve(ctx, id, f.cfg, f.accounts)
	if err != nil {
		f.countLogin(OutcomeError)
		return nil, err
	}

	if err := matcher.CheckAccess(id, decision.IsNew); err != nil {
		f.countLogin(OutcomeDenied)
		f.logger.WithError(err).WithField("login", id.Login).Warn("login refused by access gate")
		return nil, err
	}

	acc, err := decision.Apply(ctx, id, f.accounts)
	if err != nil {
		f.countLogin(OutcomeError)
		return nil, err
	}
	f.countProvisioned(decision.IsNew)
	if err := decision.WritePreferences(ctx, f.accounts, acc.ID, newAccountPreferences); err != nil {
		f.countLogin(OutcomeError)
		return nil, err
	}

	pending, err := matcher.AssignEntitledCourses(ctx, acc.ID, id)
	if err != nil {
		f.countLogin(OutcomeError)
		return nil, err
	}

	res := &Result{Account: acc, IsNew: decision.IsNew}
	if len(pending) > 0 {
		res.Pending = pending
		res.SessionID = session.NewSessionID()
		stored := &session.Pending{UserID: acc.ID, Courses: pending}
		if err := f.sessions.Put(ctx, res.SessionID, stored); err != nil {
			f.countLogin(OutcomeError)
			return nil, fmt.Errorf("failed to store pending selection: %w", err)
		}
		if f.metrics != nil {
			f.metrics.PendingSelectionsTotal.Inc()
		}
	}

	if res.RedirectURL, err = f.redirectURL(ctx, matcher, res, query.Get(DeepLinkParam)); err != nil {
		f.countLogin(OutcomeError)
		return nil, err
	}

	f.countLogin(OutcomeOK)
	f.logger.WithFields(map[string]interface{}{
		"login":   acc.Login,
		"user_id": acc.ID,
		"new":     decision.IsNew,
		"pending": len(pending),
	}).Info("login completed")
	return res, nil
}

// redirectURL picks the post-login target. A pending selection always
// wins; the deep link is carried along so it still resolves after the
// user confirmed their courses.
func (f *Flow) redirectURL(ctx context.Context, matcher *matching.Matcher, res *Result, deepLink string) (string, error) {
	if res.SessionID != "" {
		return f.SelectionURL(res.SessionID, deepLink), nil
	}
	if deepLink != "" {
		ref, err := matcher.TargetCourseRef(ctx, deepLink)
		if err != nil {
			return "", err
		}
		if ref > 0 {
			return f.CourseURL(ref), nil
		}
	}
	return f.startPageURL, nil
}

// SelectionURL builds the course selection screen URL carrying the
// session and an optional deep link. The account the selection
// belongs to is part of the stored session state, never of the URL.
func (f *Flow) SelectionURL(sessionID string, deepLink string) string {
	q := url.Values{}
	q.Set("session", sessionID)
	if deepLink != "" {
		q.Set(DeepLinkParam, deepLink)
	}
	return f.baseURL + "/select-courses?" + q.Encode()
}

// CourseURL builds the platform deep link for a course ref.
func (f *Flow) CourseURL(refID int64) string {
	sep := "?"
	if strings.Contains(f.startPageURL, "?") {
		sep = "&"
	}
	return f.startPageURL + sep + "target=crs_" + strconv.FormatInt(refID, 10)
}

// StartPageURL is the fallback redirect target.
func (f *Flow) StartPageURL() string {
	return f.startPageURL
}

// PendingGroups loads the stored selection of a session, grouped for
// rendering. A nil result means the session expired or never existed.
func (f *Flow) PendingGroups(ctx context.Context, sessionID string) (*session.Pending, []*matching.SelectionGroup, error) {
	pending, err := f.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if pending == nil {
		return nil, nil, nil
	}
	matcher := matching.NewMatcher(f.cfg, f.courses, f.members, f.logger, f.metrics)
	groups, err := matcher.SelectionGroups(ctx, pending.Courses)
	if err != nil {
		return nil, nil, err
	}
	return pending, groups, nil
}

// CompleteSelection applies the user's choices against the stored
// selection and discards the session. The affected account is the one
// recorded at login time. The follow-up redirect resolves the deep
// link against the now-final memberships.
func (f *Flow) CompleteSelection(ctx context.Context, sessionID string, choices []matching.SelectionChoice, deepLink string) (string, error) {
	pending, err := f.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if pending == nil {
		return "", &SessionExpiredError{SessionID: sessionID}
	}

	matcher := matching.NewMatcher(f.cfg, f.courses, f.members, f.logger, f.metrics)
	if err := matcher.ApplySelection(ctx, pending.UserID, pending.Courses, choices); err != nil {
		return "", err
	}
	if err := f.sessions.Delete(ctx, sessionID); err != nil {
		f.logger.WithError(err).Warn("failed to discard confirmed selection")
	}

	if deepLink != "" {
		ref, err := matcher.TargetCourseRef(ctx, deepLink)
		if err != nil {
			return "", err
		}
		if ref > 0 {
			return f.CourseURL(ref), nil
		}
	}
	return f.startPageURL, nil
}

// SessionExpiredError reports a selection confirmation whose stored
// state is gone.
type SessionExpiredError struct {
	SessionID string
}

func (e *SessionExpiredError) Error() string {
	return "selection session " + e.SessionID + " expired or does not exist"
}

// IsAmbiguity reports whether the login failed on an aggregated
// attribute that could not be resolved.
func IsAmbiguity(err error) bool {
	var e *shibdata.ConfigAmbiguityError
	return errors.As(err, &e)
}

// IsAccessDenied reports whether the login was refused by the access
// gate.
func IsAccessDenied(err error) bool {
	var e *matching.AccessDeniedError
	return errors.As(err, &e)
}

func (f *Flow) countLogin(outcome string) {
	if f.metrics != nil {
		f.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (f *Flow) countProvisioned(isNew bool) {
	if f.metrics == nil {
		return
	}
	if isNew {
		f.metrics.AccountsProvisioned.WithLabelValues("create").Inc()
	} else {
		f.metrics.AccountsProvisioned.WithLabelValues("update").Inc()
	}
}
