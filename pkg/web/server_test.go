package web

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DatabayAG/VhbShibAuth/pkg/authflow"
	"github.com/DatabayAG/VhbShibAuth/pkg/config"
	"github.com/DatabayAG/VhbShibAuth/pkg/matching"
	"github.com/DatabayAG/VhbShibAuth/pkg/observability"
	"github.com/DatabayAG/VhbShibAuth/pkg/provision"
	"github.com/DatabayAG/VhbShibAuth/pkg/session"
	"github.com/DatabayAG/VhbShibAuth/pkg/shibdata"
)

type serverFixture struct {
	db     *sql.DB
	cfg    *config.Catalog
	flow   *authflow.Flow
	server *Server
	router http.Handler
}

func setupWebDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE usr_data (
			usr_id INTEGER PRIMARY KEY AUTOINCREMENT,
			login VARCHAR(190) NOT NULL, ext_account VARCHAR(250),
			auth_mode VARCHAR(190), firstname VARCHAR(128) DEFAULT '',
			lastname VARCHAR(128) DEFAULT '', email VARCHAR(128) DEFAULT '',
			gender VARCHAR(1) DEFAULT 'n', matriculation VARCHAR(40) DEFAULT ''
		);
		CREATE TABLE usr_pref (
			usr_id INTEGER, keyword VARCHAR(40), value VARCHAR(4000),
			PRIMARY KEY (usr_id, keyword)
		);
		CREATE TABLE object_data (
			obj_id INTEGER PRIMARY KEY AUTOINCREMENT, type VARCHAR(8),
			title VARCHAR(255), description VARCHAR(255) DEFAULT '', offline INTEGER DEFAULT 0
		);
		CREATE TABLE object_reference (
			ref_id INTEGER PRIMARY KEY AUTOINCREMENT, obj_id INTEGER, deleted INTEGER DEFAULT 0
		);
		CREATE TABLE crs_settings (obj_id INTEGER PRIMARY KEY, subscription_confirmation INTEGER DEFAULT 0);
		CREATE TABLE il_meta_identifier (obj_id INTEGER, obj_type VARCHAR(8), catalog VARCHAR(32), entry VARCHAR(255));
		CREATE TABLE il_meta_keyword (obj_id INTEGER, obj_type VARCHAR(8), keyword VARCHAR(255));
		CREATE TABLE obj_members (obj_id INTEGER, usr_id INTEGER, member INTEGER DEFAULT 0, PRIMARY KEY (obj_id, usr_id));
		CREATE TABLE rep_rec_content (usr_id INTEGER, ref_id INTEGER, PRIMARY KEY (usr_id, ref_id));
		CREATE TABLE rbac_fa (rol_id INTEGER, parent_ref INTEGER);
		CREATE TABLE rbac_ua (usr_id INTEGER, rol_id INTEGER, PRIMARY KEY (usr_id, rol_id));
		CREATE TABLE crs_waiting_list (obj_id INTEGER, usr_id INTEGER, sub_time INTEGER, PRIMARY KEY (obj_id, usr_id));
		CREATE TABLE vhbshib_config (param_name VARCHAR(255) PRIMARY KEY, param_value VARCHAR(255));
	`)
	require.NoError(t, err)
	return db
}

func newServerFixture(t *testing.T, values map[string]string) *serverFixture {
	t.Helper()
	db := setupWebDB(t)
	cfg := config.DefaultCatalog()
	for name, raw := range values {
		require.NoError(t, cfg.Set(name, raw))
	}
	logger := observability.NewLogger(observability.ParseLogLevel("error"), io.Discard)

	courses := matching.NewSQLCourseStore(db)
	flow := authflow.NewFlow(cfg,
		provision.NewSQLAccountStore(db),
		courses,
		matching.NewSQLMembershipStore(db),
		session.NewMemoryStore(time.Minute),
		logger, nil,
		authflow.Options{BaseURL: "http://sp.example", StartPageURL: "http://lms.example/start"})

	server := NewServer(flow, cfg, config.NewStore(db), courses, nil, logger, nil)
	return &serverFixture{db: db, cfg: cfg, flow: flow, server: server, router: server.Router()}
}

func addWebCourse(t *testing.T, db *sql.DB, title, keyword string, confirmation int) (refID int64) {
	t.Helper()
	var objID int64
	require.NoError(t, db.QueryRow(
		`INSERT INTO object_data (type, title) VALUES ('crs', $1) RETURNING obj_id`, title).Scan(&objID))
	require.NoError(t, db.QueryRow(
		`INSERT INTO object_reference (obj_id) VALUES ($1) RETURNING ref_id`, objID).Scan(&refID))
	_, err := db.Exec(`INSERT INTO crs_settings (obj_id, subscription_confirmation) VALUES ($1, $2)`, objID, confirmation)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO il_meta_keyword (obj_id, obj_type, keyword) VALUES ($1, 'crs', $2)`, objID, keyword)
	require.NoError(t, err)
	return refID
}

func TestLoginViaHeaders(t *testing.T) {
	fx := newServerFixture(t, map[string]string{config.ParamLocalScope: "uni-erlangen.de"})
	addWebCourse(t, fx.db, "Algebra", "LV_1_2_1_67_1", 0)

	req := httptest.NewRequest(http.MethodGet, "/auth/shibboleth/login", nil)
	req.Header.Set(shibdata.AttrPrincipalName, "4711@vhb.org")
	req.Header.Set(shibdata.AttrGivenName, "Erika")
	req.Header.Set(shibdata.AttrSurname, "Extern")
	req.Header.Set(shibdata.AttrMail, "erika@example.org")
	req.Header.Set(shibdata.AttrEntitlement,
		"urn:mace:vhb.org:entitlement:lms:student:uni-erlangen.de:LV_1_2_1_67_1")

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://lms.example/start", rec.Header().Get("Location"))

	var count int
	require.NoError(t, fx.db.QueryRow(`SELECT COUNT(*) FROM usr_data`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestLoginDeniedRendersForbidden(t *testing.T) {
	fx := newServerFixture(t, map[string]string{
		config.ParamLocalScope:     "uni-erlangen.de",
		config.ParamCheckVhbAccess: "1",
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/shibboleth/login", nil)
	req.Header.Set(shibdata.AttrPrincipalName, "4711@vhb.org")
	req.Header.Set(shibdata.AttrEntitlement,
		"urn:mace:vhb.org:entitlement:lms:student:uni-erlangen.de:LV_1_2_1_67_1")

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied")
}

func TestLoginAmbiguityRendersConflict(t *testing.T) {
	fx := newServerFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/shibboleth/login", nil)
	req.Header.Set(shibdata.AttrPrincipalName, "a@vhb.org")
	req.Header.Set(shibdata.AttrGivenName, "Erika;Max")

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func loginPending(t *testing.T, fx *serverFixture) (location string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/shibboleth/login", nil)
	req.Header.Set(shibdata.AttrPrincipalName, "4711@vhb.org")
	req.Header.Set(shibdata.AttrEntitlement,
		"urn:mace:vhb.org:entitlement:lms:student:uni-erlangen.de:LV_1_2_1_67_1")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)
	location = rec.Header().Get("Location")
	require.Contains(t, location, "/select-courses?")
	return location
}

func TestSelectionRoundTrip(t *testing.T) {
	fx := newServerFixture(t, map[string]string{config.ParamLocalScope: "uni-erlangen.de"})
	directRef := addWebCourse(t, fx.db, "Summer term", "LV_1_2_1_67_1", 0)
	confirmRef := addWebCourse(t, fx.db, "Any term", "LV_1_2_1_*_1", 1)

	location := loginPending(t, fx)
	u, err := url.Parse(location)
	require.NoError(t, err)

	// the selection screen lists both candidates
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/select-courses?"+u.RawQuery, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Summer term")
	assert.Contains(t, rec.Body.String(), "Any term")
	assert.Contains(t, rec.Body.String(), "LV_1_2_1_67_1")

	// confirm: join the direct candidate, request the other
	form := url.Values{}
	form.Set("session", u.Query().Get("session"))
	form.Set("direct_LV_1_2_1_67_1", strconv.FormatInt(directRef, 10))
	form.Add("wait_LV_1_2_1_67_1", strconv.FormatInt(confirmRef, 10))

	req := httptest.NewRequest(http.MethodPost, "/select-courses", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://lms.example/start", rec.Header().Get("Location"))

	var members, waiting int
	require.NoError(t, fx.db.QueryRow(`SELECT COUNT(*) FROM obj_members WHERE member = 1`).Scan(&members))
	require.NoError(t, fx.db.QueryRow(`SELECT COUNT(*) FROM crs_waiting_list`).Scan(&waiting))
	assert.Equal(t, 1, members)
	assert.Equal(t, 1, waiting)

	// replay is gone
	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/select-courses?"+u.RawQuery, nil))
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestSelectionWithoutSession(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/select-courses", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/select-courses?session=unknown", nil))
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestSelectionIgnoresForeignUserField(t *testing.T) {
	fx := newServerFixture(t, map[string]string{config.ParamLocalScope: "uni-erlangen.de"})
	directRef := addWebCourse(t, fx.db, "Summer term", "LV_1_2_1_67_1", 0)
	addWebCourse(t, fx.db, "Any term", "LV_1_2_1_*_1", 1)

	location := loginPending(t, fx)
	u, err := url.Parse(location)
	require.NoError(t, err)

	// a confirmation naming somebody else's user id only ever writes
	// for the account the session was created for
	form := url.Values{}
	form.Set("session", u.Query().Get("session"))
	form.Set("user", "9999")
	form.Set("direct_LV_1_2_1_67_1", strconv.FormatInt(directRef, 10))

	req := httptest.NewRequest(http.MethodPost, "/select-courses", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)

	var forged, own int
	require.NoError(t, fx.db.QueryRow(`SELECT COUNT(*) FROM obj_members WHERE usr_id = 9999`).Scan(&forged))
	require.NoError(t, fx.db.QueryRow(`
		SELECT COUNT(*) FROM obj_members m
		INNER JOIN usr_data u ON u.usr_id = m.usr_id
		WHERE u.ext_account = '4711@vhb.org' AND m.member = 1
	`).Scan(&own))
	assert.Zero(t, forged)
	assert.Equal(t, 1, own)
}

func TestSettingsFormRoundTrip(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Local user suffix")
	assert.Contains(t, rec.Body.String(), "Course assignment settings")

	form := url.Values{}
	form.Set(config.ParamLocalUserSuffix, "@uni-erlangen.de")
	form.Set(config.ParamLocalUserTakeLogin, "1")
	form.Set(config.ParamLocalScope, "uni-erlangen.de")
	form.Set(config.ParamEntitlementRoleIndex, "5")
	form.Set(config.ParamEntitlementScopeIndex, "6")
	form.Set(config.ParamEntitlementLvnrIndex, "7")

	req := httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	assert.Equal(t, "@uni-erlangen.de", fx.cfg.GetString(config.ParamLocalUserSuffix))
	assert.True(t, fx.cfg.GetBool(config.ParamLocalUserTakeLogin))

	// persisted through the config store
	loaded := config.DefaultCatalog()
	require.NoError(t, config.NewStore(fx.db).Load(context.Background(), loaded))
	assert.Equal(t, "uni-erlangen.de", loaded.GetString(config.ParamLocalScope))
}

func TestSettingsFormRejectsBadInteger(t *testing.T) {
	fx := newServerFixture(t, map[string]string{config.ParamLocalScope: "uni-erlangen.de"})

	form := url.Values{}
	form.Set(config.ParamEntitlementRoleIndex, "five")
	form.Set(config.ParamLocalScope, "uni-wuerzburg.de")

	req := httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "expects an integer")

	// the rejected form redisplays the posted value but nothing of it
	// went live
	assert.Contains(t, rec.Body.String(), "uni-wuerzburg.de")
	assert.Equal(t, "uni-erlangen.de", fx.cfg.GetString(config.ParamLocalScope))
	assert.Equal(t, int64(5), fx.cfg.GetInt(config.ParamEntitlementRoleIndex))
}

func TestSettingsUncheckedBoolTurnsOff(t *testing.T) {
	fx := newServerFixture(t, map[string]string{config.ParamCheckVhbAccess: "1"})
	require.True(t, fx.cfg.GetBool(config.ParamCheckVhbAccess))

	req := httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, fx.cfg.GetBool(config.ParamCheckVhbAccess))
}
