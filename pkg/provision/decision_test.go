package provision

import (
	"context"
	"database/sql"
	"strconv"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DatabayAG/VhbShibAuth/pkg/config"
	"github.com/DatabayAG/VhbShibAuth/pkg/shibdata"
)

func setupUserDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE usr_data (
			usr_id INTEGER PRIMARY KEY AUTOINCREMENT,
			login VARCHAR(190) NOT NULL,
			ext_account VARCHAR(250),
			auth_mode VARCHAR(190),
			firstname VARCHAR(128) DEFAULT '',
			lastname VARCHAR(128) DEFAULT '',
			email VARCHAR(128) DEFAULT '',
			gender VARCHAR(1) DEFAULT 'n',
			matriculation VARCHAR(40) DEFAULT ''
		);
		CREATE TABLE usr_pref (
			usr_id INTEGER,
			keyword VARCHAR(40),
			value VARCHAR(4000),
			PRIMARY KEY (usr_id, keyword)
		);
	`)
	require.NoError(t, err)
	return db
}

func provisionCatalog(t *testing.T, values map[string]string) *config.Catalog {
	t.Helper()
	cfg := config.DefaultCatalog()
	for name, raw := range values {
		require.NoError(t, cfg.Set(name, raw))
	}
	return cfg
}

func seedAccount(t *testing.T, db *sql.DB, login, extAccount string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, db.QueryRow(`
		INSERT INTO usr_data (login, ext_account, auth_mode, firstname, lastname)
		VALUES ($1, $2, 'shibboleth', 'Seed', 'User')
		RETURNING usr_id
	`, login, extAccount).Scan(&id))
	return id
}

func TestResolveCreatesLocalUserTakingLogin(t *testing.T) {
	db := setupUserDB(t)
	store := NewSQLAccountStore(db)
	ctx := context.Background()
	cfg := provisionCatalog(t, map[string]string{
		config.ParamLocalUserSuffix:    "@uni-erlangen.de",
		config.ParamLocalUserTakeLogin: "1",
	})

	id := &shibdata.Identity{
		Login: "stud1@uni-erlangen.de", IsLocal: true, LocalUserName: "stud1",
		GivenName: "Stefanie", Surname: "Studentin", Mail: "stud1@example.org",
	}
	d, err := Resolve(ctx, id, cfg, store)
	require.NoError(t, err)
	assert.True(t, d.IsNew)
	assert.Equal(t, "stud1", d.Login)
	assert.Equal(t, "stud1@uni-erlangen.de", d.ExternalKey)

	acc, err := d.Apply(ctx, id, store)
	require.NoError(t, err)
	assert.Equal(t, "stud1", acc.Login)
	assert.NotZero(t, acc.ID)
}

func TestResolveSuffixesCollidingLogin(t *testing.T) {
	db := setupUserDB(t)
	store := NewSQLAccountStore(db)
	ctx := context.Background()
	seedAccount(t, db, "stud1", "someone-else")
	cfg := provisionCatalog(t, map[string]string{
		config.ParamLocalUserSuffix:    "@uni-erlangen.de",
		config.ParamLocalUserTakeLogin: "1",
	})

	id := &shibdata.Identity{Login: "stud1@uni-erlangen.de", IsLocal: true, LocalUserName: "stud1"}
	d, err := Resolve(ctx, id, cfg, store)
	require.NoError(t, err)
	assert.Equal(t, "stud1.1", d.Login)

	acc, err := d.Apply(ctx, id, store)
	require.NoError(t, err)

	// a third caller with the same short name gets .2
	seedAccount(t, db, "unrelated", "unrelated-key")
	_ = acc
	d2, err := Resolve(ctx, &shibdata.Identity{
		Login: "stud1@uni-erlangen.de", IsLocal: true, LocalUserName: "stud1",
	}, cfg, &excludeExternalKey{AccountStore: store})
	require.NoError(t, err)
	assert.Equal(t, "stud1.2", d2.Login)
}

// excludeExternalKey forces the create path so login collision
// handling can be observed for a second identical short name.
type excludeExternalKey struct {
	AccountStore
}

func (s *excludeExternalKey) FindByExternalAccount(ctx context.Context, key string) (*Account, error) {
	return nil, nil
}

func TestResolveUpdatesExistingByExternalKey(t *testing.T) {
	db := setupUserDB(t)
	store := NewSQLAccountStore(db)
	ctx := context.Background()
	userID := seedAccount(t, db, "vhb4711", "4711@vhb.org")

	cfg := provisionCatalog(t, nil)
	id := &shibdata.Identity{
		Login: "4711@vhb.org", GivenName: "Erika", Surname: "Extern",
		Mail: "erika@example.org", Gender: "f", Matriculation: "4711",
	}
	d, err := Resolve(ctx, id, cfg, store)
	require.NoError(t, err)
	assert.False(t, d.IsNew)
	assert.Equal(t, "vhb4711", d.Login, "existing login stays")

	acc, err := d.Apply(ctx, id, store)
	require.NoError(t, err)
	assert.Equal(t, userID, acc.ID)

	fresh, err := store.FindByExternalAccount(ctx, "4711@vhb.org")
	require.NoError(t, err)
	assert.Equal(t, "Erika", fresh.GivenName)
	assert.Equal(t, "vhb4711", fresh.Login)
	assert.Equal(t, "shibboleth", fresh.AuthMode, "auth mode untouched on update")
}

func TestResolveExternalPrefixRenamesAfterCreate(t *testing.T) {
	db := setupUserDB(t)
	store := NewSQLAccountStore(db)
	ctx := context.Background()
	cfg := provisionCatalog(t, map[string]string{
		config.ParamExternalLoginPrefix: "vhb",
	})

	id := &shibdata.Identity{Login: "4711@vhb.org"}
	d, err := Resolve(ctx, id, cfg, store)
	require.NoError(t, err)
	assert.True(t, d.IsNew)

	acc, err := d.Apply(ctx, id, store)
	require.NoError(t, err)
	assert.Equal(t, "vhb"+strconv.FormatInt(acc.ID, 10), acc.Login)
	assert.Equal(t, "4711@vhb.org", acc.ExternalAccount, "external key survives the rename")

	fresh, err := store.FindByExternalAccount(ctx, "4711@vhb.org")
	require.NoError(t, err)
	assert.Equal(t, acc.Login, fresh.Login)
}

func TestResolveExternalWithoutPrefixUsesFederationLogin(t *testing.T) {
	db := setupUserDB(t)
	store := NewSQLAccountStore(db)
	ctx := context.Background()
	cfg := provisionCatalog(t, nil)

	id := &shibdata.Identity{Login: "4711@vhb.org"}
	d, err := Resolve(ctx, id, cfg, store)
	require.NoError(t, err)
	assert.Equal(t, "4711@vhb.org", d.Login)
	assert.Equal(t, "shibboleth", d.AuthMode)
}

func TestExternalKeyShortForLocals(t *testing.T) {
	db := setupUserDB(t)
	store := NewSQLAccountStore(db)
	ctx := context.Background()
	cfg := provisionCatalog(t, map[string]string{
		config.ParamLocalUserShortExternal: "1",
	})

	id := &shibdata.Identity{Login: "stud1@uni-erlangen.de", IsLocal: true, LocalUserName: "stud1"}
	d, err := Resolve(ctx, id, cfg, store)
	require.NoError(t, err)
	assert.Equal(t, "stud1", d.ExternalKey)

	acc, err := d.Apply(ctx, id, store)
	require.NoError(t, err)

	// the follow-up login of the same caller finds the account
	d2, err := Resolve(ctx, id, cfg, store)
	require.NoError(t, err)
	assert.False(t, d2.IsNew)

	_, err = d2.Apply(ctx, id, store)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM usr_data`).Scan(&count))
	assert.Equal(t, 1, count, "repeat login must not create a second account")
	_ = acc
}

func TestAuthModeFallsBackToDefault(t *testing.T) {
	db := setupUserDB(t)
	store := NewSQLAccountStore(db)
	ctx := context.Background()
	cfg := provisionCatalog(t, map[string]string{
		config.ParamExternalAuthMode: "",
	})

	d, err := Resolve(ctx, &shibdata.Identity{Login: "4711@vhb.org"}, cfg, store)
	require.NoError(t, err)
	assert.Equal(t, DefaultAuthMode, d.AuthMode)
}

func TestWritePreferencesOnlyForNewAccounts(t *testing.T) {
	db := setupUserDB(t)
	store := NewSQLAccountStore(db)
	ctx := context.Background()

	newDecision := &Decision{IsNew: true}
	require.NoError(t, newDecision.WritePreferences(ctx, store, 7, map[string]string{"public_profile": "n"}))

	var value string
	require.NoError(t, db.QueryRow(
		`SELECT value FROM usr_pref WHERE usr_id = 7 AND keyword = 'public_profile'`).Scan(&value))
	assert.Equal(t, "n", value)

	// overwrite through the upsert path
	require.NoError(t, store.WritePreference(ctx, 7, "public_profile", "y"))
	require.NoError(t, db.QueryRow(
		`SELECT value FROM usr_pref WHERE usr_id = 7 AND keyword = 'public_profile'`).Scan(&value))
	assert.Equal(t, "y", value)

	updateDecision := &Decision{IsNew: false}
	require.NoError(t, updateDecision.WritePreferences(ctx, store, 8, map[string]string{"public_profile": "n"}))
	err := db.QueryRow(`SELECT value FROM usr_pref WHERE usr_id = 8`).Scan(&value)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
