package provision

import (
	"context"
	"fmt"
	"strconv"

	"github.com/DatabayAG/VhbShibAuth/pkg/config"
	"github.com/DatabayAG/VhbShibAuth/pkg/shibdata"
)

// DefaultAuthMode is assigned when no mode is configured for the
// caller's class.
const DefaultAuthMode = "shibboleth"

// Account is the local user account as far as this plugin touches it.
// Lifecycle is owned by the host user store.
type Account struct {
	ID              int64
	Login           string
	ExternalAccount string
	AuthMode        string
	GivenName       string
	Surname         string
	Mail            string
	Gender          string
	Matriculation   string
}

// AccountStore is the capability interface into the host user store.
type AccountStore interface {
	// FindByExternalAccount returns the account matching the external
	// key, or nil when none exists.
	FindByExternalAccount(ctx context.Context, key string) (*Account, error)
	// LoginExists reports whether another account already uses the
	// login name.
	LoginExists(ctx context.Context, login string, excludeID int64) (bool, error)
	// NextLoginSequence returns the next number for generated logins.
	NextLoginSequence(ctx context.Context) (int64, error)
	Create(ctx context.Context, acc *Account) (int64, error)
	Update(ctx context.Context, acc *Account) error
	// Rename changes only the login name of an account.
	Rename(ctx context.Context, id int64, login string) error
	// WritePreference upserts one user preference.
	WritePreference(ctx context.Context, userID int64, key, value string) error
}

// Decision is the provisioning outcome for one login: either a new
// account with computed fields or an update of the account found by
// the external key. It is decided once per request and consulted by
// every lifecycle callback so exactly one of create/update executes.
type Decision struct {
	IsNew         bool
	Login         string
	ExternalKey   string
	AuthMode      string
	Matriculation string

	// existing is set on the update path.
	existing *Account

	// renameAfterCreate marks generated logins that are renamed to
	// prefix plus internal id once it is known.
	renameAfterCreate string // prefix, empty = keep login
}

// Resolve looks up the account by the computed external key and
// prepares the create or update path. No store mutation happens here;
// fatal checks can still abort the flow afterwards.
func Resolve(ctx context.Context, id *shibdata.Identity, cfg *config.Catalog, store AccountStore) (*Decision, error) {
	d := &Decision{ExternalKey: externalKey(id, cfg)}

	existing, err := store.FindByExternalAccount(ctx, d.ExternalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account by external key: %w", err)
	}
	if existing != nil {
		d.existing = existing
		d.Login = existing.Login
		d.AuthMode = existing.AuthMode
		d.Matriculation = id.Matriculation
		return d, nil
	}

	d.IsNew = true
	d.AuthMode = newAuthMode(id, cfg)
	d.Matriculation = id.Matriculation
	if d.Login, d.renameAfterCreate, err = newLogin(ctx, id, cfg, store); err != nil {
		return nil, err
	}
	return d, nil
}

// externalKey computes the stable account matching key: the short
// name for local users when configured, the full login otherwise.
func externalKey(id *shibdata.Identity, cfg *config.Catalog) string {
	if id.IsLocal && cfg.GetBool(config.ParamLocalUserShortExternal) {
		return id.LocalUserName
	}
	return id.Login
}

// newLogin computes the login name for a new account.
func newLogin(ctx context.Context, id *shibdata.Identity, cfg *config.Catalog, store AccountStore) (login, renamePrefix string, err error) {
	if id.IsLocal && cfg.GetBool(config.ParamLocalUserTakeLogin) {
		login, err = uniqueLogin(ctx, store, id.LocalUserName)
		return login, "", err
	}
	if prefix := cfg.GetString(config.ParamExternalLoginPrefix); !id.IsLocal && prefix != "" {
		seq, err := store.NextLoginSequence(ctx)
		if err != nil {
			return "", "", fmt.Errorf("failed to compute login sequence: %w", err)
		}
		login, err = uniqueLogin(ctx, store, prefix+strconv.FormatInt(seq, 10))
		return login, prefix, err
	}
	login, err = uniqueLogin(ctx, store, id.Login)
	return login, "", err
}

// uniqueLogin appends .1, .2, ... until the login is free.
func uniqueLogin(ctx context.Context, store AccountStore, base string) (string, error) {
	login := base
	for n := 1; ; n++ {
		exists, err := store.LoginExists(ctx, login, 0)
		if err != nil {
			return "", fmt.Errorf("failed to check login name: %w", err)
		}
		if !exists {
			return login, nil
		}
		login = base + "." + strconv.Itoa(n)
	}
}

func newAuthMode(id *shibdata.Identity, cfg *config.Catalog) string {
	var mode string
	if id.IsLocal {
		mode = cfg.GetString(config.ParamLocalUserAuthMode)
	} else {
		mode = cfg.GetString(config.ParamExternalAuthMode)
	}
	if mode == "" {
		mode = DefaultAuthMode
	}
	return mode
}

// Apply executes the decision: exactly one of create or update,
// regardless of which host hook triggered it. Generated logins are
// renamed to prefix plus internal id after creation; the external key
// is never touched.
func (d *Decision) Apply(ctx context.Context, id *shibdata.Identity, store AccountStore) (*Account, error) {
	acc := &Account{
		Login:           d.Login,
		ExternalAccount: d.ExternalKey,
		AuthMode:        d.AuthMode,
		GivenName:       id.GivenName,
		Surname:         id.Surname,
		Mail:            id.Mail,
		Gender:          id.Gender,
		Matriculation:   d.Matriculation,
	}

	if !d.IsNew {
		acc.ID = d.existing.ID
		if err := store.Update(ctx, acc); err != nil {
			return nil, fmt.Errorf("failed to update account: %w", err)
		}
		return acc, nil
	}

	accID, err := store.Create(ctx, acc)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	acc.ID = accID

	if d.renameAfterCreate != "" {
		acc.Login = d.renameAfterCreate + strconv.FormatInt(accID, 10)
		if err := store.Rename(ctx, accID, acc.Login); err != nil {
			return nil, fmt.Errorf("failed to rename generated login: %w", err)
		}
	}
	return acc, nil
}

// WritePreferences writes preferences for newly created accounts
// only; the update path must not overwrite user choices.
func (d *Decision) WritePreferences(ctx context.Context, store AccountStore, userID int64, prefs map[string]string) error {
	if !d.IsNew {
		return nil
	}
	for key, value := range prefs {
		if err := store.WritePreference(ctx, userID, key, value); err != nil {
			return fmt.Errorf("failed to write preference %s: %w", key, err)
		}
	}
	return nil
}
