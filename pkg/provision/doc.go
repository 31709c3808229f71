// Package provision decides whether a federated login maps onto an
// existing local account or provisions a new one.
//
// Accounts are matched solely by the external account key, never by
// the login name: login names can be renamed later (generated
// external logins are renamed to prefix plus internal id right after
// creation), the external key must stay stable across create and
// every later lookup.
package provision
