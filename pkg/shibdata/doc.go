// Package shibdata normalizes the raw attribute set delivered by the
// identity federation into a canonical identity.
//
// A misconfigured service provider can aggregate the assertions of
// several identity providers into one attribute, joined by semicolons.
// The normalizer locates the relevant value index through the login
// attribute (local institution first, then the canonical vhb login)
// and de-aggregates every other attribute at that index. Without
// aggregation resolution enabled, multi-valued attributes are a fatal
// configuration error rather than a silent guess.
package shibdata
