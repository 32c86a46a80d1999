// Package connect orchestrates OAuth account connection flows on top of an
// existing user table: signing up with a provider, logging in with it, linking
// it to the current account, unlinking it and listing connected accounts.
//
// The Service never authenticates anyone by email. Login is decided by the
// (provider, provider user id) pair alone, and every flow first runs the
// Matcher classification so an ambiguous situation ends in a typed
// *oauth.Error instead of a mutation.
//
// Persistence goes through the Store interface; see the store subpackage for
// the Postgres and in-memory implementations. Sessions are delegated to a
// SessionIssuer supplied by the host.
package connect
