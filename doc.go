// Package connect implements the social account connection core for the
// BrandFlow dashboard: OAuth handshake state (CSRF tokens, PKCE pairs),
// callback validation, and connected-account credential persistence.
//
// The package is transport-agnostic. The Connector drives the OAuth redirect
// flow against an external authorization endpoint, the CredentialStore
// abstracts persistence (in-memory or bun-backed, see the repository
// package), and the Manager is the reactive facade the rest of the
// application consumes.
package connect
