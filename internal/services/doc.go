// Package services implements the provider-facing half of the proxy.
//
// # OAuth
//
// [OAuthClient] builds authorization URLs and redeems codes and refresh tokens
// through [golang.org/x/oauth2], authenticating with HTTP Basic credentials.
// Code exchange is attempted exactly once. Refresh is retried once when the
// provider answers with a 5xx.
//
// # Flow
//
// [AuthService] drives one [Flow] per callback:
//
//	STARTED -> CODE_RECEIVED -> TOKEN_EXCHANGED | FAILED
//
// The session's pending state is consumed before any other check and compared
// in constant time. A callback with no pending state fails without starting.
//
// # Catalog
//
// [CatalogProxy] obtains a usable access token from [TokenManager] (refreshing
// through a per-session [singleflight.Group]), fetches the featured playlists
// with [CatalogClient] and narrows them with [FilterPlaylists].
//
// # Error Handling
//
// Provider failures surface as:
//   - [shared.RejectedError] : non-2xx response, matches [shared.ErrUpstreamRejected]
//   - [shared.ErrUpstreamUnavailable] : transport failure, timeout or undecodable body
//   - [shared.ErrUnauthenticated] : no refresh token, or the provider refused it
//   - [shared.ConfigError] : credentials missing, reported before any request is made
package services
