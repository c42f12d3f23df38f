// Package services defines the [Service] interface for remote collection
// providers and implements it for Spotify.
//
// # Service Interface
//
// The sync engine addresses the remote side entirely through [Service]:
// membership reads and writes by item key and collection id, collection
// creation and enumeration, and metadata lookups. Provider wire formats never
// leave this package.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token
// refresh. A [rate.Limiter] spaces out API calls and a single retry honors
// Retry-After when the API answers 429. Membership writes re-read the remote
// first: AddMember no-ops when the item is already present, and RemoveMember
// relies on the API deleting every occurrence of a track in one call.
//
// Refreshed tokens are surfaced through SetTokenRefreshCallback so the caller
// can write them back to the config file.
//
// # OAuth Service Extension
//
// The [OAuthService] interface extends Service for OAuth providers.
//
// [SpotifyService] implements this for the authorization-code flow driven by
// the CLI and the callback server.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token expired or refresh failed, reauthorization needed
//   - [shared.ErrRateLimited] : 429 persisted past the retry
//   - [shared.ErrCollectionNotFound] : playlist id unknown to the provider
//   - [shared.ErrAPIRequest] : any other HTTP failure
//
// # API Mappings
//
// Spotify JSON responses convert to [models.Track] (duration in
// milliseconds, first artist only) and to plain member-key slices; audio
// features map to a [models.NullInt] tempo where 0 BPM means unset.
package services
