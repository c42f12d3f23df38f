// Package server provides HTTP routing, middleware, the OAuth callback
// handler and the operational endpoints.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern. [Logging] is the one middleware the
// package ships: one structured line per request.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with
// method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the
// authorization code for tokens, and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Operational Endpoints
//
// [NewOpsRouter] preloads a router with /health (JSON liveness document) and
// /metrics (Prometheus exposition of the internal/metrics collectors).
//
// # Usage
//
// `tagify auth login` starts a short-lived server on the configured
// host:port, mounts the callback handler, and shuts the server down once
// the flow delivers its result. `tagify serve` keeps the same router
// running indefinitely so the sync engine's metrics stay scrapeable.
package server
