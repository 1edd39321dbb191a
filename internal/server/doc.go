// Package server provides HTTP routing, middleware and handlers for the proxy.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Handlers
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing one handler to own several paths (the current routes and their legacy aliases).
//
//   - [AuthHandler] : /auth/start, /auth/callback, /auth/refresh, /auth/logout
//   - [CatalogHandler] : /catalog/query?search=
//
// Browser routes answer with redirects; failures append a generic ?error= flag.
// API routes answer with JSON and never echo internal error text.
//
// # Sessions
//
// Handlers identify the browser through the session cookie only. The cookie value is
// an opaque id into a [session.Store]; tokens never leave the server except the fresh
// access token returned by /auth/refresh.
package server
