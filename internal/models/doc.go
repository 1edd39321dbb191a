// Package models defines the domain entities shared by the session store, the OAuth client and the catalog proxy.
//
// Session state:
//   - [Session] : per-browser state carried by an opaque cookie id
//   - [TokenSet] : credentials returned by the provider's token endpoint
//   - [AuthorizationRequest] : the pending request between /auth/start and /auth/callback
//   - [FlowStatus] : the position of one authorization flow in its state machine
//
// Catalog data:
//   - [ResultSet] : the featured playlists response relayed to clients
//   - [PlaylistPage] and [Playlist] : the provider's paging object and its items
//
// Types here carry no behaviour beyond small derived accessors; storage and transport live in other packages.
package models
