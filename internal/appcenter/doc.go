// Package appcenter is the remote service facade: a thin JSON-over-HTTP client for the
// App Center v0.1 API scoped to one owner.
//
// A Client binds the API token and owner at construction and never changes them, so
// independent runs use independent clients. Every non-2xx response becomes a
// classified error carrying the request method, URL, status code and remote message.
package appcenter
