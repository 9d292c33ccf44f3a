// Package httpapi serves the document assistant over HTTP with echo.
//
// Every request after session creation carries the session id in the
// X-Session-ID header; responses echo the id the client should use next.
package httpapi
