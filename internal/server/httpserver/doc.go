// Package httpserver serves the checkpoint management API.
//
// Routes live in the handler subpackage. This package adds the middleware
// chain (panic recovery, ULID request IDs, request metrics, x/time/rate
// limiting, audit logging) and the server lifecycle. The same server type
// backs the unix socket listener and the optional TCP metrics listener.
package httpserver
