// Package connection is the checkpointctl client for the checkpointd
// management API.
//
// The daemon normally listens on a unix socket; an http:// or https://
// target talks to a TCP listener instead. Responses use the daemon's JSON
// envelope, and non-2xx replies surface as *APIError.
package connection
