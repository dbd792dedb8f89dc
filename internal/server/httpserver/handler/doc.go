// Package handler provides the HTTP handlers of the checkpoint management
// API.
//
// Every JSON response uses the Response envelope; errors carry the
// checkpoint error code in the envelope and in the X-Error-Code header.
package handler
