// Package localserver serves the management API on a unix domain socket.
//
// Access control is left to file system permissions on the socket, which
// is created with mode 0660.
package localserver
