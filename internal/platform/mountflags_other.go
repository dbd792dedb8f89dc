//go:build !linux

package platform

// Mount flags only have meaning on Linux; elsewhere every word is kept as
// a data option.
var mountFlagBits = map[string]uintptr{}
