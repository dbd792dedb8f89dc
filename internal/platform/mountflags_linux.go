//go:build linux

package platform

import "golang.org/x/sys/unix"

var mountFlagBits = map[string]uintptr{
	"ro":         unix.MS_RDONLY,
	"nosuid":     unix.MS_NOSUID,
	"nodev":      unix.MS_NODEV,
	"noexec":     unix.MS_NOEXEC,
	"sync":       unix.MS_SYNCHRONOUS,
	"remount":    unix.MS_REMOUNT,
	"dirsync":    unix.MS_DIRSYNC,
	"noatime":    unix.MS_NOATIME,
	"nodiratime": unix.MS_NODIRATIME,
	"bind":       unix.MS_BIND,
	"rec":        unix.MS_REC,
	"unbindable": unix.MS_UNBINDABLE,
	"private":    unix.MS_PRIVATE,
	"slave":      unix.MS_SLAVE,
	"shared":     unix.MS_SHARED,
	"relatime":   unix.MS_RELATIME,
	"lazytime":   unix.MS_LAZYTIME,
}
