// Package platform implements the system collaborators of the checkpoint
// service: the fstab and mount tables, the backup-on-write driver control
// file, boot slot state, trimming, remounting and restarting.
//
// Syscall-backed pieces are Linux only; other platforms get stubs that
// return domain.ErrUnsupported.
package platform
