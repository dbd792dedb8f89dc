// Package bowlog reads and replays the backup-on-write checkpoint log.
//
// While a checkpoint is active the backup-on-write driver copies the old
// content of every block it is about to overwrite to free space and
// records the copy in a log sector kept at physical sector 0 of the
// device. Older log sectors are themselves backed up the same way, so the
// chain is rebuilt by re-reading sector 0 through every entry discovered
// so far rather than by following pointers.
//
// Format:
//
//	LogSector (one block, little-endian, packed):
//	[magic:4 0x00574F42 "BOW"][count:4][sequence:4][sector0:8][LogEntry*count]
//
//	LogEntry (24 bytes):
//	[source:8][dest:8][size:4][checksum:4]
//
// Where:
//   - source and dest are sector indexes, size is in bytes
//   - checksum is a raw CRC32 seeded with source/(BlockSize/SectorSize);
//     zero means the entry was never verified
//   - sequence decreases by one per older log sector and ends at 0
//   - sector0 locates the pre-checkpoint content of sector 0
//
// Restore validates the whole chain before writing anything. A chain that
// fails validation is discarded by writing the pre-checkpoint sector 0
// back (roll-forward); a failure after validation is a consistency error.
package bowlog
