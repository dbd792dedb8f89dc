package bowlog

import (
	"encoding/binary"
	"fmt"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// Format constants.
const (
	// Magic identifies a log sector ("BOW" little-endian).
	Magic uint32 = 0x00574F42

	// BlockSize is the default log sector and backup granularity in bytes.
	BlockSize = 4096

	// SectorSize is the default addressing unit in bytes.
	SectorSize = 512

	// headerSize is magic (4) + count (4) + sequence (4) + sector0 (8).
	headerSize = 20

	// entrySize is source (8) + dest (8) + size (4) + checksum (4).
	entrySize = 24

	// MaxEntries is the number of entries that fit in one default block.
	MaxEntries = (BlockSize - headerSize) / entrySize
)

// LogEntry is one backed-up block range.
type LogEntry struct {
	Source   uint64 `json:"source"`
	Dest     uint64 `json:"dest"`
	Size     uint32 `json:"size"`
	Checksum uint32 `json:"checksum"`
}

// LogSector is one decoded log record.
type LogSector struct {
	Sequence uint32     `json:"sequence"`
	Sector0  uint64     `json:"sector0"`
	Entries  []LogEntry `json:"entries"`
}

// maxEntries returns the entry capacity of a block of the given size.
func maxEntries(blockSize int) int {
	if blockSize < headerSize {
		return 0
	}
	return (blockSize - headerSize) / entrySize
}

// DecodeLogSector decodes a log sector from one block.
//
// The entry count is checked against the block capacity before any entry
// is read. A block without the magic returns domain.ErrNoMagic.
func DecodeLogSector(block []byte) (*LogSector, error) {
	if len(block) < headerSize {
		return nil, domain.ErrEntryRange.WithDetails(fmt.Sprintf("short block: %d bytes", len(block)))
	}

	if magic := binary.LittleEndian.Uint32(block[0:4]); magic != Magic {
		return nil, domain.ErrNoMagic.WithDetails(fmt.Sprintf("magic %#08x", magic))
	}

	count := binary.LittleEndian.Uint32(block[4:8])
	if limit := maxEntries(len(block)); uint64(count) > uint64(limit) {
		return nil, domain.ErrEntryRange.WithDetails(fmt.Sprintf("entry count %d exceeds %d", count, limit))
	}

	ls := &LogSector{
		Sequence: binary.LittleEndian.Uint32(block[8:12]),
		Sector0:  binary.LittleEndian.Uint64(block[12:20]),
		Entries:  make([]LogEntry, count),
	}
	for i := range ls.Entries {
		off := headerSize + i*entrySize
		ls.Entries[i] = LogEntry{
			Source:   binary.LittleEndian.Uint64(block[off : off+8]),
			Dest:     binary.LittleEndian.Uint64(block[off+8 : off+16]),
			Size:     binary.LittleEndian.Uint32(block[off+16 : off+20]),
			Checksum: binary.LittleEndian.Uint32(block[off+20 : off+24]),
		}
	}
	return ls, nil
}

// Encode renders the log sector into a zero-padded block of blockSize bytes.
func (ls *LogSector) Encode(blockSize int) ([]byte, error) {
	if limit := maxEntries(blockSize); len(ls.Entries) > limit {
		return nil, domain.ErrEntryRange.WithDetails(fmt.Sprintf("entry count %d exceeds %d", len(ls.Entries), limit))
	}

	block := make([]byte, blockSize)
	binary.LittleEndian.PutUint32(block[0:4], Magic)
	binary.LittleEndian.PutUint32(block[4:8], uint32(len(ls.Entries)))
	binary.LittleEndian.PutUint32(block[8:12], ls.Sequence)
	binary.LittleEndian.PutUint64(block[12:20], ls.Sector0)
	for i, le := range ls.Entries {
		off := headerSize + i*entrySize
		binary.LittleEndian.PutUint64(block[off:off+8], le.Source)
		binary.LittleEndian.PutUint64(block[off+8:off+16], le.Dest)
		binary.LittleEndian.PutUint32(block[off+16:off+20], le.Size)
		binary.LittleEndian.PutUint32(block[off+20:off+24], le.Checksum)
	}
	return block, nil
}

// MarshalBinary implements encoding.BinaryMarshaler using BlockSize.
func (ls *LogSector) MarshalBinary() ([]byte, error) {
	return ls.Encode(BlockSize)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (ls *LogSector) UnmarshalBinary(data []byte) error {
	decoded, err := DecodeLogSector(data)
	if err != nil {
		return err
	}
	*ls = *decoded
	return nil
}

// Validate checks that the entry covers whole blocks and that its byte
// offsets are addressable.
func (le LogEntry) Validate(blockSize, sectorSize int) error {
	if le.Size == 0 || le.Size%uint32(blockSize) != 0 {
		return domain.ErrEntryRange.WithDetails(fmt.Sprintf("entry size %d is not a multiple of %d", le.Size, blockSize))
	}
	limit := uint64(1<<63-1) / uint64(sectorSize)
	sectors := uint64(le.Size) / uint64(sectorSize)
	if le.Source > limit-sectors || le.Dest > limit-sectors {
		return domain.ErrEntryRange.WithDetails(fmt.Sprintf("entry %d->%d out of range", le.Source, le.Dest))
	}
	return nil
}
