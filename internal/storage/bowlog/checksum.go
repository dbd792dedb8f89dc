package bowlog

import "hash/crc32"

// Unverified is the stored checksum of an entry whose pre-image was never
// checksummed. It cannot be told apart from a genuine CRC of zero, so such
// entries are accepted without verification.
const Unverified uint32 = 0

// Accumulate extends the raw CRC32 register seed over data.
//
// The register is reflected (polynomial 0xEDB88320) and is used without the
// usual pre and post inversion, so seeds chain directly across calls.
func Accumulate(seed uint32, data []byte) uint32 {
	return ^crc32.Update(^seed, crc32.IEEETable, data)
}

// EntrySeed returns the initial register for an entry backed up from
// source, binding the checksum to the entry's block index.
func EntrySeed(source uint64, blockSize, sectorSize int) uint32 {
	return uint32(source / uint64(blockSize/sectorSize))
}

// EntryChecksum computes the checksum of an entry's pre-image, extending
// one register across all blocks without re-seeding.
func EntryChecksum(source uint64, blockSize, sectorSize int, blocks ...[]byte) uint32 {
	sum := EntrySeed(source, blockSize, sectorSize)
	for _, b := range blocks {
		sum = Accumulate(sum, b)
	}
	return sum
}
