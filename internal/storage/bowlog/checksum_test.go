package bowlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// referenceAccumulate is the plain byte-at-a-time reflected CRC32 update
// without inversion.
func referenceAccumulate(crc uint32, data []byte) uint32 {
	var table [256]uint32
	for i := range table {
		c := uint32(i)
		for k := 0; k < 8; k++ {
			if c&1 != 0 {
				c = 0xEDB88320 ^ (c >> 1)
			} else {
				c >>= 1
			}
		}
		table[i] = c
	}
	for _, b := range data {
		crc ^= uint32(b)
		crc = table[uint8(crc)] ^ crc>>8
	}
	return crc
}

func TestAccumulate_MatchesReference(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("a"),
		[]byte("123456789"),
		bytes.Repeat([]byte{0xFF}, BlockSize),
		bytes.Repeat([]byte{0x00, 0x5A, 0xA5}, 1000),
	}
	for _, seed := range []uint32{0, 1, 12, 0xFFFFFFFF} {
		for _, in := range inputs {
			assert.Equal(t, referenceAccumulate(seed, in), Accumulate(seed, in), "seed %d len %d", seed, len(in))
		}
	}
}

func TestAccumulate_Chains(t *testing.T) {
	a := bytes.Repeat([]byte{1, 2, 3, 4}, BlockSize/4)
	b := bytes.Repeat([]byte{9, 8, 7}, BlockSize/3)

	whole := Accumulate(7, append(append([]byte{}, a...), b...))
	assert.Equal(t, whole, Accumulate(Accumulate(7, a), b))
}

func TestAccumulate_EmptyIsIdentity(t *testing.T) {
	assert.Equal(t, uint32(42), Accumulate(42, nil))
}

func TestEntrySeed(t *testing.T) {
	assert.Equal(t, uint32(12), EntrySeed(100, BlockSize, SectorSize))
	assert.Equal(t, uint32(0), EntrySeed(0, BlockSize, SectorSize))
	assert.Equal(t, uint32(100), EntrySeed(100, SectorSize, SectorSize))
}

func TestEntryChecksum_ExtendsAcrossBlocks(t *testing.T) {
	b1 := bytes.Repeat([]byte{0x11}, BlockSize)
	b2 := bytes.Repeat([]byte{0x22}, BlockSize)

	got := EntryChecksum(16, BlockSize, SectorSize, b1, b2)
	want := Accumulate(Accumulate(2, b1), b2)
	assert.Equal(t, want, got)

	// The seed binds the checksum to the location.
	assert.NotEqual(t, got, EntryChecksum(24, BlockSize, SectorSize, b1, b2))
}
