package bowlog

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

func fill(b byte) []byte {
	return bytes.Repeat([]byte{b}, BlockSize)
}

func newTestEngine(t testing.TB) *Engine {
	t.Helper()
	e, err := NewEngine()
	require.NoError(t, err)
	return e
}

// twoSectorFixture builds a device with two log sectors:
//
//	sequence 1 at sector 0:   {0 -> 700}, {100 -> 500}
//	sequence 0 at sector 700: {0 -> 600}
//
// Sector 500 holds the pre-image of sector 100, sector 600 the
// pre-checkpoint sector 0 and sector 700 the older log sector.
type twoSectorFixture struct {
	dev      *memDevice
	orig0    []byte
	orig100  []byte
	current  []byte
	seq0     []byte
	seq1     *LogSector
	seq0Sect *LogSector
}

func newTwoSectorFixture(t *testing.T) *twoSectorFixture {
	t.Helper()

	f := &twoSectorFixture{
		dev:     newMemDevice(800 * SectorSize),
		orig0:   fill(0xA0),
		orig100: fill(0xB1),
		current: fill(0xC2),
	}
	f.dev.put(600, f.orig0)
	f.dev.put(500, f.orig100)
	f.dev.put(100, f.current)

	f.seq0Sect = &LogSector{
		Sequence: 0,
		Sector0:  600,
		Entries: []LogEntry{
			{Source: 0, Dest: 600, Size: BlockSize, Checksum: EntryChecksum(0, BlockSize, SectorSize, f.orig0)},
		},
	}
	seq0, err := f.seq0Sect.MarshalBinary()
	require.NoError(t, err)
	f.seq0 = seq0
	f.dev.put(700, seq0)

	f.seq1 = &LogSector{
		Sequence: 1,
		Sector0:  600,
		Entries: []LogEntry{
			{Source: 0, Dest: 700, Size: BlockSize, Checksum: EntryChecksum(0, BlockSize, SectorSize, seq0)},
			{Source: 100, Dest: 500, Size: BlockSize, Checksum: EntryChecksum(100, BlockSize, SectorSize, f.orig100)},
		},
	}
	f.writeTop(t)
	return f
}

func (f *twoSectorFixture) writeTop(t *testing.T) {
	t.Helper()
	top, err := f.seq1.MarshalBinary()
	require.NoError(t, err)
	f.dev.put(0, top)
}

func TestRestore_TwoLogSectors(t *testing.T) {
	f := newTwoSectorFixture(t)
	e := newTestEngine(t)

	report, err := e.Restore(context.Background(), f.dev)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRestored, report.Outcome)
	assert.Equal(t, uint32(1), report.TopSequence)
	assert.Equal(t, 2, report.Sectors)
	assert.Equal(t, 3, report.Entries)
	assert.Equal(t, uint64(3*BlockSize), report.BytesRestored)

	assert.Equal(t, f.orig100, f.dev.block(100))
	assert.Equal(t, f.orig0, f.dev.block(0))

	// Sector 100 first, sector 0 last.
	require.Len(t, f.dev.writes, 3)
	assert.Equal(t, int64(100*SectorSize), f.dev.writes[0])
	assert.Equal(t, int64(0), f.dev.writes[2])
}

func TestRestore_CorruptChainRollsForward(t *testing.T) {
	f := newTwoSectorFixture(t)
	e := newTestEngine(t)

	// The older log sector is reached through the {0 -> 700} remap. Its
	// backup entry is re-checksummed so that the magic check is what fails.
	binary.LittleEndian.PutUint32(f.dev.data[700*SectorSize:], 0xBADBAD)
	f.seq1.Entries[0].Checksum = EntryChecksum(0, BlockSize, SectorSize, f.dev.block(700))
	f.writeTop(t)

	report, err := e.Restore(context.Background(), f.dev)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRolledForward, report.Outcome)
	assert.ErrorIs(t, report.ValidationErr, domain.ErrBadMagic)
	assert.NotEmpty(t, report.Validation)

	assert.Equal(t, f.orig0, f.dev.block(0))
	assert.Equal(t, f.current, f.dev.block(100), "roll-forward must not touch other sectors")
	assert.Equal(t, []int64{0}, f.dev.writes)
}

func TestRestore_DamagedTopSectorIsNotRolledForward(t *testing.T) {
	// A damaged sector 0 cannot be trusted to name its backup, so the
	// device is left untouched.
	tests := []struct {
		name    string
		corrupt func(data []byte)
		wantErr error
	}{
		{
			name:    "magic",
			corrupt: func(data []byte) { binary.LittleEndian.PutUint32(data[0:], 0xBADBAD) },
			wantErr: domain.ErrNoMagic,
		},
		{
			name:    "entry count",
			corrupt: func(data []byte) { binary.LittleEndian.PutUint32(data[4:], MaxEntries+1) },
			wantErr: domain.ErrEntryRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTwoSectorFixture(t)
			tt.corrupt(f.dev.data)
			before := f.dev.snapshot()

			report, err := newTestEngine(t).Restore(context.Background(), f.dev)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, report)
			assert.Empty(t, f.dev.writes)
			assert.Equal(t, before, f.dev.data)
		})
	}
}

func TestRestore_ValidationRunsBeforeAnyWrite(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(f *twoSectorFixture)
		wantErr error
	}{
		{
			name: "checksum of newest entry",
			corrupt: func(f *twoSectorFixture) {
				f.dev.data[500*SectorSize+17] ^= 0xFF
			},
			wantErr: domain.ErrChecksumMismatch,
		},
		{
			name: "checksum in oldest sector",
			corrupt: func(f *twoSectorFixture) {
				f.seq0Sect.Entries[0].Checksum ^= 1
				block, _ := f.seq0Sect.MarshalBinary()
				f.dev.put(700, block)
				f.seq1.Entries[0].Checksum = EntryChecksum(0, BlockSize, SectorSize, block)
			},
			wantErr: domain.ErrChecksumMismatch,
		},
		{
			name: "sequence gap",
			corrupt: func(f *twoSectorFixture) {
				f.seq0Sect.Sequence = 5
				block, _ := f.seq0Sect.MarshalBinary()
				f.dev.put(700, block)
				f.seq1.Entries[0].Checksum = EntryChecksum(0, BlockSize, SectorSize, block)
			},
			wantErr: domain.ErrSequenceMismatch,
		},
		{
			name: "entry count out of range",
			corrupt: func(f *twoSectorFixture) {
				binary.LittleEndian.PutUint32(f.dev.data[700*SectorSize+4:], MaxEntries+1)
				f.seq1.Entries[0].Checksum = Unverified
			},
			wantErr: domain.ErrEntryRange,
		},
		{
			name: "entry beyond device",
			corrupt: func(f *twoSectorFixture) {
				f.seq1.Entries[1].Dest = 1 << 20
			},
			wantErr: domain.ErrEntryRange,
		},
		{
			name: "partial block entry",
			corrupt: func(f *twoSectorFixture) {
				f.seq1.Entries[1].Size = 1000
			},
			wantErr: domain.ErrEntryRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTwoSectorFixture(t)
			tt.corrupt(f)
			f.writeTop(t)
			f.dev.writes = nil

			report, err := newTestEngine(t).Restore(context.Background(), f.dev)
			require.NoError(t, err)
			assert.Equal(t, OutcomeRolledForward, report.Outcome)
			assert.ErrorIs(t, report.ValidationErr, tt.wantErr)

			assert.Equal(t, []int64{0}, f.dev.writes, "only the roll-forward write may happen")
			assert.Equal(t, f.current, f.dev.block(100))
		})
	}
}

func TestRestore_UnverifiedEntryIsAccepted(t *testing.T) {
	f := newTwoSectorFixture(t)
	f.seq1.Entries[1].Checksum = Unverified
	f.writeTop(t)

	report, err := newTestEngine(t).Restore(context.Background(), f.dev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRestored, report.Outcome)
	assert.Equal(t, f.orig100, f.dev.block(100))
}

func TestRestore_NoMagicIsCleanAndIdempotent(t *testing.T) {
	f := newTwoSectorFixture(t)
	e := newTestEngine(t)

	_, err := e.Restore(context.Background(), f.dev)
	require.NoError(t, err)
	f.dev.writes = nil
	before := f.dev.snapshot()

	report, err := e.Restore(context.Background(), f.dev)
	require.ErrorIs(t, err, domain.ErrNoMagic)
	assert.Nil(t, report)
	assert.Empty(t, f.dev.writes)
	assert.Equal(t, before, f.dev.data)
}

func TestRestore_CommitFailureIsConsistencyError(t *testing.T) {
	f := newTwoSectorFixture(t)
	f.dev.failWrite = errors.New("medium error")

	report, err := newTestEngine(t).Restore(context.Background(), f.dev)
	require.ErrorIs(t, err, domain.ErrRestoreFailed)
	require.NotNil(t, report)
	assert.Equal(t, Outcome(""), report.Outcome)
}

func TestRestore_CancelledBeforeWrites(t *testing.T) {
	f := newTwoSectorFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(t).Restore(ctx, f.dev)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.dev.writes)
}

func TestRestore_SimulatedRoundTrip(t *testing.T) {
	const (
		blocks     = 256
		dataBlocks = 64
	)

	for seed := int64(1); seed <= 8; seed++ {
		rng := rand.New(rand.NewSource(seed))
		sim := newBowSim(t, rng, blocks, dataBlocks, 2+int(seed%4))

		// Several generations of overwrites, including writes to blocks that
		// already hold backups.
		for i := 0; i < 60; i++ {
			targets := sim.writable(dataBlocks)
			sector := targets[rng.Intn(len(targets))]
			data := make([]byte, BlockSize)
			rng.Read(data)
			sim.write(sector, data)
		}
		require.Greater(t, sim.seq, uint32(0), "seed %d produced a single log sector", seed)

		chain, err := newTestEngine(t).Inspect(context.Background(), sim.dev)
		require.NoError(t, err)
		require.True(t, chain.Valid, "seed %d: %s", seed, chain.Problem)
		require.Len(t, chain.Sectors, int(sim.seq)+1)

		report, err := newTestEngine(t).Restore(context.Background(), sim.dev)
		require.NoError(t, err, "seed %d", seed)
		require.Equal(t, OutcomeRestored, report.Outcome, "seed %d", seed)

		for b := 0; b < dataBlocks; b++ {
			off := b * BlockSize
			require.Equal(t, sim.original[off:off+BlockSize], sim.dev.data[off:off+BlockSize],
				"seed %d: block %d not restored", seed, b)
		}

		_, err = newTestEngine(t).Restore(context.Background(), sim.dev)
		require.ErrorIs(t, err, domain.ErrNoMagic)
	}
}

func TestInspect(t *testing.T) {
	f := newTwoSectorFixture(t)
	e := newTestEngine(t)

	chain, err := e.Inspect(context.Background(), f.dev)
	require.NoError(t, err)
	assert.True(t, chain.Valid)
	assert.Equal(t, uint32(1), chain.TopSequence)
	require.Len(t, chain.Sectors, 2)
	assert.Equal(t, *f.seq1, chain.Sectors[0])
	assert.Empty(t, f.dev.writes)

	binary.LittleEndian.PutUint32(f.dev.data[700*SectorSize:], 0)
	f.seq1.Entries[0].Checksum = Unverified
	f.writeTop(t)
	chain, err = e.Inspect(context.Background(), f.dev)
	require.NoError(t, err)
	assert.False(t, chain.Valid)
	assert.Len(t, chain.Sectors, 1)
	assert.Contains(t, chain.Problem, "CP-FMT-4220")
	assert.Empty(t, f.dev.writes)
}

func TestRestoreDevice_ImageFile(t *testing.T) {
	f := newTwoSectorFixture(t)
	path := filepath.Join(t.TempDir(), "userdata.img")
	require.NoError(t, os.WriteFile(path, f.dev.data, 0o600))

	report, err := newTestEngine(t).RestoreDevice(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, report.Device)
	assert.Equal(t, OutcomeRestored, report.Outcome)

	image, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, f.orig0, image[:BlockSize])
	assert.Equal(t, f.orig100, image[100*SectorSize:100*SectorSize+BlockSize])
}

func TestInspectDevice_LeavesImageUntouched(t *testing.T) {
	f := newTwoSectorFixture(t)
	path := filepath.Join(t.TempDir(), "userdata.img")
	require.NoError(t, os.WriteFile(path, f.dev.data, 0o400))

	chain, err := newTestEngine(t).InspectDevice(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, chain.Valid)
	assert.Len(t, chain.Sectors, 2)

	image, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, f.dev.data, image)
}

func TestRestoreDevice_MissingFile(t *testing.T) {
	_, err := newTestEngine(t).RestoreDevice(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, domain.ErrDeviceIO)
}

func TestNewEngine_RejectsBadGeometry(t *testing.T) {
	_, err := NewEngine(WithBlockSize(1000), WithSectorSize(512))
	require.Error(t, err)

	_, err = NewEngine(WithBlockSize(16), WithSectorSize(16))
	require.Error(t, err)

	e, err := NewEngine(WithBlockSize(8192), WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, 8192, e.BlockSize())
}
