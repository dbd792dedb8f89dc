package bowlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// Outcome describes how a restore finished.
type Outcome string

const (
	// OutcomeRestored means every pre-image was written back.
	OutcomeRestored Outcome = "restored"

	// OutcomeRolledForward means the chain failed validation and only the
	// pre-checkpoint sector 0 was written back.
	OutcomeRolledForward Outcome = "rolled_forward"
)

// Report summarises a restore run.
type Report struct {
	Device        string  `json:"device,omitempty"`
	Outcome       Outcome `json:"outcome"`
	TopSequence   uint32  `json:"top_sequence"`
	Sectors       int     `json:"log_sectors"`
	Entries       int     `json:"entries"`
	BytesRestored uint64  `json:"bytes_restored"`

	// ValidationErr is the validation failure that caused a roll-forward.
	ValidationErr error  `json:"-"`
	Validation    string `json:"validation_error,omitempty"`
}

// Chain is the read-only view of a log chain returned by Inspect.
type Chain struct {
	TopSequence uint32      `json:"top_sequence"`
	Sectors     []LogSector `json:"sectors"`
	Valid       bool        `json:"valid"`
	Problem     string      `json:"problem,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithBlockSize sets the log block size in bytes.
func WithBlockSize(n int) Option {
	return func(e *Engine) { e.blockSize = n }
}

// WithSectorSize sets the sector size in bytes.
func WithSectorSize(n int) Option {
	return func(e *Engine) { e.sectorSize = n }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine validates and replays checkpoint logs.
type Engine struct {
	blockSize  int
	sectorSize int
	logger     *slog.Logger
}

// NewEngine creates a restore engine.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		blockSize:  BlockSize,
		sectorSize: SectorSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.sectorSize <= 0 || e.blockSize <= 0 || e.blockSize%e.sectorSize != 0 {
		return nil, fmt.Errorf("bowlog: block size %d is not a multiple of sector size %d", e.blockSize, e.sectorSize)
	}
	if maxEntries(e.blockSize) < 1 {
		return nil, fmt.Errorf("bowlog: block size %d cannot hold a log entry", e.blockSize)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// BlockSize returns the configured block size.
func (e *Engine) BlockSize() int { return e.blockSize }

// walkState carries what a chain walk has discovered.
type walkState struct {
	remap   *Remapper
	top     *LogSector
	sectors []LogSector
	entries int
	bytes   uint64
}

// RestoreDevice opens path, restores it and closes it again.
func (e *Engine) RestoreDevice(ctx context.Context, path string) (*Report, error) {
	dev, err := OpenDevice(path)
	if err != nil {
		return nil, err
	}

	report, err := e.Restore(ctx, dev)
	if report != nil {
		report.Device = path
	}
	if closeErr := dev.Close(); closeErr != nil && err == nil {
		return report, closeErr
	}
	return report, err
}

// Restore validates the log chain on dev and replays it.
//
// A device without a log returns domain.ErrNoMagic and is left untouched.
// Validation failures roll forward and return a report with
// OutcomeRolledForward. Any failure after validation returns
// domain.ErrRestoreFailed.
func (e *Engine) Restore(ctx context.Context, dev Device) (*Report, error) {
	log := e.logger

	top, err := e.readTop(dev)
	if err != nil {
		return nil, err
	}

	report := &Report{TopSequence: top.Sequence}
	log.Info("validating checkpoint", "log_sectors", int64(top.Sequence)+1)

	st := e.newWalk(top)
	if err := e.walk(ctx, dev, st, false); err != nil {
		if !isFormatError(err) {
			return nil, err
		}
		log.Warn("checkpoint validation failed, rolling forward", "error", err, "validated_entries", st.remap.Len())
		if err := e.rollForward(dev, st); err != nil {
			return nil, err
		}
		report.Outcome = OutcomeRolledForward
		report.ValidationErr = err
		report.Validation = err.Error()
		report.Sectors = len(st.sectors)
		report.Entries = st.entries
		return report, syncDevice(dev)
	}

	// Validation passed; from here on the walk runs to completion.
	log.Info("restoring checkpoint", "log_sectors", int64(top.Sequence)+1)

	st = e.newWalk(top)
	if err := e.walk(context.WithoutCancel(ctx), dev, st, true); err != nil {
		log.Error("checkpoint restore failed after validation passed", "error", err)
		report.Sectors = len(st.sectors)
		report.Entries = st.entries
		report.BytesRestored = st.bytes
		return report, domain.ErrRestoreFailed.WithDetails(err.Error()).WithCause(err)
	}

	report.Outcome = OutcomeRestored
	report.Sectors = len(st.sectors)
	report.Entries = st.entries
	report.BytesRestored = st.bytes
	return report, syncDevice(dev)
}

// InspectDevice opens path read-only and inspects its chain.
func (e *Engine) InspectDevice(ctx context.Context, path string) (*Chain, error) {
	dev, err := OpenDeviceReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer dev.File.Close()
	return e.Inspect(ctx, dev)
}

// Inspect walks the chain on dev without writing anything.
func (e *Engine) Inspect(ctx context.Context, dev Device) (*Chain, error) {
	top, err := e.readTop(dev)
	if err != nil {
		return nil, err
	}

	st := e.newWalk(top)
	err = e.walk(ctx, dev, st, false)
	chain := &Chain{
		TopSequence: top.Sequence,
		Sectors:     st.sectors,
		Valid:       err == nil,
	}
	if err != nil {
		if !isFormatError(err) {
			return nil, err
		}
		chain.Problem = err.Error()
	}
	return chain, nil
}

func (e *Engine) newWalk(top *LogSector) *walkState {
	return &walkState{remap: NewRemapper(e.sectorSize), top: top}
}

// readTop reads the newest log sector straight from physical sector 0.
// Its failures are returned as is; only failures inside the chain walk
// roll forward, since a damaged top sector cannot be trusted to name the
// sector 0 backup.
func (e *Engine) readTop(dev Device) (*LogSector, error) {
	block, err := e.readBlocks(dev, nil, 0, uint32(e.blockSize))
	if err != nil {
		return nil, err
	}
	ls, err := DecodeLogSector(block)
	if err != nil {
		if errors.Is(err, domain.ErrNoMagic) {
			e.logger.Info("no checkpoint log found")
		}
		return nil, err
	}
	return ls, nil
}

// walk visits the chain from the top sequence down to 0. The validating
// walk resolves every read through the entries found so far; the
// committing walk reads raw, since its own write-backs have already put
// older content in place, and writes each pre-image back to its source.
func (e *Engine) walk(ctx context.Context, dev Device, st *walkState, commit bool) error {
	var remap *Remapper
	if !commit {
		remap = st.remap
	}
	action := "validating"
	if commit {
		action = "restoring"
	}

	for seq := int64(st.top.Sequence); seq >= 0; seq-- {
		if err := ctx.Err(); err != nil {
			return err
		}

		block, err := e.readBlocks(dev, remap, 0, uint32(e.blockSize))
		if err != nil {
			return err
		}
		ls, err := DecodeLogSector(block)
		if err != nil {
			if errors.Is(err, domain.ErrNoMagic) {
				return domain.ErrBadMagic.WithDetails(fmt.Sprintf("log sector %d", seq))
			}
			return err
		}
		if int64(ls.Sequence) != seq {
			return domain.ErrSequenceMismatch.WithDetails(fmt.Sprintf("expected log sector %d, got %d", seq, ls.Sequence))
		}
		st.sectors = append(st.sectors, *ls)

		e.logger.Debug(action+" log sector", "sequence", ls.Sequence, "entries", len(ls.Entries))

		for i := len(ls.Entries) - 1; i >= 0; i-- {
			le := ls.Entries[i]
			if err := le.Validate(e.blockSize, e.sectorSize); err != nil {
				return err
			}

			e.logger.Debug(action+" entry", "size", le.Size, "dest", le.Dest, "source", le.Source,
				"checksum", fmt.Sprintf("%08x", le.Checksum))

			data, err := e.readBlocks(dev, remap, le.Dest, le.Size)
			if err != nil {
				return err
			}

			sum := EntrySeed(le.Source, e.blockSize, e.sectorSize)
			for off := 0; off < len(data); off += e.blockSize {
				sum = Accumulate(sum, data[off:off+e.blockSize])
			}
			if le.Checksum != Unverified && sum != le.Checksum {
				return domain.ErrChecksumMismatch.WithDetails(fmt.Sprintf(
					"sector %d: expected %08x, got %08x", le.Dest, le.Checksum, sum))
			}

			st.remap.Add(le)
			st.entries++

			if commit {
				if _, err := dev.WriteAt(data, int64(le.Source)*int64(e.sectorSize)); err != nil {
					return domain.ErrDeviceIO.WithDetails(fmt.Sprintf("write sector %d", le.Source)).WithCause(err)
				}
				st.bytes += uint64(le.Size)
			}
		}
	}
	return nil
}

// rollForward writes the pre-checkpoint sector 0 recorded by the newest log
// sector back to physical sector 0, resolved through the entries that
// validated before the failure.
func (e *Engine) rollForward(dev Device, st *walkState) error {
	block, err := e.readBlocks(dev, st.remap, st.top.Sector0, uint32(e.blockSize))
	if err != nil {
		return err
	}
	if _, err := dev.WriteAt(block, 0); err != nil {
		return domain.ErrDeviceIO.WithDetails("write sector 0").WithCause(err)
	}
	return nil
}

// readBlocks reads size bytes starting at sector one block at a time,
// resolving each block through remap when remap is non-nil.
func (e *Engine) readBlocks(dev Device, remap *Remapper, sector uint64, size uint32) ([]byte, error) {
	buf := make([]byte, 0, e.blockSize)
	step := uint64(e.blockSize / e.sectorSize)

	for off := uint32(0); off < size; off += uint32(e.blockSize) {
		phys := sector
		if remap != nil {
			phys = remap.Resolve(sector)
		}

		block := make([]byte, e.blockSize)
		n, err := dev.ReadAt(block, int64(phys)*int64(e.sectorSize))
		if err != nil && n < len(block) {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, domain.ErrEntryRange.WithDetails(fmt.Sprintf("sector %d is beyond the end of the device", phys))
			}
			return nil, domain.ErrDeviceIO.WithDetails(fmt.Sprintf("read sector %d", phys)).WithCause(err)
		}
		buf = append(buf, block...)
		sector += step
	}
	return buf, nil
}

func syncDevice(dev Device) error {
	if s, ok := dev.(syncer); ok {
		if err := s.Sync(); err != nil {
			return domain.ErrDeviceIO.WithDetails("sync").WithCause(err)
		}
	}
	return nil
}

// isFormatError reports whether err is a log format error that triggers
// the roll-forward path.
func isFormatError(err error) bool {
	return strings.HasPrefix(domain.GetErrorCode(err), "CP-FMT-")
}
