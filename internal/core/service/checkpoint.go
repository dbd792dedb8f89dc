package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
	"github.com/kshms10904/platform-system-vold/internal/storage/bowlog"
	"github.com/kshms10904/platform-system-vold/internal/storage/history"
)

// Operation names used in logs, metrics and the event journal.
const (
	OpStart           = "start"
	OpPrepare         = "prepare"
	OpCommit          = "commit"
	OpAbort           = "abort"
	OpNeedsCheckpoint = "needs_checkpoint"
	OpNeedsRollback   = "needs_rollback"
	OpMarkBootAttempt = "mark_boot_attempt"
	OpRestore         = "restore"
	OpRecoverAtBoot   = "recover_at_boot"
)

// Dependencies are the collaborators of CheckpointService. Events and
// Metrics are optional.
type Dependencies struct {
	Volumes  VolumeTable
	Mounts   MountTable
	Boot     BootControl
	Bow      BowController
	Fs       FsCheckpointer
	Trimmer  Trimmer
	Rebooter Rebooter
	Notifier CommitNotifier
	Records  RecordStore
	Restorer Restorer
	Events   EventRecorder
	Metrics  Metrics
	Logger   *slog.Logger
}

// CheckpointService runs the checkpoint lifecycle.
type CheckpointService struct {
	deps   Dependencies
	logger *slog.Logger

	mu            sync.Mutex
	checkpointing bool
}

// NewCheckpointService creates a CheckpointService.
func NewCheckpointService(deps Dependencies) *CheckpointService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckpointService{
		deps:   deps,
		logger: logger.With("component", "checkpoint"),
	}
}

// BootReport summarises RecoverAtBoot.
type BootReport struct {
	RollbackNeeded bool             `json:"rollback_needed"`
	Restores       []*bowlog.Report `json:"restores,omitempty"`
	Checkpointing  bool             `json:"checkpointing"`
}

// ============================================================================
// Queries
// ============================================================================

// SupportsCheckpoint reports whether any configured volume is flagged for
// block-level or filesystem-level checkpointing.
func (s *CheckpointService) SupportsCheckpoint(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supports()
}

func (s *CheckpointService) supports() (bool, error) {
	volumes, err := s.deps.Volumes.Volumes()
	if err != nil {
		return false, err
	}
	for _, v := range volumes {
		if v.Checkpointed() {
			return true, nil
		}
	}
	return false, nil
}

// IsCheckpointing reports the in-memory checkpointing flag.
func (s *CheckpointService) IsCheckpointing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpointing
}

// Status returns a point-in-time view of the lifecycle.
func (s *CheckpointService) Status(ctx context.Context) (domain.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.Status{Checkpointing: s.checkpointing}

	supported, err := s.supports()
	if err != nil {
		return st, err
	}
	st.Supported = supported

	content, exists, err := s.deps.Records.Read()
	if err != nil {
		return st, err
	}
	st.RecordPresent = exists
	st.Record = content

	if suffix, err := s.deps.Boot.SlotSuffix(); err == nil {
		st.SlotSuffix = suffix
	}
	return st, nil
}

// ============================================================================
// Lifecycle operations
// ============================================================================

// StartCheckpoint persists a new checkpoint record allowing retry more boot
// attempts. A retry of -1 keeps the checkpoint pending until the boot slot
// changes; if the slot cannot be queried a plain counter is written.
func (s *CheckpointService) StartCheckpoint(ctx context.Context, retry int) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.finish(ctx, OpStart, err, fmt.Sprintf("retry %d", retry)) }()

	if retry < domain.RetryUntilSlotChange {
		return domain.ErrInvalidRetry.WithDetails(fmt.Sprintf("retry %d", retry))
	}

	var suffix string
	if retry == domain.RetryUntilSlotChange {
		suffix, err = s.deps.Boot.SlotSuffix()
		if err != nil {
			s.logger.Warn("slot suffix unavailable, falling back to a plain counter", "error", err)
			suffix = ""
		}
	}

	content, err := domain.FormatRecord(retry, suffix)
	if err != nil {
		return err
	}
	return s.deps.Records.Write(content)
}

// NeedsCheckpoint reports whether this boot runs under a checkpoint: the
// booted slot is not yet marked successful, or a record other than "0" is
// pending. The result becomes the checkpointing flag.
func (s *CheckpointService) NeedsCheckpoint(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsCheckpoint(ctx)
}

func (s *CheckpointService) needsCheckpoint(ctx context.Context) (needed bool, err error) {
	defer func() { s.finish(ctx, OpNeedsCheckpoint, err, fmt.Sprintf("needed %t", needed)) }()

	marked, err := s.deps.Boot.MarkedSuccessful()
	if err != nil {
		s.logger.Debug("boot control unavailable", "error", err)
	} else if !marked {
		s.setCheckpointing(true)
		return true, nil
	}

	content, exists, err := s.deps.Records.Read()
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	needed = content != "0"
	s.setCheckpointing(needed)
	return needed, nil
}

// PrepareCheckpoint trims every mounted block-checkpointed volume and starts
// its backup-on-write logging. Failures on one volume are logged and the
// volume skipped; the combined error is returned at the end.
func (s *CheckpointService) PrepareCheckpoint(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.finish(ctx, OpPrepare, err, "") }()

	if !s.checkpointing {
		s.logger.Debug("not checkpointing, prepare skipped")
		return nil
	}

	pairs, err := s.mountedVolumes()
	if err != nil {
		return err
	}

	var errs []error
	for _, p := range pairs {
		if !p.entry.CheckpointBlock {
			continue
		}
		log := s.logger.With("mount_point", p.mount.MountPoint, "device", p.mount.BlkDevice)

		if err := s.deps.Trimmer.Trim(p.mount.MountPoint); err != nil {
			log.Error("trim failed, volume skipped", "error", err)
			errs = append(errs, err)
			continue
		}
		if err := s.deps.Bow.SetState(p.mount.BlkDevice, domain.BowLogging); err != nil {
			log.Error("enable backup-on-write failed", "error", err)
			errs = append(errs, err)
			continue
		}
		log.Info("backup-on-write logging enabled")
	}
	return errors.Join(errs...)
}

// CommitChanges makes the checkpointed changes permanent. It stops logging
// on block-checkpointed volumes and re-enables native checkpointing on
// filesystem-checkpointed f2fs volumes, then notifies, clears the flag and
// removes the record. Any volume failure aborts before state is cleared.
func (s *CheckpointService) CommitChanges(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.finish(ctx, OpCommit, err, "") }()

	if !s.checkpointing {
		s.logger.Debug("not checkpointing, commit skipped")
		return nil
	}

	pairs, err := s.mountedVolumes()
	if err != nil {
		return err
	}

	for _, p := range pairs {
		switch {
		case p.entry.CheckpointFs:
			if p.entry.FsType != "f2fs" {
				continue
			}
			if err := s.deps.Fs.EnableCheckpoint(p.entry, p.mount); err != nil {
				return fmt.Errorf("commit %s: %w", p.mount.MountPoint, err)
			}
		case p.entry.CheckpointBlock:
			if err := s.deps.Bow.SetState(p.mount.BlkDevice, domain.BowCommitted); err != nil {
				return fmt.Errorf("commit %s: %w", p.mount.MountPoint, err)
			}
		default:
			continue
		}
		s.logger.Info("volume committed", "mount_point", p.mount.MountPoint)
	}

	if err := s.deps.Notifier.NotifyCommitted(); err != nil {
		s.logger.Warn("commit notification failed", "error", err)
	}
	s.setCheckpointing(false)

	// Removing the record last makes a crash above retry the commit on the
	// next boot.
	return s.deps.Records.Remove()
}

// AbortChanges restarts the machine immediately so that the restore runs on
// the next boot. It only returns on failure or when restarts are simulated.
func (s *CheckpointService) AbortChanges(ctx context.Context, reason string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.finish(ctx, OpAbort, err, reason) }()

	if reason == "" {
		reason = "checkpoint aborted"
	}
	return s.deps.Rebooter.Restart(reason)
}

// NeedsRollback reports whether the pending checkpoint must be rolled back:
// the retry budget is exhausted ("0"), or the record is "-1 <suffix>" and the
// booted slot is still that suffix.
func (s *CheckpointService) NeedsRollback(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsRollback(ctx)
}

func (s *CheckpointService) needsRollback(ctx context.Context) (needed bool, err error) {
	defer func() { s.finish(ctx, OpNeedsRollback, err, fmt.Sprintf("needed %t", needed)) }()

	content, exists, err := s.deps.Records.Read()
	if err != nil || !exists {
		return false, err
	}

	rec, err := domain.ParseRecord(content)
	if err != nil {
		// Only "0" and "-1 <suffix>" ever demand a rollback.
		return false, nil
	}

	var current string
	if rec.HasSuffix {
		current, err = s.deps.Boot.SlotSuffix()
		if err != nil {
			s.logger.Warn("slot suffix unavailable, no rollback", "error", err)
			return false, nil
		}
	}
	return rec.Exhausted(current), nil
}

// MarkBootAttempt consumes one boot attempt from the record. The counter
// never drops below zero and a "-1 <suffix>" record is left alone.
func (s *CheckpointService) MarkBootAttempt(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markBootAttempt(ctx)
}

func (s *CheckpointService) markBootAttempt(ctx context.Context) (err error) {
	var detail string
	defer func() { s.finish(ctx, OpMarkBootAttempt, err, detail) }()

	content, exists, err := s.deps.Records.Read()
	if err != nil || !exists {
		return err
	}

	rec, err := domain.ParseRecord(content)
	if err != nil {
		return err
	}

	next, changed := rec.Decremented()
	if !changed {
		detail = fmt.Sprintf("record %q unchanged", content)
		return nil
	}
	detail = fmt.Sprintf("%q -> %q", content, next.Raw)
	return s.deps.Records.Write(next.Raw)
}

// RestoreCheckpoint replays the checkpoint log of blockDevice. A device
// without a log returns domain.ErrNoMagic.
func (s *CheckpointService) RestoreCheckpoint(ctx context.Context, blockDevice string) (*bowlog.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restore(ctx, blockDevice)
}

func (s *CheckpointService) restore(ctx context.Context, blockDevice string) (report *bowlog.Report, err error) {
	defer func() {
		detail := blockDevice
		if report != nil && report.Outcome != "" {
			detail = fmt.Sprintf("%s: %s", blockDevice, report.Outcome)
		}
		s.finish(ctx, OpRestore, err, detail)
	}()

	if blockDevice == "" {
		return nil, domain.ErrInvalidDevice.WithDetails("empty block device path")
	}

	s.logger.Info("restoring checkpoint", "device", blockDevice)
	report, err = s.deps.Restorer.RestoreDevice(ctx, blockDevice)

	if s.deps.Metrics != nil {
		switch {
		case err == nil && report != nil:
			s.deps.Metrics.RecordRestore(string(report.Outcome), report.Sectors, report.BytesRestored)
		case errors.Is(err, domain.ErrNoMagic):
			s.deps.Metrics.RecordRestore("no_log", 0, 0)
		case err != nil:
			s.deps.Metrics.RecordRestore("failed", 0, 0)
		}
	}
	if err != nil {
		return report, err
	}
	if report.Outcome == bowlog.OutcomeRolledForward {
		s.logger.Warn("checkpoint log invalid, rolled forward", "device", blockDevice, "reason", report.Validation)
	}
	return report, nil
}

// RecoverAtBoot runs the early-boot sequence: restore every
// block-checkpointed volume if a rollback is due, then consume one boot
// attempt, then decide whether this boot runs under a checkpoint. The
// rollback decision sees the record as the previous boot left it, so a
// record of "1" still grants this boot its attempt.
//
// A volume without a log counts as already restored. The record is removed
// once every volume has been rolled back.
func (s *CheckpointService) RecoverAtBoot(ctx context.Context) (report *BootReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.finish(ctx, OpRecoverAtBoot, err, "") }()

	report = &BootReport{}
	var errs []error

	rollback, err := s.needsRollback(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	report.RollbackNeeded = rollback

	if rollback {
		if err := s.rollbackVolumes(ctx, report); err != nil {
			errs = append(errs, err)
		} else if err := s.deps.Records.Remove(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.markBootAttempt(ctx); err != nil {
		s.logger.Error("mark boot attempt failed", "error", err)
		errs = append(errs, err)
	}

	needed, err := s.needsCheckpoint(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	report.Checkpointing = needed

	return report, errors.Join(errs...)
}

func (s *CheckpointService) rollbackVolumes(ctx context.Context, report *BootReport) error {
	volumes, err := s.deps.Volumes.Volumes()
	if err != nil {
		return err
	}

	var errs []error
	for _, v := range volumes {
		if !v.CheckpointBlock {
			continue
		}
		r, err := s.restore(ctx, v.BlkDevice)
		if errors.Is(err, domain.ErrNoMagic) {
			s.logger.Info("no checkpoint log, volume already clean", "device", v.BlkDevice)
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("rollback %s: %w", v.BlkDevice, err))
			continue
		}
		report.Restores = append(report.Restores, r)
	}
	return errors.Join(errs...)
}

// ============================================================================
// Helpers
// ============================================================================

type volumePair struct {
	entry domain.FstabEntry
	mount domain.MountEntry
}

// mountedVolumes pairs every mounted volume with its fstab entry. Mounts
// without an entry are dropped.
func (s *CheckpointService) mountedVolumes() ([]volumePair, error) {
	mounts, err := s.deps.Mounts.Mounted()
	if err != nil {
		return nil, err
	}
	volumes, err := s.deps.Volumes.Volumes()
	if err != nil {
		return nil, err
	}

	var pairs []volumePair
	for _, m := range mounts {
		for _, v := range volumes {
			if v.MountPoint == m.MountPoint {
				pairs = append(pairs, volumePair{entry: v, mount: m})
				break
			}
		}
	}
	return pairs, nil
}

func (s *CheckpointService) setCheckpointing(active bool) {
	s.checkpointing = active
	if s.deps.Metrics != nil {
		s.deps.Metrics.SetActive(active)
	}
}

// finish logs, counts and journals the result of an operation.
func (s *CheckpointService) finish(ctx context.Context, op string, err error, detail string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordOperation(op, err)
	}

	ev := history.Event{Op: op, Result: history.ResultOK, Detail: detail}
	if err != nil {
		ev.Result = history.ResultError
		ev.Code = domain.GetErrorCode(err)
		if ev.Detail == "" {
			ev.Detail = err.Error()
		}
		s.logger.Error("checkpoint operation failed", "op", op, "error", err)
	} else {
		s.logger.Debug("checkpoint operation done", "op", op, "detail", detail)
	}

	if s.deps.Events == nil {
		return
	}
	if _, jerr := s.deps.Events.Record(ctx, ev); jerr != nil {
		s.logger.Warn("history record failed", "op", op, "error", jerr)
	}
}
