package domain

// FstabEntry is one line of the static volume configuration table.
type FstabEntry struct {
	BlkDevice  string
	MountPoint string
	FsType     string

	// Flags are the MS_* mount flags named in the mount-flags column.
	Flags uintptr
	// Options are the filesystem data options from the mount-flags column.
	Options string

	CheckpointBlock bool
	CheckpointFs    bool
}

// Checkpointed reports whether the volume takes part in checkpointing.
func (e FstabEntry) Checkpointed() bool {
	return e.CheckpointBlock || e.CheckpointFs
}

// MountEntry is one currently mounted volume as reported by the mount table.
type MountEntry struct {
	BlkDevice  string
	MountPoint string
	FsType     string
	Options    string
}

// Status is a point-in-time view of the checkpoint lifecycle.
type Status struct {
	Supported     bool   `json:"supported"`
	Checkpointing bool   `json:"checkpointing"`
	RecordPresent bool   `json:"record_present"`
	Record        string `json:"record,omitempty"`
	SlotSuffix    string `json:"slot_suffix,omitempty"`
}

// BowState is a state code accepted by the backup-on-write driver.
type BowState string

const (
	// BowLogging starts backing up overwritten blocks.
	BowLogging BowState = "1"
	// BowCommitted stops logging and discards the backups.
	BowCommitted BowState = "2"
)
