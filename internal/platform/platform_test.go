package platform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

const sampleFstab = `# Android fstab
/dev/block/by-name/system   /system   ext4   ro,barrier=1   wait,slotselect
/dev/block/by-name/userdata /data     f2fs   noatime,nosuid,nodev,discard,reserve_root=32768   latemount,wait,checkpoint=fs
/dev/block/by-name/cache    /cache    ext4   noatime,nosuid,nodev   wait,checkpoint=block

/dev/block/by-name/misc     /misc     emmc   defaults
`

func TestParseFstab(t *testing.T) {
	entries, err := ParseFstab(strings.NewReader(sampleFstab))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	system := entries[0]
	assert.Equal(t, "/system", system.MountPoint)
	assert.False(t, system.Checkpointed())
	assert.Equal(t, "barrier=1", system.Options)

	data := entries[1]
	assert.Equal(t, "f2fs", data.FsType)
	assert.True(t, data.CheckpointFs)
	assert.False(t, data.CheckpointBlock)
	assert.Equal(t, "discard,reserve_root=32768", data.Options)
	assert.NotZero(t, data.Flags)

	cache := entries[2]
	assert.True(t, cache.CheckpointBlock)
	assert.True(t, cache.Checkpointed())

	misc := entries[3]
	assert.Zero(t, misc.Flags)
	assert.Empty(t, misc.Options)
}

func TestParseFstab_ShortLine(t *testing.T) {
	_, err := ParseFstab(strings.NewReader("/dev/block/x /x ext4\n"))
	require.ErrorIs(t, err, domain.ErrRecordIO)
}

func TestFstabFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fstab")
	require.NoError(t, os.WriteFile(path, []byte(sampleFstab), 0o644))

	f := &FstabFile{Path: path}
	entries, err := f.Volumes()
	require.NoError(t, err)

	entry, ok := EntryForMountPoint(entries, "/data")
	require.True(t, ok)
	assert.Equal(t, "/dev/block/by-name/userdata", entry.BlkDevice)

	_, ok = EntryForMountPoint(entries, "/nope")
	assert.False(t, ok)

	_, err = (&FstabFile{Path: filepath.Join(t.TempDir(), "missing")}).Volumes()
	require.ErrorIs(t, err, domain.ErrRecordIO)
}

func TestParseMounts(t *testing.T) {
	content := `/dev/block/dm-4 /data f2fs rw,lazytime,seclabel,nosuid,nodev,noatime 0 0
tmpfs /mnt/my\040dir tmpfs rw 0 0
short line
`
	entries, err := ParseMounts(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, domain.MountEntry{
		BlkDevice:  "/dev/block/dm-4",
		MountPoint: "/data",
		FsType:     "f2fs",
		Options:    "rw,lazytime,seclabel,nosuid,nodev,noatime",
	}, entries[0])
	assert.Equal(t, "/mnt/my dir", entries[1].MountPoint)
}

func TestMountsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mounts")
	require.NoError(t, os.WriteFile(path, []byte("/dev/sda1 / ext4 rw 0 0\n"), 0o644))

	entries, err := (&MountsFile{Path: path}).Mounted()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/", entries[0].MountPoint)
}

func TestBowControl(t *testing.T) {
	root := t.TempDir()
	b := &BowControl{SysfsRoot: root}

	path, err := b.StatePath("/dev/block/dm-4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "block", "dm-4", "bow", "state"), path)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("0"), 0o644))

	require.NoError(t, b.SetState("/dev/block/dm-4", domain.BowLogging))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))

	require.NoError(t, b.SetState("/dev/block/dm-4", domain.BowCommitted))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))
}

func TestBowControl_Errors(t *testing.T) {
	b := &BowControl{SysfsRoot: t.TempDir()}

	for _, dev := range []string{"block/dm-4", "/dev/", "/dev/../etc/passwd", ""} {
		err := b.SetState(dev, domain.BowLogging)
		assert.ErrorIs(t, err, domain.ErrInvalidDevice, "device %q", dev)
	}

	err := b.SetState("/dev/block/dm-9", domain.BowLogging)
	assert.ErrorIs(t, err, domain.ErrControl, "missing state file is a control failure")
}

func TestBootControl(t *testing.T) {
	dir := t.TempDir()
	cmdline := filepath.Join(dir, "cmdline")
	marker := filepath.Join(dir, "slot_successful")
	require.NoError(t, os.WriteFile(cmdline, []byte("console=ttyS0 androidboot.slot_suffix=_b quiet\n"), 0o644))

	b := &BootControl{CmdlinePath: cmdline, SuccessFile: marker}

	suffix, err := b.SlotSuffix()
	require.NoError(t, err)
	assert.Equal(t, "_b", suffix)

	ok, err := b.MarkedSuccessful()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(marker, nil, 0o644))
	ok, err = b.MarkedSuccessful()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBootControl_Unavailable(t *testing.T) {
	dir := t.TempDir()
	cmdline := filepath.Join(dir, "cmdline")
	require.NoError(t, os.WriteFile(cmdline, []byte("console=ttyS0"), 0o644))

	b := &BootControl{CmdlinePath: cmdline}
	_, err := b.SlotSuffix()
	assert.ErrorIs(t, err, domain.ErrControl)

	_, err = b.MarkedSuccessful()
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}

func TestCommittedMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "checkpoint_committed")
	require.NoError(t, (&CommittedMarker{Path: path}).NotifyCommitted())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))

	require.NoError(t, (&CommittedMarker{}).NotifyCommitted())
}

func TestRebooter_DryRun(t *testing.T) {
	require.NoError(t, (&Rebooter{DryRun: true}).Restart("test"))
}
