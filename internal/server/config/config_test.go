package config

import (
	"strings"
	"testing"
	"time"

	"github.com/kshms10904/platform-system-vold/internal/storage/bowlog"
	"github.com/kshms10904/platform-system-vold/internal/storage/record"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Local.Path != DefaultLocalSocket {
		t.Errorf("Local.Path = %q, want %q", cfg.Server.Local.Path, DefaultLocalSocket)
	}
	if cfg.Server.Metrics.Addr != "" {
		t.Errorf("Metrics.Addr = %q, want empty", cfg.Server.Metrics.Addr)
	}
	if cfg.Storage.RecordFile != record.DefaultPath {
		t.Errorf("RecordFile = %q, want %q", cfg.Storage.RecordFile, record.DefaultPath)
	}
	if cfg.Restore.BlockSize != bowlog.BlockSize || cfg.Restore.SectorSize != bowlog.SectorSize {
		t.Errorf("Restore = %+v", cfg.Restore)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Platform.DryRunReboot {
		t.Error("DryRunReboot should be off by default")
	}

	if err := Verify(cfg); err != nil {
		t.Errorf("Verify(Default()) = %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DaemonConfig)
		wantErr string
	}{
		{
			name:    "empty socket",
			mutate:  func(c *DaemonConfig) { c.Server.Local.Path = "" },
			wantErr: "server.local.path is required",
		},
		{
			name:    "relative socket",
			mutate:  func(c *DaemonConfig) { c.Server.Local.Path = "run/cp.sock" },
			wantErr: "must be absolute",
		},
		{
			name:    "bad metrics addr",
			mutate:  func(c *DaemonConfig) { c.Server.Metrics.Addr = "9102" },
			wantErr: "server.metrics.addr",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *DaemonConfig) { c.Server.RateLimit = -1 },
			wantErr: "server.rate_limit",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *DaemonConfig) { c.Server.ShutdownTimeout = 0 },
			wantErr: "server.shutdown_timeout",
		},
		{
			name:    "no record file",
			mutate:  func(c *DaemonConfig) { c.Storage.RecordFile = "" },
			wantErr: "storage.record_file",
		},
		{
			name:    "no fstab",
			mutate:  func(c *DaemonConfig) { c.Platform.Fstab = "" },
			wantErr: "platform.fstab",
		},
		{
			name:    "bad geometry",
			mutate:  func(c *DaemonConfig) { c.Restore.BlockSize = 1000 },
			wantErr: "not a multiple",
		},
		{
			name:    "bad level",
			mutate:  func(c *DaemonConfig) { c.Log.Level = "trace" },
			wantErr: "log.level",
		},
		{
			name:    "bad format",
			mutate:  func(c *DaemonConfig) { c.Log.Format = "xml" },
			wantErr: "log.format",
		},
		{
			name: "metrics listener",
			mutate: func(c *DaemonConfig) {
				c.Server.Metrics.Addr = "127.0.0.1:9102"
				c.Server.ShutdownTimeout = time.Second
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Verify() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Verify() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestVerify_ReportsAllSections(t *testing.T) {
	cfg := Default()
	cfg.Storage.RecordFile = ""
	cfg.Log.Level = "loud"

	err := Verify(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"storage.record_file", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
