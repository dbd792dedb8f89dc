package command

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/kshms10904/platform-system-vold/internal/cli/connection"
	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

func TestSupported(t *testing.T) {
	svc := &fakeService{supported: true}
	out, err := runApp(t, newDaemon(t, svc, nil), "-o", "json", "supported")
	if err != nil {
		t.Fatalf("supported: %v", err)
	}
	if !strings.Contains(out, `"supported": true`) {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestStart(t *testing.T) {
	tests := []struct {
		args  []string
		retry int
	}{
		{[]string{"start"}, 1},
		{[]string{"start", "--retry", "3"}, 3},
		{[]string{"start", "-r", "-1"}, -1},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			svc := &fakeService{}
			out, err := runApp(t, newDaemon(t, svc, nil), tt.args...)
			if err != nil {
				t.Fatalf("start: %v", err)
			}
			if retry, _, _ := svc.snapshot(); retry != tt.retry {
				t.Errorf("retry = %d, want %d", retry, tt.retry)
			}
			if !strings.Contains(out, "checkpoint started") {
				t.Errorf("unexpected output: %q", out)
			}
		})
	}
}

func TestStart_ServiceError(t *testing.T) {
	svc := &fakeService{err: domain.ErrInvalidRetry}
	_, err := runApp(t, newDaemon(t, svc, nil), "start", "--retry", "-5")

	var apiErr *connection.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *connection.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != "CP-ARG-4001" || apiErr.Status != 400 {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestSimpleOperations(t *testing.T) {
	svc := &fakeService{}
	target := newDaemon(t, svc, nil)

	for _, args := range [][]string{
		{"prepare"},
		{"commit"},
		{"mark-boot-attempt"},
		{"-o", "json", "commit"},
	} {
		if _, err := runApp(t, target, args...); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	want := []string{"prepare", "commit", "mark", "commit"}
	if got := svc.called(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestAcknowledge_Formats(t *testing.T) {
	svc := &fakeService{}
	target := newDaemon(t, svc, nil)

	out, err := runApp(t, target, "commit")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "checkpoint committed" {
		t.Errorf("table output = %q", out)
	}

	out, err = runApp(t, target, "-o", "yaml", "commit")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "operation: commit") || !strings.Contains(out, "result: ok") {
		t.Errorf("yaml output = %q", out)
	}
}

func TestAbort(t *testing.T) {
	svc := &fakeService{}
	if _, err := runApp(t, newDaemon(t, svc, nil), "abort", "--reason", "ota failed"); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if _, reason, _ := svc.snapshot(); reason != "ota failed" {
		t.Errorf("reason = %q", reason)
	}
}

func TestNeededQueries(t *testing.T) {
	svc := &fakeService{needed: true}
	target := newDaemon(t, svc, nil)

	out, err := runApp(t, target, "-o", "yaml", "needs-checkpoint")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "needed: true") {
		t.Errorf("needs-checkpoint output = %q", out)
	}

	out, err = runApp(t, target, "needs-rollback", "--quiet")
	if err != nil || out != "" {
		t.Errorf("quiet needed: out=%q err=%v", out, err)
	}
}

func TestNeedsRollback_QuietNotNeeded(t *testing.T) {
	svc := &fakeService{needed: false}
	out, err := runApp(t, newDaemon(t, svc, nil), "needs-rollback", "-q")
	if out != "" {
		t.Errorf("quiet mode printed %q", out)
	}

	var exit cli.ExitCoder
	if !errors.As(err, &exit) {
		t.Fatalf("expected an exit coder, got %v", err)
	}
	if exit.ExitCode() != ExitNotNeeded {
		t.Errorf("exit code = %d, want %d", exit.ExitCode(), ExitNotNeeded)
	}
}

func TestRestore_Remote(t *testing.T) {
	svc := &fakeService{}
	out, err := runApp(t, newDaemon(t, svc, nil), "restore", "/dev/block/dm-4")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, _, device := svc.snapshot(); device != "/dev/block/dm-4" {
		t.Errorf("device = %q", device)
	}
	for _, want := range []string{"outcome", "restored", "bytes_restored", "20480"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRestore_RequiresDevice(t *testing.T) {
	svc := &fakeService{}
	_, err := runApp(t, newDaemon(t, svc, nil), "restore")
	if err == nil {
		t.Fatal("expected an error without a device")
	}
	if calls := svc.called(); len(calls) != 0 {
		t.Errorf("daemon was called: %v", calls)
	}
}
