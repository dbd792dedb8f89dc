package command

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
	"github.com/kshms10904/platform-system-vold/internal/server/httpserver/handler"
	"github.com/kshms10904/platform-system-vold/internal/storage/bowlog"
	"github.com/kshms10904/platform-system-vold/internal/storage/history"
)

// fakeService stands in for the checkpoint service behind a real handler.
type fakeService struct {
	mu        sync.Mutex
	err       error
	supported bool
	needed    bool
	retry     int
	reason    string
	device    string
	calls     []string
	status    domain.Status
}

func (f *fakeService) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeService) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// snapshot returns a copy of the recorded arguments.
func (f *fakeService) snapshot() (retry int, reason, device string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.retry, f.reason, f.device
}

func (f *fakeService) SupportsCheckpoint(context.Context) (bool, error) {
	return f.supported, f.call("supported")
}

func (f *fakeService) StartCheckpoint(_ context.Context, retry int) error {
	f.mu.Lock()
	f.retry = retry
	f.mu.Unlock()
	return f.call("start")
}

func (f *fakeService) PrepareCheckpoint(context.Context) error { return f.call("prepare") }
func (f *fakeService) CommitChanges(context.Context) error     { return f.call("commit") }
func (f *fakeService) MarkBootAttempt(context.Context) error   { return f.call("mark") }

func (f *fakeService) AbortChanges(_ context.Context, reason string) error {
	f.mu.Lock()
	f.reason = reason
	f.mu.Unlock()
	return f.call("abort")
}

func (f *fakeService) NeedsCheckpoint(context.Context) (bool, error) {
	return f.needed, f.call("needs-checkpoint")
}

func (f *fakeService) NeedsRollback(context.Context) (bool, error) {
	return f.needed, f.call("needs-rollback")
}

func (f *fakeService) RestoreCheckpoint(_ context.Context, dev string) (*bowlog.Report, error) {
	f.mu.Lock()
	f.device = dev
	f.mu.Unlock()
	if err := f.call("restore"); err != nil {
		return nil, err
	}
	return &bowlog.Report{Device: dev, Outcome: bowlog.OutcomeRestored, Sectors: 2, Entries: 5, BytesRestored: 20480}, nil
}

func (f *fakeService) Status(context.Context) (domain.Status, error) {
	return f.status, f.call("status")
}

type fakeHistory struct {
	events []history.Event
}

func (h *fakeHistory) List(_ context.Context, limit int) ([]history.Event, error) {
	if limit < len(h.events) {
		return h.events[:limit], nil
	}
	return h.events, nil
}

// newDaemon serves the management API for svc over TCP.
func newDaemon(t *testing.T, svc *fakeService, hist handler.HistoryLister) string {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(handler.New(svc, hist, nil, quiet))
	t.Cleanup(srv.Close)
	return srv.URL
}

// runApp runs checkpointctl against target and returns what it printed.
func runApp(t *testing.T, target string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.ExitErrHandler = func(*cli.Context, error) {}

	argv := append([]string{"checkpointctl", "--socket", target}, args...)
	err := app.Run(argv)
	return out.String(), err
}
