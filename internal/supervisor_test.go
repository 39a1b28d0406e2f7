package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
)

// fakeProcess is a scripted worker process. The test writes its stdout and
// decides when it exits.
type fakeProcess struct {
	mu      sync.Mutex
	stdin   bytes.Buffer
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	exit    chan error
	once    sync.Once
	killed  bool
}

func newFakeProcess() *fakeProcess {
	r, w := io.Pipe()
	return &fakeProcess{stdoutR: r, stdoutW: w, exit: make(chan error, 1)}
}

func (p *fakeProcess) Stdin() io.Writer {
	return writerFunc(func(b []byte) (int, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.stdin.Write(b)
	})
}

func (p *fakeProcess) Stdout() io.Reader { return p.stdoutR }

func (p *fakeProcess) Wait() error { return <-p.exit }

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.terminate(errors.New("killed"))
	return nil
}

// terminate ends the process exactly once: stdout closes and Wait returns.
func (p *fakeProcess) terminate(err error) {
	p.once.Do(func() {
		_ = p.stdoutW.Close()
		p.exit <- err
	})
}

// emit writes one raw line to the fake worker's stdout.
func (p *fakeProcess) emit(t *testing.T, line string) {
	t.Helper()
	if _, err := p.stdoutW.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("Failed to emit line: %v", err)
	}
}

func (p *fakeProcess) wasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

func (p *fakeProcess) stdinString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stdin.String()
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) { return f(b) }

// fakeLauncher hands out pre-built processes and records spawn calls.
type fakeLauncher struct {
	mu     sync.Mutex
	procs  []*fakeProcess
	spawns [][]string
}

func (l *fakeLauncher) Spawn(ctx context.Context, path string, args ...string) (ProcessHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.procs) == 0 {
		return nil, errors.New("no process scripted")
	}
	proc := l.procs[0]
	l.procs = l.procs[1:]
	l.spawns = append(l.spawns, append([]string{path}, args...))
	return proc, nil
}

// newTestProvisioner builds a provisioner whose environment already exists
// on disk, so Provision succeeds without running anything.
func newTestProvisioner(t *testing.T) *Provisioner {
	t.Helper()
	envDir := filepath.Join(t.TempDir(), "env")
	binDir := filepath.Join(envDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("Failed to create env fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "worker"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("Failed to create worker fixture: %v", err)
	}

	return &Provisioner{
		Candidates: []string{"python3"},
		MinVersion: semver.MustParse("3.10.0"),
		EnvDir:     envDir,
		Package:    "worker",
		LookPath:   func(name string) (string, error) { return "/usr/bin/" + name, nil },
		RunOutput: func(ctx context.Context, name string, args ...string) (string, error) {
			return "Python 3.11.4", nil
		},
		Run: func(ctx context.Context, name string, args ...string) error {
			t.Fatalf("Unexpected command: %s %v", name, args)
			return nil
		},
	}
}

func receiveEvent(t *testing.T, sub <-chan Envelope) Envelope {
	t.Helper()
	select {
	case env := <-sub:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for envelope")
		return Envelope{}
	}
}

func TestSupervisor_StartServerSpawnsWorkerWithRoot(t *testing.T) {
	bus := NewBus()
	proc := newFakeProcess()
	launcher := &fakeLauncher{procs: []*fakeProcess{proc}}
	sup := NewSupervisor(bus, launcher, newTestProvisioner(t))

	if err := sup.StartServer(context.Background(), "/home/dev/project"); err != nil {
		t.Fatalf("StartServer failed: %v", err)
	}
	defer sup.CloseServer()

	if got := sup.Status(); got != StatusRunning {
		t.Errorf("Expected running status, got %s", got)
	}
	if len(launcher.spawns) != 1 {
		t.Fatalf("Expected 1 spawn, got %d", len(launcher.spawns))
	}
	spawn := launcher.spawns[0]
	if len(spawn) != 2 || spawn[1] != "/home/dev/project" {
		t.Errorf("Expected workspace root as sole argument, got %v", spawn[1:])
	}
}

func TestSupervisor_PublishesWorkerOutputInOrder(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	proc := newFakeProcess()
	sup := NewSupervisor(bus, &fakeLauncher{procs: []*fakeProcess{proc}}, newTestProvisioner(t))

	if err := sup.StartServer(context.Background(), "/w"); err != nil {
		t.Fatalf("StartServer failed: %v", err)
	}
	defer sup.CloseServer()

	proc.emit(t, `{"id":"1","channel":"default","source":"worker","data":"a"}`)
	proc.emit(t, `not json at all`)
	proc.emit(t, `{"id":"2","channel":"default","source":"worker","data":"b"}`)

	first := receiveEvent(t, sub)
	second := receiveEvent(t, sub)
	if first.Data != "a" || second.Data != "b" {
		t.Errorf("Expected malformed line dropped and order kept, got %v then %v", first.Data, second.Data)
	}
}

func TestSupervisor_WorkerExitPublishesSyntheticEnvelope(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	proc := newFakeProcess()
	sup := NewSupervisor(bus, &fakeLauncher{procs: []*fakeProcess{proc}}, newTestProvisioner(t))

	if err := sup.StartServer(context.Background(), "/w"); err != nil {
		t.Fatalf("StartServer failed: %v", err)
	}

	proc.terminate(errors.New("exit status 1"))

	env := receiveEvent(t, sub)
	if env.Channel != ChannelWorkerExit {
		t.Fatalf("Expected %s envelope, got channel %q", ChannelWorkerExit, env.Channel)
	}
	if _, ok := DecodeEvent(env).(WorkerExitEvent); !ok {
		t.Error("Expected the exit envelope to decode as WorkerExitEvent")
	}

	// Status flips once the wait loop observes the exit.
	deadline := time.After(2 * time.Second)
	for sup.Status() != StatusCrashed {
		select {
		case <-deadline:
			t.Fatalf("Expected crashed status, got %s", sup.Status())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSupervisor_RestartKillsOldWorkerAndClearsBacklog(t *testing.T) {
	bus := NewBus()
	// Queued before any worker exists; addressed to no live session.
	_ = bus.Send(NewEnvelope("stale", "default", nil))

	first := newFakeProcess()
	second := newFakeProcess()
	launcher := &fakeLauncher{procs: []*fakeProcess{first, second}}
	sup := NewSupervisor(bus, launcher, newTestProvisioner(t))

	if err := sup.StartServer(context.Background(), "/w1"); err != nil {
		t.Fatalf("First StartServer failed: %v", err)
	}
	if got := first.stdinString(); got != "" {
		t.Errorf("Expected stale backlog discarded, worker received %q", got)
	}

	if err := sup.StartServer(context.Background(), "/w2"); err != nil {
		t.Fatalf("Second StartServer failed: %v", err)
	}
	defer sup.CloseServer()

	if !first.wasKilled() {
		t.Error("Expected the first worker killed on restart")
	}
	if len(launcher.spawns) != 2 || launcher.spawns[1][1] != "/w2" {
		t.Errorf("Expected second spawn against /w2, got %v", launcher.spawns)
	}
}

func TestSupervisor_StaleProcessExitIgnoredAfterRestart(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	first := newFakeProcess()
	second := newFakeProcess()
	sup := NewSupervisor(bus, &fakeLauncher{procs: []*fakeProcess{first, second}}, newTestProvisioner(t))

	if err := sup.StartServer(context.Background(), "/w"); err != nil {
		t.Fatalf("First StartServer failed: %v", err)
	}
	if err := sup.StartServer(context.Background(), "/w"); err != nil {
		t.Fatalf("Second StartServer failed: %v", err)
	}
	defer sup.CloseServer()

	// The old generation's exit must not flip status or publish.
	select {
	case env := <-sub:
		t.Fatalf("Unexpected envelope from superseded process: %+v", env)
	case <-time.After(100 * time.Millisecond):
	}
	if got := sup.Status(); got != StatusRunning {
		t.Errorf("Expected running after restart, got %s", got)
	}
}

func TestSupervisor_CloseServerIdempotent(t *testing.T) {
	bus := NewBus()
	proc := newFakeProcess()
	sup := NewSupervisor(bus, &fakeLauncher{procs: []*fakeProcess{proc}}, newTestProvisioner(t))

	if err := sup.StartServer(context.Background(), "/w"); err != nil {
		t.Fatalf("StartServer failed: %v", err)
	}

	sup.CloseServer()
	sup.CloseServer()
	sup.CloseServer()

	if !proc.wasKilled() {
		t.Error("Expected worker killed")
	}
	if got := sup.Status(); got != StatusIdle {
		t.Errorf("Expected idle status after close, got %s", got)
	}
}

func TestSupervisor_CloseServerWithoutStart(t *testing.T) {
	sup := NewSupervisor(NewBus(), &fakeLauncher{}, newTestProvisioner(t))
	sup.CloseServer()
	if got := sup.Status(); got != StatusUninstalled {
		t.Errorf("Expected uninstalled status, got %s", got)
	}
}

func TestSupervisor_ProvisionFailureIsFatalForStart(t *testing.T) {
	provisioner := &Provisioner{
		Candidates: []string{"python3"},
		MinVersion: semver.MustParse("3.10.0"),
		EnvDir:     filepath.Join(t.TempDir(), "env"),
		Package:    "worker",
		LookPath:   func(name string) (string, error) { return "", errors.New("not found") },
	}
	sup := NewSupervisor(NewBus(), &fakeLauncher{}, provisioner)

	err := sup.StartServer(context.Background(), "/w")
	if err == nil {
		t.Fatal("Expected provisioning failure")
	}
	var perr *ProvisionError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProvisionError in chain, got %v", err)
	}
	if perr.Step != "runtime" {
		t.Errorf("Expected runtime step failure, got %q", perr.Step)
	}
	if got := sup.Status(); got != StatusUninstalled {
		t.Errorf("Expected uninstalled status after failure, got %s", got)
	}
}

func TestSupervisor_OutboundReachesWorkerStdin(t *testing.T) {
	bus := NewBus()
	proc := newFakeProcess()
	sup := NewSupervisor(bus, &fakeLauncher{procs: []*fakeProcess{proc}}, newTestProvisioner(t))

	if err := sup.StartServer(context.Background(), "/w"); err != nil {
		t.Fatalf("StartServer failed: %v", err)
	}
	defer sup.CloseServer()

	if err := bus.SendOnChannel("hello", "default", nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	env, err := DecodeEnvelope(bytes.TrimSpace([]byte(proc.stdinString())))
	if err != nil {
		t.Fatalf("Worker stdin did not receive a valid envelope: %v", err)
	}
	if env.Data != "hello" || env.Source != SourceClient {
		t.Errorf("Unexpected envelope on stdin: %+v", env)
	}
}
