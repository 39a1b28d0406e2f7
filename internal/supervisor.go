package internal

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// maxLineBytes bounds a single NDJSON line from the worker.
const maxLineBytes = 16 * 1024 * 1024

// ChannelWorkerExit is the synthetic local channel the supervisor publishes
// on when the worker process ends. It never travels over the wire.
const ChannelWorkerExit = "worker_exit"

// SupervisorStatus is the lifecycle state of the supervised worker.
type SupervisorStatus int

const (
	StatusUninstalled SupervisorStatus = iota
	StatusProvisioning
	StatusIdle
	StatusRunning
	StatusCrashed
	StatusRestarting
)

func (s SupervisorStatus) String() string {
	switch s {
	case StatusUninstalled:
		return "uninstalled"
	case StatusProvisioning:
		return "provisioning"
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusCrashed:
		return "crashed"
	case StatusRestarting:
		return "restarting"
	default:
		return "unknown"
	}
}

// Supervisor guarantees a single worker process backs the bus, provisioning
// the runtime on first use and replacing the process whenever the workspace
// root changes. It exclusively owns the worker's stdio streams.
type Supervisor struct {
	mu          sync.Mutex
	bus         *Bus
	launcher    Launcher
	provisioner *Provisioner

	workerPath string
	proc       ProcessHandle
	status     SupervisorStatus
	generation int
}

// NewSupervisor builds a supervisor over the given bus, launcher, and
// provisioner. Nothing is provisioned or spawned until StartServer.
func NewSupervisor(bus *Bus, launcher Launcher, provisioner *Provisioner) *Supervisor {
	return &Supervisor{
		bus:         bus,
		launcher:    launcher,
		provisioner: provisioner,
		status:      StatusUninstalled,
	}
}

// Status reports the current lifecycle state.
func (s *Supervisor) Status() SupervisorStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// StartServer ensures the runtime is provisioned, kills any running worker,
// discards the pending backlog (it was addressed to the old session), and
// spawns a fresh worker with root as its sole argument. Provisioning
// failures are fatal for this call and surfaced to the caller; they never
// crash the host.
func (s *Supervisor) StartServer(ctx context.Context, root string) error {
	if err := s.ensureProvisioned(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		s.status = StatusRestarting
		s.killLocked()
	}
	s.bus.ClearBacklog()

	proc, err := s.launcher.Spawn(ctx, s.workerPath, root)
	if err != nil {
		s.status = StatusIdle
		return fmt.Errorf("failed to spawn worker: %w", err)
	}
	s.proc = proc
	s.generation++
	s.status = StatusRunning

	if err := s.bus.Attach(proc.Stdin()); err != nil {
		LogWarn("Failed to flush backlog to new worker: %v", err)
	}

	gen := s.generation
	go s.readLoop(proc, gen)
	go s.waitForExit(proc, gen)

	return nil
}

// CloseServer kills the worker if one is running. Safe to call any number of
// times, including when no process exists.
func (s *Supervisor) CloseServer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return
	}
	s.killLocked()
	if s.status != StatusUninstalled {
		s.status = StatusIdle
	}
}

func (s *Supervisor) ensureProvisioned(ctx context.Context) error {
	s.mu.Lock()
	if s.workerPath != "" {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusProvisioning
	s.mu.Unlock()

	path, err := s.provisioner.Provision(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = StatusUninstalled
		return fmt.Errorf("provisioning failed: %w", err)
	}
	s.workerPath = path
	s.status = StatusIdle
	return nil
}

// killLocked tears down the current process and invalidates its generation
// so the old read and wait loops go quiet.
func (s *Supervisor) killLocked() {
	if err := s.proc.Kill(); err != nil {
		LogDebug("Kill returned: %v", err)
	}
	s.bus.Detach()
	s.proc = nil
	s.generation++
}

// readLoop parses the worker's stdout as newline-delimited JSON envelopes
// and publishes each one in stream order. Malformed lines are logged and
// dropped; one bad fragment must not kill the session.
func (s *Supervisor) readLoop(proc ProcessHandle, gen int) {
	scanner := bufio.NewScanner(proc.Stdout())
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		env, err := DecodeEnvelope([]byte(line))
		if err != nil {
			LogWarn("Dropping malformed line from worker: %v", err)
			continue
		}
		if !s.currentGeneration(gen) {
			return
		}
		s.bus.Publish(env)
	}
	if err := scanner.Err(); err != nil {
		LogDebug("Worker stdout closed: %v", err)
	}
}

// waitForExit observes process exit and publishes the synthetic exit
// envelope so subscribers can mark the session inactive. The exit code is
// not interpreted beyond "process ended"; there is no auto-restart.
func (s *Supervisor) waitForExit(proc ProcessHandle, gen int) {
	err := proc.Wait()

	s.mu.Lock()
	if s.generation != gen {
		// A restart or CloseServer already superseded this process.
		s.mu.Unlock()
		return
	}
	LogInfo("Worker process exited: %v", err)
	s.status = StatusCrashed
	s.bus.Detach()
	s.proc = nil
	s.mu.Unlock()

	s.bus.Publish(Envelope{
		ID:      uuid.NewString(),
		Channel: ChannelWorkerExit,
		Source:  SourceWorker,
	})
}

func (s *Supervisor) currentGeneration(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen
}
