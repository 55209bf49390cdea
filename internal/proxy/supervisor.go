// Package proxy supervises the Cloud SQL auth proxy subprocess.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// Readiness policy: the local endpoint is polled until a TCP handshake
// succeeds. Exhausting the budget is a fatal startup condition; the service
// must not accept traffic against a dead proxy.
const (
	probeInterval    = 2 * time.Second
	maxProbeAttempts = 30
	stopTimeout      = 10 * time.Second
)

// State tracks the supervisor's lifecycle.
type State int

const (
	StateNotStarted State = iota
	StateStarting
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Process is a running forwarding subprocess.
type Process interface {
	Signal(sig os.Signal) error
	Wait() error
}

// Launcher starts the forwarding process for a Cloud SQL connection name.
type Launcher interface {
	Launch(ctx context.Context, connectionName string, port int) (Process, error)
}

// Prober checks whether the local forwarding endpoint accepts connections.
type Prober interface {
	Probe(ctx context.Context, addr string) error
}

// Supervisor owns the proxy subprocess lifetime: it launches the process,
// verifies readiness before dependent traffic starts, and terminates it
// cleanly on shutdown.
type Supervisor struct {
	connectionName string
	port           int

	launcher    Launcher
	prober      Prober
	interval    time.Duration
	maxAttempts int

	mu      sync.Mutex
	state   State
	process Process
}

// New creates a supervisor for the given Cloud SQL connection name. An empty
// connection name yields a no-op supervisor: the database is assumed to be
// directly routable.
func New(connectionName string, port int) *Supervisor {
	return &Supervisor{
		connectionName: connectionName,
		port:           port,
		launcher:       execLauncher{},
		prober:         tcpProber{},
		interval:       probeInterval,
		maxAttempts:    maxProbeAttempts,
	}
}

// Start launches the proxy and blocks until the local endpoint accepts a
// TCP handshake or the probe budget is exhausted.
func (s *Supervisor) Start(ctx context.Context) error {
	if s.connectionName == "" {
		return nil
	}

	s.setState(StateStarting)

	proc, err := s.launcher.Launch(ctx, s.connectionName, s.port)
	if err != nil {
		s.setState(StateFailed)
		return fmt.Errorf("launch proxy: %w", err)
	}
	s.mu.Lock()
	s.process = proc
	s.mu.Unlock()

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(s.port))
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, s.interval)
		err = s.prober.Probe(probeCtx, addr)
		cancel()
		if err == nil {
			s.setState(StateReady)
			slog.Info("Proxy endpoint ready", "addr", addr, "attempt", attempt)
			return nil
		}
		slog.Debug("Proxy endpoint not ready yet", "addr", addr, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return s.fail(ctx.Err())
		case <-time.After(s.interval):
		}
	}

	return s.fail(fmt.Errorf("proxy on %s not ready after %d attempts: %w", addr, s.maxAttempts, err))
}

// fail records the failed state and terminates the subprocess so a proxy
// that never became ready is not leaked past the aborted startup.
func (s *Supervisor) fail(err error) error {
	s.setState(StateFailed)
	if stopErr := s.Stop(); stopErr != nil {
		slog.Error("Failed to stop proxy after failed startup", "error", stopErr)
	}
	return err
}

// Stop signals the subprocess and waits for it to exit so the forwarding
// process is never leaked. Safe to call on a supervisor that never started.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	proc := s.process
	s.process = nil
	s.mu.Unlock()

	if proc == nil {
		return nil
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal proxy: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- proc.Wait() }()

	select {
	case err := <-done:
		// Exiting on SIGTERM commonly reports a signal exit status.
		if err != nil {
			slog.Debug("Proxy exited", "error", err)
		}
	case <-time.After(stopTimeout):
		slog.Warn("Proxy did not exit in time, killing")
		if err := proc.Signal(os.Kill); err != nil {
			return fmt.Errorf("kill proxy: %w", err)
		}
		<-done
	}

	return nil
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// execLauncher runs the real cloud-sql-proxy binary.
type execLauncher struct{}

func (execLauncher) Launch(_ context.Context, connectionName string, port int) (Process, error) {
	cmd := exec.Command("cloud-sql-proxy",
		"--address", "127.0.0.1",
		"--port", strconv.Itoa(port),
		connectionName,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start cloud-sql-proxy: %w", err)
	}
	slog.Info("Started cloud-sql-proxy", "connection_name", connectionName, "port", port, "pid", cmd.Process.Pid)
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Signal(sig os.Signal) error { return p.cmd.Process.Signal(sig) }
func (p *execProcess) Wait() error                { return p.cmd.Wait() }

// tcpProber performs a plain TCP handshake against the local endpoint.
type tcpProber struct{}

func (tcpProber) Probe(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}
