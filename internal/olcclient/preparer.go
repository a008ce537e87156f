package olcclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/device-infra-sub009/internal/olcpb"
	"github.com/oklog/run"
)

// serverStartedToken is the literal line the OLC server prints to its own
// stderr once it has bound its port.
const serverStartedToken = "OLC server started"

// stderrLinePrefix tags every line of the spawned server's stderr that the
// preparer echoes to the operator.
const stderrLinePrefix = "[olc-server] "

const (
	killProbeAttempts    = 10
	killProbeInterval    = 1 * time.Second
	readinessProbeAttempts = 15
	readinessProbeInterval = 1 * time.Second
	readinessLatchTimeout  = 40 * time.Second
)

// PreparerConfig bears everything Prepare needs, explicitly, rather than
// reaching for globals or a DI container.
type PreparerConfig struct {
	Channel Channel

	ClientId         string
	ServerBinaryPath string
	ServerArgs       []string // device-infra-service flags, passed through verbatim
	AlwaysRestart    bool

	Logger   *slog.Logger
	Sleeper  Sleeper
	ErrOut   io.Writer // operator's error output; defaults to os.Stderr

	// newCmd lets tests substitute a fake subprocess; nil uses exec.Command.
	newCmd func(path string, args []string) cmdRunner

	// The remaining fields default to the package constants; tests shrink
	// them so the state machine's attempt budgets don't cost real wall time.
	killProbeAttempts      int
	killProbeInterval      time.Duration
	readinessProbeAttempts int
	readinessProbeInterval time.Duration
	readinessLatchTimeout  time.Duration
}

func (c *PreparerConfig) sleeper() Sleeper {
	if c.Sleeper != nil {
		return c.Sleeper
	}
	return RealSleeper{}
}

func (c *PreparerConfig) errOut() io.Writer {
	if c.ErrOut != nil {
		return c.ErrOut
	}
	return os.Stderr
}

func (c *PreparerConfig) killProbeAttemptsOrDefault() int {
	if c.killProbeAttempts != 0 {
		return c.killProbeAttempts
	}
	return killProbeAttempts
}

func (c *PreparerConfig) killProbeIntervalOrDefault() time.Duration {
	if c.killProbeInterval != 0 {
		return c.killProbeInterval
	}
	return killProbeInterval
}

func (c *PreparerConfig) readinessProbeAttemptsOrDefault() int {
	if c.readinessProbeAttempts != 0 {
		return c.readinessProbeAttempts
	}
	return readinessProbeAttempts
}

func (c *PreparerConfig) readinessProbeIntervalOrDefault() time.Duration {
	if c.readinessProbeInterval != 0 {
		return c.readinessProbeInterval
	}
	return readinessProbeInterval
}

func (c *PreparerConfig) readinessLatchTimeoutOrDefault() time.Duration {
	if c.readinessLatchTimeout != 0 {
		return c.readinessLatchTimeout
	}
	return readinessLatchTimeout
}

// cmdRunner is the thin subset of *exec.Cmd the preparer uses, so tests
// can substitute an in-memory process.
type cmdRunner interface {
	Start() error
	Wait() error
	StderrPipe() (io.ReadCloser, error)
	Kill() error
}

type execCmdRunner struct {
	cmd *exec.Cmd
}

func (r *execCmdRunner) Start() error { return r.cmd.Start() }
func (r *execCmdRunner) Wait() error  { return r.cmd.Wait() }
func (r *execCmdRunner) StderrPipe() (io.ReadCloser, error) {
	return r.cmd.StderrPipe()
}
func (r *execCmdRunner) Kill() error {
	if r.cmd.Process == nil {
		return nil
	}
	return r.cmd.Process.Kill()
}

func defaultNewCmd(path string, args []string) cmdRunner {
	return &execCmdRunner{cmd: exec.Command(path, args...)}
}

// Preparer idempotently ensures a usable server exists (C3). First call on
// a fresh instance drives Probing -> (Reuse | KillingExisting | Spawning)
// -> WaitingReady -> Ready, or Failed. Every subsequent call replays the
// same outcome: success stays success, and per the resolved Open
// Question, failure is sticky.
type Preparer struct {
	cfg PreparerConfig

	once sync.Once
	err  error
}

// NewPreparer constructs a Preparer from cfg. cfg.Channel, cfg.Logger and
// cfg.ClientId must be set.
func NewPreparer(cfg PreparerConfig) *Preparer {
	if cfg.newCmd == nil {
		cfg.newCmd = defaultNewCmd
	}
	return &Preparer{cfg: cfg}
}

// Prepare drives the state machine to completion on the first call;
// subsequent calls return the same result without doing anything.
func (p *Preparer) Prepare(ctx context.Context) error {
	p.once.Do(func() {
		p.err = p.run(ctx)
	})
	return p.err
}

func (p *Preparer) run(ctx context.Context) error {
	log := p.cfg.Logger

	versionClient, err := p.cfg.Channel.VersionClient()
	if err != nil {
		return NewError(ErrorKindServerConnect, err)
	}
	controlClient, err := p.cfg.Channel.ControlClient()
	if err != nil {
		return NewError(ErrorKindServerConnect, err)
	}

	// Probing.
	_, probeErr := GetVersion(ctx, versionClient, log)
	switch {
	case probeErr == nil:
		log.Info("connected to existing server")
		if !p.cfg.AlwaysRestart {
			return nil // Reuse.
		}
		return p.killAndRespawn(ctx, versionClient, controlClient)

	default:
		var vpe *VersionProbeError
		if errors.As(probeErr, &vpe) && vpe.Outcome == VersionProbeNetworkUnavailable {
			return p.spawnAndWait(ctx)
		}
		return NewError(ErrorKindServerConnect, probeErr)
	}
}

// killAndRespawn implements KillingExisting: best-effort KillServer, then
// poll Version until it fails (old server gone) or the attempt budget is
// exhausted (abort the restart and keep the old server).
func (p *Preparer) killAndRespawn(ctx context.Context, versionClient olcpb.VersionServiceClient, controlClient olcpb.ControlServiceClient) error {
	if _, err := controlClient.KillServer(ctx, &olcpb.KillServerRequest{ClientId: p.cfg.ClientId}); err != nil {
		p.cfg.Logger.Debug("kill_server request failed, continuing anyway", "error", err)
	}

	for attempt := 1; attempt <= p.cfg.killProbeAttemptsOrDefault(); attempt++ {
		p.cfg.sleeper().Sleep(p.cfg.killProbeIntervalOrDefault())
		if _, err := GetVersion(ctx, versionClient, p.cfg.Logger); err != nil {
			// Old server is gone; proceed to spawn a fresh one.
			return p.spawnAndWait(ctx)
		}
	}

	p.cfg.Logger.Warn("old server still alive after kill, aborting restart and reusing it")
	return nil
}

// spawnAndWait implements Spawning + WaitingReady.
func (p *Preparer) spawnAndWait(ctx context.Context) error {
	log := p.cfg.Logger

	if _, statErr := os.Stat(p.cfg.ServerBinaryPath); statErr != nil {
		return NewError(ErrorKindServerStart, fmt.Errorf("server binary not found at %q: %w", p.cfg.ServerBinaryPath, statErr))
	}

	proc := p.cfg.newCmd(p.cfg.ServerBinaryPath, p.cfg.ServerArgs)
	stderr, err := proc.StderrPipe()
	if err != nil {
		return NewError(ErrorKindServerStart, err)
	}
	if err := proc.Start(); err != nil {
		return NewError(ErrorKindServerStart, err)
	}

	latch := newReadinessLatch()
	go p.pumpStderr(stderr, latch)

	exited := make(chan error, 1)
	go func() { exited <- proc.Wait() }()

	var g run.Group
	{
		g.Add(func() error {
			<-latch.done()
			return nil
		}, func(error) {})
	}
	{
		done := make(chan struct{})
		g.Add(func() error {
			select {
			case <-exited:
				latch.tripUnsuccessful()
				return errProcessExitedEarly
			case <-done:
				return nil
			}
		}, func(error) { close(done) })
	}
	{
		timer := time.NewTimer(p.cfg.readinessLatchTimeoutOrDefault())
		g.Add(func() error {
			select {
			case <-timer.C:
				latch.tripTimedOut()
				return errReadinessTimeout
			case <-latch.done():
				return nil
			}
		}, func(error) { timer.Stop() })
	}
	_ = g.Run()

	switch latch.result() {
	case readinessSuccess:
		log.Info("server started successfully")
	case readinessTimedOut:
		_ = proc.Kill()
		return NewError(ErrorKindServerInitTimeout, errReadinessTimeout)
	case readinessUnsuccessful:
		_ = proc.Kill()
		return NewError(ErrorKindServerInitAbort, errProcessExitedEarly)
	}

	versionClient, err := p.cfg.Channel.VersionClient()
	if err != nil {
		return NewError(ErrorKindServerConnect, err)
	}
	maxAttempts := p.cfg.readinessProbeAttemptsOrDefault()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if _, err := GetVersion(ctx, versionClient, log); err == nil {
			return nil
		}
		if attempt < maxAttempts {
			p.cfg.sleeper().Sleep(p.cfg.readinessProbeIntervalOrDefault())
		}
	}
	return NewError(ErrorKindServerConnect, fmt.Errorf("version service never became reachable after spawn"))
}

var (
	errProcessExitedEarly = errors.New("spawned server process exited before signaling readiness")
	errReadinessTimeout   = errors.New("timed out waiting for server readiness signal")
)

// pumpStderr echoes every line of the spawned server's stderr to the
// operator, watching for the startup token.
func (p *Preparer) pumpStderr(r io.Reader, latch *readinessLatch) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fmt.Fprintln(p.cfg.errOut(), stderrLinePrefix+line)

		if strings.Contains(line, serverStartedToken) {
			latch.tripSuccessful()
			// The process continues; we stop reading further output and
			// let it become detached.
			return
		}
	}
}

// readinessResult is the terminal state of a one-shot readiness latch.
type readinessResult int

const (
	readinessPending readinessResult = iota
	readinessSuccess
	readinessUnsuccessful
	readinessTimedOut
)

// readinessLatch is the single-fire synchronization primitive from Design
// Notes ("One-shot latches"): a single terminal result (success, early
// exit, or timeout) published by a channel close, never a counter or
// semaphore.
type readinessLatch struct {
	mu     sync.Mutex
	res readinessResult
	ch     chan struct{}
	once   sync.Once
}

func newReadinessLatch() *readinessLatch {
	return &readinessLatch{ch: make(chan struct{})}
}

func (l *readinessLatch) done() <-chan struct{} { return l.ch }

func (l *readinessLatch) trip(r readinessResult) {
	l.once.Do(func() {
		l.mu.Lock()
		l.res = r
		l.mu.Unlock()
		close(l.ch)
	})
}

func (l *readinessLatch) tripSuccessful()   { l.trip(readinessSuccess) }
func (l *readinessLatch) tripUnsuccessful() { l.trip(readinessUnsuccessful) }
func (l *readinessLatch) tripTimedOut()     { l.trip(readinessTimedOut) }

func (l *readinessLatch) result() readinessResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.res
}
