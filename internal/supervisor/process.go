package supervisor

import (
	"bufio"
	"context"
	"os/exec"
	"sync"

	"github.com/boothy-app/camera-core/internal/corelog"
)

// Process is a spawned sidecar child. It abstracts os/exec.Cmd so tests
// can substitute an in-process fake sidecar.
type Process interface {
	// Alive reports whether the process has not yet exited.
	Alive() bool
	// Kill terminates the process and waits for it to exit.
	Kill() error
	// Wait blocks until the process exits.
	Wait() error
}

// Launcher spawns the sidecar binary. The default implementation shells
// out via os/exec; tests inject a fake that never touches the OS.
type Launcher interface {
	Launch(ctx context.Context, binaryPath, mode string, logger corelog.Logger) (Process, error)
}

type execLauncher struct{}

// NewExecLauncher returns the production Launcher: os/exec plus
// goroutines streaming the child's stdout at INFO and stderr at WARN.
func NewExecLauncher() Launcher { return execLauncher{} }

type execProcess struct {
	cmd      *exec.Cmd
	wg       sync.WaitGroup
	waitOnce sync.Once
	waitErr  error
	mu       sync.Mutex
	done     bool
}

func (l execLauncher) Launch(ctx context.Context, binaryPath, mode string, logger corelog.Logger) (Process, error) {
	cmd := exec.CommandContext(ctx, binaryPath, "--mode", mode)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execProcess{cmd: cmd}
	p.wg.Add(2)
	go p.logLines(stdout, logger.Info, "sidecar stdout")
	go p.logLines(stderr, logger.Warn, "sidecar stderr")
	// Reap the child as soon as it exits on its own (crash, sidecar
	// self-terminate) rather than only when Kill() is eventually called,
	// so Alive() reflects real OS process liveness immediately.
	go p.Wait()
	return p, nil
}

func (p *execProcess) logLines(r interface{ Read([]byte) (int, error) }, log func(string, ...corelog.Attrib), tag string) {
	defer p.wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log(tag, corelog.String("line", scanner.Text()))
	}
}

func (p *execProcess) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return false
	}
	return p.cmd.ProcessState == nil
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	p.Wait()
	return err
}

func (p *execProcess) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
		p.wg.Wait()
		p.mu.Lock()
		p.done = true
		p.mu.Unlock()
	})
	return p.waitErr
}
