package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// ExecSpawner starts every worker as a child process running Binary. The
// child's stdin and stdout form the duplex channel; stderr is inherited so the
// worker's logs end up next to ours.
type ExecSpawner struct {
	Binary string
	Args   []string
	Stderr io.Writer
}

func (s *ExecSpawner) Spawn(ctx context.Context, opts SpawnOptions) (Process, io.ReadWriteCloser, error) {
	args := append([]string{}, s.Args...)
	args = append(args,
		"-id", strconv.Itoa(opts.ID),
		"-seed", strconv.FormatInt(opts.Seed, 10),
		"-render="+strconv.FormatBool(opts.Render),
		"-render-delay", opts.RenderDelay.String(),
	)
	// The process outlives ctx on purpose: only Shutdown ends it.
	cmd := exec.Command(s.Binary, args...)

	childIn, parentOut, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	parentIn, childOut, err := os.Pipe()
	if err != nil {
		childIn.Close()
		parentOut.Close()
		return nil, nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stdin = childIn
	cmd.Stdout = childOut
	cmd.Stderr = s.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		for _, f := range []*os.File{childIn, parentOut, parentIn, childOut} {
			f.Close()
		}
		return nil, nil, fmt.Errorf("start %s: %w", s.Binary, err)
	}
	// The child holds its own copies now.
	childIn.Close()
	childOut.Close()

	return &execProcess{cmd: cmd}, &pipeConn{r: parentIn, w: parentOut}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

type pipeConn struct {
	r *os.File
	w *os.File
}

func (c *pipeConn) Read(b []byte) (int, error)  { return c.r.Read(b) }
func (c *pipeConn) Write(b []byte) (int, error) { return c.w.Write(b) }

func (c *pipeConn) SetWriteDeadline(t time.Time) error {
	return c.w.SetWriteDeadline(t)
}

func (c *pipeConn) Close() error {
	return errors.Join(c.w.Close(), c.r.Close())
}

// RunFunc is a worker body driven over conn, typically envworker.Run.
type RunFunc func(ctx context.Context, conn io.ReadWriter, opts SpawnOptions) error

// InProcessSpawner runs every worker as a goroutine connected through
// net.Pipe. It speaks the exact same protocol as ExecSpawner, which makes it
// useful for tests and for debugging a collection run in one process.
type InProcessSpawner struct {
	Run RunFunc
}

func (s *InProcessSpawner) Spawn(ctx context.Context, opts SpawnOptions) (Process, io.ReadWriteCloser, error) {
	if s.Run == nil {
		return nil, nil, errors.New("in-process spawner has no run function")
	}
	parent, child := net.Pipe()
	proc := &goroutineProcess{id: opts.ID, conn: child, done: make(chan struct{})}
	go func() {
		defer close(proc.done)
		defer child.Close()
		proc.err = s.Run(context.Background(), child, opts)
	}()
	return proc, parent, nil
}

type goroutineProcess struct {
	id   int
	conn net.Conn
	done chan struct{}
	err  error
}

// Pid has no OS meaning for goroutine workers; the negated worker id keeps
// statuses distinguishable.
func (p *goroutineProcess) Pid() int {
	return -p.id - 1
}

func (p *goroutineProcess) Wait() error {
	<-p.done
	return p.err
}

// Kill severs the worker's end of the pipe, which makes its next read or
// write fail.
func (p *goroutineProcess) Kill() error {
	return p.conn.Close()
}
