// Package llama runs llama.cpp's llama-server as a child process and talks to
// it over loopback HTTP. Each loaded model owns its own process; closing the
// model stops it.
package llama

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/patentalloy/internal/extract"
)

// DefaultLoadTimeout bounds how long a tier may take to report healthy.
const DefaultLoadTimeout = 2 * time.Minute

// Engine starts llama-server processes.
type Engine struct {
	Bin         string        // llama-server executable.
	LoadTimeout time.Duration // Per-tier readiness deadline.
	Env         []string      // Extra environment for the server process.
	Log         *slog.Logger

	pollInterval time.Duration
}

func NewEngine(bin string, loadTimeout time.Duration, log *slog.Logger) *Engine {
	if bin == "" {
		bin = "llama-server"
	}
	if loadTimeout <= 0 {
		loadTimeout = DefaultLoadTimeout
	}
	return &Engine{
		Bin:          bin,
		LoadTimeout:  loadTimeout,
		Log:          log,
		pollInterval: 250 * time.Millisecond,
	}
}

// Load starts a server for p and waits until it reports healthy. A server
// that exits or never becomes ready is an extract.ErrBackend failure; a
// binary that cannot be started at all is not.
func (e *Engine) Load(ctx context.Context, p extract.LoadParams) (extract.Model, error) {
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("reserve port: %w", err)
	}

	cmd := exec.Command(e.Bin, serverArgs(p, port)...)
	cmd.Env = append(os.Environ(), e.Env...)
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", e.Bin, err)
	}

	srv := &Server{
		baseURL: "http://127.0.0.1:" + strconv.Itoa(port),
		client:  &http.Client{},
		cmd:     cmd,
		exited:  make(chan struct{}),
	}
	go func() {
		srv.waitErr = cmd.Wait()
		close(srv.exited)
	}()

	if e.Log != nil {
		e.Log.Debug("llama-server started", "pid", cmd.Process.Pid, "port", port, "tier", p.Tier.Name)
	}

	if err := e.waitReady(ctx, srv); err != nil {
		srv.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: tier %s (%d gpu layers): %v: %s",
			extract.ErrBackend, p.Tier.Name, p.Tier.GPULayers, err, stderr.String())
	}
	return srv, nil
}

func (e *Engine) waitReady(ctx context.Context, srv *Server) error {
	deadline := time.NewTimer(e.LoadTimeout)
	defer deadline.Stop()
	interval := e.pollInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if srv.healthy(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-srv.exited:
			return fmt.Errorf("server exited: %v", srv.waitErr)
		case <-deadline.C:
			return fmt.Errorf("not ready after %s", e.LoadTimeout)
		case <-ticker.C:
		}
	}
}

func serverArgs(p extract.LoadParams, port int) []string {
	args := []string{
		"-m", p.Path,
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(port),
		"--n-gpu-layers", strconv.Itoa(p.Tier.GPULayers),
		"--ctx-size", strconv.Itoa(p.ContextSize),
		"--batch-size", strconv.Itoa(p.BatchSize),
	}
	if p.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(p.Threads))
	}
	if !p.UseMMap {
		args = append(args, "--no-mmap")
	}
	if p.UseMLock {
		args = append(args, "--mlock")
	}
	return args
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

// String returns the buffered tail, starting at the first whole rune.
func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	start := 0
	for start < len(b.buf) && start < utf8.UTFMax && !utf8.RuneStart(b.buf[start]) {
		start++
	}
	return string(b.buf[start:])
}
