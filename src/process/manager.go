package process

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ChildState is the lifecycle of a spawned window process.
type ChildState int

const (
	StateStarting ChildState = iota
	StateRunning
	StateStopping
	StateStopped
	StateCrashed
)

func (s ChildState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// ChildInfo is a snapshot of one spawned process.
type ChildInfo struct {
	PID       int
	Name      string
	Args      []string
	State     ChildState
	StartTime time.Time
	LastError error
}

type child struct {
	info ChildInfo
	cmd  *exec.Cmd
	done chan struct{}
}

// Manager starts long-lived child processes (pin and annotation windows in
// tray mode), tracks their state and stops them on shutdown. Unlike Runner
// it does not wait for the child to finish.
type Manager struct {
	mu       sync.Mutex
	children map[int]*child
	// OnExit, when set, runs after a child exits.
	OnExit func(ChildInfo)
}

func NewManager() *Manager {
	return &Manager{children: make(map[int]*child)}
}

// Spawn starts name with args and returns its pid. The child inherits the
// environment and stderr so its log lines reach the same place as ours.
func (m *Manager) Spawn(name string, args ...string) (int, error) {
	cmd := exec.Command(name, args...)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to start %s: %w", name, err)
	}

	c := &child{
		info: ChildInfo{
			PID:       cmd.Process.Pid,
			Name:      name,
			Args:      append([]string(nil), args...),
			State:     StateRunning,
			StartTime: time.Now(),
		},
		cmd:  cmd,
		done: make(chan struct{}),
	}
	m.mu.Lock()
	m.children[c.info.PID] = c
	m.mu.Unlock()
	log.Printf("process: spawned %s %s (pid %d)", name, strings.Join(args, " "), c.info.PID)

	go m.wait(c)
	return c.info.PID, nil
}

func (m *Manager) wait(c *child) {
	err := c.cmd.Wait()

	m.mu.Lock()
	switch {
	case c.info.State == StateStopping:
		c.info.State = StateStopped
	case err != nil:
		c.info.State = StateCrashed
		c.info.LastError = err
	default:
		c.info.State = StateStopped
	}
	info := c.info
	delete(m.children, info.PID)
	onExit := m.OnExit
	m.mu.Unlock()
	close(c.done)

	if info.State == StateCrashed {
		log.Printf("process: %s (pid %d) crashed: %v", info.Name, info.PID, info.LastError)
	} else {
		log.Printf("process: %s (pid %d) exited after %v", info.Name, info.PID, time.Since(info.StartTime).Round(time.Millisecond))
	}
	if onExit != nil {
		onExit(info)
	}
}

// Running is the number of children that have not exited.
func (m *Manager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.children)
}

// Status returns a snapshot of live children keyed by pid.
func (m *Manager) Status() map[int]ChildInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]ChildInfo, len(m.children))
	for pid, c := range m.children {
		out[pid] = c.info
	}
	return out
}

// StopAll interrupts every child and kills those still alive after grace.
func (m *Manager) StopAll(grace time.Duration) {
	m.mu.Lock()
	pending := make([]*child, 0, len(m.children))
	for _, c := range m.children {
		c.info.State = StateStopping
		pending = append(pending, c)
	}
	m.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	log.Printf("process: stopping %d child process(es)", len(pending))
	for _, c := range pending {
		if err := c.cmd.Process.Signal(os.Interrupt); err != nil {
			log.Printf("process: interrupt pid %d: %v", c.info.PID, err)
		}
	}
	deadline := time.After(grace)
	for _, c := range pending {
		select {
		case <-c.done:
		case <-deadline:
			_ = c.cmd.Process.Kill()
			<-c.done
		}
	}
}
