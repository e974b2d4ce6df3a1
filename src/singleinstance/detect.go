package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ErrAlreadyRunning is returned by CheckNoResident when another resident
// answers on the port range.
var ErrAlreadyRunning = errors.New("a snip resident is already running")

// DetectResidentPort returns the first port in the range whose listener
// answers PING, bounded per port by ctx or pingTimeout.
func DetectResidentPort(ctx context.Context) (int, bool) {
	for _, addr := range candidates() {
		if ctx.Err() != nil {
			return 0, false
		}
		if ping(addr, probeTimeout(ctx, pingTimeout)) {
			_, p, _ := net.SplitHostPort(addr)
			port, _ := strconv.Atoi(p)
			return port, true
		}
	}
	return 0, false
}

// CheckNoResident fails with ErrAlreadyRunning when a resident owns a port.
func CheckNoResident(ctx context.Context) error {
	if port, ok := DetectResidentPort(ctx); ok {
		return fmt.Errorf("%w on port %d", ErrAlreadyRunning, port)
	}
	return nil
}

func candidates() []string {
	start, end := getPortRange()
	addrs := make([]string, 0, end-start+1)
	for port := start; port <= end; port++ {
		addrs = append(addrs, net.JoinHostPort(residentHost, strconv.Itoa(port)))
	}
	return addrs
}

// probeTimeout is fallback, shortened when ctx expires sooner.
func probeTimeout(ctx context.Context, fallback time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < fallback {
			return d
		}
	}
	return fallback
}

func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	resp, err := exchange(conn, pingRequest)
	return err == nil && resp == pongResponse
}

// exchange writes one request line and reads the status line back.
func exchange(conn net.Conn, line string) (string, error) {
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(line); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return bufio.NewReader(conn).ReadString('\n')
}
