package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

const (
	pingTimeout = 300 * time.Millisecond
	dialTimeout = 2 * time.Second
)

type tcpClient struct{}

func newTcpClient() Client { return &tcpClient{} }

func (c *tcpClient) TryCapture(ctx context.Context, req Request) (bool, string, error) {
	for _, addr := range candidates() {
		if err := ctx.Err(); err != nil {
			return false, "", err
		}
		if !ping(addr, probeTimeout(ctx, pingTimeout)) {
			continue
		}
		conn, err := net.DialTimeout("tcp", addr, probeTimeout(ctx, dialTimeout))
		if err != nil {
			continue
		}
		text, err := c.send(ctx, conn, req)
		return true, text, err
	}
	return false, "", nil
}

// send delivers req on conn. The resident may wait on the user's region
// selection, so only ctx bounds the reply.
func (c *tcpClient) send(ctx context.Context, conn net.Conn, req Request) (string, error) {
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(req.line()); err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	body, _ := io.ReadAll(br)
	switch status {
	case "SUCCESS\n":
		return string(body), nil
	case "ERROR\n":
		return "", errors.New(string(body))
	}
	return "", fmt.Errorf("unexpected reply %q", strings.TrimSpace(status))
}
