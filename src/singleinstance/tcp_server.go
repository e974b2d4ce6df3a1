package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

const (
	residentHost = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"

	handshakeTimeout = 3 * time.Second
)

// ErrNoFreePort is returned by Start when every port of the range is taken.
var ErrNoFreePort = errors.New("no free port in range")

// tcpServer implements Server over TCP loopback.
type tcpServer struct {
	mu       sync.Mutex
	lis      net.Listener
	port     int
	incoming chan *tcpConn
}

func newTcpServer() Server { return &tcpServer{incoming: make(chan *tcpConn, 8)} }

// Start binds the first free port of the configured range.
func (s *tcpServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	lis, err := listenFirstFree(candidates())
	if err != nil {
		return err
	}
	s.lis = lis
	s.port = lis.Addr().(*net.TCPAddr).Port
	log.Printf("singleinstance: listening on %s", lis.Addr())
	go s.serve(ctx, lis)
	return nil
}

func listenFirstFree(addrs []string) (net.Listener, error) {
	var last error
	for _, addr := range addrs {
		lis, err := net.Listen("tcp", addr)
		if err == nil {
			return lis, nil
		}
		log.Printf("singleinstance: %s busy: %v", addr, err)
		last = err
	}
	return nil, fmt.Errorf("%w: %v", ErrNoFreePort, last)
}

func (s *tcpServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *tcpServer) serve(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		tc, ok := handshake(c)
		if !ok {
			continue
		}
		select {
		case s.incoming <- tc:
		case <-ctx.Done():
			_ = c.Close()
			return
		}
	}
}

// handshake reads the request line. PING and malformed lines are answered
// and closed here; only capture requests are returned.
func handshake(c net.Conn) (*tcpConn, bool) {
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(handshakeTimeout))
	tc := &tcpConn{c: c, w: bufio.NewWriter(c)}
	line, _ := bufio.NewReader(c).ReadString('\n')

	if line == pingRequest {
		_ = tc.reply(pongResponse)
		_ = c.Close()
		return nil, false
	}
	req, err := parseRequest(line)
	if err != nil {
		log.Printf("singleinstance: %s: %v", remote, err)
		_ = tc.RespondError(err.Error())
		_ = c.Close()
		return nil, false
	}
	// capture waits on the user, so the reply has no deadline
	_ = c.SetDeadline(time.Time{})
	log.Printf("singleinstance: %s requests %s", remote, req.Mode)
	tc.r = req
	return tc, true
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case tc := <-s.incoming:
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	err := s.lis.Close()
	s.lis, s.port = nil, 0
	return err
}

type tcpConn struct {
	c net.Conn
	r Request
	w *bufio.Writer
}

func (tc *tcpConn) Request() Request { return tc.r }

func (tc *tcpConn) reply(parts ...string) error {
	for _, p := range parts {
		if _, err := tc.w.WriteString(p); err != nil {
			return err
		}
	}
	return tc.w.Flush()
}

func (tc *tcpConn) RespondSuccess(text string) error { return tc.reply("SUCCESS\n", text) }

func (tc *tcpConn) RespondError(msg string) error { return tc.reply("ERROR\n", msg) }

func (tc *tcpConn) Close() error { return tc.c.Close() }
