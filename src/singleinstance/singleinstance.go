// Package singleinstance lets one resident snip (tray mode) own a loopback
// TCP port so later command-line invocations delegate their capture to it.
package singleinstance

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Server owns the TCP endpoint and answers delegated capture requests.
type Server interface {
	// Start listens on the first port of the configured range.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection, or the ctx error.
	Next(ctx context.Context) (Conn, error)
	Close() error
}

// Conn is one delegated request awaiting its response.
type Conn interface {
	Request() Request
	// RespondSuccess reports the outcome, e.g. the saved path.
	RespondSuccess(text string) error
	RespondError(msg string) error
	Close() error
}

// Request asks the resident to capture and present one screenshot.
type Request struct {
	Mode string
	Pin  bool
}

var ErrBadRequest = errors.New("malformed request")

const requestVerb = "CAPTURE"

func (r Request) line() string {
	present := "annotate"
	if r.Pin {
		present = "pin"
	}
	return fmt.Sprintf("%s %s %s\n", requestVerb, r.Mode, present)
}

func parseRequest(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != requestVerb {
		return Request{}, fmt.Errorf("%w: %q", ErrBadRequest, strings.TrimSpace(line))
	}
	switch fields[2] {
	case "annotate":
		return Request{Mode: fields[1]}, nil
	case "pin":
		return Request{Mode: fields[1], Pin: true}, nil
	}
	return Request{}, fmt.Errorf("%w: unknown presentation %q", ErrBadRequest, fields[2])
}

// Client delegates a capture to a resident server.
type Client interface {
	// TryCapture scans the port range and hands req to the resident. When no
	// resident answers it returns delegated=false and a nil error.
	TryCapture(ctx context.Context, req Request) (delegated bool, text string, err error)
}

func NewServer() Server { return newTcpServer() }

func NewClient() Client { return newTcpClient() }
