// Package processtest provides a scripted process.Runner for tests.
package processtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Call records one invocation.
type Call struct {
	Name  string
	Args  []string
	Stdin []byte
}

func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Response is what a scripted command returns.
type Response struct {
	Stdout []byte
	Err    error
}

// Runner answers commands by name. Missing binaries are those listed in
// Missing; unscripted commands fail.
type Runner struct {
	mu        sync.Mutex
	Responses map[string][]Response
	Missing   map[string]bool
	Calls     []Call
}

func New() *Runner {
	return &Runner{Responses: map[string][]Response{}, Missing: map[string]bool{}}
}

// On queues a response for the next call to name.
func (r *Runner) On(name string, stdout []byte, err error) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses[name] = append(r.Responses[name], Response{Stdout: stdout, Err: err})
	return r
}

func (r *Runner) Available(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.Missing[name]
}

func (r *Runner) Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, Call{Name: name, Args: append([]string(nil), args...), Stdin: stdin})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queue := r.Responses[name]
	if len(queue) == 0 {
		return nil, fmt.Errorf("processtest: unexpected call %s %v", name, args)
	}
	resp := queue[0]
	if len(queue) > 1 {
		r.Responses[name] = queue[1:]
	}
	return resp.Stdout, resp.Err
}

// CallsTo returns the recorded calls for name.
func (r *Runner) CallsTo(name string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
