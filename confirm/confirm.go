// Package confirm implements the operator confirmation gates: a terminal
// prompt for CLI runs, a rendezvous for API-driven runs, and an
// auto-approver for unattended jobs.
package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"articlecast/types"
)

// ParseAnswer interprets a typed confirmation reply. Only an explicit
// yes counts; empty input declines so a stray Enter cannot approve.
func ParseAnswer(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

// Terminal prompts on an io stream, for CLI runs.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// Confirm prints the gate message with a short scenario preview and
// reads one line. Read failure declines.
func (t *Terminal) Confirm(ctx context.Context, message string, data map[string]any) (bool, error) {
	fmt.Fprintf(t.Out, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(t.Out, "Confirmation needed: %s\n", message)
	if scenes, ok := data["scenario"].([]types.Scene); ok {
		fmt.Fprintf(t.Out, "  scenario has %d scenes\n", len(scenes))
		for i, s := range scenes {
			if i >= 3 {
				fmt.Fprintf(t.Out, "  ... (%d more)\n", len(scenes)-3)
				break
			}
			fmt.Fprintf(t.Out, "  [%s] %s\n", s.Stage, s.Narration)
		}
	}
	fmt.Fprintf(t.Out, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(t.Out, "Continue? (y/n): ")

	line, err := bufio.NewReader(t.In).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	return ParseAnswer(line), nil
}

// Auto approves every gate, for unattended queue-driven runs.
type Auto struct{}

func (Auto) Confirm(ctx context.Context, message string, data map[string]any) (bool, error) {
	return true, nil
}

// Request is a pending gate waiting for an operator's answer.
type Request struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// Rendezvous hands a gate across to an out-of-process operator, such as
// an HTTP client polling job status. One gate is pending at a time,
// which matches the pipeline's strictly sequential stages.
type Rendezvous struct {
	// mu serializes the take-and-put-back in Pending against Answer
	// and the decline drain, so a status poll can never make a parked
	// gate look momentarily absent.
	mu      sync.Mutex
	pending chan Request
	answers chan bool
}

func NewRendezvous() *Rendezvous {
	return &Rendezvous{
		pending: make(chan Request, 1),
		answers: make(chan bool, 1),
	}
}

// Confirm publishes the gate and blocks until Answer is called or the
// context ends. A cancelled context declines.
func (r *Rendezvous) Confirm(ctx context.Context, message string, data map[string]any) (bool, error) {
	// Discard a stale answer left over from a gate that timed out.
	select {
	case <-r.answers:
	default:
	}
	select {
	case r.pending <- Request{Message: message, Data: data}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-r.answers:
		return ok, nil
	case <-ctx.Done():
		// Drain the published request so a later gate starts clean.
		r.mu.Lock()
		select {
		case <-r.pending:
		default:
		}
		r.mu.Unlock()
		return false, ctx.Err()
	}
}

// Pending returns the waiting gate, if any.
func (r *Rendezvous) Pending() (Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case req := <-r.pending:
		// Put it back so repeated polls keep seeing it.
		r.pending <- req
		return req, true
	default:
		return Request{}, false
	}
}

// Answer resolves the waiting gate. It reports false when no gate was
// waiting to be answered.
func (r *Rendezvous) Answer(approve bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.pending:
		r.answers <- approve
		return true
	default:
		return false
	}
}
