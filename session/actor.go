// Package session implements the single-writer "actor" that owns one SSH
// shell and the fsm.Handler driving it: a cooperative, single-goroutine job
// loop that plans and executes transitions, answers interactive sub-prompts,
// and turns a raw byte stream into recorded command output.
package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/netauto/core/fsm"
	"github.com/netauto/core/internal/logging"
	"github.com/netauto/core/record"
	"github.com/netauto/core/transport"
)

// Actor owns a single transport.Shell and a single fsm.Handler. Every
// method that touches either is only ever called from the goroutine
// started by Run, so neither needs its own lock.
type Actor struct {
	shell   transport.Shell
	handler *fsm.Handler
	jobs    chan CmdJob

	recorder      *record.Recorder
	bootstrap     time.Duration
	drainGrace    time.Duration
	errorPatterns []*regexp.Regexp

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
	done      chan struct{}

	sys string

	// lastDynamicAnswerText dedupes dynamic-input answers: a trigger line
	// is first seen as a growing partial (no newline yet) and later
	// re-observed as the same text once its terminating newline finally
	// arrives. Comparing against the exact text already answered avoids
	// sending the response twice for what is, on the wire, one line.
	lastDynamicAnswerText string

	// lastPromptLine is the raw text of the most recently recognized
	// prompt line, independent of the FSM state name it resolved to; it
	// feeds the prompt_before/prompt_after fields of command_output events.
	lastPromptLine string

	// poisoned is set once a job's timeout expires and the subsequent
	// drain attempt fails to recover a recognizable prompt: the session is
	// assumed wedged and Run tears it down after replying to the job that
	// triggered it.
	poisoned bool
}

// Option configures an Actor at construction time.
type Option func(*Actor)

// WithRecorder attaches a recorder every observed event is emitted to. A
// nil recorder (the default) means recording is off.
func WithRecorder(r *record.Recorder) Option {
	return func(a *Actor) { a.recorder = r }
}

// WithBootstrapTimeout bounds how long the actor waits to recognize the
// device's initial prompt before a job fails with ErrUnknownInitialState.
// Defaults to 10s.
func WithBootstrapTimeout(d time.Duration) Option {
	return func(a *Actor) { a.bootstrap = d }
}

// WithDrainGrace sets the secondary grace period granted, after a job's own
// timeout expires, for the device to settle back onto a recognizable prompt
// before the actor gives up and poisons itself. Defaults to the job's own
// timeout (i.e. a timed-out job gets one extra full timeout window to
// drain). Recorded as an explicit, deliberately simple default: a fixed
// multiplier of the per-job timeout rather than a separately tuned value,
// since no recording in this corpus exercises the boundary closely enough
// to justify a different constant.
func WithDrainGrace(d time.Duration) Option {
	return func(a *Actor) { a.drainGrace = d }
}

// WithErrorPatterns marks output as failed (ErrCommandFailed, Output.Success
// false) when any configured pattern matches a line of captured output.
func WithErrorPatterns(patterns ...*regexp.Regexp) Option {
	return func(a *Actor) { a.errorPatterns = append(a.errorPatterns, patterns...) }
}

// WithSysContext tags every recorded event from this actor with a caller
// chosen identifier (e.g. a connection key), independent of the FSM's own
// parallel-state-set sysContext.
func WithSysContext(sys string) Option {
	return func(a *Actor) { a.sys = sys }
}

// NewActor builds an actor bound to shell and handler. Call Run in its own
// goroutine to start serving jobs.
func NewActor(shell transport.Shell, handler *fsm.Handler, opts ...Option) *Actor {
	a := &Actor{
		shell:      shell,
		handler:    handler,
		jobs:       make(chan CmdJob, 16),
		bootstrap:  10 * time.Second,
		drainGrace: -1, // sentinel: mirror the job's own timeout
		closed:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Done is closed once Run has returned.
func (a *Actor) Done() <-chan struct{} { return a.done }

// Close stops the actor from accepting new jobs. Any job still queued is
// rejected with ErrClosed once Run observes the close; Close is idempotent
// and safe to call from any goroutine. Close is equivalent to
// CloseWithReason(ErrClosed).
func (a *Actor) Close() {
	a.CloseWithReason(ErrClosed)
}

// CloseWithReason is Close but rejects any already-queued job with err
// instead of ErrClosed. Used to tell a caller whose job was sitting in the
// queue during an idle or transport-fatal eviction (ErrChannelDisconnect)
// apart from one caught by an ordinary Shutdown (ErrClosed). Only the
// first call, whichever of Close or CloseWithReason comes first, has any
// effect.
func (a *Actor) CloseWithReason(err error) {
	a.closeOnce.Do(func() {
		a.closeErr = err
		close(a.closed)
	})
}

// Run serves queued jobs one at a time until Close is called and the queue
// drains, or the shell disconnects. It must be called from exactly one
// goroutine and returns once no more jobs will be served.
func (a *Actor) Run(ctx context.Context) {
	defer close(a.done)

	p := newPump(a.shell)
	go p.run()

	logger := logging.FromContext(ctx)

	for {
		select {
		case job := <-a.jobs:
			a.serve(ctx, p, job)
			if p.disconnected() || a.poisoned {
				a.drainRemaining(ErrChannelDisconnect)
				logger.Warn().Str("sys", a.sys).Msg("session actor stopped: channel disconnected")
				return
			}
		case <-a.closed:
			a.drainQueuedNonBlocking(a.closeErr)
			return
		case <-ctx.Done():
			a.drainRemaining(ctx.Err())
			return
		}
	}
}

func (a *Actor) drainRemaining(err error) {
	for {
		select {
		case job := <-a.jobs:
			job.reply(Output{}, err)
		default:
			return
		}
	}
}

// drainQueuedNonBlocking rejects whatever is already queued once Close has
// been observed, without waiting for more jobs to arrive.
func (a *Actor) drainQueuedNonBlocking(err error) {
	for {
		select {
		case job := <-a.jobs:
			job.reply(Output{}, err)
		default:
			return
		}
	}
}

func (a *Actor) serve(ctx context.Context, p *pump, job CmdJob) {
	out, err := a.executeJob(ctx, p, job.Data)
	job.reply(out, err)
}

// executeJob runs the five-step job lifecycle: establish the current state
// if unknown, plan a path to the target mode, walk each transition edge,
// execute the command, and capture its output.
func (a *Actor) executeJob(ctx context.Context, p *pump, cmd Command) (Output, error) {
	timeout, err := cmd.timeoutOrDefault()
	if err != nil {
		return Output{}, err
	}
	deadline := time.Now().Add(timeout)

	if _, ok := a.handler.Current(); !ok {
		if err := a.bootstrapState(p); err != nil {
			return Output{}, err
		}
	}

	plan, err := a.handler.PlanPath(cmd.Mode)
	if err != nil {
		return Output{}, err
	}

	if err := a.walkPlan(ctx, p, plan, deadline); err != nil {
		return Output{}, err
	}

	return a.runCommand(ctx, p, cmd, deadline)
}

// bootstrapState drains the shell's initial banner/login text until a
// known prompt is recognized, within the bootstrap window.
func (a *Actor) bootstrapState(p *pump) error {
	deadline := time.Now().Add(a.bootstrap)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrUnknownInitialState
		}
		msg, ok := p.recv(remaining)
		if !ok {
			return ErrUnknownInitialState
		}
		if msg.disconnected {
			return ErrChannelDisconnect
		}
		if a.observe(msg) {
			after, _ := a.handler.Current()
			a.recorder.Emit(record.KindConnectionEstablished, map[string]any{
				"initial_state":  after,
				"initial_prompt": msg.text,
				"sys":            a.sys,
			})
			return nil
		}
	}
}

// walkPlan executes each transition edge in order: writes the edge's
// command, then reads until any prompt is observed (answering interactive
// sub-prompts along the way) before moving on to the next edge. A plan that
// cannot complete within plan-length*4 extra reads fails as unreachable,
// per the bounded-retry rule.
func (a *Actor) walkPlan(ctx context.Context, p *pump, plan []fsm.Edge, deadline time.Time) error {
	if len(plan) == 0 {
		return nil
	}
	readCap := len(plan) * 4
	reads := 0

	for _, edge := range plan {
		fromName, _ := a.handler.Current()
		if _, err := a.shell.Write([]byte(edge.Command + "\n")); err != nil {
			return fmt.Errorf("%w: %v", ErrChannelDisconnect, err)
		}

		matched := false
		for !matched {
			if reads >= readCap {
				return fsm.ErrUnreachableState
			}
			reads++

			remaining := time.Until(deadline)
			if remaining <= 0 {
				return ErrExecTimeout
			}
			msg, ok := p.recv(remaining)
			if !ok {
				return ErrExecTimeout
			}
			if msg.disconnected {
				return ErrChannelDisconnect
			}
			if a.observe(msg) {
				matched = true
			}
		}

		toName, _ := a.handler.Current()
		a.recorder.Emit(record.KindStateTransition, map[string]any{
			"from":    fromName,
			"to":      toName,
			"command": edge.Command,
			"sys":     a.sys,
		})
	}
	return nil
}

// runCommand writes the target command and captures output until a prompt
// is observed, then trims the echoed command and the trailing prompt line
// from the reported content.
func (a *Actor) runCommand(ctx context.Context, p *pump, cmd Command, deadline time.Time) (Output, error) {
	promptBefore := a.lastPromptLine
	fsmPromptBefore, _ := a.handler.Current()

	if _, err := a.shell.Write([]byte(cmd.Command + "\n")); err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrChannelDisconnect, err)
	}

	var lines []string
	var promptLine string

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Output{}, a.timeoutAndDrain(p, cmd)
		}
		msg, ok := p.recv(remaining)
		if !ok {
			return Output{}, a.timeoutAndDrain(p, cmd)
		}
		if msg.disconnected {
			return Output{}, ErrChannelDisconnect
		}

		if msg.kind == lineComplete {
			lines = append(lines, msg.text)
		}
		if a.observe(msg) {
			promptLine = msg.text
			if msg.kind == linePartial {
				lines = append(lines, msg.text)
			}
			break
		}
	}

	out := buildOutput(cmd.Command, lines, promptLine, a.errorPatterns)

	var failure error
	if !out.Success {
		failure = ErrCommandFailed
	}

	fsmPromptAfter, _ := a.handler.Current()
	a.recorder.Emit(record.KindCommandOutput, map[string]any{
		"command":           cmd.Command,
		"mode":              cmd.Mode,
		"success":           out.Success,
		"content":           out.Content,
		"all":               out.All,
		"prompt_before":     promptBefore,
		"prompt_after":      out.Prompt,
		"fsm_prompt_before": fsmPromptBefore,
		"fsm_prompt_after":  fsmPromptAfter,
		"sys":               a.sys,
	})

	return out, failure
}

// timeoutAndDrain is called once a job's own timeout has expired. The job
// always fails with ErrExecTimeout; the drain attempt that follows only
// decides whether the actor stays usable for subsequent jobs or poisons
// itself, it never changes the timed-out job's own result.
func (a *Actor) timeoutAndDrain(p *pump, cmd Command) error {
	if !a.drain(p, a.drainTimeout(cmd)) {
		a.poisoned = true
	}
	return ErrExecTimeout
}

func (a *Actor) drainTimeout(cmd Command) time.Duration {
	if a.drainGrace >= 0 {
		return a.drainGrace
	}
	timeout, _ := cmd.timeoutOrDefault()
	return timeout
}

// drain gives the device one more window to settle back onto a recognized
// prompt after a job has already timed out, so a merely slow command
// doesn't poison an otherwise healthy session.
func (a *Actor) drain(p *pump, grace time.Duration) (recovered bool) {
	deadline := time.Now().Add(grace)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		msg, ok := p.recv(remaining)
		if !ok {
			return false
		}
		if msg.disconnected {
			return false
		}
		if a.observe(msg) {
			return true
		}
	}
}

// observe feeds a pump message through the handler: it updates the current
// state on a matching line, answers any dynamic input trigger, emits the
// raw chunk at Full verbosity, and reports whether the message represents a
// recognized prompt.
func (a *Actor) observe(msg pumpMsg) bool {
	if a.recorder.Verbosity() == record.Full {
		a.recorder.Emit(record.KindRawShellChunk, map[string]any{"data": msg.text, "sys": a.sys})
	}

	if response, sensitive, ok := a.handler.ReadNeedWrite(msg.text); ok && msg.text != a.lastDynamicAnswerText {
		a.shell.Write([]byte(response + "\n"))
		fields := map[string]any{"trigger_line": msg.text, "sys": a.sys, "dynamic_input_sensitive": sensitive}
		if sensitive {
			fields["dynamic_input_response"] = "[REDACTED]"
		} else {
			fields["dynamic_input_response"] = response
		}
		a.recorder.Emit(record.KindStateTransition, fields)
		a.lastDynamicAnswerText = msg.text
	}

	_, matched := a.handler.ReadPrompt(msg.text)
	if !matched {
		return false
	}
	changed, err := a.handler.Read(msg.text)
	if err != nil {
		return false
	}
	if changed {
		a.lastDynamicAnswerText = ""
	}

	a.lastPromptLine = msg.text
	a.recorder.Emit(record.KindPromptRead, map[string]any{"line": msg.text, "sys": a.sys})
	return true
}

func buildOutput(command string, lines []string, promptLine string, errPatterns []*regexp.Regexp) Output {
	all := strings.Join(lines, "\n")

	content := lines
	if len(content) > 0 && strings.TrimSpace(content[0]) == strings.TrimSpace(command) {
		content = content[1:]
	}
	if len(content) > 0 && content[len(content)-1] == promptLine {
		content = content[:len(content)-1]
	}

	success := true
	for _, l := range content {
		for _, p := range errPatterns {
			if p.MatchString(l) {
				success = false
			}
		}
	}

	return Output{
		Success: success,
		Content: strings.Join(content, "\n"),
		All:     all,
		Prompt:  promptLine,
	}
}
