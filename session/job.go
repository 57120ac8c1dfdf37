package session

import "context"

// Result is the outcome delivered back to a job's submitter.
type Result struct {
	Output Output
	Err    error
}

// CmdJob is a single unit of work pushed onto a SessionActor's queue. The
// responder channel is buffered with capacity one so the actor's reply
// never blocks even if the submitter has stopped listening (a cancelled
// caller simply discards the result).
type CmdJob struct {
	Data Command
	// Sys carries an opaque caller-supplied context tag (e.g. a pool
	// connection key or a transaction run ID). The actor does not read it:
	// recorded events carry the tag set with WithSysContext instead.
	Sys       string
	responder chan Result
}

// NewCmdJob builds a job and its one-shot reply channel.
func NewCmdJob(cmd Command, sys string) (CmdJob, <-chan Result) {
	ch := make(chan Result, 1)
	return CmdJob{Data: cmd, Sys: sys, responder: ch}, ch
}

func (j CmdJob) reply(out Output, err error) {
	if j.responder == nil {
		return
	}
	j.responder <- Result{Output: out, Err: err}
}

// Submit enqueues a command job on the actor and blocks until it completes,
// the actor closes, or ctx is cancelled. It is safe to call concurrently
// from multiple goroutines; jobs are served strictly in submission order.
func (a *Actor) Submit(ctx context.Context, cmd Command) (Output, error) {
	if _, err := cmd.timeoutOrDefault(); err != nil {
		return Output{}, err
	}

	select {
	case <-a.closed:
		return Output{}, a.closeErr
	default:
	}

	job, resultCh := NewCmdJob(cmd, "")

	select {
	case a.jobs <- job:
	case <-a.closed:
		return Output{}, a.closeErr
	case <-ctx.Done():
		return Output{}, ctx.Err()
	}

	select {
	case res := <-resultCh:
		return res.Output, res.Err
	case <-ctx.Done():
		return Output{}, ctx.Err()
	}
}
