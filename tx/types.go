// Package tx implements the transactional orchestration layer: grouping
// commands into blocks with fail-fast semantics and Saga-style compensation
// rollback, and composing blocks into workflows with global rollback
// ordering.
package tx

import (
	"time"

	"github.com/netauto/core/session"
)

// BlockKind classifies the commands a block runs, mirroring the catalog's
// own command classification.
type BlockKind string

const (
	BlockShow   BlockKind = "show"
	BlockConfig BlockKind = "config"
	BlockExec   BlockKind = "exec"
)

// TxStep is a single command within a block, with an optional per-step
// compensating command used by the PerStep rollback policy.
type TxStep struct {
	Mode            string
	Command         string
	Timeout         *time.Duration
	RollbackCommand string
}

// RollbackPolicy decides how a block compensates a failed step. None does
// nothing; PerStep and WholeResource are the two concrete strategies.
type RollbackPolicy interface {
	isRollbackPolicy()
}

// NoRollback performs no compensation on failure.
type NoRollback struct{}

func (NoRollback) isRollbackPolicy() {}

// PerStepRollback executes each executed step's own RollbackCommand, in
// reverse execution order, skipping steps that left it empty.
type PerStepRollback struct{}

func (PerStepRollback) isRollbackPolicy() {}

// WholeResourceRollback compensates the entire block with a single command,
// regardless of how many steps had executed.
type WholeResourceRollback struct {
	Mode        string
	UndoCommand string
	Timeout     *time.Duration
}

func (WholeResourceRollback) isRollbackPolicy() {}

// TxBlock is an ordered group of steps executed under one rollback policy.
type TxBlock struct {
	Name           string
	Kind           BlockKind
	Steps          []TxStep
	RollbackPolicy RollbackPolicy
	FailFast       bool
}

// ExecutedStep records one step's index and successful output.
type ExecutedStep struct {
	Index  int
	Output session.Output
}

// Failure records the step index and error that stopped a block.
type Failure struct {
	Index int
	Err   error
}

// TxResult is the outcome of executing a single TxBlock.
type TxResult struct {
	RunID             string
	Committed         bool
	ExecutedSteps     []ExecutedStep
	Failure           *Failure
	RollbackAttempted bool
	RollbackSucceeded bool
	RollbackOutputs   []session.Output
}

// TxWorkflow is an ordered set of blocks executed all-or-nothing with
// global compensation rollback. Every block must carry a WholeResource
// rollback policy: PerStep has nothing left to compensate once the block
// that owned it has already committed cleanly.
type TxWorkflow struct {
	Name     string
	Blocks   []TxBlock
	FailFast bool
}

// BlockOutcome pairs a workflow's block with the result of running it.
type BlockOutcome struct {
	Block  TxBlock
	Result TxResult
}

// TxWorkflowResult is the outcome of executing a TxWorkflow.
type TxWorkflowResult struct {
	RunID          string
	Committed      bool
	BlockOutcomes  []BlockOutcome
	FailedBlock    *Failure
	RollbackOrder  []string
	RollbackResult []BlockOutcome
}

