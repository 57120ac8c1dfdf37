package tx

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/netauto/core/record"
	"github.com/netauto/core/session"
)

// Sender is the job-submission handle the engine drives. *session.Actor,
// and any pool.PooledSession's Sender(), satisfy it.
type Sender interface {
	Submit(ctx context.Context, cmd session.Command) (session.Output, error)
}

// ExecuteBlock runs every step of block in order against sender, applying
// its rollback policy if any step fails, and emits tx_* events to rec (a
// nil rec is a no-op per the Recorder contract).
func ExecuteBlock(ctx context.Context, sender Sender, block TxBlock, rec *record.Recorder) TxResult {
	runID := uuid.NewString()
	rec.Emit(record.KindTxBlockStarted, map[string]any{
		"run_id": runID,
		"name":   block.Name,
		"kind":   string(block.Kind),
		"steps":  len(block.Steps),
	})

	result := TxResult{RunID: runID, Committed: true}

	for i, step := range block.Steps {
		out, err := sender.Submit(ctx, session.Command{Mode: step.Mode, Command: step.Command, Timeout: step.Timeout})
		if err == nil && !out.Success {
			err = session.ErrCommandFailed
		}
		if err != nil {
			result.Committed = false
			if result.Failure == nil {
				result.Failure = &Failure{Index: i, Err: err}
			}
			rec.Emit(record.KindTxStepFailed, map[string]any{
				"run_id": runID, "index": i, "command": step.Command, "error": err.Error(),
			})
			if block.FailFast {
				break
			}
			continue
		}
		result.ExecutedSteps = append(result.ExecutedSteps, ExecutedStep{Index: i, Output: out})
		rec.Emit(record.KindTxStepSucceeded, map[string]any{
			"run_id": runID, "index": i, "command": step.Command,
		})
	}

	if !result.Committed && block.RollbackPolicy != nil {
		if _, ok := block.RollbackPolicy.(NoRollback); !ok {
			rollback(ctx, sender, block, &result, rec)
		}
	}

	rec.Emit(record.KindTxBlockFinished, map[string]any{
		"run_id":             runID,
		"committed":          result.Committed,
		"rollback_attempted": result.RollbackAttempted,
		"rollback_succeeded": result.RollbackSucceeded,
	})

	return result
}

func rollback(ctx context.Context, sender Sender, block TxBlock, result *TxResult, rec *record.Recorder) {
	result.RollbackAttempted = true
	result.RollbackSucceeded = true

	rec.Emit(record.KindTxRollbackStarted, map[string]any{
		"run_id": result.RunID, "policy": fmt.Sprintf("%T", block.RollbackPolicy),
	})

	switch policy := block.RollbackPolicy.(type) {
	case PerStepRollback:
		for i := len(result.ExecutedSteps) - 1; i >= 0; i-- {
			step := block.Steps[result.ExecutedSteps[i].Index]
			if step.RollbackCommand == "" {
				continue
			}
			out, err := sender.Submit(ctx, session.Command{Mode: step.Mode, Command: step.RollbackCommand})
			if err != nil {
				result.RollbackSucceeded = false
				rec.Emit(record.KindTxRollbackStepFailed, map[string]any{
					"run_id": result.RunID, "command": step.RollbackCommand, "error": err.Error(),
				})
				continue
			}
			result.RollbackOutputs = append(result.RollbackOutputs, out)
			rec.Emit(record.KindTxRollbackStepOK, map[string]any{
				"run_id": result.RunID, "command": step.RollbackCommand,
			})
		}
	case WholeResourceRollback:
		out, err := sender.Submit(ctx, session.Command{Mode: policy.Mode, Command: policy.UndoCommand, Timeout: policy.Timeout})
		if err != nil {
			result.RollbackSucceeded = false
			rec.Emit(record.KindTxRollbackStepFailed, map[string]any{
				"run_id": result.RunID, "command": policy.UndoCommand, "error": err.Error(),
			})
			return
		}
		result.RollbackOutputs = append(result.RollbackOutputs, out)
		rec.Emit(record.KindTxRollbackStepOK, map[string]any{
			"run_id": result.RunID, "command": policy.UndoCommand,
		})
	}
}

// ExecuteWorkflow runs blocks in order, aborting on a failed block when
// FailFast is set, then rolls back previously committed blocks in reverse
// commit order using each block's WholeResource policy. Every block must
// carry one; otherwise ExecuteWorkflow returns ErrInvalidTransaction
// without running anything.
func ExecuteWorkflow(ctx context.Context, sender Sender, wf TxWorkflow, rec *record.Recorder) (TxWorkflowResult, error) {
	for _, b := range wf.Blocks {
		if _, ok := b.RollbackPolicy.(WholeResourceRollback); !ok {
			return TxWorkflowResult{}, fmt.Errorf("%w: block %q lacks a WholeResource rollback policy", ErrInvalidTransaction, b.Name)
		}
	}

	runID := uuid.NewString()
	rec.Emit(record.KindTxWorkflowStarted, map[string]any{
		"run_id": runID, "name": wf.Name, "blocks": len(wf.Blocks),
	})

	wfResult := TxWorkflowResult{RunID: runID, Committed: true}
	var committedOrder []TxBlock

	for _, block := range wf.Blocks {
		result := ExecuteBlock(ctx, sender, block, rec)
		wfResult.BlockOutcomes = append(wfResult.BlockOutcomes, BlockOutcome{Block: block, Result: result})

		if !result.Committed {
			wfResult.Committed = false
			wfResult.FailedBlock = result.Failure
			if wf.FailFast {
				break
			}
			continue
		}
		committedOrder = append(committedOrder, block)
	}

	if !wfResult.Committed {
		for i := len(committedOrder) - 1; i >= 0; i-- {
			b := committedOrder[i]
			wfResult.RollbackOrder = append(wfResult.RollbackOrder, b.Name)

			policy := b.RollbackPolicy.(WholeResourceRollback)
			out, err := sender.Submit(ctx, session.Command{Mode: policy.Mode, Command: policy.UndoCommand, Timeout: policy.Timeout})
			outcome := BlockOutcome{Block: b}
			if err != nil {
				outcome.Result = TxResult{Committed: false, RollbackAttempted: true, RollbackSucceeded: false}
				rec.Emit(record.KindTxRollbackStepFailed, map[string]any{
					"run_id": runID, "block": b.Name, "command": policy.UndoCommand, "error": err.Error(),
				})
			} else {
				outcome.Result = TxResult{Committed: true, RollbackAttempted: true, RollbackSucceeded: true, RollbackOutputs: []session.Output{out}}
				rec.Emit(record.KindTxRollbackStepOK, map[string]any{
					"run_id": runID, "block": b.Name, "command": policy.UndoCommand,
				})
			}
			wfResult.RollbackResult = append(wfResult.RollbackResult, outcome)
		}
	}

	rec.Emit(record.KindTxWorkflowFinished, map[string]any{
		"run_id": runID, "committed": wfResult.Committed, "rollback_order": wfResult.RollbackOrder,
	})

	return wfResult, nil
}
