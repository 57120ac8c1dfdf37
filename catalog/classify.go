package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/netauto/core/tx"
)

// ClassifyCommand guesses a command's block kind from its leading verb.
// Vendor-specific verbs ("show"/"display"/"get") all classify as Show;
// negations and deletes ("no", "undo", "delete") and the configuration
// verbs "set", "interface", "object", "router" and "ip" classify as
// Config; everything else defaults to Exec.
func ClassifyCommand(vendor, cmd string) tx.BlockKind {
	trimmed := strings.TrimSpace(cmd)
	lower := strings.ToLower(trimmed)

	switch {
	case strings.HasPrefix(lower, "show"), strings.HasPrefix(lower, "display"), strings.HasPrefix(lower, "get "):
		return tx.BlockShow
	case strings.HasPrefix(lower, "no "), strings.HasPrefix(lower, "undo "), strings.HasPrefix(lower, "delete "),
		strings.HasPrefix(lower, "set "), strings.HasPrefix(lower, "interface "), strings.HasPrefix(lower, "object "),
		strings.HasPrefix(lower, "router "), strings.HasPrefix(lower, "ip "):
		return tx.BlockConfig
	default:
		return tx.BlockExec
	}
}

// inferUndo returns the inverse of cmd under vendor's rollback-inference
// rule, or ok=false when the command is ambiguous (already a negation, or
// a verb the vendor has no inverse rule for) and therefore requires an
// explicit rollback command.
func inferUndo(vendor, cmd string) (string, bool) {
	trimmed := strings.TrimSpace(cmd)
	lower := strings.ToLower(trimmed)

	switch vendor {
	case "cisco", "rtx":
		if strings.HasPrefix(lower, "no ") || strings.HasPrefix(lower, "undo ") {
			return "", false
		}
		if vendor == "rtx" {
			return "undo " + trimmed, true
		}
		return "no " + trimmed, true
	case "juniper":
		if !strings.HasPrefix(lower, "set ") {
			return "", false
		}
		return "delete " + trimmed[len("set "):], true
	default:
		return "", false
	}
}

// BuildTxBlock assembles a TxBlock from a flat list of forward commands,
// inferring each step's rollback command via inferUndo unless
// explicitUndo supplies one for that exact command text. A command with
// neither an inferred nor an explicit undo gets an empty rollback_command,
// which PerStep skips without error.
func BuildTxBlock(vendor, name, mode string, commands []string, timeout *time.Duration, explicitUndo map[string]string) (tx.TxBlock, error) {
	block := tx.TxBlock{
		Name:           name,
		RollbackPolicy: tx.PerStepRollback{},
		FailFast:       true,
	}

	for _, cmd := range commands {
		rollbackCmd := explicitUndo[cmd]
		if rollbackCmd == "" {
			if inferred, ok := inferUndo(vendor, cmd); ok {
				rollbackCmd = inferred
			}
		}
		block.Steps = append(block.Steps, tx.TxStep{
			Mode:            mode,
			Command:         cmd,
			Timeout:         timeout,
			RollbackCommand: rollbackCmd,
		})
	}

	kind := tx.BlockExec
	if len(commands) > 0 {
		kind = ClassifyCommand(vendor, commands[0])
	}
	block.Kind = kind

	if len(block.Steps) == 0 {
		return tx.TxBlock{}, fmt.Errorf("catalog: build_tx_block requires at least one command")
	}

	return block, nil
}
