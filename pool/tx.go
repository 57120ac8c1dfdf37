package pool

import (
	"context"

	"github.com/netauto/core/record"
	"github.com/netauto/core/transport"
	"github.com/netauto/core/tx"
)

// ExecuteTxBlock acquires or reuses the pooled session for the given key
// and runs block against it via the tx engine. A session dialed by this
// call records at KeyEventsOnly; a reused session keeps the recorder it
// was created with, which may be Off.
func (m *Manager) ExecuteTxBlock(ctx context.Context, username, host string, port int, auth transport.Auth, sys string, handler HandlerFactory, block tx.TxBlock) (tx.TxResult, error) {
	ps, err := m.getOrConnect(ctx, ConnectionKey{Username: username, Host: host, Port: port, SysContext: sys}, auth, handler, transport.SecureDefault(), record.KeyEventsOnly)
	if err != nil {
		return tx.TxResult{}, err
	}
	return tx.ExecuteBlock(ctx, ps.Sender(), block, ps.Recorder), nil
}

// ExecuteTxWorkflow is ExecuteTxBlock's workflow-level counterpart.
func (m *Manager) ExecuteTxWorkflow(ctx context.Context, username, host string, port int, auth transport.Auth, sys string, handler HandlerFactory, wf tx.TxWorkflow) (tx.TxWorkflowResult, error) {
	ps, err := m.getOrConnect(ctx, ConnectionKey{Username: username, Host: host, Port: port, SysContext: sys}, auth, handler, transport.SecureDefault(), record.KeyEventsOnly)
	if err != nil {
		return tx.TxWorkflowResult{}, err
	}
	return tx.ExecuteWorkflow(ctx, ps.Sender(), wf, ps.Recorder)
}
