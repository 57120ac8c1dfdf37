package tx

import "errors"

// ErrInvalidTransaction is returned when a workflow block does not carry a
// WholeResource rollback policy, which is required for every block so the
// workflow can compensate it after the fact if a later block fails.
var ErrInvalidTransaction = errors.New("tx: invalid transaction configuration")
