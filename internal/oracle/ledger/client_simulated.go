package ledger

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	id "verivote/pkg/domain"
)

// SimulatedLedger is an in-process stand-in for the chain client. Tx refs
// are random, block refs are a monotonic counter so tests can assert on
// ordering.
type SimulatedLedger struct {
	height atomic.Int64
}

func NewSimulatedLedger() *SimulatedLedger { return &SimulatedLedger{} }

func (l *SimulatedLedger) SubmitRequest(_ context.Context, _ id.SubjectHash, _ string) (Receipt, error) {
	return l.mint(), nil
}

func (l *SimulatedLedger) CompleteOnChain(_ context.Context, _ id.RequestID, _ bool) (Receipt, error) {
	return l.mint(), nil
}

func (l *SimulatedLedger) mint() Receipt {
	return Receipt{
		TxRef:    "0x" + uuid.NewString(),
		BlockRef: fmt.Sprintf("%d", l.height.Add(1)),
	}
}
