package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"solana-mirror/internal/domain"
	"solana-mirror/internal/intent"
	"solana-mirror/internal/storage/memory"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

// fakeSource replays a fixed set of events and then blocks until cancel.
type fakeSource struct {
	events chan json.RawMessage
}

func newFakeSource(events ...string) *fakeSource {
	ch := make(chan json.RawMessage, len(events))
	for _, e := range events {
		ch <- json.RawMessage(e)
	}
	return &fakeSource{events: ch}
}

func (f *fakeSource) Run(ctx context.Context) error {
	<-ctx.Done()
	close(f.events)
	return ctx.Err()
}

func (f *fakeSource) Events() <-chan json.RawMessage {
	return f.events
}

// fakeExecutor records executed intents.
type fakeExecutor struct {
	mu      sync.Mutex
	intents []*intent.MirrorIntent
	err     error
}

func (f *fakeExecutor) Execute(ctx context.Context, in *intent.MirrorIntent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.intents = append(f.intents, in)
	return fmt.Sprintf("submitted-%d", len(f.intents)), nil
}

func (f *fakeExecutor) executed() []*intent.MirrorIntent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*intent.MirrorIntent(nil), f.intents...)
}

func buyEvent(signature string) string {
	return fmt.Sprintf(
		`{"method":"transactionNotification","params":{"result":{"signature":%q,"meta":{"postTokenBalances":[{"mint":%q,"uiTokenAmount":{"uiAmount":2.0}}]}}}}`,
		signature, testMint,
	)
}

func runTrader(t *testing.T, trader *Trader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		trader.Run(ctx)
		close(done)
	}()

	// Give the loop time to drain the replayed events.
	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestTrader_MirrorsBuy(t *testing.T) {
	exec := &fakeExecutor{}
	journal := memory.NewTradeRecordStore()

	trader := NewTrader(Options{
		Source:         newFakeSource(buyEvent("sig1")),
		Executor:       exec,
		Journal:        journal,
		Logger:         log.New(&strings.Builder{}, "", 0),
		MaxBuySOL:      0.05,
		MirrorBuysOnly: true,
	})
	runTrader(t, trader)

	executed := exec.executed()
	if len(executed) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(executed))
	}
	if executed[0].MaxInputSOL != 0.05 {
		t.Errorf("MaxInputSOL: got %v", executed[0].MaxInputSOL)
	}
	if executed[0].OutputMint.String() != testMint {
		t.Errorf("OutputMint: got %s", executed[0].OutputMint)
	}

	record, err := journal.GetByObservedSignature(context.Background(), "sig1")
	if err != nil {
		t.Fatalf("journal lookup: %v", err)
	}
	if record.Status != domain.TradeStatusExecuted {
		t.Errorf("status: got %s", record.Status)
	}
	if record.SubmittedSignature != "submitted-1" {
		t.Errorf("submitted signature: got %q", record.SubmittedSignature)
	}
}

func TestTrader_DedupsConsecutiveSignature(t *testing.T) {
	exec := &fakeExecutor{}

	trader := NewTrader(Options{
		Source:    newFakeSource(buyEvent("sig1"), buyEvent("sig1"), buyEvent("sig2")),
		Executor:  exec,
		Logger:    log.New(&strings.Builder{}, "", 0),
		MaxBuySOL: 0.02,
	})
	runTrader(t, trader)

	if got := len(exec.executed()); got != 2 {
		t.Errorf("expected duplicate sig1 skipped and sig2 executed, got %d executions", got)
	}
}

func TestTrader_SellIsJournaledNotExecuted(t *testing.T) {
	exec := &fakeExecutor{}
	journal := memory.NewTradeRecordStore()

	// Balance decrease only: no buy candidate, no intent at all today. Use a
	// crafted sell intent path via an event with no gains.
	sellish := fmt.Sprintf(
		`{"params":{"result":{"signature":"sig-sell","meta":{"preTokenBalances":[{"mint":%q,"uiTokenAmount":{"uiAmount":5.0}}],"postTokenBalances":[{"mint":%q,"uiTokenAmount":{"uiAmount":1.0}}]}}}}`,
		testMint, testMint,
	)

	trader := NewTrader(Options{
		Source:    newFakeSource(sellish),
		Executor:  exec,
		Journal:   journal,
		Logger:    log.New(&strings.Builder{}, "", 0),
		MaxBuySOL: 0.02,
	})
	runTrader(t, trader)

	if len(exec.executed()) != 0 {
		t.Error("balance decrease must not trigger an execution")
	}
	if _, err := journal.GetByObservedSignature(context.Background(), "sig-sell"); err == nil {
		t.Error("no intent inferred, nothing should be journaled")
	}
}

func TestTrader_ExecutionFailureIsJournaledAndLoopContinues(t *testing.T) {
	exec := &fakeExecutor{err: fmt.Errorf("quote: no route")}
	journal := memory.NewTradeRecordStore()

	trader := NewTrader(Options{
		Source:    newFakeSource(buyEvent("sig1"), buyEvent("sig2")),
		Executor:  exec,
		Journal:   journal,
		Logger:    log.New(&strings.Builder{}, "", 0),
		MaxBuySOL: 0.02,
	})
	runTrader(t, trader)

	for _, sig := range []string{"sig1", "sig2"} {
		record, err := journal.GetByObservedSignature(context.Background(), sig)
		if err != nil {
			t.Fatalf("journal lookup %s: %v", sig, err)
		}
		if record.Status != domain.TradeStatusFailed {
			t.Errorf("%s status: got %s", sig, record.Status)
		}
		if record.ErrorReason == "" {
			t.Errorf("%s: error reason not recorded", sig)
		}
	}
}

func TestTrader_InferenceErrorContinuesLoop(t *testing.T) {
	exec := &fakeExecutor{}

	malformed := `{"params":{"result":{"signature":"bad","meta":{"postTokenBalances":[{"mint":"???","uiTokenAmount":{"uiAmount":2.0}}]}}}}`

	trader := NewTrader(Options{
		Source:    newFakeSource(malformed, buyEvent("sig2")),
		Executor:  exec,
		Logger:    log.New(&strings.Builder{}, "", 0),
		MaxBuySOL: 0.02,
	})
	runTrader(t, trader)

	if got := len(exec.executed()); got != 1 {
		t.Errorf("expected the loop to survive the malformed event, got %d executions", got)
	}
}

func TestTrader_NilJournalIsFine(t *testing.T) {
	exec := &fakeExecutor{}

	trader := NewTrader(Options{
		Source:    newFakeSource(buyEvent("sig1")),
		Executor:  exec,
		Logger:    log.New(&strings.Builder{}, "", 0),
		MaxBuySOL: 0.02,
	})
	runTrader(t, trader)

	if len(exec.executed()) != 1 {
		t.Error("execution should proceed without a journal")
	}
}
