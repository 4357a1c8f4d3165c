package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ars-29/bet-app-v2/internal/settlement/outcome"
	"github.com/Ars-29/bet-app-v2/internal/settlement/provider"
	"github.com/Ars-29/bet-app-v2/internal/wagers"
	"github.com/Ars-29/bet-app-v2/pkg/contracts/events"
)

// fakeStore registra as chamadas de persistência do engine
type fakeStore struct {
	mu          sync.Mutex
	due         [][]*wagers.Wager
	settled     []wagers.Decision
	rescheduled []time.Time
	settleErr   error
	applied     bool // retorno do compare-and-set
}

func newFakeStore() *fakeStore { return &fakeStore{applied: true} }

func (f *fakeStore) DueForSettlement(_ context.Context, _ time.Time, _ int) ([]*wagers.Wager, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.due) == 0 {
		return nil, nil
	}
	batch := f.due[0]
	f.due = f.due[1:]
	return batch, nil
}

func (f *fakeStore) PendingByFixture(_ context.Context, _ string) ([]*wagers.Wager, error) {
	return nil, nil
}

func (f *fakeStore) Reschedule(_ context.Context, _ string, next time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduled = append(f.rescheduled, next)
	return nil
}

func (f *fakeStore) Settle(_ context.Context, _ string, d wagers.Decision) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settleErr != nil {
		return false, f.settleErr
	}
	if !f.applied {
		return false, nil
	}
	f.settled = append(f.settled, d)
	f.applied = false // transição PENDING -> terminal só acontece uma vez
	return true, nil
}

func (f *fakeStore) settledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.settled)
}

func (f *fakeStore) rescheduleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rescheduled)
}

// fakeGateway serve resultados fixos por fixture, com erro e bloqueio opcionais
type fakeGateway struct {
	mu      sync.Mutex
	results map[string]*provider.FixtureResult
	err     error
	block   chan struct{} // se setado, segura a consulta até fechar
	calls   int
}

func (f *fakeGateway) Result(_ context.Context, fixtureID string) (*provider.FixtureResult, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	res, ok := f.results[fixtureID]
	if !ok {
		return nil, errors.New("fixture not found")
	}
	return res, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.WagerSettled
}

func (f *fakePublisher) PublishWagerSettled(_ context.Context, e events.WagerSettled) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func pendingWager(id string) *wagers.Wager {
	return &wagers.Wager{
		ID:                    id,
		UserID:                "user-1",
		StakeCents:            1000,
		CombinedOdds:          2.5,
		Status:                wagers.StatusPending,
		EstimatedResolutionAt: time.Now().Add(-time.Minute),
		Legs: []wagers.Leg{
			{ID: "leg-1", WagerID: id, FixtureID: "FX1", MarketID: outcome.MarketFulltimeResult, Selection: "Home", OddValue: 2.5},
		},
	}
}

func newTestEngine(store Store, gw ResultGateway, publ Publisher) *Engine {
	return New(zap.NewNop(), store, gw, publ, Policy{
		RetryDelay: time.Minute,
		MaxHorizon: 48 * time.Hour,
	})
}

func TestEvaluateSettlesWonWager(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{results: map[string]*provider.FixtureResult{
		"FX1": {FixtureID: "FX1", Finished: true, HasScores: true, HomeGoals: 2, AwayGoals: 0},
	}}
	publ := &fakePublisher{}
	eng := newTestEngine(store, gw, publ)

	require.NoError(t, eng.Evaluate(context.Background(), pendingWager("w1")))

	require.Equal(t, 1, store.settledCount())
	d := store.settled[0]
	assert.Equal(t, wagers.StatusWon, d.Status)
	assert.Equal(t, int64(2500), d.PayoutCents)
	require.Len(t, d.Legs, 1)
	assert.Equal(t, "leg-1", d.Legs[0].LegID)
	assert.Equal(t, wagers.StatusWon, d.Legs[0].Status)

	require.Len(t, publ.events, 1)
	assert.Equal(t, "w1", publ.events[0].WagerID)
	assert.Equal(t, int64(2500), publ.events[0].PayoutCents)
}

func TestEvaluateReschedulesWhenNotFinished(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{results: map[string]*provider.FixtureResult{
		"FX1": {FixtureID: "FX1", Finished: false, State: "LIVE"},
	}}
	eng := newTestEngine(store, gw, nil)

	require.NoError(t, eng.Evaluate(context.Background(), pendingWager("w1")))

	assert.Equal(t, 0, store.settledCount())
	assert.Equal(t, 1, store.rescheduleCount())
}

func TestEvaluateFetchErrorNeverSettles(t *testing.T) {
	// falha transitória de consulta reagenda, nunca vira derrota
	store := newFakeStore()
	gw := &fakeGateway{err: errors.New("provider down")}
	eng := newTestEngine(store, gw, nil)

	require.NoError(t, eng.Evaluate(context.Background(), pendingWager("w1")))

	assert.Equal(t, 0, store.settledCount())
	assert.Equal(t, 1, store.rescheduleCount())
}

func TestEvaluateHorizonExhaustedMarksError(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{err: errors.New("provider down")}
	eng := newTestEngine(store, gw, nil)

	w := pendingWager("w1")
	w.EstimatedResolutionAt = time.Now().Add(-72 * time.Hour)

	require.NoError(t, eng.Evaluate(context.Background(), w))

	require.Equal(t, 1, store.settledCount())
	d := store.settled[0]
	assert.Equal(t, wagers.StatusError, d.Status)
	// saldo não é tocado: sem payout
	assert.Equal(t, int64(0), d.PayoutCents)
	// o provedor nem chega a ser consultado
	assert.Equal(t, 0, gw.calls)
	// as pernas acompanham a transição: nenhuma fica PENDING
	require.Len(t, d.Legs, 1)
	assert.Equal(t, "leg-1", d.Legs[0].LegID)
	assert.Equal(t, wagers.StatusError, d.Legs[0].Status)
}

func TestEvaluateSkipsTerminalWager(t *testing.T) {
	store := newFakeStore()
	eng := newTestEngine(store, &fakeGateway{}, nil)

	w := pendingWager("w1")
	w.Status = wagers.StatusWon

	require.NoError(t, eng.Evaluate(context.Background(), w))
	assert.Equal(t, 0, store.settledCount())
	assert.Equal(t, 0, store.rescheduleCount())
}

func TestEvaluateConcurrentSingleSettle(t *testing.T) {
	// duas avaliações concorrentes da mesma aposta: a exclusão em memória
	// segura a segunda, e o compare-and-set do Settle garante um crédito só
	store := newFakeStore()
	block := make(chan struct{})
	gw := &fakeGateway{
		results: map[string]*provider.FixtureResult{
			"FX1": {FixtureID: "FX1", Finished: true, HasScores: true, HomeGoals: 2, AwayGoals: 0},
		},
		block: block,
	}
	publ := &fakePublisher{}
	eng := newTestEngine(store, gw, publ)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = eng.Evaluate(context.Background(), pendingWager("w1"))
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(block)
	wg.Wait()

	assert.Equal(t, 1, store.settledCount())
	assert.Len(t, publ.events, 1)
}

func TestEvaluateSettleNotAppliedSkipsPublish(t *testing.T) {
	// outra instância liquidou primeiro: applied=false, nada é publicado
	store := newFakeStore()
	store.applied = false
	gw := &fakeGateway{results: map[string]*provider.FixtureResult{
		"FX1": {FixtureID: "FX1", Finished: true, HasScores: true, HomeGoals: 2, AwayGoals: 0},
	}}
	publ := &fakePublisher{}
	eng := newTestEngine(store, gw, publ)

	require.NoError(t, eng.Evaluate(context.Background(), pendingWager("w1")))
	assert.Empty(t, publ.events)
}

func TestEvaluateCombinationUnresolvedLegReschedules(t *testing.T) {
	store := newFakeStore()
	gw := &fakeGateway{results: map[string]*provider.FixtureResult{
		"FX1": {FixtureID: "FX1", Finished: true, HasScores: true, HomeGoals: 2, AwayGoals: 0},
		"FX2": {FixtureID: "FX2", Finished: false, State: "LIVE"},
	}}
	eng := newTestEngine(store, gw, nil)

	w := pendingWager("w1")
	w.Legs = append(w.Legs, wagers.Leg{
		ID: "leg-2", WagerID: "w1", FixtureID: "FX2",
		MarketID: outcome.MarketFulltimeResult, Selection: "Away", OddValue: 1.8,
	})

	require.NoError(t, eng.Evaluate(context.Background(), w))
	assert.Equal(t, 0, store.settledCount())
	assert.Equal(t, 1, store.rescheduleCount())
}

func TestSweepProcessesOverdueBatches(t *testing.T) {
	store := newFakeStore()
	store.due = [][]*wagers.Wager{{pendingWager("w1"), pendingWager("w2")}}
	gw := &fakeGateway{results: map[string]*provider.FixtureResult{
		"FX1": {FixtureID: "FX1", Finished: true, HasScores: true, HomeGoals: 0, AwayGoals: 0},
	}}
	eng := newTestEngine(store, gw, nil)

	n, err := eng.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	// primeira liquida (LOST), segunda bate no compare-and-set do fake
	assert.Equal(t, 1, store.settledCount())
	assert.Equal(t, wagers.StatusLost, store.settled[0].Status)
}
