package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ars-29/bet-app-v2/internal/settlement/combination"
	"github.com/Ars-29/bet-app-v2/internal/settlement/outcome"
	"github.com/Ars-29/bet-app-v2/internal/settlement/provider"
	"github.com/Ars-29/bet-app-v2/internal/wagers"
	"github.com/Ars-29/bet-app-v2/pkg/contracts/events"
)

// Store define as operações de persistência usadas pelo engine
type Store interface {
	DueForSettlement(ctx context.Context, now time.Time, limit int) ([]*wagers.Wager, error)
	PendingByFixture(ctx context.Context, fixtureID string) ([]*wagers.Wager, error)
	Reschedule(ctx context.Context, id string, nextCheck time.Time) error
	Settle(ctx context.Context, id string, d wagers.Decision) (applied bool, err error)
}

// ResultGateway define a consulta de resultados de partida
type ResultGateway interface {
	Result(ctx context.Context, fixtureID string) (*provider.FixtureResult, error)
}

// Publisher emite eventos de liquidação no canal operacional
type Publisher interface {
	PublishWagerSettled(ctx context.Context, e events.WagerSettled) error
}

// Policy parametriza o scheduler de liquidação
type Policy struct {
	PollInterval time.Duration // intervalo do scan de apostas vencidas
	RetryDelay   time.Duration // backoff quando a partida não terminou
	MaxHorizon   time.Duration // além do horário estimado, aposta vira ERROR
	FetchTimeout time.Duration // timeout por consulta ao provedor
	Workers      int
	BatchLimit   int
}

func (p *Policy) defaults() {
	if p.PollInterval <= 0 {
		p.PollInterval = 30 * time.Second
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = 5 * time.Minute
	}
	if p.MaxHorizon <= 0 {
		p.MaxHorizon = 48 * time.Hour
	}
	if p.FetchTimeout <= 0 {
		p.FetchTimeout = 5 * time.Second
	}
	if p.Workers <= 0 {
		p.Workers = 4
	}
	if p.BatchLimit <= 0 {
		p.BatchLimit = 100
	}
}

// Engine é o scheduler durável de liquidação: um único scan por
// estimated_resolution_at substitui um timer por aposta, o que torna a
// recuperação pós-restart um table scan (Sweep).
type Engine struct {
	log     *zap.Logger
	store   Store
	gateway ResultGateway
	publ    Publisher // opcional
	pol     Policy

	mu       sync.Mutex
	inflight map[string]struct{}

	now func() time.Time
}

func New(log *zap.Logger, store Store, gateway ResultGateway, publ Publisher, pol Policy) *Engine {
	pol.defaults()
	return &Engine{
		log:      log,
		store:    store,
		gateway:  gateway,
		publ:     publ,
		pol:      pol,
		inflight: make(map[string]struct{}),
		now:      time.Now,
	}
}

// Run executa o sweep de recuperação e entra no loop de polling.
// Bloqueia até o contexto ser cancelado.
func (e *Engine) Run(ctx context.Context) {
	if n, err := e.Sweep(ctx); err != nil {
		e.log.Error("recovery sweep", zap.Error(err))
	} else if n > 0 {
		e.log.Info("recovery sweep processed overdue wagers", zap.Int("count", n))
	}

	ticker := time.NewTicker(e.pol.PollInterval)
	defer ticker.Stop()

	jobs := make(chan *wagers.Wager)
	var wg sync.WaitGroup
	for i := 0; i < e.pol.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range jobs {
				if err := e.Evaluate(ctx, w); err != nil {
					e.log.Error("evaluate wager", zap.String("wager_id", w.ID), zap.Error(err))
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case <-ticker.C:
			due, err := e.store.DueForSettlement(ctx, e.now(), e.pol.BatchLimit)
			if err != nil {
				e.log.Warn("due scan", zap.Error(err))
				continue
			}
			for _, w := range due {
				select {
				case jobs <- w:
				case <-ctx.Done():
					close(jobs)
					wg.Wait()
					return
				}
			}
		}
	}
}

// Sweep processa imediatamente todas as apostas PENDING vencidas.
// Rodado uma vez na inicialização; idempotente: apostas já terminais
// são no-ops, então rodar duas vezes não credita duas vezes.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	processed := 0
	for {
		due, err := e.store.DueForSettlement(ctx, e.now(), e.pol.BatchLimit)
		if err != nil {
			return processed, err
		}
		if len(due) == 0 {
			return processed, nil
		}
		progressed := false
		for _, w := range due {
			if err := e.Evaluate(ctx, w); err != nil {
				e.log.Error("sweep evaluate", zap.String("wager_id", w.ID), zap.Error(err))
			}
			processed++
			sweepRecoveredTotal.Inc()
			progressed = true
		}
		// apostas reagendadas saem do scan pelo next_check_at; se o lote
		// não diminuir, evita loop quente
		if !progressed || len(due) < e.pol.BatchLimit {
			return processed, nil
		}
	}
}

// TriggerFixture antecipa a avaliação das apostas pendentes de uma
// partida que acabou de terminar (evento fixture_finished).
func (e *Engine) TriggerFixture(ctx context.Context, fixtureID string) error {
	pending, err := e.store.PendingByFixture(ctx, fixtureID)
	if err != nil {
		return err
	}
	for _, w := range pending {
		if err := e.Evaluate(ctx, w); err != nil {
			e.log.Error("trigger evaluate", zap.String("wager_id", w.ID), zap.Error(err))
		}
	}
	return nil
}

// tryAcquire garante no máximo uma avaliação em andamento por aposta
func (e *Engine) tryAcquire(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[id]; busy {
		return false
	}
	e.inflight[id] = struct{}{}
	inflightGauge.Inc()
	return true
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	delete(e.inflight, id)
	e.mu.Unlock()
	inflightGauge.Dec()
}

// Evaluate é o gatilho de liquidação de uma aposta. Seguro para
// chamadas concorrentes: exclusão mútua por wager id em memória e
// no-op sobre apostas já terminais (compare-and-set no Settle).
func (e *Engine) Evaluate(ctx context.Context, w *wagers.Wager) error {
	if w.Status != wagers.StatusPending {
		return nil
	}
	if !e.tryAcquire(w.ID) {
		return nil // avaliação já em andamento
	}
	defer e.release(w.ID)

	now := e.now()

	// Horizonte de retry esgotado: revisão manual, saldo não é tocado.
	// As pernas acompanham a transição para que nenhuma fique PENDING
	// dentro de uma aposta terminal
	if now.After(w.EstimatedResolutionAt.Add(e.pol.MaxHorizon)) {
		const reason = "settlement retry horizon exhausted"
		legDecisions := make([]wagers.LegDecision, len(w.Legs))
		for i, leg := range w.Legs {
			legDecisions[i] = wagers.LegDecision{LegID: leg.ID, Status: wagers.StatusError, Reason: reason}
		}
		return e.settle(ctx, w, wagers.Decision{
			Status: wagers.StatusError,
			Reason: reason,
			Legs:   legDecisions,
		})
	}

	results, err := e.fetchResults(ctx, w)
	if err != nil {
		// falha transitória nunca vira derrota: reagenda
		fetchFailuresTotal.Inc()
		e.log.Warn("fetch fixture results", zap.String("wager_id", w.ID), zap.Error(err))
		return e.reschedule(ctx, w)
	}

	for fixtureID, res := range results {
		if !res.Finished {
			e.log.Debug("fixture not finished",
				zap.String("wager_id", w.ID), zap.String("fixture_id", fixtureID))
			return e.reschedule(ctx, w)
		}
	}

	legResults := make([]outcome.Result, len(w.Legs))
	legDecisions := make([]wagers.LegDecision, len(w.Legs))
	for i, leg := range w.Legs {
		r := outcome.Evaluate(leg, results[leg.FixtureID])
		legResults[i] = r
		legDecisions[i] = wagers.LegDecision{LegID: leg.ID, Status: r.Status, Reason: r.Reason}
	}

	settlement, err := combination.Resolve(legResults, w.StakeCents, w.CombinedOdds)
	if err != nil {
		return e.reschedule(ctx, w)
	}

	return e.settle(ctx, w, wagers.Decision{
		Status:      settlement.Status,
		PayoutCents: settlement.PayoutCents,
		Reason:      settlement.Reason,
		Legs:        legDecisions,
	})
}

// fetchResults consulta o provedor para cada partida distinta da aposta
func (e *Engine) fetchResults(ctx context.Context, w *wagers.Wager) (map[string]*provider.FixtureResult, error) {
	results := make(map[string]*provider.FixtureResult)
	for _, leg := range w.Legs {
		if _, ok := results[leg.FixtureID]; ok {
			continue
		}
		fctx, cancel := context.WithTimeout(ctx, e.pol.FetchTimeout)
		res, err := e.gateway.Result(fctx, leg.FixtureID)
		cancel()
		if err != nil {
			return nil, err
		}
		results[leg.FixtureID] = res
	}
	return results, nil
}

func (e *Engine) reschedule(ctx context.Context, w *wagers.Wager) error {
	reschedulesTotal.Inc()
	return e.store.Reschedule(ctx, w.ID, e.now().Add(e.pol.RetryDelay))
}

func (e *Engine) settle(ctx context.Context, w *wagers.Wager, d wagers.Decision) error {
	applied, err := e.store.Settle(ctx, w.ID, d)
	if err != nil {
		return err
	}
	if !applied {
		return nil // outra avaliação chegou primeiro
	}

	settledTotal.WithLabelValues(d.Status).Inc()
	e.log.Info("wager settled",
		zap.String("wager_id", w.ID),
		zap.String("status", d.Status),
		zap.Int64("payout_cents", d.PayoutCents),
		zap.String("reason", d.Reason),
	)

	if e.publ != nil {
		ev := events.WagerSettled{
			WagerID:     w.ID,
			UserID:      w.UserID,
			Status:      d.Status,
			PayoutCents: d.PayoutCents,
			Reason:      d.Reason,
			Ts:          e.now(),
		}
		if err := e.publ.PublishWagerSettled(ctx, ev); err != nil {
			e.log.Error("publish wager_settled", zap.String("wager_id", w.ID), zap.Error(err))
		}
	}
	return nil
}
