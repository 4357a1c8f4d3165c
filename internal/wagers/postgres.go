package wagers

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Ars-29/bet-app-v2/internal/ledger"
)

// Postgres implementa o armazenamento de apostas e as transições de
// estado. O débito da stake e o crédito do payout passam pelo ledger
// na mesma transação da escrita da aposta; nunca existe estado em que
// a aposta está WON e o crédito não aconteceu (ou aconteceu duas vezes)
type Postgres struct {
	db     *sql.DB
	ledger *ledger.Postgres
}

func NewPostgres(db *sql.DB, l *ledger.Postgres) *Postgres {
	return &Postgres{db: db, ledger: l}
}

// Place valida conflito, debita a stake e insere a aposta PENDING numa
// única transação. O lock FOR UPDATE na carteira serializa admissões do
// mesmo usuário; o índice único parcial em wager_legs
// (user_id, fixture_id, market_id) WHERE status='PENDING' fecha a
// janela contra inserções concorrentes que passaram pelo check.
func (p *Postgres) Place(ctx context.Context, w *Wager) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Garante a carteira antes do lock de débito
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallets(id, user_id, balance_cents, version) VALUES($1,$2,0,1)
		 ON CONFLICT (user_id) DO NOTHING`,
		uuid.NewString(), w.UserID); err != nil {
		return err
	}

	// Conflito: alguma aposta PENDING do usuário intersecta em (fixture, mercado)
	for _, leg := range w.Legs {
		var exists bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM wager_legs l
				JOIN wagers g ON g.id = l.wager_id
				WHERE g.user_id=$1 AND g.status='PENDING'
				  AND l.fixture_id=$2 AND l.market_id=$3
			)`, w.UserID, leg.FixtureID, leg.MarketID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return ErrConflictingWager
		}
	}

	if err = p.ledger.DebitTx(ctx, tx, w.UserID, w.StakeCents, w.ID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO wagers (id, user_id, stake_cents, combined_odds, status,
			payout_cents, estimated_resolution_at, next_check_at, attempts, created_at)
		VALUES ($1,$2,$3,$4,'PENDING',0,$5,$5,0,NOW())`,
		w.ID, w.UserID, w.StakeCents, w.CombinedOdds, w.EstimatedResolutionAt,
	); err != nil {
		return err
	}

	for i := range w.Legs {
		leg := &w.Legs[i]
		if leg.ID == "" {
			leg.ID = uuid.NewString()
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO wager_legs (id, wager_id, user_id, fixture_id, market_id, selection, odd_value, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,'PENDING')`,
			leg.ID, w.ID, w.UserID, leg.FixtureID, leg.MarketID, leg.Selection, leg.OddValue,
		); err != nil {
			// Corrida entre instâncias que passou pelo check: o índice
			// único parcial barra a segunda inserção
			if uniqueViolation(err) {
				return ErrConflictingWager
			}
			return err
		}
	}

	return tx.Commit()
}

// GetByID carrega a aposta e suas pernas
func (p *Postgres) GetByID(ctx context.Context, id string) (*Wager, error) {
	w, err := p.scanWager(p.db.QueryRowContext(ctx, `
		SELECT id, user_id, stake_cents, combined_odds, status, payout_cents,
			settle_reason, estimated_resolution_at, next_check_at, attempts, created_at, settled_at
		FROM wagers WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if w.Legs, err = p.legs(ctx, w.ID); err != nil {
		return nil, err
	}
	return w, nil
}

// ListByUser retorna as apostas do usuário, mais recentes primeiro
func (p *Postgres) ListByUser(ctx context.Context, userID string) ([]*Wager, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, stake_cents, combined_odds, status, payout_cents,
			settle_reason, estimated_resolution_at, next_check_at, attempts, created_at, settled_at
		FROM wagers WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out, err := p.collect(ctx, rows)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DueForSettlement retorna apostas PENDING cujo horário estimado de
// liquidação já passou e cujo backoff permite nova checagem.
// É a única consulta do scheduler; o sweep de recuperação na
// inicialização usa exatamente o mesmo scan.
func (p *Postgres) DueForSettlement(ctx context.Context, now time.Time, limit int) ([]*Wager, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, stake_cents, combined_odds, status, payout_cents,
			settle_reason, estimated_resolution_at, next_check_at, attempts, created_at, settled_at
		FROM wagers
		WHERE status='PENDING' AND estimated_resolution_at <= $1 AND next_check_at <= $1
		ORDER BY estimated_resolution_at
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return p.collect(ctx, rows)
}

// PendingByFixture retorna apostas PENDING com alguma perna na partida.
// Usado quando o tópico fixture_finished antecipa a avaliação.
func (p *Postgres) PendingByFixture(ctx context.Context, fixtureID string) ([]*Wager, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT g.id, g.user_id, g.stake_cents, g.combined_odds, g.status, g.payout_cents,
			g.settle_reason, g.estimated_resolution_at, g.next_check_at, g.attempts, g.created_at, g.settled_at
		FROM wagers g
		JOIN wager_legs l ON l.wager_id = g.id
		WHERE g.status='PENDING' AND l.fixture_id=$1`, fixtureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return p.collect(ctx, rows)
}

// Reschedule adia a próxima checagem e incrementa a contagem de tentativas
func (p *Postgres) Reschedule(ctx context.Context, id string, nextCheck time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE wagers SET next_check_at=$1, attempts=attempts+1 WHERE id=$2 AND status='PENDING'`,
		nextCheck, id)
	return err
}

// Settle aplica a transição terminal e o crédito do payout numa única
// transação. Idempotente: se a aposta já não está PENDING, é no-op e
// retorna applied=false sem tocar no saldo.
func (p *Postgres) Settle(ctx context.Context, id string, d Decision) (applied bool, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var userID, status string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, status FROM wagers WHERE id=$1 FOR UPDATE`, id).Scan(&userID, &status)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}

	if status != StatusPending {
		return false, nil // já liquidada
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE wagers SET status=$1, payout_cents=$2, settle_reason=$3, settled_at=NOW()
		WHERE id=$4`,
		d.Status, d.PayoutCents, d.Reason, id); err != nil {
		return false, err
	}

	for _, leg := range d.Legs {
		if _, err = tx.ExecContext(ctx,
			`UPDATE wager_legs SET status=$1, reason=$2 WHERE id=$3`,
			leg.Status, leg.Reason, leg.LegID); err != nil {
			return false, err
		}
	}

	// Nenhuma perna fica PENDING dentro de aposta terminal: pernas sem
	// desfecho individual (ex: transição para ERROR) herdam o status da
	// aposta e saem do índice parcial de conflito
	if _, err = tx.ExecContext(ctx,
		`UPDATE wager_legs SET status=$1, reason=$2 WHERE wager_id=$3 AND status='PENDING'`,
		d.Status, d.Reason, id); err != nil {
		return false, err
	}

	if d.PayoutCents > 0 {
		if err = p.ledger.CreditTx(ctx, tx, userID, d.PayoutCents, id); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Postgres) collect(ctx context.Context, rows *sql.Rows) ([]*Wager, error) {
	var out []*Wager
	for rows.Next() {
		w, err := p.scanWager(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, w := range out {
		legs, err := p.legs(ctx, w.ID)
		if err != nil {
			return nil, err
		}
		w.Legs = legs
	}
	return out, nil
}

// uniqueViolation detecta violação de constraint única do Postgres (23505)
func uniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

type rowScanner interface{ Scan(dest ...any) error }

func (p *Postgres) scanWager(r rowScanner) (*Wager, error) {
	var w Wager
	var reason sql.NullString
	var settledAt sql.NullTime
	if err := r.Scan(&w.ID, &w.UserID, &w.StakeCents, &w.CombinedOdds, &w.Status,
		&w.PayoutCents, &reason, &w.EstimatedResolutionAt, &w.NextCheckAt,
		&w.Attempts, &w.CreatedAt, &settledAt); err != nil {
		return nil, err
	}
	w.SettleReason = reason.String
	if settledAt.Valid {
		t := settledAt.Time
		w.SettledAt = &t
	}
	return &w, nil
}

func (p *Postgres) legs(ctx context.Context, wagerID string) ([]Leg, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, wager_id, fixture_id, market_id, selection, odd_value, status, COALESCE(reason,'')
		FROM wager_legs WHERE wager_id=$1 ORDER BY id`, wagerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Leg
	for rows.Next() {
		var l Leg
		if err := rows.Scan(&l.ID, &l.WagerID, &l.FixtureID, &l.MarketID,
			&l.Selection, &l.OddValue, &l.Status, &l.Reason); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
