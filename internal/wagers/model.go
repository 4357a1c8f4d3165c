package wagers

import "time"

// Estados de uma aposta (e de cada perna individualmente).
// Terminais: WON, LOST, REFUNDED, ERROR. A transição a partir de
// PENDING acontece exatamente uma vez (compare-and-set em Settle).
const (
	StatusPending  = "PENDING"
	StatusWon      = "WON"
	StatusLost     = "LOST"
	StatusRefunded = "REFUNDED"
	StatusError    = "ERROR"
)

// Leg é uma seleção dentro de uma aposta: uma partida, um mercado,
// uma escolha. Pernas não são compartilhadas entre apostas.
type Leg struct {
	ID        string
	WagerID   string
	FixtureID string
	MarketID  string
	Selection string
	OddValue  float64
	Status    string
	Reason    string
}

// Wager é o modelo persistido no Postgres. Uma perna = aposta simples,
// duas ou mais = aposta combinada (ganha só se todas as pernas ganham).
type Wager struct {
	ID           string
	UserID       string
	StakeCents   int64
	CombinedOdds float64 // produto das odds das pernas no momento da admissão
	Status       string
	PayoutCents  int64
	SettleReason string

	// EstimatedResolutionAt arma o scheduler; NextCheckAt/Attempts
	// controlam o backoff quando a partida ainda não terminou.
	EstimatedResolutionAt time.Time
	NextCheckAt           time.Time
	Attempts              int

	CreatedAt time.Time
	SettledAt *time.Time

	Legs []Leg
}

// LegDecision é o desfecho de uma perna apurado pelos calculadores.
type LegDecision struct {
	LegID  string
	Status string // WON | LOST | REFUNDED | ERROR
	Reason string
}

// Decision é o desfecho final de uma aposta, aplicado atomicamente
// junto com o crédito do payout (ver Postgres.Settle).
type Decision struct {
	Status      string // WON | LOST | REFUNDED | ERROR
	PayoutCents int64
	Reason      string
	Legs        []LegDecision
}
