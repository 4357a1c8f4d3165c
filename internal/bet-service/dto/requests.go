package dto

import "time"

// WagerLeg é uma seleção dentro do pedido de aposta.
type WagerLeg struct {
	FixtureID string  `json:"fixtureId"`
	MarketID  string  `json:"marketId"` // ex: "1" (1X2), "8" (over/under)
	Selection string  `json:"selection"`
	OddValue  float64 `json:"odd_value"` // odd que o cliente viu
}

type PlaceWagerRequest struct {
	UserID     string     `json:"userId"`
	StakeCents int64      `json:"stake_cents"`
	Legs       []WagerLeg `json:"legs"`

	// Horário estimado de liquidação, fornecido por quem conhece a
	// agenda das partidas. Vazio: início + buffer padrão (125 min).
	EstimatedResolutionAt time.Time `json:"estimated_resolution_at"`
}

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref,omitempty"`
}
