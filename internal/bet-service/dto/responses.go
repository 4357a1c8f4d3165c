package dto

import "time"

type PlaceWagerResponse struct {
	WagerID               string    `json:"wagerId"`
	Status                string    `json:"status"` // PENDING
	CombinedOdds          float64   `json:"combined_odds"`
	EstimatedResolutionAt time.Time `json:"estimated_resolution_at"`
}

type WagerLegView struct {
	FixtureID string  `json:"fixtureId"`
	MarketID  string  `json:"marketId"`
	Selection string  `json:"selection"`
	OddValue  float64 `json:"odd_value"`
	Status    string  `json:"status"`
	Reason    string  `json:"reason,omitempty"`
}

type WagerView struct {
	WagerID      string         `json:"wagerId"`
	UserID       string         `json:"userId"`
	StakeCents   int64          `json:"stake_cents"`
	CombinedOdds float64        `json:"combined_odds"`
	Status       string         `json:"status"`
	PayoutCents  int64          `json:"payout_cents"`
	Reason       string         `json:"reason,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	SettledAt    *time.Time     `json:"settled_at,omitempty"`
	Legs         []WagerLegView `json:"legs"`
}

type WalletResponse struct {
	UserID       string `json:"userId"`
	WalletID     string `json:"walletId"`
	BalanceCents int64  `json:"balance_cents"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
