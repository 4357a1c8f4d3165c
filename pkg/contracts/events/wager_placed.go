package events

// PlacedLeg é uma seleção dentro do evento wager_placed.
type PlacedLeg struct {
	FixtureID string  `json:"fixture_id"`
	MarketID  string  `json:"market_id"`
	Selection string  `json:"selection"`
	OddValue  float64 `json:"odd_value"`
}

// Evento publicado no tópico "wager_placed" após a admissão de uma aposta.
type WagerPlaced struct {
	WagerID      string      `json:"wager_id"`
	UserID       string      `json:"user_id"`
	StakeCents   int64       `json:"stake_cents"`
	CombinedOdds float64     `json:"combined_odds"`
	Legs         []PlacedLeg `json:"legs"`
	ResolveAt    int64       `json:"resolve_at_unix"` // horário estimado de liquidação
	TsUnixMs     int64       `json:"ts_unix_ms"`
}
