package provider

// GoalEvent é um evento de gol dentro do resultado de uma partida.
type GoalEvent struct {
	Type   string `json:"type"` // "goal"
	Team   string `json:"team"` // "home" | "away"
	Player string `json:"player"`
	Minute int    `json:"minute"`
}

// MarketFlag é o veredito do provedor para uma seleção específica,
// quando disponível. Tem precedência sobre o cálculo local.
type MarketFlag struct {
	MarketID  string `json:"market_id"`
	Selection string `json:"selection"`
	Winning   bool   `json:"winning"`
}

// FixtureResult é a resposta do provedor para uma partida.
// Só é confiável como resultado definitivo quando Finished=true.
type FixtureResult struct {
	FixtureID   string       `json:"fixture_id"`
	Finished    bool         `json:"finished"`
	State       string       `json:"state"` // ex: "NS", "LIVE", "FT"
	HasScores   bool         `json:"has_scores"`
	HomeGoals   int          `json:"home_goals"`
	AwayGoals   int          `json:"away_goals"`
	Events      []GoalEvent  `json:"events,omitempty"`
	MarketFlags []MarketFlag `json:"market_flags,omitempty"`
}

// WinningFlag procura o veredito do provedor para (mercado, seleção).
func (r *FixtureResult) WinningFlag(marketID, selection string) (winning bool, found bool) {
	for _, f := range r.MarketFlags {
		if f.MarketID == marketID && f.Selection == selection {
			return f.Winning, true
		}
	}
	return false, false
}
