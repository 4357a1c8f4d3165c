package events

import "time"

// Evento publicado no tópico "fixture_finished" quando o provedor
// sinaliza o fim de uma partida. Usado pelo settlement-worker para
// antecipar a avaliação das apostas referentes à partida.
type FixtureFinished struct {
	FixtureID string    `json:"fixture_id"`
	HomeGoals int       `json:"home_goals"`
	AwayGoals int       `json:"away_goals"`
	Ts        time.Time `json:"ts"`
	Source    string    `json:"source"`
}
