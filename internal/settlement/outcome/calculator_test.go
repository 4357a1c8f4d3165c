package outcome

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ars-29/bet-app-v2/internal/settlement/provider"
	"github.com/Ars-29/bet-app-v2/internal/wagers"
)

func finished(home, away int) *provider.FixtureResult {
	return &provider.FixtureResult{
		FixtureID: "FX1",
		Finished:  true,
		State:     "FT",
		HasScores: true,
		HomeGoals: home,
		AwayGoals: away,
	}
}

func leg(marketID, selection string) wagers.Leg {
	return wagers.Leg{ID: "L1", FixtureID: "FX1", MarketID: marketID, Selection: selection}
}

func TestFulltimeResult(t *testing.T) {
	cases := []struct {
		name       string
		selection  string
		home, away int
		want       string
	}{
		{"home win, bet home", "Home", 2, 1, wagers.StatusWon},
		{"home win, bet away", "Away", 2, 1, wagers.StatusLost},
		{"draw, bet draw", "Draw", 1, 1, wagers.StatusWon},
		{"draw, bet home", "1", 0, 0, wagers.StatusLost},
		{"away win, numeric selection", "2", 0, 3, wagers.StatusWon},
		{"away win, snake case", "away_win", 1, 2, wagers.StatusWon},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Evaluate(leg(MarketFulltimeResult, tc.selection), finished(tc.home, tc.away))
			assert.Equal(t, tc.want, r.Status)
		})
	}
}

func TestFulltimeResultScoreUnavailableRefunds(t *testing.T) {
	res := finished(0, 0)
	res.HasScores = false
	r := Evaluate(leg(MarketFulltimeResult, "Home"), res)
	assert.Equal(t, wagers.StatusRefunded, r.Status)
}

func TestDrawNoBet(t *testing.T) {
	// empate devolve a stake, qualquer que seja a seleção
	r := Evaluate(leg(MarketDrawNoBet, "Home"), finished(2, 2))
	assert.Equal(t, wagers.StatusRefunded, r.Status)

	r = Evaluate(leg(MarketDrawNoBet, "Home"), finished(1, 0))
	assert.Equal(t, wagers.StatusWon, r.Status)

	r = Evaluate(leg(MarketDrawNoBet, "Away"), finished(1, 0))
	assert.Equal(t, wagers.StatusLost, r.Status)
}

func TestBothTeamsToScore(t *testing.T) {
	cases := []struct {
		selection  string
		home, away int
		want       string
	}{
		{"Yes", 1, 1, wagers.StatusWon},
		{"Yes", 2, 0, wagers.StatusLost},
		{"No", 0, 0, wagers.StatusWon},
		{"no", 3, 1, wagers.StatusLost},
	}
	for _, tc := range cases {
		r := Evaluate(leg(MarketBothTeamsToScore, tc.selection), finished(tc.home, tc.away))
		assert.Equal(t, tc.want, r.Status, "selection=%s score=%d-%d", tc.selection, tc.home, tc.away)
	}
}

func TestTeamExactGoals(t *testing.T) {
	// o número de gols vem embutido no rótulo da seleção
	r := Evaluate(leg(MarketHomeExactGoals, "Flamengo - 2 Goals"), finished(2, 1))
	assert.Equal(t, wagers.StatusWon, r.Status)

	r = Evaluate(leg(MarketHomeExactGoals, "Flamengo - 2 Goals"), finished(3, 1))
	assert.Equal(t, wagers.StatusLost, r.Status)

	r = Evaluate(leg(MarketAwayExactGoals, "Palmeiras - 1 Goal"), finished(0, 1))
	assert.Equal(t, wagers.StatusWon, r.Status)

	// rótulo sem número é reembolso, não derrota
	r = Evaluate(leg(MarketHomeExactGoals, "Flamengo"), finished(1, 0))
	assert.Equal(t, wagers.StatusRefunded, r.Status)
}

func TestOverUnder(t *testing.T) {
	cases := []struct {
		selection  string
		home, away int
		want       string
	}{
		{"Over 2.5", 2, 1, wagers.StatusWon},
		{"Over 2.5", 1, 1, wagers.StatusLost},
		{"Under 2.5", 1, 0, wagers.StatusWon},
		{"Under 2.5", 3, 1, wagers.StatusLost},
		{"over 1.5", 1, 1, wagers.StatusWon},
		// linha inteira com total exato é push
		{"Over 2", 1, 1, wagers.StatusRefunded},
		{"Under 3", 2, 1, wagers.StatusRefunded},
	}
	for _, tc := range cases {
		r := Evaluate(leg(MarketOverUnder, tc.selection), finished(tc.home, tc.away))
		assert.Equal(t, tc.want, r.Status, "selection=%s score=%d-%d", tc.selection, tc.home, tc.away)
	}
}

func TestOddEven(t *testing.T) {
	r := Evaluate(leg(MarketOddEven, "Odd"), finished(2, 1))
	assert.Equal(t, wagers.StatusWon, r.Status)

	r = Evaluate(leg(MarketOddEven, "Even"), finished(2, 1))
	assert.Equal(t, wagers.StatusLost, r.Status)

	// 0 gols conta como par
	r = Evaluate(leg(MarketOddEven, "Even"), finished(0, 0))
	assert.Equal(t, wagers.StatusWon, r.Status)
}

func TestAnytimeScorer(t *testing.T) {
	res := finished(1, 1)
	res.Events = []provider.GoalEvent{
		{Type: "goal", Team: "home", Player: "Pedro", Minute: 12},
		{Type: "goal", Team: "away", Player: "Estevao", Minute: 77},
	}

	r := Evaluate(leg(MarketAnytimeScorer, "Pedro"), res)
	assert.Equal(t, wagers.StatusWon, r.Status)

	r = Evaluate(leg(MarketAnytimeScorer, "Gerson"), res)
	assert.Equal(t, wagers.StatusLost, r.Status)

	// partida com gols mas sem eventos: não dá pra apurar, reembolsa
	noEvents := finished(1, 0)
	r = Evaluate(leg(MarketAnytimeScorer, "Pedro"), noEvents)
	assert.Equal(t, wagers.StatusRefunded, r.Status)

	// 0x0 sem eventos: ninguém marcou
	r = Evaluate(leg(MarketAnytimeScorer, "Pedro"), finished(0, 0))
	assert.Equal(t, wagers.StatusLost, r.Status)
}

func TestUnsupportedMarketRefunds(t *testing.T) {
	r := Evaluate(leg("999", "whatever"), finished(2, 0))
	assert.Equal(t, wagers.StatusRefunded, r.Status)
	assert.Contains(t, r.Reason, "unsupported market")
}

func TestProviderFlagTakesPrecedence(t *testing.T) {
	// veredito explícito do provedor ganha do cálculo local pelo placar
	res := finished(2, 0)
	res.MarketFlags = []provider.MarketFlag{
		{MarketID: MarketFulltimeResult, Selection: "Away", Winning: true},
	}
	r := Evaluate(leg(MarketFulltimeResult, "Away"), res)
	assert.Equal(t, wagers.StatusWon, r.Status)

	// flag também decide mercados sem calculador local
	res.MarketFlags = []provider.MarketFlag{
		{MarketID: "999", Selection: "X", Winning: false},
	}
	r = Evaluate(leg("999", "X"), res)
	assert.Equal(t, wagers.StatusLost, r.Status)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(MarketFulltimeResult))
	assert.True(t, Supported(MarketAnytimeScorer))
	assert.False(t, Supported("999"))
}
