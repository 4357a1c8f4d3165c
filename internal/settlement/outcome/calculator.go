package outcome

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Ars-29/bet-app-v2/internal/settlement/provider"
	"github.com/Ars-29/bet-app-v2/internal/wagers"
)

// Result é o desfecho de uma perna. Puro: mesma perna + mesmo resultado
// de partida produzem sempre o mesmo desfecho.
type Result struct {
	Status string // wagers.StatusWon | StatusLost | StatusRefunded
	Reason string
}

func won(reason string) Result    { return Result{Status: wagers.StatusWon, Reason: reason} }
func lost(reason string) Result   { return Result{Status: wagers.StatusLost, Reason: reason} }
func refund(reason string) Result { return Result{Status: wagers.StatusRefunded, Reason: reason} }

// Calculator decide o desfecho de uma perna dado o resultado final da partida.
type Calculator func(leg wagers.Leg, res *provider.FixtureResult) Result

// registry mapeia market_id -> calculador. Mercado sem calculador é
// reembolsado, nunca dado como perdido por falta de cobertura.
var registry = map[string]Calculator{
	MarketFulltimeResult:   fulltimeResult,
	MarketOverUnder:        overUnder,
	MarketDrawNoBet:        drawNoBet,
	MarketBothTeamsToScore: bothTeamsToScore,
	MarketHomeExactGoals:   teamExactGoals,
	MarketAwayExactGoals:   teamExactGoals,
	MarketOddEven:          oddEven,
	MarketAnytimeScorer:    anytimeScorer,
}

// Supported informa se o mercado tem cálculo determinístico implementado.
func Supported(marketID string) bool {
	_, ok := registry[marketID]
	return ok
}

// Evaluate despacha a perna para o calculador do mercado.
// Precedência: veredito explícito do provedor (market flag) > cálculo
// local pelo placar > reembolso por mercado sem cobertura.
func Evaluate(leg wagers.Leg, res *provider.FixtureResult) Result {
	if winning, ok := res.WinningFlag(leg.MarketID, leg.Selection); ok {
		if winning {
			return won("provider winning flag")
		}
		return lost("provider winning flag")
	}

	calc, ok := registry[leg.MarketID]
	if !ok {
		return refund("unsupported market " + leg.MarketID)
	}
	return calc(leg, res)
}

// matchResult devolve "HOME" | "DRAW" | "AWAY" pelo placar final.
func matchResult(res *provider.FixtureResult) string {
	switch {
	case res.HomeGoals > res.AwayGoals:
		return "HOME"
	case res.HomeGoals < res.AwayGoals:
		return "AWAY"
	default:
		return "DRAW"
	}
}

// normalizeSide aceita as variantes usuais de seleção 1X2.
func normalizeSide(selection string) string {
	switch strings.ToLower(strings.TrimSpace(selection)) {
	case "home", "1", "home_win":
		return "HOME"
	case "draw", "x":
		return "DRAW"
	case "away", "2", "away_win":
		return "AWAY"
	default:
		return ""
	}
}

func scoreline(res *provider.FixtureResult) string {
	return fmt.Sprintf("%d-%d", res.HomeGoals, res.AwayGoals)
}

func fulltimeResult(leg wagers.Leg, res *provider.FixtureResult) Result {
	if !res.HasScores {
		return refund("score unavailable")
	}
	side := normalizeSide(leg.Selection)
	if side == "" {
		return refund("invalid selection " + leg.Selection)
	}
	actual := matchResult(res)
	reason := fmt.Sprintf("fulltime result %s (%s)", scoreline(res), actual)
	if side == actual {
		return won(reason)
	}
	return lost(reason)
}

func drawNoBet(leg wagers.Leg, res *provider.FixtureResult) Result {
	if !res.HasScores {
		return refund("score unavailable")
	}
	actual := matchResult(res)
	if actual == "DRAW" {
		// empate devolve a stake independentemente da seleção
		return refund("draw no bet: match drawn " + scoreline(res))
	}
	side := normalizeSide(leg.Selection)
	if side != "HOME" && side != "AWAY" {
		return refund("invalid selection " + leg.Selection)
	}
	reason := fmt.Sprintf("draw no bet %s (%s)", scoreline(res), actual)
	if side == actual {
		return won(reason)
	}
	return lost(reason)
}

func bothTeamsToScore(leg wagers.Leg, res *provider.FixtureResult) Result {
	if !res.HasScores {
		return refund("score unavailable")
	}
	both := res.HomeGoals > 0 && res.AwayGoals > 0
	reason := fmt.Sprintf("both teams to score: %v (%s)", both, scoreline(res))
	var yes bool
	switch strings.ToLower(strings.TrimSpace(leg.Selection)) {
	case "yes":
		yes = true
	case "no":
		yes = false
	default:
		return refund("invalid selection " + leg.Selection)
	}
	if yes == both {
		return won(reason)
	}
	return lost(reason)
}

// goalCountRe extrai o número de gols embutido no rótulo da seleção,
// ex: "Aldosivi - 2 Goals".
var goalCountRe = regexp.MustCompile(`(\d+)\s*Goal`)

func teamExactGoals(leg wagers.Leg, res *provider.FixtureResult) Result {
	if !res.HasScores {
		return refund("score unavailable")
	}
	actual := res.HomeGoals
	team := "home"
	if leg.MarketID == MarketAwayExactGoals {
		actual = res.AwayGoals
		team = "away"
	}

	m := goalCountRe.FindStringSubmatch(leg.Selection)
	if m == nil {
		return refund("could not extract goal count from selection")
	}
	want, err := strconv.Atoi(m[1])
	if err != nil {
		return refund("could not extract goal count from selection")
	}

	reason := fmt.Sprintf("%s team exact goals: %d (bet: %d)", team, actual, want)
	if actual == want {
		return won(reason)
	}
	return lost(reason)
}

func overUnder(leg wagers.Leg, res *provider.FixtureResult) Result {
	if !res.HasScores {
		return refund("score unavailable")
	}
	sel := strings.TrimSpace(leg.Selection)
	fields := strings.Fields(sel)
	if len(fields) != 2 {
		return refund("invalid selection " + leg.Selection)
	}
	threshold, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return refund("invalid selection " + leg.Selection)
	}

	total := float64(res.HomeGoals + res.AwayGoals)
	reason := fmt.Sprintf("total goals %v vs line %v", total, threshold)
	if total == threshold {
		// linha inteira com total exato é push
		return refund(reason + " (push)")
	}

	switch strings.ToLower(fields[0]) {
	case "over":
		if total > threshold {
			return won(reason)
		}
		return lost(reason)
	case "under":
		if total < threshold {
			return won(reason)
		}
		return lost(reason)
	default:
		return refund("invalid selection " + leg.Selection)
	}
}

func oddEven(leg wagers.Leg, res *provider.FixtureResult) Result {
	if !res.HasScores {
		return refund("score unavailable")
	}
	total := res.HomeGoals + res.AwayGoals
	actual := "Even"
	if total%2 != 0 {
		actual = "Odd"
	}
	reason := fmt.Sprintf("odd/even: %d goals (%s)", total, actual)
	switch strings.ToLower(strings.TrimSpace(leg.Selection)) {
	case "odd", "even":
		if strings.EqualFold(leg.Selection, actual) {
			return won(reason)
		}
		return lost(reason)
	default:
		return refund("invalid selection " + leg.Selection)
	}
}

func anytimeScorer(leg wagers.Leg, res *provider.FixtureResult) Result {
	player := strings.TrimSpace(leg.Selection)
	if player == "" {
		return refund("invalid selection")
	}
	// sem eventos numa partida com gols não dá pra apurar o marcador
	if len(res.Events) == 0 {
		if res.HasScores && res.HomeGoals+res.AwayGoals > 0 {
			return refund("goal events unavailable")
		}
		return lost("no goals scored")
	}
	for _, ev := range res.Events {
		if ev.Type != "goal" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(ev.Player), player) {
			return won(fmt.Sprintf("%s scored at %d'", ev.Player, ev.Minute))
		}
	}
	return lost(player + " did not score")
}
