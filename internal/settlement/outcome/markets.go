package outcome

// IDs de mercado conforme o catálogo do provedor de odds.
const (
	MarketFulltimeResult   = "1"  // 1X2
	MarketOverUnder        = "8"  // total de gols acima/abaixo
	MarketDrawNoBet        = "10" // empate anula
	MarketBothTeamsToScore = "14" // ambas marcam
	MarketHomeExactGoals   = "18" // gols exatos do mandante
	MarketAwayExactGoals   = "19" // gols exatos do visitante
	MarketOddEven          = "44" // paridade do total de gols
	MarketAnytimeScorer    = "91" // jogador marca a qualquer momento
)
