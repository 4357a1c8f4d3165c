package topics

const (
	// Apostas
	WagerPlaced  = "wager_placed"
	WagerSettled = "wager_settled"

	// Resultados de partidas
	FixtureFinished = "fixture_finished"

	// DLQs
	WagerPlacedDLQ     = "wager_placed_dlq"
	FixtureFinishedDLQ = "fixture_finished_dlq"
)
