package wagers

import "errors"

var (
	// ErrConflictingWager indica que o usuário já tem uma aposta PENDING
	// no mesmo par (fixture, mercado) de alguma das pernas enviadas.
	ErrConflictingWager = errors.New("conflicting pending wager on same fixture/market")

	// ErrNotFound indica aposta inexistente.
	ErrNotFound = errors.New("wager not found")
)
