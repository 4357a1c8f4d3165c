package combination

import (
	"errors"
	"math"

	"github.com/Ars-29/bet-app-v2/internal/settlement/outcome"
	"github.com/Ars-29/bet-app-v2/internal/wagers"
)

// ErrNotDecided indica que alguma perna ainda não tem desfecho:
// a combinada não é liquidada e volta para o scheduler.
var ErrNotDecided = errors.New("combination has unresolved legs")

// Settlement é a decisão agregada de uma aposta (simples ou combinada).
type Settlement struct {
	Status      string
	PayoutCents int64
	Reason      string
}

// Resolve agrega os desfechos das pernas numa decisão única.
// Prioridade estrita, nesta ordem:
//  1. perna sem desfecho  -> ErrNotDecided (reagendar)
//  2. qualquer perna LOST -> LOST, payout 0 (uma perda anula a combinada)
//  3. qualquer REFUNDED   -> REFUNDED, payout = stake (anula a aposta inteira)
//  4. todas WON           -> WON, payout = stake × odds combinadas
//
// LOST domina REFUNDED mesmo com flags de reembolso desatualizadas.
func Resolve(results []outcome.Result, stakeCents int64, combinedOdds float64) (Settlement, error) {
	if len(results) == 0 {
		return Settlement{}, ErrNotDecided
	}

	var anyLost, anyRefunded bool
	var lostReason, refundReason string
	for _, r := range results {
		switch r.Status {
		case wagers.StatusLost:
			if !anyLost {
				anyLost, lostReason = true, r.Reason
			}
		case wagers.StatusRefunded:
			if !anyRefunded {
				anyRefunded, refundReason = true, r.Reason
			}
		case wagers.StatusWon:
			// segue
		default:
			return Settlement{}, ErrNotDecided
		}
	}

	switch {
	case anyLost:
		return Settlement{Status: wagers.StatusLost, PayoutCents: 0, Reason: lostReason}, nil
	case anyRefunded:
		return Settlement{Status: wagers.StatusRefunded, PayoutCents: stakeCents, Reason: refundReason}, nil
	default:
		payout := int64(math.Round(float64(stakeCents) * combinedOdds))
		return Settlement{Status: wagers.StatusWon, PayoutCents: payout, Reason: "all legs won"}, nil
	}
}
