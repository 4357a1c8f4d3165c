package events

import "time"

// Evento emitido pelo settlement-worker após a liquidação de uma aposta.
// Status ERROR indica aposta movida para revisão manual (canal operacional).
type WagerSettled struct {
	WagerID     string    `json:"wagerId"`
	UserID      string    `json:"userId"`
	Status      string    `json:"status"` // "WON" | "LOST" | "REFUNDED" | "ERROR"
	PayoutCents int64     `json:"payout_cents"`
	Reason      string    `json:"reason,omitempty"`
	Ts          time.Time `json:"ts"`
}
