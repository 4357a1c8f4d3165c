package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ars-29/bet-app-v2/internal/bet-service/dto"
	"github.com/Ars-29/bet-app-v2/internal/ledger"
	"github.com/Ars-29/bet-app-v2/internal/shared/locks"
	"github.com/Ars-29/bet-app-v2/internal/wagers"
	"github.com/Ars-29/bet-app-v2/pkg/contracts/events"
)

// WagerRepo define as operações de persistência usadas pela admissão
type WagerRepo interface {
	Place(ctx context.Context, w *wagers.Wager) error
	GetByID(ctx context.Context, id string) (*wagers.Wager, error)
	ListByUser(ctx context.Context, userID string) ([]*wagers.Wager, error)
}

// Ledger define as operações de carteira expostas pela API
type Ledger interface {
	GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance int64, err error)
	Deposit(ctx context.Context, userID string, amount int64, externalRef string) (walletID string, newBalance int64, err error)
}

// OddsSource valida a odd enviada contra o catálogo corrente
type OddsSource interface {
	Check(ctx context.Context, fixtureID, marketID, selection string, clientOdd float64) error
}

type Publisher interface {
	PublishWagerPlaced(ctx context.Context, e events.WagerPlaced) error
}

// Server expõe a API de admissão de apostas e de carteira
type Server struct {
	log    *zap.Logger
	repo   WagerRepo
	ledger Ledger
	odds   OddsSource
	publ   Publisher
	buffer time.Duration // fallback do horário estimado de liquidação

	// serializa admissões do mesmo usuário: duas requisições
	// concorrentes não podem ambas passar pelo check de conflito
	owners *locks.Keyed
}

func NewServer(log *zap.Logger, repo WagerRepo, l Ledger, o OddsSource, p Publisher, buffer time.Duration) *Server {
	return &Server{
		log:    log,
		repo:   repo,
		ledger: l,
		odds:   o,
		publ:   p,
		buffer: buffer,
		owners: locks.NewKeyed(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/wagers", s.placeWager)
	r.Get("/v1/wagers", s.listWagers) // ?userId=...
	r.Get("/v1/wagers/{id}", s.getWager)
	r.Get("/v1/wallet", s.getWallet) // ?userId=...
	r.Post("/v1/wallet/deposit", s.deposit)
	return r
}

func (s *Server) placeWager(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceWagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", "BAD_JSON")
		return
	}

	if req.UserID == "" || req.StakeCents <= 0 || len(req.Legs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid payload", "INVALID_INPUT")
		return
	}

	// Valida pernas: campos resolvíveis, odd >= 1.0, partidas distintas
	// dentro da mesma aposta (combinada não repete partida)
	seen := make(map[string]struct{}, len(req.Legs))
	combined := 1.0
	for _, leg := range req.Legs {
		if leg.FixtureID == "" || leg.MarketID == "" || leg.Selection == "" || leg.OddValue < 1.0 {
			writeError(w, http.StatusBadRequest, "invalid leg", "INVALID_LEG")
			return
		}
		if _, dup := seen[leg.FixtureID]; dup {
			writeError(w, http.StatusBadRequest, "combination references the same fixture twice", "INVALID_LEG")
			return
		}
		seen[leg.FixtureID] = struct{}{}
		combined *= leg.OddValue
	}

	// Odd corrente do catálogo: drift rejeita com a odd atual
	for _, leg := range req.Legs {
		if err := s.odds.Check(r.Context(), leg.FixtureID, leg.MarketID, leg.Selection, leg.OddValue); err != nil {
			writeError(w, http.StatusConflict, err.Error(), "ODD_CHANGED")
			return
		}
	}

	resolveAt := req.EstimatedResolutionAt
	if resolveAt.IsZero() {
		resolveAt = time.Now().Add(s.buffer)
	}

	wg := &wagers.Wager{
		ID:                    uuid.NewString(),
		UserID:                req.UserID,
		StakeCents:            req.StakeCents,
		CombinedOdds:          combined,
		Status:                wagers.StatusPending,
		EstimatedResolutionAt: resolveAt,
	}
	for _, leg := range req.Legs {
		wg.Legs = append(wg.Legs, wagers.Leg{
			FixtureID: leg.FixtureID,
			MarketID:  leg.MarketID,
			Selection: leg.Selection,
			OddValue:  leg.OddValue,
			Status:    wagers.StatusPending,
		})
	}

	unlock := s.owners.Lock(req.UserID)
	err := s.repo.Place(r.Context(), wg)
	unlock()
	if err != nil {
		switch {
		case errors.Is(err, wagers.ErrConflictingWager):
			writeError(w, http.StatusConflict, "pending wager already exists on this fixture/market", "CONFLICTING_WAGER")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			writeError(w, http.StatusPaymentRequired, "insufficient balance", "INSUFFICIENT_BALANCE")
		default:
			s.log.Error("place wager", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error", "")
		}
		return
	}

	// Publica evento wager_placed (best effort)
	ev := events.WagerPlaced{
		WagerID:      wg.ID,
		UserID:       wg.UserID,
		StakeCents:   wg.StakeCents,
		CombinedOdds: wg.CombinedOdds,
		ResolveAt:    resolveAt.Unix(),
	}
	for _, leg := range wg.Legs {
		ev.Legs = append(ev.Legs, events.PlacedLeg{
			FixtureID: leg.FixtureID,
			MarketID:  leg.MarketID,
			Selection: leg.Selection,
			OddValue:  leg.OddValue,
		})
	}
	if err := s.publ.PublishWagerPlaced(r.Context(), ev); err != nil {
		s.log.Warn("publish wager_placed", zap.String("wager_id", wg.ID), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(dto.PlaceWagerResponse{
		WagerID:               wg.ID,
		Status:                wg.Status,
		CombinedOdds:          wg.CombinedOdds,
		EstimatedResolutionAt: resolveAt,
	})
}

func (s *Server) getWager(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wg, err := s.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, wagers.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, toView(wg))
}

func (s *Server) listWagers(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required", "INVALID_INPUT")
		return
	}
	list, err := s.repo.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	out := make([]dto.WagerView, 0, len(list))
	for _, wg := range list {
		out = append(out, toView(wg))
	}
	writeJSON(w, out)
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required", "INVALID_INPUT")
		return
	}
	walletID, bal, err := s.ledger.GetOrCreateWallet(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, dto.WalletResponse{UserID: userID, WalletID: walletID, BalanceCents: bal})
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", "BAD_JSON")
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 {
		writeError(w, http.StatusBadRequest, "invalid payload", "INVALID_INPUT")
		return
	}
	if _, _, err := s.ledger.GetOrCreateWallet(r.Context(), req.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	walletID, bal, err := s.ledger.Deposit(r.Context(), req.UserID, req.AmountCents, req.ExternalRef)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error(), "")
		return
	}
	writeJSON(w, dto.WalletResponse{UserID: req.UserID, WalletID: walletID, BalanceCents: bal})
}

func toView(wg *wagers.Wager) dto.WagerView {
	v := dto.WagerView{
		WagerID:      wg.ID,
		UserID:       wg.UserID,
		StakeCents:   wg.StakeCents,
		CombinedOdds: wg.CombinedOdds,
		Status:       wg.Status,
		PayoutCents:  wg.PayoutCents,
		Reason:       wg.SettleReason,
		CreatedAt:    wg.CreatedAt,
		SettledAt:    wg.SettledAt,
	}
	for _, leg := range wg.Legs {
		v.Legs = append(v.Legs, dto.WagerLegView{
			FixtureID: leg.FixtureID,
			MarketID:  leg.MarketID,
			Selection: leg.Selection,
			OddValue:  leg.OddValue,
			Status:    leg.Status,
			Reason:    leg.Reason,
		})
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: msg, Code: code})
}
