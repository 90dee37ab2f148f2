package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"skyhaul/internal/config"
	"skyhaul/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	game *game.Service
	mux  *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		game: gameSvc,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/games", s.handleNewGame)

		r.Route("/games/{save_id}", func(r chi.Router) {
			r.Get("/", s.handleGameState)
			r.Post("/advance", s.handleAdvance)
			r.Post("/fast-forward", s.handleFastForward)

			r.Get("/fleet", s.handleFleet)
			r.Post("/fleet", s.handlePurchaseAircraft)
			r.Post("/fleet/repair", s.handleRepairMany)
			r.Get("/fleet/{aircraft_id}/offers", s.handleOffers)
			r.Post("/fleet/{aircraft_id}/repair", s.handleRepair)
			r.Post("/fleet/{aircraft_id}/upgrade", s.handleUpgradeAircraft)

			r.Post("/contracts", s.handleAcceptOffer)

			r.Get("/models", s.handleModels)
			r.Get("/market", s.handleMarket)
			r.Post("/market/{market_id}/buy", s.handleBuyUsed)

			r.Get("/bases", s.handleBases)
			r.Post("/bases", s.handleBuyBase)
			r.Post("/bases/{base_id}/upgrade", s.handleUpgradeBase)

			r.Get("/log", s.handleEventLog)
		})
	})
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlayerName   string `json:"player_name"`
		Difficulty   string `json:"difficulty"`
		HomeBase     string `json:"home_base"`
		Seed         int64  `json:"seed"`
		StartingCash string `json:"starting_cash"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	input := game.NewGameInput{
		PlayerName: in.PlayerName,
		Difficulty: in.Difficulty,
		HomeBase:   in.HomeBase,
		Seed:       in.Seed,
	}
	if strings.TrimSpace(in.StartingCash) != "" {
		cash, err := game.ParseMoney(in.StartingCash)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid starting_cash")
			return
		}
		input.StartingCash = cash
	}
	state, err := s.game.NewGame(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := s.game.LoadGame(r.Context(), saveID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := s.game.AdvanceDay(r.Context(), saveID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if summary.Day >= game.SurvivalTargetDays && summary.Status == game.SaveActive {
		won, err := s.game.MaybeDeclareVictory(r.Context(), saveID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if won {
			summary.Status = game.SaveVictory
		}
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleFastForward(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		MaxDays int `json:"max_days"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := s.game.FastForward(r.Context(), saveID, in.MaxDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleFleet(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fleet, err := s.game.ListFleet(r.Context(), saveID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fleet": fleet})
}

func (s *Server) handleOffers(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	aircraftID, err := pathID(r, "aircraft_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	offers, err := s.game.GenerateOffers(r.Context(), saveID, aircraftID, count)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": offers})
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		AircraftID int64      `json:"aircraft_id"`
		Offer      game.Offer `json:"offer"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	contractID, err := s.game.AcceptOffer(r.Context(), game.AcceptOfferInput{
		SaveID:         saveID,
		AircraftID:     in.AircraftID,
		Offer:          in.Offer,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"contract_id": contractID})
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	aircraftID, err := pathID(r, "aircraft_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cost, err := s.game.RepairAircraft(r.Context(), saveID, aircraftID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cost": cost})
}

func (s *Server) handleRepairMany(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		AircraftIDs []int64 `json:"aircraft_ids"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	total, err := s.game.RepairMany(r.Context(), saveID, in.AircraftIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total_cost": total})
}

func (s *Server) handleUpgradeAircraft(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	aircraftID, err := pathID(r, "aircraft_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	level, cost, err := s.game.UpgradeAircraftEco(r.Context(), saveID, aircraftID, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"level": level, "cost": cost})
}

func (s *Server) handlePurchaseAircraft(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		ModelCode    string `json:"model_code"`
		AirportIdent string `json:"airport_ident"`
		Nickname     string `json:"nickname"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	aircraft, err := s.game.PurchaseAircraft(r.Context(), game.PurchaseAircraftInput{
		SaveID:         saveID,
		ModelCode:      in.ModelCode,
		AirportIdent:   in.AirportIdent,
		Nickname:       in.Nickname,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, aircraft)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	models, maxTier, err := s.game.ListModels(r.Context(), saveID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models, "max_tier": maxTier})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	listings, err := s.game.ListMarket(r.Context(), saveID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (s *Server) handleBuyUsed(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	marketID, err := pathID(r, "market_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		AirportIdent string `json:"airport_ident"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	aircraft, err := s.game.PurchaseUsedAircraft(r.Context(), saveID, marketID, in.AirportIdent, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, aircraft)
}

func (s *Server) handleBases(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bases, err := s.game.ListBases(r.Context(), saveID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bases": bases})
}

func (s *Server) handleBuyBase(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		AirportIdent string `json:"airport_ident"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	base, err := s.game.BuyBase(r.Context(), saveID, in.AirportIdent, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, base)
}

func (s *Server) handleUpgradeBase(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	baseID, err := pathID(r, "base_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tier, cost, err := s.game.UpgradeBase(r.Context(), saveID, baseID, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tier": tier, "cost": cost})
}

func (s *Server) handleEventLog(w http.ResponseWriter, r *http.Request) {
	saveID, err := pathID(r, "save_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.game.EventLog(r.Context(), saveID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"log": entries})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrSaveNotFound),
		errors.Is(err, game.ErrAircraftNotFound),
		errors.Is(err, game.ErrModelNotFound),
		errors.Is(err, game.ErrAirportNotFound),
		errors.Is(err, game.ErrBaseNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrDuplicateIdempotency),
		errors.Is(err, game.ErrTxConflict),
		errors.Is(err, game.ErrListingSold),
		errors.Is(err, game.ErrBaseAlreadyOwned):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, game.ErrSaveTerminal),
		errors.Is(err, game.ErrAircraftBusy),
		errors.Is(err, game.ErrBaseMaxTier),
		errors.Is(err, game.ErrTierLocked),
		errors.Is(err, game.ErrNoFlightsEnroute):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}
