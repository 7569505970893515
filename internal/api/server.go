package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketmania/internal/config"
	"marketmania/internal/game"
	"marketmania/internal/sim"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	cfg  config.ServerConfig
	log  *slog.Logger
	game *game.Service
	reg  *sim.Registry
	ws   http.Handler
	mux  *chi.Mux
}

func New(cfg config.ServerConfig, logger *slog.Logger, gameSvc *game.Service, reg *sim.Registry, wsHandler http.Handler) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		game: gameSvc,
		reg:  reg,
		ws:   wsHandler,
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

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	// Websocket endpoint sits outside the timeout middleware: connections
	// are long-lived by design.
	r.Get("/ws", s.ws.ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/users", s.handleEnsureUser)

		r.Post("/rooms", s.handleCreateRoom)
		r.Get("/rooms/public", s.handlePublicRooms)
		r.Route("/rooms/{roomID}", func(r chi.Router) {
			r.Post("/join", s.handleJoinRoom)
			r.Get("/lobby", s.handleLobby)
			r.Get("/status", s.handleRoomStatus)
			r.Get("/stocks", s.handleRoomStocks)
			r.Get("/history", s.handleStockHistory)
			r.Get("/chats", s.handleListChats)
			r.Post("/chats", s.handleAddChat)
			r.Post("/scores/round", s.handleSubmitRoundScore)
			r.Get("/leaderboard/round/{round}", s.handleRoundLeaderboard)
			r.Post("/scores/final", s.handleSubmitFinalScore)
			r.Get("/leaderboard/final", s.handleFinalLeaderboard)
		})
	})
}

func (s *Server) handleEnsureUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID   string `json:"userId"`
		FullName string `json:"fullName"`
		Avatar   string `json:"avatar"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.FullName) == "" {
		writeError(w, http.StatusBadRequest, "userId and fullName are required")
		return
	}
	if err := s.game.EnsureUser(r.Context(), in.UserID, in.FullName, in.Avatar); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var in game.CreateRoomInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	roomID, err := s.game.CreateRoom(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrUserNotFound):
			writeError(w, http.StatusBadRequest, "creator user does not exist")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "roomID": roomID})
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	var in struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.UserID) == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	info, err := s.game.JoinRoom(r.Context(), roomID, in.UserID)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrRoomNotFound):
			writeJSON(w, http.StatusNotFound, map[string]any{"exists": false, "message": "room not found"})
		case errors.Is(err, game.ErrRoomFull):
			writeJSON(w, http.StatusForbidden, map[string]any{"exists": true, "message": "room is full"})
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exists": true, "roomData": info})
}

func (s *Server) handlePublicRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.game.PublicRooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	lobby, err := s.game.Lobby(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		if errors.Is(err, game.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, lobby)
}

func (s *Server) handleRoomStatus(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	round, running := s.reg.CurrentRound(roomID)
	writeJSON(w, http.StatusOK, map[string]any{"running": running, "round": round})
}

func (s *Server) handleRoomStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := s.game.StockSnapshot(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		if errors.Is(err, game.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stocks)
}

func (s *Server) handleStockHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.game.StockHistory(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.game.ListChats(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (s *Server) handleAddChat(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	var in struct {
		UserID      string `json:"userId"`
		Username    string `json:"username"`
		Text        string `json:"text"`
		RoundNumber int    `json:"roundNumber"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.UserID == "" || in.Username == "" || in.Text == "" {
		writeError(w, http.StatusBadRequest, "userId, username and text are required")
		return
	}
	if err := s.game.AddChatMessage(r.Context(), roomID, in.UserID, in.Username, in.Text, in.RoundNumber); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

func (s *Server) handleSubmitRoundScore(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	var in game.RoundScoreInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.UserID == "" || in.RoundNumber < 1 {
		writeError(w, http.StatusBadRequest, "userId and roundNumber are required")
		return
	}
	if err := s.game.SubmitRoundScore(r.Context(), roomID, in); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleRoundLeaderboard(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil || round < 1 {
		writeError(w, http.StatusBadRequest, "round must be a positive integer")
		return
	}
	rows, err := s.game.RoundLeaderboard(r.Context(), roomID, round)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSubmitFinalScore(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	var in struct {
		UserID        string   `json:"userId"`
		FinalNetWorth *float64 `json:"finalNetWorth"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.UserID == "" || in.FinalNetWorth == nil {
		writeError(w, http.StatusBadRequest, "userId and finalNetWorth are required")
		return
	}
	leaderboard, err := s.game.SubmitFinalScore(r.Context(), roomID, in.UserID, *in.FinalNetWorth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "leaderboard": leaderboard})
}

func (s *Server) handleFinalLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.game.FinalLeaderboard(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
