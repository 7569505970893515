package game

import (
	"context"
	"log/slog"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketmania/internal/market"
	"marketmania/internal/sim"
)

// Service is the persistence-backed side of the game: rooms, baskets, chat,
// scores and leaderboards. It also implements sim.Store, feeding the round
// scheduler its configuration, snapshots and history writes.
type Service struct {
	db       *pgxpool.Pool
	log      *slog.Logger
	universe []market.Stock

	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewService(db *pgxpool.Pool, universe []market.Stock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		log:      logger,
		universe: universe,
		rand:     mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) EnsureUser(ctx context.Context, userID, fullName, avatar string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (user_id, full_name, avatar)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET full_name = $2
	`, userID, fullName, avatar)
	return err
}

// CreateRoom provisions a room, its game row, the creator's membership and a
// random basket of stocks drawn from the catalog, all in one transaction.
func (s *Service) CreateRoom(ctx context.Context, in CreateRoomInput) (string, error) {
	if err := validateCreateRoom(in, len(s.universe)); err != nil {
		return "", err
	}
	roomID := strings.TrimSpace(in.RoomID)
	if roomID == "" {
		roomID = uuid.NewString()
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, in.CreatedBy).Scan(&exists); err != nil {
		return "", err
	}
	if !exists {
		return "", ErrUserNotFound
	}

	s.mu.Lock()
	basket := drawBasket(s.rand, s.universe, in.NumStocks)
	s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO game_rooms (room_id, room_name, num_stocks, round_time, max_players, initial_money, num_rounds, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, roomID, in.Name, in.NumStocks, in.RoundTime, in.MaxPlayers, in.InitialMoney, in.NumRounds, in.CreatedBy); err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO games (game_id, game_status, created_by_user_id)
		VALUES ($1, $2, $3)
	`, roomID, sim.StatusWaiting, in.CreatedBy); err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO game_participants (game_id, user_id) VALUES ($1, $2)
	`, roomID, in.CreatedBy); err != nil {
		return "", err
	}
	for _, stock := range basket {
		if _, err := tx.Exec(ctx, `
			INSERT INTO game_stocks (game_id, stock_name, price, pe_ratio, sectors, total_volume, volatility)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, roomID, stock.Name, stock.Price, stock.PERatio, stock.Sectors, stock.TotalVolume, stock.Volatility); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}

	s.log.Info("room created", "room", roomID, "stocks", len(basket), "rounds", in.NumRounds)
	return roomID, nil
}

// JoinRoom adds the user to the room. Rejoining is idempotent; the capacity
// check only applies to first-time joiners.
func (s *Service) JoinRoom(ctx context.Context, roomID, userID string) (RoomInfo, error) {
	info, err := s.roomInfo(ctx, roomID)
	if err != nil {
		return RoomInfo{}, err
	}

	var member bool
	if err := s.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM game_participants WHERE game_id = $1 AND user_id = $2)
	`, roomID, userID).Scan(&member); err != nil {
		return RoomInfo{}, err
	}
	if !member {
		var count int
		if err := s.db.QueryRow(ctx, `
			SELECT COUNT(*) FROM game_participants WHERE game_id = $1
		`, roomID).Scan(&count); err != nil {
			return RoomInfo{}, err
		}
		if count >= info.MaxPlayers {
			return RoomInfo{}, ErrRoomFull
		}
		if _, err := s.db.Exec(ctx, `
			INSERT INTO game_participants (game_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (game_id, user_id) DO NOTHING
		`, roomID, userID); err != nil {
			return RoomInfo{}, err
		}
	}
	return info, nil
}

func (s *Service) roomInfo(ctx context.Context, roomID string) (RoomInfo, error) {
	var info RoomInfo
	err := s.db.QueryRow(ctx, `
		SELECT room_id, room_name, num_stocks, round_time, max_players, initial_money, num_rounds, created_by
		FROM game_rooms
		WHERE room_id = $1
	`, roomID).Scan(&info.RoomID, &info.Name, &info.NumStocks, &info.RoundTime, &info.MaxPlayers, &info.InitialMoney, &info.NumRounds, &info.CreatedBy)
	if err == pgx.ErrNoRows {
		return info, ErrRoomNotFound
	}
	return info, err
}

// PublicRooms lists rooms still waiting for players, newest first.
func (s *Service) PublicRooms(ctx context.Context) ([]PublicRoom, error) {
	rows, err := s.db.Query(ctx, `
		SELECT gr.room_id, gr.room_name, gr.max_players,
		       (SELECT COUNT(*) FROM game_participants gp WHERE gp.game_id = gr.room_id) AS current_players
		FROM game_rooms gr
		JOIN games g ON gr.room_id = g.game_id
		WHERE g.game_status = $1
		ORDER BY g.created_at DESC
		LIMIT 20
	`, sim.StatusWaiting)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PublicRoom
	for rows.Next() {
		var r PublicRoom
		if err := rows.Scan(&r.RoomID, &r.RoomName, &r.MaxPlayers, &r.CurrentPlayers); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Service) Lobby(ctx context.Context, roomID string) (LobbyView, error) {
	var out LobbyView
	info, err := s.roomInfo(ctx, roomID)
	if err != nil {
		return out, err
	}
	out.Room = info

	rows, err := s.db.Query(ctx, `
		SELECT u.user_id, u.full_name
		FROM users u
		JOIN game_participants gp ON u.user_id = gp.user_id
		WHERE gp.game_id = $1
		ORDER BY gp.joined_at
	`, roomID)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var p PlayerView
		if err := rows.Scan(&p.UserID, &p.FullName); err != nil {
			return out, err
		}
		out.Players = append(out.Players, p)
	}
	return out, rows.Err()
}

func (s *Service) AddChatMessage(ctx context.Context, roomID, userID, username, text string, round int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO game_chats (game_id, user_id, username, message, round_number)
		VALUES ($1, $2, $3, $4, $5)
	`, roomID, userID, username, text, round)
	return err
}

func (s *Service) ListChats(ctx context.Context, roomID string) ([]ChatMessage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT gc.user_id, gc.username, gc.message, gc.round_number, u.avatar, gc.created_at
		FROM game_chats gc
		JOIN users u ON gc.user_id = u.user_id
		WHERE gc.game_id = $1
		ORDER BY gc.created_at ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.UserID, &m.Username, &m.Text, &m.Round, &m.Avatar, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SubmitRoundScore upserts one player's score for a round; resubmission
// overwrites the previous values.
func (s *Service) SubmitRoundScore(ctx context.Context, roomID string, in RoundScoreInput) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO player_scores (game_id, user_id, round_number, cash_amount, portfolio_value, net_worth)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, user_id, round_number)
		DO UPDATE SET cash_amount = $4, portfolio_value = $5, net_worth = $6, submitted_at = now()
	`, roomID, in.UserID, in.RoundNumber, in.CashAmount, in.PortfolioValue, in.NetWorth)
	return err
}

func (s *Service) RoundLeaderboard(ctx context.Context, roomID string, round int) ([]LeaderboardRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ps.user_id, u.full_name, ps.cash_amount, ps.portfolio_value, ps.net_worth, ps.submitted_at
		FROM player_scores ps
		JOIN users u ON ps.user_id = u.user_id
		WHERE ps.game_id = $1 AND ps.round_number = $2
		ORDER BY ps.net_worth DESC
	`, roomID, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeaderboardRow
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.UserID, &r.Username, &r.CashAmount, &r.PortfolioValue, &r.NetWorth, &r.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SubmitFinalScore records the player's closing net worth, then recomputes
// and persists ranks for the whole room. Returns the final leaderboard.
func (s *Service) SubmitFinalScore(ctx context.Context, roomID, userID string, finalNetWorth float64) ([]FinalScoreRow, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO final_scores (game_id, user_id, final_net_worth)
		VALUES ($1, $2, $3)
		ON CONFLICT (game_id, user_id)
		DO UPDATE SET final_net_worth = $3, game_completed_at = now()
	`, roomID, userID, finalNetWorth); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE final_scores fs
		SET final_rank = ranked.rank
		FROM (
			SELECT user_id, ROW_NUMBER() OVER (ORDER BY final_net_worth DESC) AS rank
			FROM final_scores
			WHERE game_id = $1
		) ranked
		WHERE fs.game_id = $1 AND fs.user_id = ranked.user_id
	`, roomID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.FinalLeaderboard(ctx, roomID)
}

func (s *Service) FinalLeaderboard(ctx context.Context, roomID string) ([]FinalScoreRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT fs.user_id, u.full_name, fs.final_net_worth, COALESCE(fs.final_rank, 0), fs.game_completed_at
		FROM final_scores fs
		JOIN users u ON fs.user_id = u.user_id
		WHERE fs.game_id = $1
		ORDER BY fs.final_rank ASC NULLS LAST
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FinalScoreRow
	for rows.Next() {
		var r FinalScoreRow
		if err := rows.Scan(&r.UserID, &r.Username, &r.FinalNetWorth, &r.FinalRank, &r.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Service) StockHistory(ctx context.Context, roomID string) ([]HistoryRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT round_number, stock_name, price
		FROM game_stock_history
		WHERE game_id = $1
		ORDER BY round_number ASC, stock_name ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HistoryRow
	for rows.Next() {
		var r HistoryRow
		if err := rows.Scan(&r.RoundNumber, &r.StockName, &r.Price); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- sim.Store ---

func (s *Service) RoomSettings(ctx context.Context, roomID string) (sim.RoomSettings, error) {
	var roundSeconds, numRounds int
	err := s.db.QueryRow(ctx, `
		SELECT round_time, num_rounds FROM game_rooms WHERE room_id = $1
	`, roomID).Scan(&roundSeconds, &numRounds)
	if err == pgx.ErrNoRows {
		return sim.RoomSettings{}, ErrRoomNotFound
	}
	if err != nil {
		return sim.RoomSettings{}, err
	}
	return sim.RoomSettings{
		RoundDuration: time.Duration(roundSeconds) * time.Second,
		NumRounds:     numRounds,
	}, nil
}

func (s *Service) StockSnapshot(ctx context.Context, roomID string) ([]market.Stock, error) {
	rows, err := s.db.Query(ctx, `
		SELECT stock_name, price, pe_ratio, sectors, total_volume, volatility
		FROM game_stocks
		WHERE game_id = $1
		ORDER BY stock_name
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []market.Stock
	for rows.Next() {
		var st market.Stock
		if err := rows.Scan(&st.Name, &st.Price, &st.PERatio, &st.Sectors, &st.TotalVolume, &st.Volatility); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrRoomNotFound
	}
	return out, nil
}

func (s *Service) SetGameStatus(ctx context.Context, roomID, status string) error {
	_, err := s.db.Exec(ctx, `UPDATE games SET game_status = $1 WHERE game_id = $2`, status, roomID)
	return err
}

// AppendHistory is idempotent on (room, round, stock): replays and races with
// the next round's writes collapse into a single row.
func (s *Service) AppendHistory(ctx context.Context, roomID string, round int, stockName string, price float64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO game_stock_history (game_id, round_number, stock_name, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (game_id, round_number, stock_name) DO NOTHING
	`, roomID, round, stockName, price)
	return err
}
