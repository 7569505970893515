package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Init creates the Market Mania tables when they do not exist yet. The
// statements are ordered so foreign keys always reference tables created
// earlier in the same pass.
func Init(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS game_rooms (
			room_id TEXT PRIMARY KEY,
			room_name TEXT NOT NULL,
			num_stocks INT NOT NULL,
			round_time INT NOT NULL,
			max_players INT NOT NULL,
			initial_money BIGINT NOT NULL,
			num_rounds INT NOT NULL,
			created_by TEXT NOT NULL REFERENCES users(user_id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS games (
			game_id TEXT PRIMARY KEY REFERENCES game_rooms(room_id),
			game_status TEXT NOT NULL DEFAULT 'waiting',
			created_by_user_id TEXT NOT NULL REFERENCES users(user_id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS game_participants (
			game_id TEXT NOT NULL REFERENCES games(game_id),
			user_id TEXT NOT NULL REFERENCES users(user_id),
			joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (game_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS game_stocks (
			game_id TEXT NOT NULL REFERENCES games(game_id),
			stock_name TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			pe_ratio DOUBLE PRECISION NOT NULL,
			sectors TEXT[] NOT NULL,
			total_volume BIGINT NOT NULL,
			volatility DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (game_id, stock_name)
		)`,
		`CREATE TABLE IF NOT EXISTS game_stock_history (
			game_id TEXT NOT NULL REFERENCES games(game_id),
			round_number INT NOT NULL,
			stock_name TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (game_id, round_number, stock_name)
		)`,
		`CREATE TABLE IF NOT EXISTS game_chats (
			id BIGSERIAL PRIMARY KEY,
			game_id TEXT NOT NULL REFERENCES games(game_id),
			user_id TEXT NOT NULL REFERENCES users(user_id),
			username TEXT NOT NULL,
			message TEXT NOT NULL,
			round_number INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS player_scores (
			game_id TEXT NOT NULL REFERENCES games(game_id),
			user_id TEXT NOT NULL REFERENCES users(user_id),
			round_number INT NOT NULL,
			cash_amount DOUBLE PRECISION NOT NULL,
			portfolio_value DOUBLE PRECISION NOT NULL,
			net_worth DOUBLE PRECISION NOT NULL,
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (game_id, user_id, round_number)
		)`,
		`CREATE TABLE IF NOT EXISTS final_scores (
			game_id TEXT NOT NULL REFERENCES games(game_id),
			user_id TEXT NOT NULL REFERENCES users(user_id),
			final_net_worth DOUBLE PRECISION NOT NULL,
			final_rank INT,
			game_completed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (game_id, user_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
