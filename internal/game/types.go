package game

import "time"

type CreateRoomInput struct {
	RoomID       string `json:"roomID"`
	Name         string `json:"name"`
	NumStocks    int    `json:"numStocks"`
	RoundTime    int    `json:"roundTime"`
	MaxPlayers   int    `json:"maxPlayers"`
	InitialMoney int64  `json:"initialMoney"`
	NumRounds    int    `json:"numRounds"`
	CreatedBy    string `json:"createdBy"`
}

type RoomInfo struct {
	RoomID       string `json:"roomID"`
	Name         string `json:"name"`
	NumStocks    int    `json:"numStocks"`
	RoundTime    int    `json:"roundTime"`
	MaxPlayers   int    `json:"maxPlayers"`
	InitialMoney int64  `json:"initialMoney"`
	NumRounds    int    `json:"numRounds"`
	CreatedBy    string `json:"createdBy"`
}

type PublicRoom struct {
	RoomID         string `json:"room_id"`
	RoomName       string `json:"room_name"`
	MaxPlayers     int    `json:"max_players"`
	CurrentPlayers int    `json:"current_players"`
}

type PlayerView struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
}

type LobbyView struct {
	Players []PlayerView `json:"players"`
	Room    RoomInfo     `json:"room"`
}

type ChatMessage struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Round     int       `json:"round_number"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

type RoundScoreInput struct {
	UserID         string  `json:"userId"`
	RoundNumber    int     `json:"roundNumber"`
	CashAmount     float64 `json:"cashAmount"`
	PortfolioValue float64 `json:"portfolioValue"`
	NetWorth       float64 `json:"netWorth"`
}

type LeaderboardRow struct {
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	CashAmount     float64   `json:"cash_amount"`
	PortfolioValue float64   `json:"portfolio_value"`
	NetWorth       float64   `json:"net_worth"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type FinalScoreRow struct {
	UserID        string    `json:"user_id"`
	Username      string    `json:"username"`
	FinalNetWorth float64   `json:"final_net_worth"`
	FinalRank     int       `json:"final_rank"`
	CompletedAt   time.Time `json:"game_completed_at"`
}

type HistoryRow struct {
	RoundNumber int     `json:"round_number"`
	StockName   string  `json:"stock_name"`
	Price       float64 `json:"price"`
}
