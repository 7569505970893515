package game

import (
	"errors"
	"fmt"
	mathrand "math/rand"
	"strings"

	"marketmania/internal/market"
)

const (
	MinRoomStocks  = 3
	MaxRoomNameLen = 64
	MaxPlayersCap  = 16
	MaxRounds      = 50
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrUserNotFound  = errors.New("user not found")
	ErrAlreadyExists = errors.New("room already exists")
)

func validateCreateRoom(in CreateRoomInput, catalogSize int) error {
	if strings.TrimSpace(in.Name) == "" || len(in.Name) > MaxRoomNameLen {
		return fmt.Errorf("room name must be 1-%d characters", MaxRoomNameLen)
	}
	if in.NumStocks < MinRoomStocks || in.NumStocks > catalogSize {
		return fmt.Errorf("numStocks must be between %d and %d", MinRoomStocks, catalogSize)
	}
	if in.RoundTime < 5 || in.RoundTime > 600 {
		return fmt.Errorf("roundTime must be 5-600 seconds")
	}
	if in.MaxPlayers < 1 || in.MaxPlayers > MaxPlayersCap {
		return fmt.Errorf("maxPlayers must be 1-%d", MaxPlayersCap)
	}
	if in.InitialMoney <= 0 {
		return fmt.Errorf("initialMoney must be > 0")
	}
	if in.NumRounds < 1 || in.NumRounds > MaxRounds {
		return fmt.Errorf("numRounds must be 1-%d", MaxRounds)
	}
	if strings.TrimSpace(in.CreatedBy) == "" {
		return fmt.Errorf("createdBy is required")
	}
	return nil
}

// drawBasket picks n distinct stocks from the catalog via a partial
// Fisher-Yates shuffle over a copy.
func drawBasket(rnd *mathrand.Rand, universe []market.Stock, n int) []market.Stock {
	deck := make([]market.Stock, len(universe))
	copy(deck, universe)
	if n > len(deck) {
		n = len(deck)
	}
	for i := 0; i < n; i++ {
		j := i + rnd.Intn(len(deck)-i)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck[:n]
}
