package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cl "marketmania/internal/cli"
	"marketmania/internal/config"
	"marketmania/internal/game"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL
	wsBase := cfg.WSBaseURL

	root := &cobra.Command{
		Use:          "mania",
		Short:        "Market Mania operator CLI",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")
	root.PersistentFlags().StringVar(&wsBase, "ws", wsBase, "websocket base URL")

	root.AddCommand(
		newRoomsCmd(&apiBase),
		newStocksCmd(&apiBase),
		newLobbyCmd(&apiBase),
		newHistoryCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newWatchCmd(&wsBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newRoomsCmd(apiBase *string) *cobra.Command {
	rooms := &cobra.Command{
		Use:   "rooms",
		Short: "Create and list game rooms",
	}
	rooms.AddCommand(newRoomsCreateCmd(apiBase), newRoomsListCmd(apiBase), newRoomsJoinCmd(apiBase))
	return rooms
}

func newRoomsJoinCmd(apiBase *string) *cobra.Command {
	var operator string
	cmd := &cobra.Command{
		Use:   "join <room-id>",
		Short: "Join a room as this machine's identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cl.LoadOrCreateIdentity(operator)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if err := client.EnsureUser(ctx, id.UserID, id.FullName); err != nil {
				return err
			}
			info, err := client.JoinRoom(ctx, args[0], id.UserID)
			if err != nil {
				return err
			}
			printSuccess("Joined %s as %s", info.Name, id.FullName)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "as", "", "operator display name")
	return cmd
}

func newStocksCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stocks <room-id>",
		Short: "Show a room's stock basket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			stocks, err := newClient(apiBase).RoomStocks(ctx, args[0])
			if err != nil {
				return err
			}
			for _, s := range stocks {
				printRow("%-32s %10.2f  %s", s.Name, s.Price, strings.Join(s.Sectors, ", "))
			}
			return nil
		},
	}
}

func newRoomsCreateCmd(apiBase *string) *cobra.Command {
	var (
		name      string
		numStocks int
		roundTime int
		players   int
		money     int64
		rounds    int
		operator  string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room with a random stock basket",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cl.LoadOrCreateIdentity(operator)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if err := client.EnsureUser(ctx, id.UserID, id.FullName); err != nil {
				return err
			}
			roomID, err := client.CreateRoom(ctx, game.CreateRoomInput{
				Name:         name,
				NumStocks:    numStocks,
				RoundTime:    roundTime,
				MaxPlayers:   players,
				InitialMoney: money,
				NumRounds:    rounds,
				CreatedBy:    id.UserID,
			})
			if err != nil {
				return err
			}
			printSuccess("Room created: %s", roomID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "room name (required)")
	cmd.Flags().IntVar(&numStocks, "stocks", 8, "stocks in the basket")
	cmd.Flags().IntVar(&roundTime, "round-time", 30, "round duration in seconds")
	cmd.Flags().IntVar(&players, "players", 8, "maximum players")
	cmd.Flags().Int64Var(&money, "money", 100000, "starting cash per player")
	cmd.Flags().IntVar(&rounds, "rounds", 10, "number of rounds")
	cmd.Flags().StringVar(&operator, "as", "", "operator display name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newRoomsListCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rooms waiting for players",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rooms, err := newClient(apiBase).PublicRooms(ctx)
			if err != nil {
				return err
			}
			if len(rooms) == 0 {
				printWarn("No rooms waiting.")
				return nil
			}
			for _, r := range rooms {
				printRow("%-36s  %-24s  %d/%d players", r.RoomID, r.RoomName, r.CurrentPlayers, r.MaxPlayers)
			}
			return nil
		},
	}
}

func newLobbyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lobby <room-id>",
		Short: "Show a room's lobby",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			lobby, err := newClient(apiBase).Lobby(ctx, args[0])
			if err != nil {
				return err
			}
			printHeader("%s", lobby.Room.Name)
			printRow("rounds=%d round-time=%ds stocks=%d max-players=%d",
				lobby.Room.NumRounds, lobby.Room.RoundTime, lobby.Room.NumStocks, lobby.Room.MaxPlayers)
			for _, p := range lobby.Players {
				printRow("  %s (%s)", p.FullName, p.UserID)
			}
			return nil
		},
	}
}

func newHistoryCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history <room-id>",
		Short: "Dump a room's persisted price history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rows, err := newClient(apiBase).StockHistory(ctx, args[0])
			if err != nil {
				return err
			}
			for _, row := range rows {
				printRow("round %-3d %-32s %10.2f", row.RoundNumber, row.StockName, row.Price)
			}
			return nil
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard <room-id>",
		Short: "Show a finished game's final standings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rows, err := newClient(apiBase).FinalLeaderboard(ctx, args[0])
			if err != nil {
				return err
			}
			for _, row := range rows {
				printRow("#%-3d %-24s %12.2f", row.FinalRank, row.Username, row.FinalNetWorth)
			}
			return nil
		},
	}
}
