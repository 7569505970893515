package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type frame struct {
	Type string          `json:"type"`
	Room string          `json:"room,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func newWatchCmd(wsBase *string) *cobra.Command {
	var start bool
	cmd := &cobra.Command{
		Use:   "watch <room-id>",
		Short: "Subscribe to a room's live event feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID := args[0]
			endpoint := strings.TrimRight(strings.TrimSpace(*wsBase), "/") + "/ws"

			conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
			if err != nil {
				return fmt.Errorf("dial %s: %w", endpoint, err)
			}
			defer conn.Close()

			if err := writeFrame(conn, frame{Type: "join-lobby", Room: roomID}); err != nil {
				return err
			}
			printHeader("watching %s", roomID)
			if start {
				if err := writeFrame(conn, frame{Type: "start-game", Room: roomID}); err != nil {
					return err
				}
				printWarn("start-game sent")
			}

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigs
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
			}()

			for {
				var f frame
				if err := conn.ReadJSON(&f); err != nil {
					if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						return nil
					}
					return err
				}
				renderFrame(f)
				if f.Type == "game-over" {
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVar(&start, "start", false, "send the start-game command after joining")
	return cmd
}

func writeFrame(conn *websocket.Conn, f frame) error {
	return conn.WriteJSON(f)
}

func renderFrame(f frame) {
	switch f.Type {
	case "game-started":
		printSuccess("game started")
	case "start-failed":
		printDanger("game failed to start")
	case "market-preview":
		var sec int
		_ = json.Unmarshal(f.Data, &sec)
		printWarn("market preview: %ds", sec)
	case "new-round":
		var round int
		_ = json.Unmarshal(f.Data, &round)
		printHeader("--- round %d ---", round)
	case "price-update":
		var stocks []struct {
			Name  string  `json:"name"`
			Price float64 `json:"price"`
		}
		_ = json.Unmarshal(f.Data, &stocks)
		for _, s := range stocks {
			printRow("  %-32s %10.2f", s.Name, s.Price)
		}
	case "news-update":
		var notices []string
		_ = json.Unmarshal(f.Data, &notices)
		for _, n := range notices {
			printRow("  %s", n)
		}
	case "round-ended":
		printWarn("round ended")
	case "game-over":
		printSuccess("game over")
	case "sync-state":
		var st struct {
			Round int `json:"round"`
		}
		_ = json.Unmarshal(f.Data, &st)
		printWarn("game in progress, round %d", st.Round)
	case "receive-message":
		var msg struct {
			Username string `json:"username"`
			Text     string `json:"text"`
		}
		_ = json.Unmarshal(f.Data, &msg)
		printPlain("<%s> %s", msg.Username, msg.Text)
	case "player-joined":
		printPlain("a player joined")
	}
}
