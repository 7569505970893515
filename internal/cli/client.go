package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketmania/internal/game"
	"marketmania/internal/market"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) EnsureUser(ctx context.Context, userID, fullName string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/users", map[string]any{
		"userId":   userID,
		"fullName": fullName,
	}, nil)
}

func (c *Client) CreateRoom(ctx context.Context, in game.CreateRoomInput) (string, error) {
	var out struct {
		RoomID string `json:"roomID"`
	}
	if err := c.jsonRequest(ctx, http.MethodPost, "/v1/rooms", in, &out); err != nil {
		return "", err
	}
	return out.RoomID, nil
}

func (c *Client) JoinRoom(ctx context.Context, roomID, userID string) (game.RoomInfo, error) {
	var out struct {
		RoomData game.RoomInfo `json:"roomData"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/rooms/"+url.PathEscape(roomID)+"/join", map[string]any{
		"userId": userID,
	}, &out)
	return out.RoomData, err
}

func (c *Client) PublicRooms(ctx context.Context) ([]game.PublicRoom, error) {
	var out []game.PublicRoom
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/rooms/public", nil, &out)
	return out, err
}

func (c *Client) Lobby(ctx context.Context, roomID string) (game.LobbyView, error) {
	var out game.LobbyView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/rooms/"+url.PathEscape(roomID)+"/lobby", nil, &out)
	return out, err
}

func (c *Client) RoomStocks(ctx context.Context, roomID string) ([]market.Stock, error) {
	var out []market.Stock
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/rooms/"+url.PathEscape(roomID)+"/stocks", nil, &out)
	return out, err
}

func (c *Client) StockHistory(ctx context.Context, roomID string) ([]game.HistoryRow, error) {
	var out []game.HistoryRow
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/rooms/"+url.PathEscape(roomID)+"/history", nil, &out)
	return out, err
}

func (c *Client) FinalLeaderboard(ctx context.Context, roomID string) ([]game.FinalScoreRow, error) {
	var out []game.FinalScoreRow
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/rooms/"+url.PathEscape(roomID)+"/leaderboard/final", nil, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &apiErr) == nil {
			if apiErr.Error != "" {
				return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
			}
			if apiErr.Message != "" {
				return fmt.Errorf("%s %s: %s", method, path, apiErr.Message)
			}
		}
		return fmt.Errorf("%s %s: http %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
