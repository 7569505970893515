package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"marketmania/internal/market"
)

// Broadcast event names, mirrored by the browser client.
const (
	EventGameStarted   = "game-started"
	EventStartFailed   = "start-failed"
	EventMarketPreview = "market-preview"
	EventNewRound      = "new-round"
	EventPriceUpdate   = "price-update"
	EventNewsUpdate    = "news-update"
	EventRoundEnded    = "round-ended"
	EventGameOver      = "game-over"
)

const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

type RoomSettings struct {
	RoundDuration time.Duration
	NumRounds     int
}

// Store is the persistence collaborator the scheduler drives.
type Store interface {
	RoomSettings(ctx context.Context, roomID string) (RoomSettings, error)
	StockSnapshot(ctx context.Context, roomID string) ([]market.Stock, error)
	SetGameStatus(ctx context.Context, roomID, status string) error
	AppendHistory(ctx context.Context, roomID string, round int, stockName string, price float64) error
}

// Broadcaster publishes one event to every client subscribed to the room.
// Calls must not block the caller.
type Broadcaster interface {
	Broadcast(roomID, event string, payload any)
}

type Config struct {
	// PreviewDuration is how long the market-preview window actually lasts.
	PreviewDuration time.Duration
	// PreviewSeconds is the countdown value sent to clients.
	PreviewSeconds int
	// BreakDuration is the leaderboard pause between rounds.
	BreakDuration time.Duration
}

// Scheduler drives every room's round state machine. A single advance
// callback per room is outstanding at any time; the scheduler mutex
// serializes all callbacks, preserving the ordering guarantees the original
// got from its event loop.
type Scheduler struct {
	mu     sync.Mutex
	cfg    Config
	reg    *Registry
	store  Store
	bcast  Broadcaster
	engine *market.Engine
	log    *slog.Logger

	generalEvents    []market.Event
	historicalEvents []market.Event
	companyCatalog   []market.Event
}

func NewScheduler(cfg Config, reg *Registry, store Store, bcast Broadcaster, engine *market.Engine, companyCatalog, general, historical []market.Event, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PreviewSeconds == 0 {
		cfg.PreviewSeconds = 10
	}
	return &Scheduler{
		cfg:              cfg,
		reg:              reg,
		store:            store,
		bcast:            bcast,
		engine:           engine,
		log:              logger,
		generalEvents:    general,
		historicalEvents: historical,
		companyCatalog:   companyCatalog,
	}
}

// SetBroadcaster wires the gateway after construction; the hub and the
// scheduler reference each other, so one side attaches late. Must be called
// before the first Start.
func (s *Scheduler) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bcast = b
}

// Start accepts a host's start command. A room that is already simulating is
// left untouched: duplicate starts are a silent no-op, never a second timer
// chain.
func (s *Scheduler) Start(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reg.Running(roomID) {
		s.log.Info("start ignored, game already running", "room", roomID)
		return nil
	}

	s.bcast.Broadcast(roomID, EventGameStarted, nil)
	if err := s.store.SetGameStatus(ctx, roomID, StatusInProgress); err != nil {
		s.log.Error("set status in_progress failed", "room", roomID, "err", err)
	}

	settings, err := s.store.RoomSettings(ctx, roomID)
	if err != nil {
		s.log.Error("room settings load failed", "room", roomID, "err", err)
		s.bcast.Broadcast(roomID, EventStartFailed, nil)
		return err
	}
	stocks, err := s.store.StockSnapshot(ctx, roomID)
	if err != nil {
		s.log.Error("stock snapshot load failed", "room", roomID, "err", err)
		s.bcast.Broadcast(roomID, EventStartFailed, nil)
		return err
	}

	st := &RoomState{
		RoomID:        roomID,
		Round:         0,
		TotalRounds:   settings.NumRounds,
		RoundDuration: settings.RoundDuration,
		Stocks:        stocks,
		CompanyEvents: market.FilterCompanyEvents(s.companyCatalog, stocks),
		phase:         phasePreviewing,
	}
	if !s.reg.create(st) {
		// Lost a race with a concurrent start while loading.
		return nil
	}

	s.log.Info("game starting", "room", roomID, "rounds", st.TotalRounds, "stocks", len(st.Stocks))
	s.bcast.Broadcast(roomID, EventMarketPreview, s.cfg.PreviewSeconds)
	st.timer = time.AfterFunc(s.cfg.PreviewDuration, func() { s.advance(roomID) })
	return nil
}

// advance is the single state-machine driver. Every scheduled timer lands
// here; the room's phase decides the transition and exactly one next timer is
// armed before returning.
func (s *Scheduler) advance(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.reg.get(roomID)
	if st == nil {
		// Torn down while this callback was in flight.
		return
	}

	switch st.phase {
	case phasePreviewing, phaseRoundBreak:
		s.enterRound(st)
	case phaseRoundActive:
		s.log.Info("round ended", "room", st.RoomID, "round", st.Round)
		s.bcast.Broadcast(st.RoomID, EventRoundEnded, nil)
		st.phase = phaseRoundBreak
		st.timer = time.AfterFunc(s.cfg.BreakDuration, func() { s.advance(roomID) })
	}
}

func (s *Scheduler) enterRound(st *RoomState) {
	st.Round++

	if st.Round > st.TotalRounds {
		s.log.Info("game over", "room", st.RoomID, "rounds", st.TotalRounds)
		s.bcast.Broadcast(st.RoomID, EventGameOver, nil)
		roomID := st.RoomID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.store.SetGameStatus(ctx, roomID, StatusFinished); err != nil {
				s.log.Error("set status finished failed", "room", roomID, "err", err)
			}
		}()
		s.reg.delete(st.RoomID)
		return
	}

	s.log.Info("round starting", "room", st.RoomID, "round", st.Round)
	s.bcast.Broadcast(st.RoomID, EventNewRound, st.Round)

	// The first round has no pending batch yet; prices hold still until one
	// exists. The fluctuation step is gated with the events on purpose.
	if st.Pending != nil {
		st.Stocks = market.ApplyEvents(st.Stocks, st.Pending)
		st.Stocks = s.engine.ApplyFluctuation(st.Stocks)
	}
	s.bcast.Broadcast(st.RoomID, EventPriceUpdate, st.Stocks)
	s.persistHistory(st.RoomID, st.Round, st.Stocks)

	events, notices := s.engine.SelectRoundEvents(st.CompanyEvents, s.generalEvents, s.historicalEvents)
	st.Pending = events
	s.bcast.Broadcast(st.RoomID, EventNewsUpdate, notices)

	st.phase = phaseRoundActive
	roomID := st.RoomID
	st.timer = time.AfterFunc(st.RoundDuration, func() { s.advance(roomID) })
}

// persistHistory writes one row per stock without blocking the timer chain.
// Failures are logged and swallowed; the insert is a no-op on duplicate
// (room, round, stock) keys, so a retry or slow in-flight write from a prior
// round cannot double-count.
func (s *Scheduler) persistHistory(roomID string, round int, stocks []market.Stock) {
	rows := make([]market.Stock, len(stocks))
	copy(rows, stocks)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		for _, stock := range rows {
			if err := s.store.AppendHistory(ctx, roomID, round, stock.Name, stock.Price); err != nil {
				s.log.Error("history write failed", "room", roomID, "round", round, "stock", stock.Name, "err", err)
			}
		}
	}()
}
