package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"testing"
	"time"

	"marketmania/internal/market"
)

type fakeStore struct {
	mu       sync.Mutex
	settings RoomSettings
	stocks   []market.Stock
	statuses []string
	history  map[string]float64
	failLoad bool
}

func newFakeStore(rounds int, roundDur time.Duration, stocks []market.Stock) *fakeStore {
	return &fakeStore{
		settings: RoomSettings{RoundDuration: roundDur, NumRounds: rounds},
		stocks:   stocks,
		history:  make(map[string]float64),
	}
}

func (f *fakeStore) RoomSettings(ctx context.Context, roomID string) (RoomSettings, error) {
	if f.failLoad {
		return RoomSettings{}, errors.New("room not found")
	}
	return f.settings, nil
}

func (f *fakeStore) StockSnapshot(ctx context.Context, roomID string) ([]market.Stock, error) {
	if f.failLoad {
		return nil, errors.New("room not found")
	}
	out := make([]market.Stock, len(f.stocks))
	copy(out, f.stocks)
	return out, nil
}

func (f *fakeStore) SetGameStatus(ctx context.Context, roomID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) AppendHistory(ctx context.Context, roomID string, round int, stockName string, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s|%d|%s", roomID, round, stockName)
	if _, ok := f.history[key]; ok {
		return nil // duplicate key is a silent no-op
	}
	f.history[key] = price
	return nil
}

func (f *fakeStore) historyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history)
}

func (f *fakeStore) lastStatus() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return ""
	}
	return f.statuses[len(f.statuses)-1]
}

type recorded struct {
	room    string
	event   string
	payload any
}

type recordBroadcaster struct {
	mu     sync.Mutex
	frames []recorded
	done   chan struct{}
}

func newRecordBroadcaster() *recordBroadcaster {
	return &recordBroadcaster{done: make(chan struct{})}
}

func (b *recordBroadcaster) Broadcast(roomID, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, recorded{room: roomID, event: event, payload: payload})
	if event == EventGameOver {
		select {
		case <-b.done:
		default:
			close(b.done)
		}
	}
}

func (b *recordBroadcaster) events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.frames))
	for i, f := range b.frames {
		out[i] = f.event
	}
	return out
}

func (b *recordBroadcaster) payloads(event string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, f := range b.frames {
		if f.event == event {
			out = append(out, f.payload)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStocks() []market.Stock {
	return []market.Stock{
		{Name: "HDFC Bank", Price: 1600, Sectors: []string{"Banking"}, Volatility: 0.02},
		{Name: "Infosys", Price: 1500, Sectors: []string{"IT"}, Volatility: 0.02},
		{Name: "Tata Steel", Price: 160, Sectors: []string{"Metals"}, Volatility: 0.03},
	}
}

func testPools() (company, general, historical []market.Event) {
	company = []market.Event{
		{Kind: market.KindCompany, Company: "Infosys", Text: "beats estimates", PriceChange: 5},
	}
	general = []market.Event{
		{Kind: market.KindSector, Text: "rates cut", SectorImpact: map[string]float64{"Banking": 3}, MovePercent: 1},
	}
	historical = []market.Event{
		{Kind: market.KindShock, Text: "crash", SectorImpact: map[string]float64{}, MovePercent: -5},
	}
	return
}

func newTestScheduler(store Store, bcast Broadcaster) (*Scheduler, *Registry) {
	reg := NewRegistry()
	engine := market.NewEngineWithSource(mathrand.NewSource(11))
	company, general, historical := testPools()
	sched := NewScheduler(Config{
		PreviewDuration: 10 * time.Millisecond,
		PreviewSeconds:  10,
		BreakDuration:   15 * time.Millisecond,
	}, reg, store, bcast, engine, company, general, historical, testLogger())
	return sched, reg
}

func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestSchedulerFullGameSequence(t *testing.T) {
	store := newFakeStore(2, 25*time.Millisecond, testStocks())
	bcast := newRecordBroadcaster()
	sched, reg := newTestScheduler(store, bcast)

	if err := sched.Start(context.Background(), "room-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-bcast.done:
	case <-time.After(3 * time.Second):
		t.Fatal("game never finished")
	}

	want := []string{
		EventGameStarted,
		EventMarketPreview,
		EventNewRound,
		EventPriceUpdate,
		EventNewsUpdate,
		EventRoundEnded,
		EventNewRound,
		EventPriceUpdate,
		EventNewsUpdate,
		EventRoundEnded,
		EventGameOver,
	}
	got := bcast.events()
	if len(got) != len(want) {
		t.Fatalf("event sequence %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}

	rounds := bcast.payloads(EventNewRound)
	for i, p := range rounds {
		if p.(int) != i+1 {
			t.Fatalf("new-round payloads %v, want strictly increasing from 1", rounds)
		}
	}

	notices := bcast.payloads(EventNewsUpdate)
	for _, p := range notices {
		if n := len(p.([]string)); n != market.RoundEventCount {
			t.Fatalf("news batch size %d, want %d", n, market.RoundEventCount)
		}
	}

	waitFor(t, time.Second, func() bool { return reg.Len() == 0 }, "registry teardown")
	waitFor(t, time.Second, func() bool { return store.lastStatus() == StatusFinished }, "finished status")
	waitFor(t, time.Second, func() bool { return store.historyCount() == 6 }, "6 history rows")
}

func TestSchedulerFirstRoundHoldsPrices(t *testing.T) {
	store := newFakeStore(2, 25*time.Millisecond, testStocks())
	bcast := newRecordBroadcaster()
	sched, _ := newTestScheduler(store, bcast)

	if err := sched.Start(context.Background(), "room-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-bcast.done:
	case <-time.After(3 * time.Second):
		t.Fatal("game never finished")
	}

	updates := bcast.payloads(EventPriceUpdate)
	if len(updates) != 2 {
		t.Fatalf("got %d price updates, want 2", len(updates))
	}
	first := updates[0].([]market.Stock)
	for i, s := range testStocks() {
		if first[i].Price != s.Price {
			t.Fatalf("round 1 moved %s from %v to %v; no batch was pending yet", s.Name, s.Price, first[i].Price)
		}
	}
	second := updates[1].([]market.Stock)
	for _, s := range second {
		if s.Price < market.PriceFloor {
			t.Fatalf("%s below floor: %v", s.Name, s.Price)
		}
	}
}

func TestSchedulerDuplicateStartIsNoOp(t *testing.T) {
	store := newFakeStore(1, 30*time.Millisecond, testStocks())
	bcast := newRecordBroadcaster()
	sched, reg := newTestScheduler(store, bcast)

	if err := sched.Start(context.Background(), "room-1"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := sched.Start(context.Background(), "room-1"); err != nil {
		t.Fatalf("duplicate start should be a no-op, got %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("registry holds %d states, want 1", reg.Len())
	}

	select {
	case <-bcast.done:
	case <-time.After(3 * time.Second):
		t.Fatal("game never finished")
	}

	var started int
	for _, e := range bcast.events() {
		if e == EventGameStarted {
			started++
		}
	}
	if started != 1 {
		t.Fatalf("game-started broadcast %d times, want 1", started)
	}
}

func TestSchedulerStartFailureBroadcastsAndAborts(t *testing.T) {
	store := newFakeStore(2, 25*time.Millisecond, testStocks())
	store.failLoad = true
	bcast := newRecordBroadcaster()
	sched, reg := newTestScheduler(store, bcast)

	if err := sched.Start(context.Background(), "room-x"); err == nil {
		t.Fatal("expected start to fail")
	}
	got := bcast.events()
	want := []string{EventGameStarted, EventStartFailed}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events %v, want %v", got, want)
	}
	if reg.Len() != 0 {
		t.Fatalf("failed start left state in the registry")
	}
}

func TestSchedulerRoomsRunIndependently(t *testing.T) {
	store := newFakeStore(1, 20*time.Millisecond, testStocks())
	bcastA := newRecordBroadcaster()
	sched, reg := newTestScheduler(store, bcastA)

	if err := sched.Start(context.Background(), "room-a"); err != nil {
		t.Fatalf("start a: %v", err)
	}
	if err := sched.Start(context.Background(), "room-b"); err != nil {
		t.Fatalf("start b: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("registry holds %d rooms, want 2", reg.Len())
	}

	waitFor(t, 3*time.Second, func() bool { return reg.Len() == 0 }, "both rooms to finish")

	perRoom := map[string]int{}
	bcastA.mu.Lock()
	for _, f := range bcastA.frames {
		if f.event == EventGameOver {
			perRoom[f.room]++
		}
	}
	bcastA.mu.Unlock()
	if perRoom["room-a"] != 1 || perRoom["room-b"] != 1 {
		t.Fatalf("game-over per room = %v, want one each", perRoom)
	}
}
