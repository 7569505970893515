package market

import (
	mathrand "math/rand"
	"testing"
)

func TestApplyEventsCompanyMatch(t *testing.T) {
	stocks := []Stock{
		{Name: "X", Price: 100},
		{Name: "Y", Price: 50},
	}
	events := []Event{{Kind: KindCompany, Company: "X", PriceChange: 10}}

	got := ApplyEvents(stocks, events)
	if got[0].Price != 110 {
		t.Fatalf("X price = %v, want 110", got[0].Price)
	}
	if got[1].Price != 50 {
		t.Fatalf("Y price = %v, want unchanged 50", got[1].Price)
	}
	if stocks[0].Price != 100 {
		t.Fatalf("input slice mutated: %v", stocks[0].Price)
	}
}

func TestApplyEventsBatchIsCumulative(t *testing.T) {
	stocks := []Stock{{Name: "X", Price: 100}}
	events := []Event{
		{Kind: KindCompany, Company: "X", PriceChange: 10},
		{Kind: KindCompany, Company: "X", PriceChange: -10},
	}
	got := ApplyEvents(stocks, events)
	// 100 * 1.1 * 0.9 = 99, not 100.
	if got[0].Price < 98.99 || got[0].Price > 99.01 {
		t.Fatalf("price = %v, want 99 (compounded)", got[0].Price)
	}
}

func TestApplyEventsSectorFirstMatchWins(t *testing.T) {
	event := Event{
		Kind:         KindSector,
		SectorImpact: map[string]float64{"Finance": -5},
		MovePercent:  2,
	}

	orders := [][]string{
		{"Tech", "Finance"},
		{"Finance", "Tech"},
	}
	for _, sectors := range orders {
		stocks := []Stock{{Name: "A", Price: 100, Sectors: sectors}}
		got := ApplyEvents(stocks, []Event{event})
		if got[0].Price != 95 {
			t.Fatalf("sectors %v: price = %v, want 95 (sector impact, not default)", sectors, got[0].Price)
		}
	}
}

func TestApplyEventsSectorScanStopsAtFirstHit(t *testing.T) {
	event := Event{
		Kind:         KindSector,
		SectorImpact: map[string]float64{"Tech": 4, "Finance": -5},
	}
	stocks := []Stock{{Name: "A", Price: 100, Sectors: []string{"Tech", "Finance"}}}
	got := ApplyEvents(stocks, []Event{event})
	if got[0].Price != 104 {
		t.Fatalf("price = %v, want 104 (Tech hit first, Finance ignored)", got[0].Price)
	}
}

func TestApplyEventsSectorDefaultFallback(t *testing.T) {
	event := Event{
		Kind:         KindSector,
		SectorImpact: map[string]float64{"Finance": -5},
		MovePercent:  2,
	}
	stocks := []Stock{{Name: "A", Price: 100, Sectors: []string{"Energy"}}}
	got := ApplyEvents(stocks, []Event{event})
	if got[0].Price != 102 {
		t.Fatalf("price = %v, want 102 (default applied)", got[0].Price)
	}
}

func TestApplyEventsNoDefaultNoMatch(t *testing.T) {
	event := Event{
		Kind:         KindSector,
		SectorImpact: map[string]float64{"Finance": -5},
	}
	stocks := []Stock{{Name: "A", Price: 100, Sectors: []string{"Energy"}}}
	got := ApplyEvents(stocks, []Event{event})
	if got[0].Price != 100 {
		t.Fatalf("price = %v, want unchanged 100", got[0].Price)
	}
}

func TestApplyEventsPriceFloor(t *testing.T) {
	stocks := []Stock{{Name: "X", Price: 0.02}}
	events := []Event{{Kind: KindCompany, Company: "X", PriceChange: -99}}
	got := ApplyEvents(stocks, events)
	if got[0].Price != PriceFloor {
		t.Fatalf("price = %v, want floor %v", got[0].Price, PriceFloor)
	}
}

func TestApplyFluctuationBounds(t *testing.T) {
	engine := NewEngineWithSource(mathrand.NewSource(42))
	stocks := []Stock{
		{Name: "A", Price: 100, Volatility: 0.1},
		{Name: "B", Price: 100}, // zero volatility uses the default
	}
	for i := 0; i < 200; i++ {
		got := engine.ApplyFluctuation(stocks)
		if d := got[0].Price - 100; d < -5.001 || d > 5.001 {
			t.Fatalf("A moved %v, beyond volatility 0.1 half-band", d)
		}
		if d := got[1].Price - 100; d < -1.001 || d > 1.001 {
			t.Fatalf("B moved %v, beyond default volatility half-band", d)
		}
	}
}

func TestApplyFluctuationFloor(t *testing.T) {
	engine := NewEngineWithSource(mathrand.NewSource(7))
	stocks := []Stock{{Name: "A", Price: 0.01, Volatility: 1.9}}
	for i := 0; i < 500; i++ {
		stocks = engine.ApplyFluctuation(stocks)
		if stocks[0].Price < PriceFloor {
			t.Fatalf("price %v fell below floor", stocks[0].Price)
		}
	}
}

func TestNotice(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Kind: KindCompany, Company: "Infosys", Text: "wins a deal"}, "[Infosys] wins a deal"},
		{Event{Kind: KindSector, Text: "rates cut"}, "[SECTOR NEWS] rates cut"},
		{Event{Kind: KindShock, Text: "crash"}, "[MARKET SHOCK] crash"},
	}
	for _, tc := range tests {
		if got := tc.ev.Notice(); got != tc.want {
			t.Fatalf("notice = %q, want %q", got, tc.want)
		}
	}
}
