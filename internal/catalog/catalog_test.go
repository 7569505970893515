package catalog

import (
	"testing"

	"marketmania/internal/market"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Stocks) == 0 || len(c.Company) == 0 || len(c.General) == 0 || len(c.Historical) == 0 {
		t.Fatalf("empty pool: stocks=%d company=%d general=%d historical=%d",
			len(c.Stocks), len(c.Company), len(c.General), len(c.Historical))
	}
}

func TestLoadStocksAreWellFormed(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	seen := map[string]bool{}
	for _, s := range c.Stocks {
		if s.Name == "" {
			t.Fatal("stock with empty name")
		}
		if seen[s.Name] {
			t.Fatalf("duplicate stock %q", s.Name)
		}
		seen[s.Name] = true
		if s.Price < market.PriceFloor {
			t.Fatalf("%s listed below the price floor: %v", s.Name, s.Price)
		}
		if len(s.Sectors) == 0 {
			t.Fatalf("%s has no sectors", s.Name)
		}
		if s.Volatility < 0 {
			t.Fatalf("%s has negative volatility %v", s.Name, s.Volatility)
		}
	}
}

func TestLoadResolvesEventKinds(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, ev := range c.Company {
		if ev.Kind != market.KindCompany {
			t.Fatalf("company pool holds kind %v", ev.Kind)
		}
		if ev.Company == "" {
			t.Fatalf("company event %q has no target", ev.Text)
		}
	}
	for _, ev := range c.General {
		if ev.Kind != market.KindSector {
			t.Fatalf("general pool holds kind %v", ev.Kind)
		}
	}
	for _, ev := range c.Historical {
		if ev.Kind != market.KindShock {
			t.Fatalf("historical pool holds kind %v", ev.Kind)
		}
	}
}

// Every company event must name a listed stock, or it could never fire once a
// room's basket is drawn.
func TestLoadCompanyEventsTargetListedStocks(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	listed := map[string]bool{}
	for _, s := range c.Stocks {
		listed[s.Name] = true
	}
	for _, ev := range c.Company {
		if !listed[ev.Company] {
			t.Fatalf("company event targets unlisted stock %q", ev.Company)
		}
	}
}
