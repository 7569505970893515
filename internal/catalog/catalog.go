package catalog

import (
	"embed"
	"encoding/json"
	"fmt"

	"marketmania/internal/market"
)

//go:embed data/*.json
var dataFS embed.FS

// Catalog holds the static pools loaded once at process start: the global
// stock universe rooms draw their baskets from, plus the three event pools
// the selector samples each round.
type Catalog struct {
	Stocks     []market.Stock
	Company    []market.Event
	General    []market.Event
	Historical []market.Event
}

type companyEventJSON struct {
	Company string `json:"company"`
	Event   string `json:"event"`
	Impact  struct {
		PriceChange float64 `json:"priceChange"`
	} `json:"impact"`
}

type sectorEventJSON struct {
	Event        string             `json:"event"`
	SectorImpact map[string]float64 `json:"sectorImpact"`
	MovePercent  float64            `json:"movePercent"`
}

// Load parses the embedded catalogs and resolves each raw record to its
// event variant. Variant dispatch happens here, once, instead of per price
// application.
func Load() (*Catalog, error) {
	var c Catalog

	var stocks []market.Stock
	if err := readJSON("data/stocks.json", &stocks); err != nil {
		return nil, err
	}
	c.Stocks = stocks

	var company []companyEventJSON
	if err := readJSON("data/company_events.json", &company); err != nil {
		return nil, err
	}
	for _, raw := range company {
		c.Company = append(c.Company, market.Event{
			Kind:        market.KindCompany,
			Company:     raw.Company,
			Text:        raw.Event,
			PriceChange: raw.Impact.PriceChange,
		})
	}

	var general []sectorEventJSON
	if err := readJSON("data/general_events.json", &general); err != nil {
		return nil, err
	}
	for _, raw := range general {
		c.General = append(c.General, market.Event{
			Kind:         market.KindSector,
			Text:         raw.Event,
			SectorImpact: raw.SectorImpact,
			MovePercent:  raw.MovePercent,
		})
	}

	var historical []sectorEventJSON
	if err := readJSON("data/historical_events.json", &historical); err != nil {
		return nil, err
	}
	for _, raw := range historical {
		c.Historical = append(c.Historical, market.Event{
			Kind:         market.KindShock,
			Text:         raw.Event,
			SectorImpact: raw.SectorImpact,
			MovePercent:  raw.MovePercent,
		})
	}

	if len(c.Stocks) == 0 || len(c.General) == 0 || len(c.Historical) == 0 {
		return nil, fmt.Errorf("catalog: embedded pools must not be empty")
	}
	return &c, nil
}

func readJSON(path string, v any) error {
	raw, err := dataFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("catalog read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("catalog parse %s: %w", path, err)
	}
	return nil
}
