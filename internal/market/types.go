package market

import "fmt"

// DefaultVolatility is the per-round fluctuation amplitude used when a stock
// has no volatility of its own.
const DefaultVolatility = 0.02

// PriceFloor is the hard lower bound enforced after every price update.
const PriceFloor = 0.01

type Stock struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	PERatio     float64  `json:"pe"`
	Sectors     []string `json:"sectors"`
	TotalVolume int64    `json:"totalVolume"`
	Volatility  float64  `json:"volatility"`
}

type EventKind int

const (
	// KindCompany hits a single company by exact name.
	KindCompany EventKind = iota
	// KindSector hits stocks whose sector list intersects the impact map.
	KindSector
	// KindShock is a market-wide historical event drawn from a separate
	// low-probability pool. Its price mechanics are those of KindSector.
	KindShock
)

// Event is a resolved market-news event. The original catalogs dispatch on
// field presence (company vs sectorImpact); here the variant is fixed once at
// catalog-load time.
type Event struct {
	Kind         EventKind
	Company      string
	Text         string
	PriceChange  float64
	SectorImpact map[string]float64
	MovePercent  float64
}

// Notice renders the string shown in the news ticker.
func (e Event) Notice() string {
	switch e.Kind {
	case KindCompany:
		return fmt.Sprintf("[%s] %s", e.Company, e.Text)
	case KindShock:
		return fmt.Sprintf("[MARKET SHOCK] %s", e.Text)
	default:
		return fmt.Sprintf("[SECTOR NEWS] %s", e.Text)
	}
}
