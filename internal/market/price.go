package market

import (
	mathrand "math/rand"
	"sync"
	"time"
)

// Engine owns the randomness for fluctuation and event selection. Price
// arithmetic itself is deterministic and lives in package-level functions.
type Engine struct {
	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewEngine() *Engine {
	return &Engine{rand: mathrand.New(mathrand.NewSource(time.Now().UnixNano()))}
}

// NewEngineWithSource pins the random stream, for tests.
func NewEngineWithSource(src mathrand.Source) *Engine {
	return &Engine{rand: mathrand.New(src)}
}

func (e *Engine) nextFloat() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rand.Float64()
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rand.Intn(n)
}

// ApplyEvents runs one batch of events over the stock list. Events apply in
// batch order against the working list, so effects compound across the batch.
// Every resulting price is clamped to the floor.
func ApplyEvents(stocks []Stock, events []Event) []Stock {
	out := make([]Stock, len(stocks))
	copy(out, stocks)
	for _, ev := range events {
		switch ev.Kind {
		case KindCompany:
			for i := range out {
				if out[i].Name == ev.Company {
					out[i].Price = clampFloor(out[i].Price * (1 + ev.PriceChange/100))
				}
			}
		case KindSector, KindShock:
			for i := range out {
				pct := ev.MovePercent
				sectorHit := false
				// First sector in the stock's own order that the event
				// names wins; later matches are ignored.
				for _, sector := range out[i].Sectors {
					if v, ok := ev.SectorImpact[sector]; ok && v != 0 {
						pct = v
						sectorHit = true
						break
					}
				}
				if sectorHit || pct != 0 {
					out[i].Price = clampFloor(out[i].Price * (1 + pct/100))
				}
			}
		}
	}
	return out
}

// ApplyFluctuation moves every stock by an independent uniform wobble scaled
// by its volatility. Runs after the scripted events of a round.
func (e *Engine) ApplyFluctuation(stocks []Stock) []Stock {
	out := make([]Stock, len(stocks))
	copy(out, stocks)
	for i := range out {
		vol := out[i].Volatility
		if vol == 0 {
			vol = DefaultVolatility
		}
		wobble := (e.nextFloat() - 0.5) * vol
		out[i].Price = clampFloor(out[i].Price * (1 + wobble))
	}
	return out
}

func clampFloor(p float64) float64 {
	if p < PriceFloor {
		return PriceFloor
	}
	return p
}
