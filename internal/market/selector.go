package market

// RoundEventCount is the fixed batch size selected for every round.
const RoundEventCount = 5

// SelectRoundEvents draws the next round's news batch. Each of the five draws
// rolls independently: below 0.6 a room-specific company event (when the room
// has any), below 0.95 a general sector event, otherwise a historical shock.
// An empty company pool makes its band fall through to the sector branch
// rather than renormalizing the distribution.
func (e *Engine) SelectRoundEvents(companyEvents, generalEvents, historicalEvents []Event) ([]Event, []string) {
	events := make([]Event, 0, RoundEventCount)
	notices := make([]string, 0, RoundEventCount)
	for i := 0; i < RoundEventCount; i++ {
		roll := e.nextFloat()
		var ev Event
		switch {
		case roll < 0.6 && len(companyEvents) > 0:
			ev = companyEvents[e.intn(len(companyEvents))]
		case roll < 0.95:
			ev = generalEvents[e.intn(len(generalEvents))]
		default:
			ev = historicalEvents[e.intn(len(historicalEvents))]
		}
		events = append(events, ev)
		notices = append(notices, ev.Notice())
	}
	return events, notices
}

// FilterCompanyEvents keeps only events whose target company trades in the
// room. Called once at game start against the room's stock basket.
func FilterCompanyEvents(catalog []Event, stocks []Stock) []Event {
	present := make(map[string]bool, len(stocks))
	for _, s := range stocks {
		present[s.Name] = true
	}
	var out []Event
	for _, ev := range catalog {
		if ev.Kind == KindCompany && present[ev.Company] {
			out = append(out, ev)
		}
	}
	return out
}
