package strategy

import "fmt"

// Params is the flat numeric parameter bag a strategy is constructed from.
// Unknown keys are ignored; missing keys take the strategy's defaults.
type Params map[string]float64

func (p Params) get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Constructor builds a strategy from its parameter bag.
type Constructor func(Params) Strategy

// Registry returns the static table of known strategies. New strategies are
// added by extending this list; there is no dynamic lookup.
func Registry() map[string]Constructor {
	return map[string]Constructor{
		BreakoutID:            NewBreakout,
		MeanReversionID:       NewMeanReversion,
		VolatilityExpansionID: NewVolatilityExpansion,
	}
}

// Build constructs a registered strategy by identifier.
func Build(id string, params Params) (Strategy, error) {
	ctor, ok := Registry()[id]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", id)
	}
	return ctor(params), nil
}
