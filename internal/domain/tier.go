package domain

import (
	"encoding/json"
	"fmt"
)

// Tier is a state of the retrieval fallback chain.
type Tier int

const (
	TierVectorSearch Tier = iota
	TierTextFilter
	TierLocalFallback
	TierExhausted
)

var tierNames = map[Tier]string{
	TierVectorSearch:  "vector_search",
	TierTextFilter:    "text_filter",
	TierLocalFallback: "local_fallback",
	TierExhausted:     "exhausted",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Next returns the tier the engine escalates to when t yields nothing.
func (t Tier) Next() Tier {
	if t >= TierExhausted {
		return TierExhausted
	}
	return t + 1
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for tier, name := range tierNames {
		if name == s {
			*t = tier
			return nil
		}
	}
	return fmt.Errorf("unknown tier: %s", s)
}
