package domain

import (
	"encoding/json"
	"time"
)

// Reading is one measurement per channel taken at a single instant.
type Reading struct {
	Timestamp time.Time
	Values    [ChannelCount]float64
}

// NewReading builds a Reading from per-channel values; absent channels read 0.
func NewReading(ts time.Time, values map[Channel]float64) Reading {
	r := Reading{Timestamp: ts}
	for ch, v := range values {
		if ch.Valid() {
			r.Values[ch] = v
		}
	}
	return r
}

func (r Reading) Value(ch Channel) float64 { return r.Values[ch] }

// With returns a copy of r with ch set to v.
func (r Reading) With(ch Channel, v float64) Reading {
	r.Values[ch] = v
	return r
}

// MarshalJSON encodes the reading as {"ts": ..., "<channel>": value, ...}.
func (r Reading) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, ChannelCount+1)
	m["ts"] = r.Timestamp
	for _, ch := range Channels() {
		m[ch.String()] = r.Values[ch]
	}
	return json.Marshal(m)
}

func (r *Reading) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out Reading
	for key, val := range raw {
		if key == "ts" {
			if err := json.Unmarshal(val, &out.Timestamp); err != nil {
				return err
			}
			continue
		}
		ch, err := ParseChannel(key)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(val, &out.Values[ch]); err != nil {
			return err
		}
	}
	*r = out
	return nil
}
