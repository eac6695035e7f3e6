package telemetry

import (
	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/ports"
)

// Classifier maps readings to per-channel health using static channel thresholds.
type Classifier struct {
	channels domain.ChannelSet
}

// NewClassifier validates the channel set and fails fast on malformed thresholds.
func NewClassifier(channels domain.ChannelSet) (*Classifier, error) {
	if err := channels.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{channels: channels}, nil
}

func (c *Classifier) Channels() domain.ChannelSet { return c.channels }

func (c *Classifier) Classify(r domain.Reading) domain.Health {
	var h domain.Health
	for _, ch := range domain.Channels() {
		cfg := c.channels[ch]
		v := r.Value(ch)
		h[ch] = domain.HealthStatus{
			Status: cfg.Classify(v),
			Value:  v,
			Unit:   cfg.Unit,
		}
	}
	return h
}

var _ ports.Classifier = (*Classifier)(nil)
