package domain

import (
	"errors"
	"fmt"
	"math"
)

// Channel identifies one monitored measurement dimension of an asset.
type Channel uint8

const (
	Temperature Channel = iota
	Vibration
	Pressure
)

// ChannelCount is the size of the closed channel enumeration.
const ChannelCount = int(Pressure) + 1

var channelNames = [ChannelCount]string{"temperature", "vibration", "pressure"}

// ErrUnknownChannel is returned when a channel name is not part of the enumeration.
var ErrUnknownChannel = errors.New("unknown channel")

// ErrConfiguration is the sentinel wrapped by every ConfigurationError.
var ErrConfiguration = errors.New("invalid channel configuration")

// Channels returns every channel in declaration order.
func Channels() []Channel {
	out := make([]Channel, ChannelCount)
	for i := range out {
		out[i] = Channel(i)
	}
	return out
}

func (c Channel) Valid() bool { return int(c) < ChannelCount }

func (c Channel) String() string {
	if !c.Valid() {
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
	return channelNames[c]
}

// ParseChannel maps a channel name back to the enumeration.
func ParseChannel(name string) (Channel, error) {
	for i, n := range channelNames {
		if n == name {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
}

func (c Channel) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChannel, uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Channel) UnmarshalText(b []byte) error {
	parsed, err := ParseChannel(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }
func (r Range) Mid() float64            { return (r.Min + r.Max) / 2 }
func (r Range) Width() float64          { return r.Max - r.Min }

// Clamp pins v into the range.
func (r Range) Clamp(v float64) float64 {
	return math.Min(math.Max(v, r.Min), r.Max)
}

// ChannelConfig is the static configuration of one channel.
type ChannelConfig struct {
	NormalRange Range   `yaml:"normal_range" json:"normal_range"`
	Critical    float64 `yaml:"critical" json:"critical"`
	Unit        string  `yaml:"unit" json:"unit"`
	StdDev      float64 `yaml:"std_dev,omitempty" json:"std_dev,omitempty"`
}

// Sigma is the noise standard deviation: StdDev when set, else 10% of the range width.
func (c ChannelConfig) Sigma() float64 {
	if c.StdDev > 0 {
		return c.StdDev
	}
	return c.NormalRange.Width() * 0.1
}

// Classify checks the critical threshold before the normal range, so a value
// that is both above critical and outside the range is CRITICAL.
func (c ChannelConfig) Classify(v float64) Status {
	switch {
	case v >= c.Critical:
		return StatusCritical
	case !c.NormalRange.Contains(v):
		return StatusWarning
	default:
		return StatusNormal
	}
}

// Validate reports a ConfigurationError for malformed settings.
func (c ChannelConfig) Validate(ch Channel) error {
	for _, v := range []float64{c.NormalRange.Min, c.NormalRange.Max, c.Critical, c.StdDev} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ConfigurationError{Channel: ch, Reason: "values must be finite"}
		}
	}
	if c.NormalRange.Min > c.NormalRange.Max {
		return &ConfigurationError{Channel: ch, Reason: fmt.Sprintf("normal_range min %g exceeds max %g", c.NormalRange.Min, c.NormalRange.Max)}
	}
	if c.Critical < c.NormalRange.Max {
		return &ConfigurationError{Channel: ch, Reason: fmt.Sprintf("critical %g must be >= normal_range max %g", c.Critical, c.NormalRange.Max)}
	}
	if c.StdDev < 0 {
		return &ConfigurationError{Channel: ch, Reason: fmt.Sprintf("std_dev %g must not be negative", c.StdDev)}
	}
	return nil
}

// ChannelSet holds the configuration of every channel, indexed by Channel.
type ChannelSet [ChannelCount]ChannelConfig

// DefaultChannels is the reference equipment profile.
func DefaultChannels() ChannelSet {
	var s ChannelSet
	s[Temperature] = ChannelConfig{NormalRange: Range{Min: 70, Max: 80}, Critical: 85, Unit: "°C"}
	s[Vibration] = ChannelConfig{NormalRange: Range{Min: 0.5, Max: 1.5}, Critical: 2.0, Unit: "mm", StdDev: 0.1}
	s[Pressure] = ChannelConfig{NormalRange: Range{Min: 95, Max: 105}, Critical: 110, Unit: "PSI"}
	return s
}

func (s ChannelSet) Get(ch Channel) ChannelConfig { return s[ch] }

func (s ChannelSet) Validate() error {
	var errs []error
	for _, ch := range Channels() {
		if err := s[ch].Validate(ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ConfigurationError describes a malformed ChannelConfig. It is unrecoverable
// and is surfaced when the owning component is constructed.
type ConfigurationError struct {
	Channel Channel
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: channel %s: %s", ErrConfiguration, e.Channel, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }
