package ports

import "github.com/ghalamif/AegisMaint/internal/domain"

// ReadingSource streams readings (simulator, scenario replay, OPC UA, etc.) into the control loop.
// A finite source closes out once it is exhausted.
type ReadingSource interface {
	Start(out chan<- domain.Reading) error
	Stop() error
}

// Classifier derives a health report from a reading.
type Classifier interface {
	Classify(r domain.Reading) domain.Health
}
