package delayhandler

import (
	"github.com/uber-go/tally"
)

// Metrics contains counters to track delay map metrics
type Metrics struct {
	// the metrics scope for the delay map
	scope tally.Scope
	// counter to track accepted inserts
	inserts tally.Counter
	// counter to track inserts rejected because the value was already pending
	duplicates tally.Counter
	// counter to track entries cancelled before expiry
	removes tally.Counter
	// counter to track entries yielded after expiry
	expired tally.Counter
	// counter to track values not found in the index after dequeue
	missingValues tally.Counter
	// gauge to track the number of pending values
	pending tally.Gauge
}

// NewMetrics returns a new Metrics struct.
func NewMetrics(scope tally.Scope) *Metrics {
	return &Metrics{
		scope:         scope,
		inserts:       scope.Counter("inserts"),
		duplicates:    scope.Counter("duplicates"),
		removes:       scope.Counter("removes"),
		expired:       scope.Counter("expired"),
		missingValues: scope.Counter("missing_values"),
		pending:       scope.Gauge("pending"),
	}
}
