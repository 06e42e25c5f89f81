package metrics

// Nop is a recorder that discards every observation. It keeps callers
// free of nil checks when metrics are disabled.
type Nop struct{}

// NewNop creates a no-op recorder.
func NewNop() *Nop { return &Nop{} }

func (*Nop) RecordConnectionState(feed, state string) {}

func (*Nop) RecordReconnect(feed string) {}

func (*Nop) RecordFrame(kind string) {}

func (*Nop) RecordDroppedRecord(reason string) {}

func (*Nop) RecordCacheLookup(cache string, hit bool) {}

func (*Nop) RecordFetchLatency(kind string, seconds float64) {}
