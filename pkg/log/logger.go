package log

// Logger receives protocol trace events from the coordinator and the
// nodes. Log is called from radio event loops, so implementations must be
// safe for concurrent use and return quickly.
type Logger interface {
	Log(event Event)
}

// Discard drops every event.
var Discard Logger = discard{}

type discard struct{}

func (discard) Log(Event) {}

// Tee returns a Logger that hands each event to every non-nil logger in
// order, for example a trace file and the console.
func Tee(loggers ...Logger) Logger {
	var t tee
	for _, l := range loggers {
		if l != nil {
			t = append(t, l)
		}
	}
	switch len(t) {
	case 0:
		return Discard
	case 1:
		return t[0]
	}
	return t
}

type tee []Logger

func (t tee) Log(event Event) {
	for _, l := range t {
		l.Log(event)
	}
}
