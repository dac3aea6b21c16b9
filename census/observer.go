package census

import (
	"log/slog"
)

// Observer is told about payload keys an entity type did not consume. It is
// a schema drift signal and never blocks construction.
type Observer interface {
	UnexpectedKeys(typeName string, id int, keys []string)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(typeName string, id int, keys []string)

func (f ObserverFunc) UnexpectedKeys(typeName string, id int, keys []string) {
	f(typeName, id, keys)
}

// LogObserver reports drift as a warning on logger.
func LogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return ObserverFunc(func(typeName string, id int, keys []string) {
		logger.Warn("unexpected keys in payload, the object model may be out of date",
			"type", typeName,
			"id", id,
			"keys", keys,
		)
	})
}
