package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Component tags the pipeline stage emitting the event.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Source adds an evidence source name.
func Source(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("source", name)
	}
}

// State adds a verdict engine state.
func State(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("state", s)
	}
}

// Label adds a verdict label.
func Label(l string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("label", l)
	}
}

// Provider adds a backend provider name.
func Provider(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("provider", name)
	}
}

// Attempt adds a backend attempt number.
func Attempt(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("attempt", n)
	}
}

// Count adds a named integer.
func Count(key string, n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, n)
	}
}

// Str adds an arbitrary string field.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Err adds an error field.
func Err(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Err(err)
	}
}
