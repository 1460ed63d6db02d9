package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is one typed key/value pair. Value is what the sink receives; apply
// writes the typed form to the zerolog event.
type Field struct {
	Key   string
	Value interface{}
	apply func(e *zerolog.Event)
}

func String(key, value string) Field {
	return Field{Key: key, Value: value, apply: func(e *zerolog.Event) { e.Str(key, value) }}
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ", "))
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value, apply: func(e *zerolog.Event) { e.Int(key, value) }}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value, apply: func(e *zerolog.Event) { e.Int64(key, value) }}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value, apply: func(e *zerolog.Event) { e.Float64(key, value) }}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value, apply: func(e *zerolog.Event) { e.Bool(key, value) }}
}

// Duration is logged in milliseconds.
func Duration(key string, value time.Duration) Field {
	return Int64(key, value.Milliseconds())
}

// Error logs err under "error". A nil err is omitted from zerolog output.
func Error(err error) Field {
	f := Field{Key: "error", apply: func(e *zerolog.Event) { e.Err(err) }}
	if err != nil {
		f.Value = err.Error()
	}
	return f
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value, apply: func(e *zerolog.Event) { e.Interface(key, value) }}
}
