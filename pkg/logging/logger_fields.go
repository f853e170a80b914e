package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Bus fabric field helpers

func Component(name string) Field {
	return String("component", name)
}

// NodeName identifies a topology node.
func NodeName(name string) Field {
	return String("node", name)
}

func Device(name string) Field {
	return String("device", name)
}

// ClientID identifies a gateway TCP connection.
func ClientID(id uint16) Field {
	return Field{Key: "client_id", Value: id}
}

func Topic(topic string) Field {
	return String("topic", topic)
}

func Tick(n uint64) Field {
	return Uint64("tick", n)
}

func Bytes(n int) Field {
	return Int("bytes", n)
}

func Addr(addr string) Field {
	return String("addr", addr)
}

func RunID(id string) Field {
	return String("run_id", id)
}
