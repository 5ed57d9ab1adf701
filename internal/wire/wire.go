// Package wire turns player payloads and room snapshots into bytes. The
// player package defines the logical field set; this package only chooses
// a framing for it.
package wire

import (
	"errors"
	"fmt"
	"math"

	"mygame/server/player-service/internal/player"
)

var (
	ErrUnknownFormat = errors.New("unknown wire format")

	errNull = errors.New("null payload")
)

// Snapshot is the per-tick broadcast of every player in a room.
type Snapshot struct {
	Tick    int64
	Players []player.Payload
}

type Codec interface {
	Name() string
	// Binary reports whether frames must travel as binary websocket messages.
	Binary() bool
	MarshalState(p player.Payload) ([]byte, error)
	UnmarshalState(data []byte) (player.Payload, error)
	MarshalSnapshot(s Snapshot) ([]byte, error)
	UnmarshalSnapshot(data []byte) (Snapshot, error)
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
	Proto   Codec = protoCodec{}
)

var codecs = map[string]Codec{
	JSON.Name():    JSON,
	Msgpack.Name(): Msgpack,
	Proto.Name():   Proto,
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Codec, error) {
	c, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return c, nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", player.ErrMalformedPayload, err)
}

// normalize folds decoder-specific value types into int64, float64, string,
// []any and map[string]any.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n)
		}
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
	case float32:
		return float64(n)
	case []byte:
		return string(n)
	case []any:
		out := make([]any, len(n))
		for i := range n {
			out[i] = normalize(n[i])
		}
		return out
	case map[string]any:
		return normalizeMap(n)
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, e := range n {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	}
	return v
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}
