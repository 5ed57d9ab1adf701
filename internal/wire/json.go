package wire

import (
	"bytes"

	"github.com/goccy/go-json"

	"mygame/server/player-service/internal/player"
)

type jsonCodec struct{}

type jsonSnapshot struct {
	Tick    int64            `json:"tick"`
	Players []map[string]any `json:"players"`
}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) MarshalState(p player.Payload) ([]byte, error) {
	return json.Marshal(map[string]any(p))
}

func (jsonCodec) UnmarshalState(data []byte) (player.Payload, error) {
	var m map[string]any
	if err := decodeJSON(data, &m); err != nil {
		return nil, malformed(err)
	}
	if m == nil {
		return nil, malformed(errNull)
	}
	return fromJSON(m), nil
}

func (jsonCodec) MarshalSnapshot(s Snapshot) ([]byte, error) {
	out := jsonSnapshot{Tick: s.Tick, Players: make([]map[string]any, len(s.Players))}
	for i, p := range s.Players {
		out.Players[i] = p
	}
	return json.Marshal(out)
}

func (jsonCodec) UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var in jsonSnapshot
	if err := decodeJSON(data, &in); err != nil {
		return Snapshot{}, malformed(err)
	}
	s := Snapshot{Tick: in.Tick, Players: make([]player.Payload, 0, len(in.Players))}
	for _, m := range in.Players {
		s.Players = append(s.Players, fromJSON(m))
	}
	return s, nil
}

// decodeJSON keeps numbers as json.Number so integer literals stay integers.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func fromJSON(m map[string]any) player.Payload {
	p := make(player.Payload, len(m))
	for k, v := range m {
		p[k] = jsonValue(v)
	}
	return p
}

func jsonValue(v any) any {
	switch n := v.(type) {
	case json.Number:
		// -0 is a float; as an integer it would lose its sign
		if n != "-0" {
			if i, err := n.Int64(); err == nil {
				return i
			}
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case []any:
		out := make([]any, len(n))
		for i := range n {
			out[i] = jsonValue(n[i])
		}
		return out
	case map[string]any:
		return map[string]any(fromJSON(n))
	}
	return v
}
