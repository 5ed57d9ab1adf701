package wire

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"

	"mygame/server/player-service/internal/player"
)

type msgpackCodec struct{}

type msgpackSnapshot struct {
	Tick    int64            `msgpack:"tick"`
	Players []map[string]any `msgpack:"players"`
}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) MarshalState(p player.Payload) ([]byte, error) {
	return marshalMsgpack(map[string]any(p))
}

func (msgpackCodec) UnmarshalState(data []byte) (player.Payload, error) {
	var m map[string]any
	if err := unmarshalMsgpack(data, &m); err != nil {
		return nil, malformed(err)
	}
	if m == nil {
		return nil, malformed(errNull)
	}
	return player.Payload(normalizeMap(m)), nil
}

func (msgpackCodec) MarshalSnapshot(s Snapshot) ([]byte, error) {
	out := msgpackSnapshot{Tick: s.Tick, Players: make([]map[string]any, len(s.Players))}
	for i, p := range s.Players {
		out.Players[i] = p
	}
	return marshalMsgpack(&out)
}

func (msgpackCodec) UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var in msgpackSnapshot
	if err := unmarshalMsgpack(data, &in); err != nil {
		return Snapshot{}, malformed(err)
	}
	s := Snapshot{Tick: in.Tick, Players: make([]player.Payload, 0, len(in.Players))}
	for _, m := range in.Players {
		s.Players = append(s.Players, player.Payload(normalizeMap(m)))
	}
	return s, nil
}

// Keys are sorted so equal payloads always produce equal frames.
func marshalMsgpack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalMsgpack(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}
