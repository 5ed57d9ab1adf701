package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"mygame/server/player-service/internal/player"
)

// protoCodec writes the protobuf wire format of proto/player_state.proto
// directly with protowire. Every field is always emitted so that a missing
// field on decode means a missing key.
type protoCodec struct{}

type protoKind uint8

const (
	protoSint64 protoKind = iota
	protoString
	protoDouble
)

type protoField struct {
	num  protowire.Number
	key  string
	kind protoKind
}

// playerStateFields numbers the payload keys from 1 in canonical order.
var playerStateFields = protoFields(player.Keys)

func protoFields(keys []string) []protoField {
	fields := make([]protoField, len(keys))
	for i, key := range keys {
		kind := protoDouble
		switch key {
		case player.KeyUserID, player.KeyScore:
			kind = protoSint64
		case player.KeyUserName:
			kind = protoString
		}
		fields[i] = protoField{num: protowire.Number(i + 1), key: key, kind: kind}
	}
	return fields
}

const (
	snapshotTick    protowire.Number = 1
	snapshotPlayers protowire.Number = 2
)

func (protoCodec) Name() string { return "proto" }
func (protoCodec) Binary() bool { return true }

func (protoCodec) MarshalState(p player.Payload) ([]byte, error) {
	return appendPlayerState(nil, p)
}

func (protoCodec) UnmarshalState(data []byte) (player.Payload, error) {
	p, err := consumePlayerState(data)
	if err != nil {
		return nil, malformed(err)
	}
	return p, nil
}

func (protoCodec) MarshalSnapshot(s Snapshot) ([]byte, error) {
	b := protowire.AppendTag(nil, snapshotTick, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Tick))
	for _, p := range s.Players {
		msg, err := appendPlayerState(nil, p)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, snapshotPlayers, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	return b, nil
}

func (protoCodec) UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Snapshot{}, malformed(protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == snapshotTick && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return Snapshot{}, malformed(protowire.ParseError(m))
			}
			s.Tick = int64(v)
			n = m
		case num == snapshotPlayers && typ == protowire.BytesType:
			msg, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return Snapshot{}, malformed(protowire.ParseError(m))
			}
			p, err := consumePlayerState(msg)
			if err != nil {
				return Snapshot{}, malformed(err)
			}
			s.Players = append(s.Players, p)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return Snapshot{}, malformed(protowire.ParseError(n))
			}
		}
		data = data[n:]
	}
	return s, nil
}

func appendPlayerState(b []byte, p player.Payload) ([]byte, error) {
	for _, f := range playerStateFields {
		v, ok := p[f.key]
		if !ok {
			return nil, fmt.Errorf("wire: payload has no %q", f.key)
		}
		switch f.kind {
		case protoSint64:
			i, ok := v.(int64)
			if !ok {
				return nil, fmt.Errorf("wire: %q is %T, want int64", f.key, v)
			}
			b = protowire.AppendTag(b, f.num, protowire.VarintType)
			b = protowire.AppendVarint(b, protowire.EncodeZigZag(i))
		case protoString:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("wire: %q is %T, want string", f.key, v)
			}
			b = protowire.AppendTag(b, f.num, protowire.BytesType)
			b = protowire.AppendString(b, s)
		case protoDouble:
			d, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("wire: %q is %T, want float64", f.key, v)
			}
			b = protowire.AppendTag(b, f.num, protowire.Fixed64Type)
			b = protowire.AppendFixed64(b, math.Float64bits(d))
		}
	}
	return b, nil
}

// consumePlayerState decodes by wire type rather than by schema, so a field
// sent with the wrong type reaches player.Decode as a mistyped value.
func consumePlayerState(data []byte) (player.Payload, error) {
	byNum := make(map[protowire.Number]string, len(playerStateFields))
	for _, f := range playerStateFields {
		byNum[f.num] = f.key
	}

	p := make(player.Payload, len(playerStateFields))
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]

		key, known := byNum[num]
		if !known {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			continue
		}

		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			p[key] = protowire.DecodeZigZag(v)
			n = m
		case protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			p[key] = math.Float64frombits(v)
			n = m
		case protowire.BytesType:
			v, m := protowire.ConsumeString(data)
			if m < 0 {
				return nil, protowire.ParseError(m)
			}
			p[key] = v
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			p[key] = nil
		}
		data = data[n:]
	}
	return p, nil
}
