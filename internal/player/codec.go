package player

import (
	"fmt"
	"math"
)

// Payload keys.
const (
	KeyUserID   = "userID"
	KeyUserName = "userName"
	KeyScore    = "score"
	KeyXPos     = "xPos"
	KeyYPos     = "yPos"
	KeyXVel     = "xVel"
	KeyYVel     = "yVel"
	KeyRadius   = "radius"
)

// Keys lists every payload key in canonical order.
var Keys = []string{KeyUserID, KeyUserName, KeyScore, KeyXPos, KeyYPos, KeyXVel, KeyYVel, KeyRadius}

// Payload is the flat key-value form of a State. Integer fields are int64,
// float fields float64 and the name a plain string. The damping coefficient
// is not part of it.
type Payload map[string]any

// Encode projects s onto a fresh Payload.
func Encode(s *State) Payload {
	pos := s.Position()
	vel := s.Velocity()
	return Payload{
		KeyUserID:   s.UserID(),
		KeyUserName: s.PlayerName(),
		KeyScore:    s.Score(),
		KeyXPos:     pos.X,
		KeyYPos:     pos.Y,
		KeyXVel:     vel.X,
		KeyYVel:     vel.Y,
		KeyRadius:   s.Hitbox().Radius,
	}
}

// Decode builds a new State from p. The position is truncated to integer
// coordinates; velocity, score and user ID are copied as they are.
func Decode(p Payload, opts ...Option) (*State, error) {
	userID, err := p.intField(KeyUserID)
	if err != nil {
		return nil, err
	}
	name, err := p.stringField(KeyUserName)
	if err != nil {
		return nil, err
	}
	score, err := p.intField(KeyScore)
	if err != nil {
		return nil, err
	}
	x, err := p.coordField(KeyXPos)
	if err != nil {
		return nil, err
	}
	y, err := p.coordField(KeyYPos)
	if err != nil {
		return nil, err
	}
	xVel, err := p.floatField(KeyXVel)
	if err != nil {
		return nil, err
	}
	yVel, err := p.floatField(KeyYVel)
	if err != nil {
		return nil, err
	}
	radius, err := p.floatField(KeyRadius)
	if err != nil {
		return nil, err
	}

	s, err := New(x, y, radius, name, opts...)
	if err != nil {
		return nil, err
	}
	s.SetVelocity(Vec2{X: xVel, Y: yVel})
	s.SetScore(score)
	s.SetUserID(userID)
	return s, nil
}

func (p Payload) lookup(key string) (any, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedPayload, key)
	}
	return v, nil
}

func (p Payload) intField(key string) (int64, error) {
	v, err := p.lookup(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), nil
		}
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %q is %T, want integer", ErrMalformedPayload, key, v)
}

func (p Payload) floatField(key string) (float64, error) {
	v, err := p.lookup(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i, err := p.intField(key)
		if err != nil {
			return 0, err
		}
		return float64(i), nil
	}
	return 0, fmt.Errorf("%w: %q is %T, want number", ErrMalformedPayload, key, v)
}

// coordField reads a float position and truncates it toward zero.
func (p Payload) coordField(key string) (int, error) {
	f, err := p.floatField(key)
	if err != nil {
		return 0, err
	}
	t := math.Trunc(f)
	if math.IsNaN(t) || t < math.MinInt || t >= -float64(math.MinInt) {
		return 0, fmt.Errorf("%w: %q = %v has no integer coordinate", ErrMalformedPayload, key, f)
	}
	return int(t), nil
}

func (p Payload) stringField(key string) (string, error) {
	v, err := p.lookup(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, want string", ErrMalformedPayload, key, v)
	}
	return s, nil
}
