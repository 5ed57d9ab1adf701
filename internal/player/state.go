// Package player holds the authoritative per-tick state of a single player,
// the integration step that advances it, and its key-value wire payload.
package player

import (
	"errors"
	"fmt"
	"math"
)

const (
	// UnassignedID marks a state that no session has claimed yet.
	UnassignedID int64 = -1

	DefaultName    = "undefined"
	DefaultDamping = 0.9973
)

var (
	ErrInvalidGeometry  = errors.New("invalid geometry")
	ErrInvalidDamping   = errors.New("invalid damping coefficient")
	ErrMalformedPayload = errors.New("malformed payload")
)

// State is owned by exactly one session and is not safe for concurrent use.
type State struct {
	userID   int64
	name     string
	hitbox   Circle
	velocity Vec2
	damping  float64
	score    int64
}

type Option func(*State)

// WithDamping overrides DefaultDamping. The coefficient must lie in (0, 1].
func WithDamping(c float64) Option {
	return func(s *State) {
		s.damping = c
	}
}

// New creates a state centered at (x, y) with zero velocity.
func New(x, y int, radius float64, name string, opts ...Option) (*State, error) {
	if !(radius > 0) || math.IsInf(radius, 1) {
		return nil, fmt.Errorf("%w: radius %v", ErrInvalidGeometry, radius)
	}
	s := &State{
		userID:  UnassignedID,
		hitbox:  Circle{CenterX: float64(x), CenterY: float64(y), Radius: radius},
		damping: DefaultDamping,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !(s.damping > 0 && s.damping <= 1) {
		return nil, fmt.Errorf("%w: %v not in (0, 1]", ErrInvalidDamping, s.damping)
	}
	s.SetPlayerName(name)
	return s, nil
}

func (s *State) UserID() int64 { return s.userID }

func (s *State) SetUserID(id int64) { s.userID = id }

// HasUserID reports whether a session has assigned an identity.
func (s *State) HasUserID() bool { return s.userID != UnassignedID }

func (s *State) PlayerName() string { return s.name }

// SetPlayerName replaces the name; an empty name resets it to DefaultName.
func (s *State) SetPlayerName(name string) {
	if name == "" {
		name = DefaultName
	}
	s.name = name
}

func (s *State) Hitbox() Circle { return s.hitbox }

func (s *State) Position() Vec2 { return s.hitbox.Center() }

func (s *State) Velocity() Vec2 { return s.velocity }

func (s *State) SetVelocity(v Vec2) { s.velocity = v }

func (s *State) Score() int64 { return s.score }

func (s *State) SetScore(score int64) { s.score = score }
