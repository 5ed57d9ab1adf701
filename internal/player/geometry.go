package player

import "math"

// Vec2 is a 2D vector. It is a value type; copies never alias.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Circle is a circular hitbox.
type Circle struct {
	CenterX, CenterY float64
	Radius           float64
}

func (c Circle) Center() Vec2 {
	return Vec2{X: c.CenterX, Y: c.CenterY}
}
