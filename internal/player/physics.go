package player

// Advance runs one simulation tick: the position moves by the current
// velocity, then the velocity decays by the damping coefficient. Peers that
// start from equal states and advance the same number of ticks end up with
// bit-identical positions and velocities.
func Advance(s *State) {
	if s == nil {
		return
	}
	pos := s.hitbox.Center().Add(s.velocity)
	s.hitbox.CenterX = pos.X
	s.hitbox.CenterY = pos.Y
	s.velocity = s.velocity.Scale(s.damping)
}

// advanceN runs n ticks.
func advanceN(s *State, n int) {
	for i := 0; i < n; i++ {
		Advance(s)
	}
}
