package dnd

// PointerSensor turns raw press/move/release pointer input into drag
// activation. A press arms the sensor; the drag activates once the pointer
// travels at least the activation distance from the press origin.
type PointerSensor struct {
	distance float64
	armed    bool
	active   bool
	cardID   string
	origin   Point
}

// NewPointerSensor constructs a sensor with the given activation distance.
func NewPointerSensor(distance float64) *PointerSensor {
	if distance < 0 {
		distance = 0
	}
	return &PointerSensor{distance: distance}
}

// Press arms the sensor for cardID at p.
func (s *PointerSensor) Press(cardID string, p Point) {
	*s = PointerSensor{distance: s.distance, armed: true, cardID: cardID, origin: p}
}

// Move reports whether this movement activated the drag. It returns true
// exactly once per press.
func (s *PointerSensor) Move(p Point) bool {
	if !s.armed || s.active {
		return false
	}
	if p.Distance(s.origin) < s.distance {
		return false
	}
	s.active = true
	return true
}

// Release disarms the sensor and reports whether a drag had been activated.
func (s *PointerSensor) Release() bool {
	wasActive := s.active
	s.Reset()
	return wasActive
}

// Reset disarms the sensor without reporting.
func (s *PointerSensor) Reset() {
	*s = PointerSensor{distance: s.distance}
}

// Armed reports whether a press is pending.
func (s *PointerSensor) Armed() bool { return s.armed }

// Active reports whether the current press turned into a drag.
func (s *PointerSensor) Active() bool { return s.active }

// CardID returns the card pressed by the pending press.
func (s *PointerSensor) CardID() string { return s.cardID }

// Origin returns the press position.
func (s *PointerSensor) Origin() Point { return s.origin }

// Delta returns the offset of p from the press origin.
func (s *PointerSensor) Delta(p Point) (float64, float64) {
	return p.X - s.origin.X, p.Y - s.origin.Y
}
