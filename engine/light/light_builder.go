package light

// LightBuilderOption configures a point light during NewLight.
type LightBuilderOption func(*lightImpl)

// WithPosition places the light in world space.
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetPosition(x, y, z)
	}
}

// WithOrbit places the light on a horizontal circle around center, as Orbit does each frame.
//
// Parameters:
//   - center: orbit center; its Y is the light height
//   - distance: orbit radius
//   - angle: position on the circle in radians
//
// Returns:
//   - LightBuilderOption: option function to apply
func WithOrbit(center [3]float32, distance, angle float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.Orbit(center, distance, angle)
	}
}

// WithColor sets the linear RGB color. Components above 1 brighten the light.
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetColor(r, g, b)
	}
}

// WithRadius sets the distance at which attenuation reaches zero.
func WithRadius(radius float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetRadius(radius)
	}
}

// WithEnabled starts the light on or off. A disabled light uploads zero color and radius.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetEnabled(enabled)
	}
}
