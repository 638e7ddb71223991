package light

import "github.com/chewxy/math32"

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	position [3]float32
	color    [3]float32
	radius   float32
	enabled  bool
}

// Light is a point light used by the forward lighting pass. It emits in all directions from
// its position and attenuates linearly to zero at its radius.
//
// Lights are owned by a scene and marshaled into the fragment uniform block each frame via the
// gpu_types helpers.
type Light interface {
	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position() [3]float32

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - [3]float32: color as (r, g, b)
	Color() [3]float32

	// Radius returns the distance at which the light contributes zero energy.
	//
	// Returns:
	//   - float32: the radius
	Radius() float32

	// Enabled returns whether this light is active for rendering.
	// Disabled lights marshal as black with zero radius.
	//
	// Returns:
	//   - bool: true if the light is enabled
	Enabled() bool

	// SetPosition sets the world-space position of the light.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)

	// Orbit places the light on a circle of the given radius around center in the XZ plane.
	//
	// Parameters:
	//   - center: the orbit center
	//   - distance: the orbit radius
	//   - angle: the orbit angle in radians
	Orbit(center [3]float32, distance, angle float32)

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - r, g, b: color components
	SetColor(r, g, b float32)

	// SetRadius sets the attenuation radius.
	//
	// Parameters:
	//   - radius: the radius value
	SetRadius(radius float32)

	// SetEnabled enables or disables the light for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// GPU returns the GPU layout for this light.
	//
	// Returns:
	//   - GPUPointLight: the marshalable light
	GPU() GPUPointLight
}

var _ Light = &lightImpl{}

// NewLight creates a new white point light at the origin with a radius of 10 and any provided
// options applied.
//
// Parameters:
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(opts ...LightBuilderOption) Light {
	l := &lightImpl{
		color:   [3]float32{1, 1, 1},
		radius:  10.0,
		enabled: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Position() [3]float32 {
	return l.position
}

func (l *lightImpl) Color() [3]float32 {
	return l.color
}

func (l *lightImpl) Radius() float32 {
	return l.radius
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.position = [3]float32{x, y, z}
}

func (l *lightImpl) Orbit(center [3]float32, distance, angle float32) {
	s, c := math32.Sincos(angle)
	l.position = [3]float32{center[0] + c*distance, center[1], center[2] + s*distance}
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.color = [3]float32{r, g, b}
}

func (l *lightImpl) SetRadius(radius float32) {
	l.radius = radius
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *lightImpl) GPU() GPUPointLight {
	if !l.enabled {
		return GPUPointLight{Location: l.position}
	}
	return GPUPointLight{
		Location: l.position,
		Color:    l.color,
		Radius:   l.radius,
	}
}
