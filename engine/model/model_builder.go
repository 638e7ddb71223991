package model

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithTexture is an option builder that sets the texture sampled by the Model.
//
// Parameters:
//   - name: the texture name as registered in the render context
//
// Returns:
//   - ModelBuilderOption: a function that applies the texture option to a model
func WithTexture(name string) ModelBuilderOption {
	return func(m *model) {
		m.texture = name
	}
}

// WithPosition is an option builder that sets the world-space translation of the Model.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - ModelBuilderOption: a function that applies the position option to a model
func WithPosition(p [3]float32) ModelBuilderOption {
	return func(m *model) {
		m.position = p
	}
}

// WithScale is an option builder that sets the per-axis scale of the Model.
//
// Parameters:
//   - s: the scale
//
// Returns:
//   - ModelBuilderOption: a function that applies the scale option to a model
func WithScale(s [3]float32) ModelBuilderOption {
	return func(m *model) {
		m.scale = s
	}
}
