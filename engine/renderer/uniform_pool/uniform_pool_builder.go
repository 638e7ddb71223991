package uniform_pool

// UniformBufferPoolBuilderOption is a functional option applied to a pool during construction via NewUniformBufferPool.
type UniformBufferPoolBuilderOption func(*uniformBufferPool)

// WithLabel sets the label of the backing device buffer.
//
// Parameters:
//   - label: the buffer label
//
// Returns:
//   - UniformBufferPoolBuilderOption: a function that applies the label to a pool
func WithLabel(label string) UniformBufferPoolBuilderOption {
	return func(p *uniformBufferPool) {
		p.label = label
	}
}
