package shader

// PreProcessorBuilderOption is a functional option for configuring a PreProcessor.
type PreProcessorBuilderOption func(*preProcessor)

// WithInclude registers source under name for @oxy:include.
//
// Parameters:
//   - name: the include name
//   - source: the WGSL source injected in its place
//
// Returns:
//   - PreProcessorBuilderOption: option function to apply
func WithInclude(name, source string) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		p.includes[name] = source
	}
}

// WithConstant registers a u32 constant for @oxy:const.
//
// Parameters:
//   - name: the WGSL constant name
//   - value: the value emitted
//
// Returns:
//   - PreProcessorBuilderOption: option function to apply
func WithConstant(name string, value uint32) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		p.constants[name] = value
	}
}
