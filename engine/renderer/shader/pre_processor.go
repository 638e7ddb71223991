// pre_processor.go implements the WGSL shader pre-processor. It scans shader source for
// @oxy: annotations, replaces them with injected sources, constants or generated binding
// declarations, and collects the declared bindings so the device can check them against its
// bind group layouts.
package shader

import (
	"fmt"
	"strings"
)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// includes maps include names to WGSL source.
	includes map[string]string

	// constants maps constant names to the values emitted by @oxy:const.
	constants map[string]uint32

	// declarations accumulates group annotations during a Process call.
	declarations []Annotation

	// included tracks which sources were injected during a Process call.
	included map[string]bool
}

// PreProcessor processes raw WGSL shader source code containing @oxy: annotations.
type PreProcessor interface {
	// Process replaces every annotation in source with its WGSL output. Included sources are
	// processed recursively. The declarations list is reset at the start of each call.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if any annotation is malformed or references an unknown name
	Process(source string) (string, error)

	// Declarations returns the group annotations collected during the most recent call to
	// Process, in source order.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with the provided includes and constants registered.
//
// Parameters:
//   - options: variadic PreProcessorBuilderOption functions
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(options ...PreProcessorBuilderOption) PreProcessor {
	p := &preProcessor{
		includes:  make(map[string]string),
		constants: make(map[string]uint32),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	p.included = make(map[string]bool)
	return p.process("main", source)
}

func (p *preProcessor) process(name, source string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypeInclude:
			include := a.Args[0]
			src, ok := p.includes[include]
			if !ok {
				return "", fmt.Errorf("%s: line %d: unknown @oxy:include argument %q", name, a.Line, include)
			}
			if p.included[include] {
				continue
			}
			p.included[include] = true
			processed, err := p.process(include, src)
			if err != nil {
				return "", err
			}
			out = append(out, processed)
		case AnnotationTypeConst:
			value, ok := p.constants[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("%s: line %d: unknown @oxy:const argument %q", name, a.Line, a.Args[0])
			}
			out = append(out, fmt.Sprintf("const %s: u32 = %du;", a.Args[0], value))
		case AnnotationTypeBindingGroup:
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				a.Group, a.Binding, addressSpaces[a.Args[0]], a.Args[1], a.Args[2]))
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
