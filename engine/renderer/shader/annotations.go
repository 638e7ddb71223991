// annotations.go defines the annotation types and parser for the WGSL shader pre-processor.
// Annotations are single-line WGSL comments prefixed with @oxy: that inject shared source,
// emit constants owned by Go code, and declare uniform bindings.
package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects a registered WGSL source at the annotation site. A source is
	// injected at most once per Process call; later includes of the same name emit nothing.
	//
	// Syntax: //@oxy:include <name>
	//
	// Example: //@oxy:include common
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeConst emits a u32 constant whose value is registered from Go, so array sizes
	// in the shader always match the CPU side layout.
	//
	// Syntax: //@oxy:const <NAME>
	//
	// Example: //@oxy:const MAX_INSTANCES
	AnnotationTypeConst AnnotationType = "const"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration and
	// appends an Annotation to the PreProcessor's declarations list. The type must not contain
	// spaces.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 1 uniform fragmentUniforms FragmentUniforms
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// addressSpaces maps the address space argument of a group annotation to WGSL var<> syntax.
var addressSpaces = map[string]string{
	"uniform":      "var<uniform>",
	"storage_read": "var<storage, read>",
}

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include: [0] = source name
	//   - const:   [0] = constant name
	//   - group:   [0] = address space, [1] = var name, [2] = WGSL type
	Args []string

	// Line is the 1-based line number in the original WGSL source where this annotation
	// was found. Used for error reporting.
	Line int

	// Group and Binding are set for group annotations only.
	Group   int
	Binding int
}

// parseAnnotation parses a single line of WGSL source for an @oxy: annotation.
//
// Parameters:
//   - line: the raw source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	comment, ok := strings.CutPrefix(strings.TrimSpace(line), "//")
	if !ok {
		return nil, nil
	}
	after, ok := strings.CutPrefix(strings.TrimSpace(comment), annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude, AnnotationTypeConst:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy %s annotation requires exactly one argument", lineNum, args[0])
		}
		return &Annotation{Type: AnnotationType(args[0]), Args: args[1:], Line: lineNum}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires group, binding, address space, name and type", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil || group < 0 {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation", lineNum, args[1])
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil || binding < 0 {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation", lineNum, args[2])
		}
		if _, ok := addressSpaces[args[3]]; !ok {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    args[3:],
			Line:    lineNum,
			Group:   group,
			Binding: binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
