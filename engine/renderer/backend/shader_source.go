package backend

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-pacer/engine/model"
	"github.com/Carmen-Shannon/oxy-pacer/engine/renderer/shader"
)

//go:embed shaders/common.wgsl
var commonShaderSource string

//go:embed shaders/textured_mesh.wgsl
var texturedMeshShaderSource string

//go:embed shaders/argumented_textured_mesh.wgsl
var argumentedTexturedMeshShaderSource string

// ShaderSource returns the processed WGSL for a technique along with the uniform bindings it
// declares. Array sizes come from the model package so the shader always matches the CPU layout.
//
// Parameters:
//   - technique: the pipeline technique
//
// Returns:
//   - string: the WGSL source
//   - []shader.Annotation: the declared uniform bindings
//   - error: an error for an unknown technique or a malformed shader
func ShaderSource(technique Technique) (string, []shader.Annotation, error) {
	var source string
	switch technique {
	case TechniqueTexturedMesh:
		source = texturedMeshShaderSource
	case TechniqueArgumentedTexturedMesh:
		source = argumentedTexturedMeshShaderSource
	default:
		return "", nil, fmt.Errorf("backend: unknown technique %v", technique)
	}

	p := shader.NewPreProcessor(
		shader.WithInclude("common", commonShaderSource),
		shader.WithConstant("MAX_INSTANCES", model.MaxInstances),
		shader.WithConstant("NUM_LIGHTS", model.NumLights),
	)
	out, err := p.Process(source)
	if err != nil {
		return "", nil, fmt.Errorf("backend: %s shader: %w", technique, err)
	}
	return out, p.Declarations(), nil
}
