// Package shaders provides embedded GLSL shader sources.
package shaders

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
)

// MainVertexShader transforms geometry for the shading pass.
//
//go:embed main.vert
var MainVertexShader string

// MainFragmentShader shades with one point light and a shadow lookup.
// It expects SHADOWED_VISIBILITY to be defined.
//
//go:embed main.frag
var MainFragmentShader string

// ShadowVertexShader projects positions into light space.
//
//go:embed shadow.vert
var ShadowVertexShader string

// ShadowFragmentShader writes depth only.
//
//go:embed shadow.frag
var ShadowFragmentShader string

// WithDefines inserts #define lines directly after the #version line.
func WithDefines(src string, defines map[string]string) string {
	if len(defines) == 0 {
		return src
	}

	names := make([]string, 0, len(defines))
	for name := range defines {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "#define %s %s\n", name, defines[name])
	}

	version, rest, found := strings.Cut(src, "\n")
	if !found || !strings.HasPrefix(strings.TrimSpace(version), "#version") {
		return b.String() + src
	}
	return version + "\n" + b.String() + rest
}
