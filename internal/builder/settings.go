package builder

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/glgrid/internal/config"
	"github.com/vk/glgrid/internal/graph"
)

type dataSourceSettings struct {
	ComponentType string    `cty:"component_type"`
	Components    int       `cty:"components"`
	Values        []float64 `cty:"values"`
	Path          string    `cty:"path"`
}

type uniformSettings struct {
	Value         cty.Value `cty:"value"`
	ComponentType string    `cty:"component_type"`
}

type mixerSettings struct {
	AsStruct bool `cty:"as_struct"`
}

type bufferSettings struct {
	Usage string `cty:"usage"`
}

type imageSettings struct {
	Path string `cty:"path"`
}

type textureSettings struct {
	Format string `cty:"format"`
	Width  int    `cty:"width"`
	Height int    `cty:"height"`
}

type textureViewSettings struct {
	Format string `cty:"format"`
}

type noSettings struct{}

// newKind creates the kind of a block definition and binds its settings.
// Layout blocks (entries, attributes) are resolved later; stages are
// applied here.
func newKind(ctx context.Context, conv config.Converter, def *config.Block) (graph.Kind, error) {
	t, err := graph.ParseBlockType(def.Type)
	if err != nil {
		return nil, err
	}
	kind, err := graph.NewKind(t)
	if err != nil {
		return nil, err
	}
	if len(def.Entries) > 0 && t != graph.BlockMixer {
		return nil, fmt.Errorf("only mixer blocks have entries")
	}
	if len(def.Attributes) > 0 && t != graph.BlockVertexArray {
		return nil, fmt.Errorf("only vertex_array blocks have attributes")
	}
	if len(def.Stages) > 0 && t != graph.BlockShader {
		return nil, fmt.Errorf("only shader blocks have stages")
	}

	decode := func(target any) error {
		return conv.DecodeSettings(ctx, def.Settings, target)
	}

	switch k := kind.(type) {
	case *graph.DataSource:
		s := dataSourceSettings{ComponentType: k.ComponentType.String(), Components: k.Components}
		if err := decode(&s); err != nil {
			return nil, err
		}
		ct, err := graph.ParseComponentType(s.ComponentType)
		if err != nil {
			return nil, err
		}
		k.ComponentType, k.Components, k.Values, k.Path = ct, s.Components, s.Values, s.Path
	case *graph.Uniform:
		s := uniformSettings{Value: cty.NullVal(cty.DynamicPseudoType), ComponentType: k.ComponentType.String()}
		if err := decode(&s); err != nil {
			return nil, err
		}
		ct, err := graph.ParseComponentType(s.ComponentType)
		if err != nil {
			return nil, err
		}
		k.Value, k.ComponentType = s.Value, ct
	case *graph.Mixer:
		var s mixerSettings
		if err := decode(&s); err != nil {
			return nil, err
		}
		k.Layout.AsStruct = s.AsStruct
	case *graph.Buffer:
		var s bufferSettings
		if err := decode(&s); err != nil {
			return nil, err
		}
		k.Usage = s.Usage
	case *graph.Image:
		var s imageSettings
		if err := decode(&s); err != nil {
			return nil, err
		}
		k.Path = s.Path
	case *graph.Texture:
		var s textureSettings
		if err := decode(&s); err != nil {
			return nil, err
		}
		k.Format, k.Width, k.Height = s.Format, s.Width, s.Height
	case *graph.TextureView:
		var s textureViewSettings
		if err := decode(&s); err != nil {
			return nil, err
		}
		k.Format = s.Format
	case *graph.Shader:
		if err := decode(&noSettings{}); err != nil {
			return nil, err
		}
		for _, st := range def.Stages {
			k.Sources = append(k.Sources, graph.ShaderSource{Stage: st.Stage, Path: st.Path})
		}
	default:
		if err := decode(&noSettings{}); err != nil {
			return nil, err
		}
	}
	return kind, nil
}

// exportSettings is the inverse of newKind for the scalar settings. Zero
// values are left out.
func exportSettings(conv config.Converter, kind graph.Kind) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value)
	str := func(name, v string) {
		if v != "" {
			out[name] = cty.StringVal(v)
		}
	}
	num := func(name string, v int) {
		if v != 0 {
			out[name] = cty.NumberIntVal(int64(v))
		}
	}

	switch k := kind.(type) {
	case *graph.DataSource:
		str("component_type", k.ComponentType.String())
		num("components", k.Components)
		str("path", k.Path)
		if len(k.Values) > 0 {
			v, err := conv.ToCtyValue(k.Values)
			if err != nil {
				return nil, err
			}
			out["values"] = v
		}
	case *graph.Uniform:
		str("component_type", k.ComponentType.String())
		if !k.Value.IsNull() {
			out["value"] = k.Value
		}
	case *graph.Mixer:
		if k.Layout.AsStruct {
			out["as_struct"] = cty.True
		}
	case *graph.Buffer:
		str("usage", k.Usage)
	case *graph.Image:
		str("path", k.Path)
	case *graph.Texture:
		str("format", k.Format)
		num("width", k.Width)
		num("height", k.Height)
	case *graph.TextureView:
		str("format", k.Format)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
