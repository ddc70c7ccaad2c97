package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific project loader.
type Loader interface {
	// Load reads every project file under the given paths, translates them
	// into the format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter binds raw setting values to Go types. It is the bridge between
// the loaded model and the typed state of block kinds.
type Converter interface {
	// DecodeSettings fills the tagged fields of the struct target points to.
	// Settings without a matching field are an error; fields without a
	// setting keep their value.
	DecodeSettings(ctx context.Context, settings map[string]cty.Value, target any) error

	// ToCtyValue converts a native Go value into its cty.Value equivalent.
	ToCtyValue(v any) (cty.Value, error)
}
