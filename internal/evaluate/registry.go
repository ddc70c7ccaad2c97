// Package evaluate drives per-block evaluators over a partition result.
//
// The Registry maps each BlockType to the Go code that evaluates it. Run
// walks the passes upstream first and, inside a pass, visits blocks type by
// type in TypeOrder so that producers are handled before their consumers.
// A GL backend plugs in by registering its own evaluators; the Planner in
// this package is the backend used for dry runs.
package evaluate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/vk/glgrid/internal/graph"
	"github.com/vk/glgrid/internal/renderpass"
)

// Evaluator handles one block inside one pass.
type Evaluator interface {
	Evaluate(ctx context.Context, pass *renderpass.Pass, b *graph.Block) error
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, pass *renderpass.Pass, b *graph.Block) error

func (f EvaluatorFunc) Evaluate(ctx context.Context, pass *renderpass.Pass, b *graph.Block) error {
	return f(ctx, pass, b)
}

// Module is implemented by evaluator sets that register themselves.
type Module interface {
	Register(r *Registry)
}

// Registry holds one evaluator per block type.
type Registry struct {
	evaluators map[graph.BlockType]Evaluator
}

// NewRegistry creates an empty registry. Each module is registered in order.
func NewRegistry(modules ...Module) *Registry {
	r := &Registry{evaluators: make(map[graph.BlockType]Evaluator)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register binds an evaluator to a block type. Registering a type twice is a
// programming error and panics.
func (r *Registry) Register(t graph.BlockType, e Evaluator) {
	if _, exists := r.evaluators[t]; exists {
		panic(fmt.Sprintf("evaluator for block type '%s' already registered", t))
	}
	slog.Debug("Registering evaluator.", "type", t.String())
	r.evaluators[t] = e
}

// Evaluator returns the evaluator bound to t.
func (r *Registry) Evaluator(t graph.BlockType) (Evaluator, bool) {
	e, ok := r.evaluators[t]
	return e, ok
}

// Types returns the registered types in TypeOrder.
func (r *Registry) Types() []graph.BlockType {
	var out []graph.BlockType
	for _, t := range TypeOrder {
		if _, ok := r.evaluators[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// TypeOrder is the order in which block types are evaluated inside a pass.
var TypeOrder = []graph.BlockType{
	graph.BlockDataSource,
	graph.BlockUniform,
	graph.BlockImage,
	graph.BlockMixer,
	graph.BlockBuffer,
	graph.BlockTexture,
	graph.BlockTextureView,
	graph.BlockVertexArray,
	graph.BlockShader,
	graph.BlockTransformFeedback,
	graph.BlockFrameBuffer,
	graph.BlockDisplay,
}

func typeRank(t graph.BlockType) int {
	if i := slices.Index(TypeOrder, t); i >= 0 {
		return i
	}
	return len(TypeOrder)
}
