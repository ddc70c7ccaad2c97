package evaluate

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/glgrid/internal/ctxlog"
	"github.com/vk/glgrid/internal/graph"
	"github.com/vk/glgrid/internal/renderpass"
)

// Run evaluates every pass of res, upstream passes first. Blocks without a
// registered evaluator are skipped. The first evaluator error stops the run.
func Run(ctx context.Context, reg *Registry, res *renderpass.Result) error {
	logger := ctxlog.FromContext(ctx)
	order := res.Order()
	logger.Debug("Evaluation started.", "sink", res.Sink().Name(), "passes", len(order))

	for _, pass := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		blocks := pass.Blocks()
		slices.SortStableFunc(blocks, func(a, b *graph.Block) int {
			return typeRank(a.Type()) - typeRank(b.Type())
		})

		logger.Debug("Evaluating pass.", "pass", pass.Index(), "seed", pass.Seed().Name(), "blocks", len(blocks))
		for _, b := range blocks {
			ev, ok := reg.Evaluator(b.Type())
			if !ok {
				continue
			}
			if err := ev.Evaluate(ctx, pass, b); err != nil {
				return fmt.Errorf("evaluating %s in %s: %w", b, pass, err)
			}
		}
	}

	logger.Debug("Evaluation finished.", "sink", res.Sink().Name())
	return nil
}
