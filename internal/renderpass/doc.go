// Package renderpass decomposes a pipeline graph, seen from one sink block,
// into render passes.
//
// # Why Renderpass Package Exists
//
// The GL evaluation layer executes one pass at a time. A pass is a set of
// blocks that can be bound and drawn together without reading anything the
// same pass writes. The graph is split wherever the data crosses a
// pass-switch boundary:
//   - **FrameBuffer:** whatever renders into it must finish first.
//   - **TransformFeedback:** captured vertices are read by later passes.
//   - **Storage Buffer:** a Buffer whose only input is a shader storage
//     output.
//
// # Algorithm
//
// Partition runs a worklist of frontier iterators, one per pass. The sink
// pass starts at the sink block. Each step expands the frontier backwards:
// ordinary upstream blocks join the current pass, boundaries join it too and
// are crossed. Crossing a boundary the first time starts one new pass per
// shader drawing into it, each containing the boundary; later arrivals at the
// same boundary reuse those passes. Frontiers are expanded in block ID order
// and incoming connections in source ID order, so the result does not depend
// on port or connection insertion order.
//
// # Cycles
//
// Back references across boundaries are allowed as long as they form no
// loop. Partition fails with graph.ErrCycleDetected, and returns no partial
// result, when:
//   - a new pass would be rooted at a block that already belongs to a pass,
//   - a pass would depend on itself through other passes, or
//   - the edges inside one pass form a loop (chained texture views).
package renderpass
