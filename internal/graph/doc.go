// Package graph is the pipeline graph model: typed blocks, typed ports,
// directed connections and the pipelines that own them.
//
// # Why Graph Package Exists
//
// Every other layer of glgrid (cache keys, mixer streaming, render-pass
// partitioning, project loading and saving) reads or mutates the same graph.
// The graph package is the single place where structural invariants are
// enforced:
//   - **Ownership:** a Pipeline owns its Blocks and RenderCommands, a Block owns
//     its Ports, a Port owns its outgoing Connections.
//   - **No dangling edges:** deleting a Port or Block severs every Connection
//     touching it before anything is removed.
//   - **Unique edges:** at most one Connection per ordered (source, destination)
//     port pair.
//   - **One ID space:** every item gets an ItemID from the Manager's counter the
//     first time it is inserted into a list. IDs never repeat within a Manager.
//
// # Architecture
//
//	┌──────────────────────────────┐
//	│           Manager            │  ID counter + pipeline registry
//	└──────────────┬───────────────┘
//	               │ owns
//	┌──────────────▼───────────────┐
//	│           Pipeline           │  GL version, blocks, render commands
//	└───────┬──────────────┬───────┘
//	        │              │
//	┌───────▼──────┐ ┌─────▼─────────┐
//	│    Block     │ │ RenderCommand │  weak reference to one Block
//	│ (Kind state) │ └───────────────┘
//	└───────┬──────┘
//	        │ owns
//	┌───────▼──────┐      ┌────────────┐
//	│     Port     ├─────►│ Connection │  owned by the source port,
//	└──────────────┘      └────────────┘  indexed on the destination port
//
// Block behavior is provided by a Kind (DataSource, Uniform, Mixer, Buffer,
// Shader, FrameBuffer, ...). A Kind declares the ports its block exposes and a
// fixed acceptance table that the destination block applies to every new
// Connection.
//
// # Traversal
//
// Whole-graph operations are written as Visitors and run with
// Pipeline.TakeVisitor. The canonical ones live in this package: Validate,
// Reset, SearchByID and CollectAssets.
//
// # Thread-Safety
//
// The graph is single-threaded by contract. Only the Manager's ID counter and
// pipeline registry are safe for concurrent use.
package graph
