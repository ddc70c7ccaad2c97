/*
Package builder turns the format-agnostic project model (defined in the
'config' package) into live pipelines of the 'graph' package, and exports
pipelines back into a model for saving.

Building a pipeline is a multi-phase process driven by a serial.Context:

 1. Block Creation: every block definition is parsed, its settings are
    decoded into the block kind, and the block is added to the pipeline and
    bound in the object pool under its name.

 2. Deferred Resolution: everything that refers to other blocks is queued
    and drained band by band, so that every reference can be resolved:
    a. connections (explicit `connect` blocks, mixer entries and vertex
    attributes),
    b. mixer layouts (entry names, conversions, positions),
    c. vertex attribute names and locations,
    d. render commands,
    e. finalization: the pipeline is validated and its status logged.

A definition that cannot be honored (unknown type, dangling reference,
rejected connection) drops that single item and adds a message to the
result. Only format errors and cancellation abort a build.
*/
package builder
