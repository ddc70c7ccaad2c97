/*
Package nodeid parses the references project files use to point at blocks
and ports.

A reference is a dot-separated path of segments, each optionally indexed:

	fb              a block
	fb.color        a port of a block
	mixer.data[2]   a port plus a layout position

Connections are written as pairs of port references. The optional index on
the destination picks the slot of the new connection in the destination's
layout (mixer entry order, vertex attribute location).
*/
package nodeid
