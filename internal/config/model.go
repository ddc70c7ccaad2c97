package config

import "github.com/zclconf/go-cty/cty"

// Model is the unified, format-agnostic representation of a project.
type Model struct {
	Pipelines []*Pipeline
}

// Pipeline is one pipeline document.
type Pipeline struct {
	Name       string
	GLVersion  int
	DocumentID string
	// Sink names the block partitioning starts from. Empty means every
	// display block.
	Sink        string
	Blocks      []*Block
	Connections []*Connection
	Commands    []*Command
	// Source is the file the pipeline was read from.
	Source string
}

// Block is one block definition.
type Block struct {
	Type     string
	Name     string
	Settings map[string]cty.Value

	// Entries is the layout of a mixer, in order.
	Entries []*Entry
	// Attributes is the layout of a vertex array, in order.
	Attributes []*Attribute
	// Stages are the sources of a shader.
	Stages []*Stage
}

// Entry connects a producer to a mixer and places it in the layout.
type Entry struct {
	From      string
	Name      string
	Convert   string
	Swizzle   string
	Normalize bool
}

// Attribute connects a buffer to a vertex array.
type Attribute struct {
	From     string
	Name     string
	Location *int
}

// Stage is one shader source file.
type Stage struct {
	Stage string
	Path  string
}

// Connection is an edge between two port references.
type Connection struct {
	From   string
	To     string
	Notify string
}

// Command is one render command. Block may be empty.
type Command struct {
	Type  string
	Name  string
	Block string
}
