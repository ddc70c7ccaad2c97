// Package config defines the format-agnostic model of a project: its
// pipelines, their blocks, connections and render commands, along with the
// interfaces (Loader, Converter) implemented by concrete file formats.
//
// The `config.Model` is the single input of the builder package. Concrete
// implementations of the interfaces, such as for HCL, are provided in
// separate packages.
package config
