// Package hcl provides the concrete HCL implementation for the loading and
// data conversion interfaces defined in the `config` package, and the writer
// that turns a model back into HCL files.
//
// A project file holds any number of pipelines:
//
//	pipeline "main" {
//	  gl_version = 430
//
//	  block "data_source" "d1" {
//	    component_type = "float32"
//	    components     = 3
//	    values         = [0, 0, 0, 1, 0, 0]
//	  }
//	  block "mixer" "m1" {
//	    as_struct = true
//	    entry {
//	      from    = "d1.data"
//	      convert = "u8"
//	    }
//	  }
//	  connect {
//	    from = "m1.mixed"
//	    to   = "b1.data"
//	  }
//	  command "draw" "draw_s" {
//	    block = "s"
//	  }
//	}
package hcl
