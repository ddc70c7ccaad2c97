package graph

import (
	"strings"
)

// ComponentType is the scalar type of one component of a data element.
type ComponentType int

const (
	ComponentUndefined ComponentType = iota
	ComponentFloat32
	ComponentFloat64
	ComponentInt8
	ComponentUint8
	ComponentInt16
	ComponentUint16
	ComponentInt32
	ComponentUint32
)

type componentInfo struct {
	name   string
	code   string
	size   int
	signed bool
	float  bool
}

var componentInfos = map[ComponentType]componentInfo{
	ComponentFloat32: {name: "float32", code: "f32", size: 4, signed: true, float: true},
	ComponentFloat64: {name: "float64", code: "f64", size: 8, signed: true, float: true},
	ComponentInt8:    {name: "int8", code: "i8", size: 1, signed: true},
	ComponentUint8:   {name: "uint8", code: "u8", size: 1},
	ComponentInt16:   {name: "int16", code: "i16", size: 2, signed: true},
	ComponentUint16:  {name: "uint16", code: "u16", size: 2},
	ComponentInt32:   {name: "int32", code: "i32", size: 4, signed: true},
	ComponentUint32:  {name: "uint32", code: "u32", size: 4},
}

func (c ComponentType) String() string {
	if info, ok := componentInfos[c]; ok {
		return info.name
	}
	return "undefined"
}

// Code is the short form used inside cache keys.
func (c ComponentType) Code() string {
	return componentInfos[c].code
}

// Size returns the size of one component in bytes, 0 for undefined.
func (c ComponentType) Size() int {
	return componentInfos[c].size
}

// IsFloat reports whether the component is a floating point type.
func (c ComponentType) IsFloat() bool {
	return componentInfos[c].float
}

// IsSigned reports whether the component can hold negative values.
func (c ComponentType) IsSigned() bool {
	return componentInfos[c].signed
}

// ParseComponentType accepts the long names ("float32") and the short codes ("f32").
func ParseComponentType(name string) (ComponentType, error) {
	for c, info := range componentInfos {
		if info.name == name || info.code == name {
			return c, nil
		}
	}
	return ComponentUndefined, Errorf(ErrInvalidArgument, "unknown component type %q", name)
}

const swizzleChars = "xyzwrgbastpq01"

// Conversion describes how a layout entry reshapes the elements it reads.
// The zero value passes data through unchanged.
type Conversion struct {
	// Target is the component type written to the stream. Undefined keeps the
	// source type.
	Target ComponentType
	// Normalize maps [0,1] (or [-1,1] for signed targets) onto the full range
	// of an integer target. Ignored for float targets.
	Normalize bool
	// Swizzle selects and reorders components, e.g. "zyx" or "xyz1".
	Swizzle string
}

// IsIdentity reports whether the conversion leaves data untouched.
func (c Conversion) IsIdentity() bool {
	return c.Target == ComponentUndefined && !c.Normalize && c.Swizzle == ""
}

// Code encodes the conversion for cache keys. The identity conversion has an
// empty code.
func (c Conversion) Code() string {
	if c.IsIdentity() {
		return ""
	}
	var sb strings.Builder
	if c.Target != ComponentUndefined {
		sb.WriteString(c.Target.Code())
	}
	if c.Normalize {
		sb.WriteString("n")
	}
	if c.Swizzle != "" {
		sb.WriteString(".")
		sb.WriteString(c.Swizzle)
	}
	return sb.String()
}

// Validate checks the swizzle mask and target type.
func (c Conversion) Validate() error {
	if c.Target != ComponentUndefined && c.Target.Size() == 0 {
		return Errorf(ErrInvalidArgument, "invalid conversion target %d", int(c.Target))
	}
	if len(c.Swizzle) > 4 {
		return Errorf(ErrInvalidArgument, "swizzle %q selects more than 4 components", c.Swizzle)
	}
	for _, r := range c.Swizzle {
		if !strings.ContainsRune(swizzleChars, r) {
			return Errorf(ErrInvalidArgument, "invalid swizzle component %q in %q", r, c.Swizzle)
		}
	}
	return nil
}

// OutputComponents returns how many components an element of `in`
// components has after the swizzle.
func (c Conversion) OutputComponents(in int) int {
	if c.Swizzle == "" {
		return in
	}
	return len(c.Swizzle)
}

// OutputType returns the component type written for a source of type `in`.
func (c Conversion) OutputType(in ComponentType) ComponentType {
	if c.Target == ComponentUndefined {
		return in
	}
	return c.Target
}

// SwizzleSource resolves one swizzle character to either a source component
// index or a constant.
func SwizzleSource(r rune) (index int, constant float64, isConstant bool) {
	switch r {
	case 'x', 'r', 's':
		return 0, 0, false
	case 'y', 'g', 't':
		return 1, 0, false
	case 'z', 'b', 'p':
		return 2, 0, false
	case 'w', 'a', 'q':
		return 3, 0, false
	case '1':
		return -1, 1, true
	default:
		return -1, 0, true
	}
}
