// Package layout computes the memory layout of struct and union types
// described at run time, following the same alignment rules the compiler
// applies to static types.
package layout

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrBadTypedef is returned for a type description that cannot be laid out.
var ErrBadTypedef = errors.New("bad typedef")

// Tag identifies the kind of a Type.
type Tag int

const (
	TagVoid Tag = iota
	TagUint
	TagSint
	TagChar
	TagUchar
	TagUshort
	TagSshort
	TagUlong
	TagSlong
	TagUlonglong
	TagSlonglong
	TagFloat
	TagDouble
	TagUint8
	TagSint8
	TagUint16
	TagSint16
	TagUint32
	TagSint32
	TagUint64
	TagSint64
	TagPointer
	TagStruct
	TagUnion
)

var tagNames = [...]string{
	TagVoid:      "void",
	TagUint:      "uint",
	TagSint:      "sint",
	TagChar:      "char",
	TagUchar:     "uchar",
	TagUshort:    "ushort",
	TagSshort:    "sshort",
	TagUlong:     "ulong",
	TagSlong:     "slong",
	TagUlonglong: "ulonglong",
	TagSlonglong: "slonglong",
	TagFloat:     "float",
	TagDouble:    "double",
	TagUint8:     "uint8",
	TagSint8:     "sint8",
	TagUint16:    "uint16",
	TagSint16:    "sint16",
	TagUint32:    "uint32",
	TagSint32:    "sint32",
	TagUint64:    "uint64",
	TagSint64:    "sint64",
	TagPointer:   "pointer",
	TagStruct:    "struct",
	TagUnion:     "union",
}

func (t Tag) String() string {
	if t >= 0 && int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

// Aggregate reports whether the tag is a struct or union.
func (t Tag) Aggregate() bool {
	return t == TagStruct || t == TagUnion
}

// Type describes a scalar or aggregate type. For aggregates Init fills in
// Alignment, Size and one offset per element.
type Type struct {
	Tag       Tag
	Alignment uintptr
	Size      uintptr
	Elements  []*Type
	Offsets   []uintptr
}

func scalar[T any](tag Tag) *Type {
	var v T
	return &Type{Tag: tag, Alignment: unsafe.Alignof(v), Size: unsafe.Sizeof(v)}
}

// Predefined scalar types. The C-named integer types use the sizes of the
// common LP64 data model; long follows the platform word.
var (
	Void      = &Type{Tag: TagVoid}
	Uint      = scalar[uint32](TagUint)
	Sint      = scalar[int32](TagSint)
	Char      = scalar[int8](TagChar)
	Uchar     = scalar[uint8](TagUchar)
	Ushort    = scalar[uint16](TagUshort)
	Sshort    = scalar[int16](TagSshort)
	Ulong     = scalar[uint](TagUlong)
	Slong     = scalar[int](TagSlong)
	Ulonglong = scalar[uint64](TagUlonglong)
	Slonglong = scalar[int64](TagSlonglong)
	Float     = scalar[float32](TagFloat)
	Double    = scalar[float64](TagDouble)
	Uint8     = scalar[uint8](TagUint8)
	Sint8     = scalar[int8](TagSint8)
	Uint16    = scalar[uint16](TagUint16)
	Sint16    = scalar[int16](TagSint16)
	Uint32    = scalar[uint32](TagUint32)
	Sint32    = scalar[int32](TagSint32)
	Uint64    = scalar[uint64](TagUint64)
	Sint64    = scalar[int64](TagSint64)
	Pointer   = scalar[unsafe.Pointer](TagPointer)
)

// Struct returns an uninitialized struct type with the given elements.
func Struct(elements ...*Type) *Type {
	return &Type{Tag: TagStruct, Elements: elements}
}

// Union returns an uninitialized union type with the given elements.
func Union(elements ...*Type) *Type {
	return &Type{Tag: TagUnion, Elements: elements}
}

// Init lays out t. Scalars are already laid out and are returned unchanged.
// Struct elements are placed in order, each at the next offset that is a
// multiple of its alignment. Union elements all start at offset zero. An
// aggregate is aligned to its most aligned element and its size is padded to
// a multiple of that alignment. Nested aggregates are initialized first.
func Init(t *Type) error {
	return initType(t, map[*Type]bool{})
}

func initType(t *Type, active map[*Type]bool) error {
	if t == nil {
		return fmt.Errorf("%w: nil type", ErrBadTypedef)
	}
	if !t.Tag.Aggregate() {
		return nil
	}
	if len(t.Elements) == 0 {
		return fmt.Errorf("%w: empty %s", ErrBadTypedef, t.Tag)
	}
	if active[t] {
		return fmt.Errorf("%w: %s contains itself", ErrBadTypedef, t.Tag)
	}
	active[t] = true
	defer delete(active, t)

	offsets := make([]uintptr, len(t.Elements))
	var offset, size, maxAlign uintptr
	for i, element := range t.Elements {
		if err := initType(element, active); err != nil {
			return fmt.Errorf("%s element %d: %w", t.Tag, i, err)
		}
		if element.Alignment == 0 {
			return fmt.Errorf("%w: %s element %d has no alignment", ErrBadTypedef, t.Tag, i)
		}
		maxAlign = max(maxAlign, element.Alignment)

		if t.Tag == TagUnion {
			size = max(size, element.Size)
			continue
		}
		offset = alignUp(offset, element.Alignment)
		offsets[i] = offset
		offset += element.Size
	}
	if t.Tag == TagStruct {
		size = offset
	}

	t.Offsets = offsets
	t.Alignment = maxAlign
	t.Size = alignUp(size, maxAlign)
	return nil
}

func alignUp(n, align uintptr) uintptr {
	if r := n % align; r != 0 {
		return n + align - r
	}
	return n
}
