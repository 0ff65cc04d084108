package cmd

import (
	"encoding/json"
	"unsafe"

	"github.com/abdul-hamid-achik/chlorine/packages/core/env"
	"github.com/abdul-hamid-achik/chlorine/packages/core/spec"
	"github.com/abdul-hamid-achik/chlorine/packages/layout"
)

// bundleName is the name of the built-in bundle.
const bundleName = "layout"

// layoutBundle describes types at run time with the layout package and
// checks the result against the layout the compiler chose for the same
// static type.
func layoutBundle(jobs int) spec.Bundle {
	b := spec.NewParallelBundle(bundleName, jobs,
		spec.New("basic", basicSpec),
		spec.New("trailing-padding", trailingPaddingSpec, spec.WithOptions(spec.SkipSetupAndTeardown)),
		spec.New("nested", nestedSpec, spec.WithOptions(spec.SkipSetupAndTeardown)),
		spec.New("scalars", scalarsSpec, spec.WithOptions(spec.SkipSetupAndTeardown)),
		spec.New("union", unionSpec, spec.WithOptions(spec.SkipSetupAndTeardown)),
		spec.New("bad-typedefs", badTypedefsSpec, spec.WithOptions(spec.SkipSetupAndTeardown)),
		spec.New("json-description", jsonDescriptionSpec),
		spec.New("shared-scalars", sharedScalarsSpec, spec.WithOptions(spec.Serial|spec.SkipSetupAndTeardown)),
	)
	b.Hooks = spec.Hooks{
		Setup: func(e *env.Env) {
			e.SetUserData(layout.Struct(layout.Pointer, layout.Char, layout.Sint))
		},
		Teardown: func(e *env.Env) {
			e.SetUserData(nil)
		},
	}
	return b
}

// basicType returns the struct the default setup stores for the spec.
func basicType(e *env.Env) *layout.Type {
	t, _ := e.UserData().(*layout.Type)
	if t == nil {
		e.Log("setup did not provide a type")
		e.Abort()
	}
	return t
}

func basicSpec(e *env.Env) {
	type basic struct {
		p unsafe.Pointer
		c int8
		x int32
	}
	var s basic

	t := basicType(e)
	e.Assert(layout.Init(t) == nil)
	e.Assert(t.Size == unsafe.Sizeof(s))
	e.Assert(t.Alignment == unsafe.Alignof(s))
	e.Assert(t.Offsets[0] == unsafe.Offsetof(s.p))
	e.Assert(t.Offsets[1] == unsafe.Offsetof(s.c))
	e.Assert(t.Offsets[2] == unsafe.Offsetof(s.x))
}

func trailingPaddingSpec(e *env.Env) {
	type padded struct {
		d float64
		c int8
	}
	var s padded

	t := layout.Struct(layout.Double, layout.Char)
	e.Assert(layout.Init(t) == nil)
	e.Assert(t.Size == unsafe.Sizeof(s))
	e.Assert(t.Offsets[1] == unsafe.Offsetof(s.c))
}

func nestedSpec(e *env.Env) {
	type inner struct {
		c int8
		x int64
	}
	type outer struct {
		s  int16
		in inner
		u  uint8
	}
	var s outer

	t := layout.Struct(layout.Sshort, layout.Struct(layout.Char, layout.Sint64), layout.Uint8)
	if !e.Assert(layout.Init(t) == nil) {
		e.Abort()
	}
	e.Assert(t.Size == unsafe.Sizeof(s))
	e.Assert(t.Offsets[1] == unsafe.Offsetof(s.in))
	e.Assert(t.Offsets[2] == unsafe.Offsetof(s.u))
	e.Assert(t.Elements[1].Offsets[1] == unsafe.Offsetof(s.in.x))
}

func scalarsSpec(e *env.Env) {
	scalars := []struct {
		typ   *layout.Type
		size  uintptr
		align uintptr
	}{
		{layout.Char, unsafe.Sizeof(int8(0)), unsafe.Alignof(int8(0))},
		{layout.Sshort, unsafe.Sizeof(int16(0)), unsafe.Alignof(int16(0))},
		{layout.Sint, unsafe.Sizeof(int32(0)), unsafe.Alignof(int32(0))},
		{layout.Slonglong, unsafe.Sizeof(int64(0)), unsafe.Alignof(int64(0))},
		{layout.Float, unsafe.Sizeof(float32(0)), unsafe.Alignof(float32(0))},
		{layout.Double, unsafe.Sizeof(float64(0)), unsafe.Alignof(float64(0))},
		{layout.Pointer, unsafe.Sizeof(uintptr(0)), unsafe.Alignof(uintptr(0))},
	}
	for _, s := range scalars {
		e.Assertf(s.typ.Size == s.size, "%s size %d", s.typ.Tag, s.typ.Size)
		e.Assertf(s.typ.Alignment == s.align, "%s alignment %d", s.typ.Tag, s.typ.Alignment)
	}
}

func unionSpec(e *env.Env) {
	t := layout.Union(layout.Char, layout.Double, layout.Struct(layout.Sint, layout.Sint, layout.Sint))
	e.Assert(layout.Init(t) == nil)
	e.Assert(t.Offsets[0] == 0 && t.Offsets[1] == 0 && t.Offsets[2] == 0)
	e.Assert(t.Alignment == unsafe.Alignof(float64(0)))
	e.Assertf(t.Size%t.Alignment == 0, "size %d is not a multiple of %d", t.Size, t.Alignment)
	e.Assert(t.Size >= 12)
}

func badTypedefsSpec(e *env.Env) {
	e.Assert(layout.Init(nil) != nil)
	e.Assert(layout.Init(layout.Struct()) != nil)
	e.Assert(layout.Init(layout.Struct(layout.Char, nil)) != nil)
	e.Assert(layout.Init(layout.Struct(layout.Sint, layout.Union())) != nil)
}

type typeDescription struct {
	Tag       string    `json:"tag"`
	Size      uintptr   `json:"size"`
	Alignment uintptr   `json:"alignment"`
	Offsets   []uintptr `json:"offsets"`
}

func jsonDescriptionSpec(e *env.Env) {
	t := basicType(e)
	e.Assert(layout.Init(t) == nil)

	doc, err := json.Marshal(typeDescription{
		Tag:       t.Tag.String(),
		Size:      t.Size,
		Alignment: t.Alignment,
		Offsets:   t.Offsets,
	})
	if !e.Assertf(err == nil, "marshal: %v", err) {
		e.Abort()
	}
	e.AssertJSON(string(doc), "tag", "struct")
	e.AssertJSON(string(doc), "offsets.#", 3)
	e.AssertJSON(string(doc), "offsets.0", 0)
	e.AssertJSON(string(doc), "size", int(t.Size))
}

// sharedScalarsSpec checks that Init leaves the package-level scalar types
// unchanged. It runs in the serial pass, after every spec that reads them.
func sharedScalarsSpec(e *env.Env) {
	e.Assert(!e.IsParallel())
	for _, t := range []*layout.Type{layout.Void, layout.Uint, layout.Ulong, layout.Pointer} {
		before := *t
		e.Assertf(layout.Init(t) == nil, "init %s", t.Tag)
		e.Assertf(t.Size == before.Size && t.Alignment == before.Alignment, "%s changed", t.Tag)
	}
}
