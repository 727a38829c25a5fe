package filter

import (
	"github.com/mimecast/filterpipe/internal/constants"
	"github.com/mimecast/filterpipe/internal/errors"
)

// slot is one arena entry. generation is bumped every time the slot is
// recycled so outstanding Refs captured before the recycle can detect
// staleness without the registry tracking who's holding them (§3.2).
type slot struct {
	filter     *Filter
	generation uint16
	inUse      bool
}

// Registry is a generation-tagged arena of filters plus the singly linked
// list spec.md §3.3 describes: newly created filters are always pushed at
// the head, which keeps "a filter appears before its underlying filter"
// true for free.
type Registry struct {
	global bool
	slots  []slot
	free   []int
	head   int // index of list head, -1 if empty
}

// GlobalRegistry holds filters visible across the whole process (base
// files and filters chained onto them); LocalRegistry holds filters scoped
// to a single save level (§3.3, §3.4 restore semantics).
var (
	GlobalRegistry = newRegistry(true)
	LocalRegistry  = newRegistry(false)
)

func newRegistry(global bool) *Registry {
	return &Registry{global: global, head: -1}
}

// alloc reserves a slot for f, wires f's registry-facing fields and
// returns f's reference.
func (r *Registry) alloc(f *Filter) (Ref, error) {
	var idx int
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[idx].generation++
		if r.slots[idx].generation > constants.MaxGeneration {
			r.slots[idx].generation = 1
		}
	} else {
		idx = len(r.slots)
		r.slots = append(r.slots, slot{generation: 1})
	}
	r.slots[idx].filter = f
	r.slots[idx].inUse = true

	f.registry = r
	f.idx = idx
	f.generation = r.slots[idx].generation
	f.Global = r.global
	f.next = r.head
	r.head = idx

	return Ref{Global: r.global, Index: idx, Generation: f.generation}, nil
}

// release returns idx to the free list and marks it unused, so any
// outstanding Ref to it stops resolving (§3.2); alloc bumps the slot's
// generation when it reuses it. It does not unlink idx from the list by
// itself; callers remove the node from the list first.
func (r *Registry) release(idx int) {
	r.slots[idx].filter = nil
	r.slots[idx].inUse = false
	r.free = append(r.free, idx)
}

// unlink removes idx from the registry's singly linked list.
func (r *Registry) unlink(idx int) {
	if r.head == idx {
		r.head = r.slots[idx].filter.next
		return
	}
	for i := r.head; i != -1; i = r.slots[i].filter.next {
		if r.slots[i].filter.next == idx {
			r.slots[i].filter.next = r.slots[idx].filter.next
			return
		}
	}
}

// Resolve looks up ref and returns the live filter it names, or ErrDead if
// the slot has since been recycled (generation mismatch) or freed.
func Resolve(ref Ref) (*Filter, error) {
	r := LocalRegistry
	if ref.Global {
		r = GlobalRegistry
	}
	if ref.Index < 0 || ref.Index >= len(r.slots) {
		return nil, errors.ErrDead
	}
	s := r.slots[ref.Index]
	if !s.inUse || s.generation != ref.Generation {
		return nil, errors.ErrDead
	}
	return s.filter, nil
}

// Create allocates a new filter named name, with kind as its template
// implementation, wires it into registry r, and calls kind.Init with args.
// Filter creation during a rendering-mode context is the caller's
// responsibility to reject before calling Create (the registry itself
// doesn't know about config.Common).
func Create(r *Registry, name string, dir Direction, kind Kind, bufSize int, args Args) (*Filter, error) {
	return create(r, name, dir, kind, bufSize, args, nil, false)
}

// CreateChained is Create for a filter whose Init needs its Underlying
// already resolvable (StreamDecode seeking the underlying to Position,
// an encode filter wrapping the underlying in a cipher.Writer, ...): the
// link is wired before Init runs instead of by the caller calling
// SetUnderlying afterward.
func CreateChained(r *Registry, name string, dir Direction, kind Kind, bufSize int, args Args, underlying Ref, closeSourceTarget bool) (*Filter, error) {
	return create(r, name, dir, kind, bufSize, args, &underlying, closeSourceTarget)
}

func create(r *Registry, name string, dir Direction, kind Kind, bufSize int, args Args, underlying *Ref, closeSourceTarget bool) (*Filter, error) {
	if bufSize <= 0 {
		bufSize = constants.DefaultBufferSize
	}
	f := &Filter{
		Name:   name,
		kind:   kind,
		Params: args,
		state:  StateInit,
	}
	f.allocateBuffer(bufSize)
	switch dir {
	case Input:
		f.Flags = f.Flags.Set(FlagInput)
	case Output:
		f.Flags = f.Flags.Set(FlagOutput)
	}
	f.Flags = f.Flags.Set(FlagFilter)

	if _, err := r.alloc(f); err != nil {
		f.releaseBuffer()
		return nil, err
	}

	if underlying != nil {
		f.SetUnderlying(*underlying, closeSourceTarget)
	}

	if err := kind.Init(f, args); err != nil {
		r.unlink(f.idx)
		r.release(f.idx)
		f.releaseBuffer()
		return nil, err
	}
	f.Flags = f.Flags.Set(FlagOpen)
	return f, nil
}

// Close closes f per §4.2: runs the kind's Close, releases its buffer, and
// removes it from its registry's list and arena, so any Ref still pointing
// at it stops resolving; the slot's generation is bumped when it is reused.
func Close(f *Filter, reason CloseReason) error {
	return f.closeInternal(reason)
}

func (f *Filter) closeInternal(reason CloseReason) error {
	if !f.Flags.Has(FlagOpen) {
		return nil
	}
	var merr errors.MultiError

	if f.Flags.Has(FlagOutput) {
		merr.Add(f.flushOutput(true))
	}

	if f.kind != nil {
		merr.Add(f.kind.Close(f, reason))
	}

	if f.Flags.Has(FlagCloseSourceTarget) && f.underlying != nil {
		if uf, err := Resolve(*f.underlying); err == nil {
			merr.Add(uf.closeInternal(Implicit))
		}
	}

	f.Flags = f.Flags.Clear(FlagOpen)

	if f.registry != nil {
		f.registry.unlink(f.idx)
		f.registry.release(f.idx)
	}
	if f.kind != nil {
		f.kind.Dispose(f)
	}
	f.releaseBuffer()

	return merr.ErrorOrNil()
}

// RestoreLocal closes every filter currently on LocalRegistry's list, the
// Go analogue of spec.md §3.4's save-level restore sweep.
func RestoreLocal() error {
	var merr errors.MultiError
	for LocalRegistry.head != -1 {
		idx := LocalRegistry.head
		f := LocalRegistry.slots[idx].filter
		if !f.Flags.Has(FlagOpen) {
			// Reached EOF without being closed: closeInternal would return
			// early, so take it off the list here.
			LocalRegistry.unlink(idx)
			LocalRegistry.release(idx)
			f.releaseBuffer()
			continue
		}
		merr.Add(f.closeInternal(Implicit))
	}
	return merr.ErrorOrNil()
}
