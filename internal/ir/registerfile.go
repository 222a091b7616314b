package ir

import (
	"github.com/rv64core/rv64core/internal/rverrors"
	"github.com/rv64core/rv64core/internal/rvreg"
)

// RegisterFile is a dense mapping from physical-register index to the SSA
// value currently assigned to it, or empty.
type RegisterFile struct {
	occupant [rvreg.NumRegisters]*Value
}

// NewRegisterFile returns an empty RegisterFile.
func NewRegisterFile() *RegisterFile { return &RegisterFile{} }

// Get returns the value occupying r, if any.
func (rf *RegisterFile) Get(r rvreg.Register) (Value, bool) {
	if !r.Valid() || rf.occupant[r] == nil {
		return Value{}, false
	}

	return *rf.occupant[r], true
}

// Set assigns v to register r.
func (rf *RegisterFile) Set(r rvreg.Register, v Value) {
	if !r.Valid() {
		return
	}
	vv := v
	rf.occupant[r] = &vv
}

// Clear frees register r.
func (rf *RegisterFile) Clear(r rvreg.Register) {
	if !r.Valid() {
		return
	}
	rf.occupant[r] = nil
}

// IsFree reports whether register r holds no value.
func (rf *RegisterFile) IsFree(r rvreg.Register) bool {
	return !r.Valid() || rf.occupant[r] == nil
}

// Clone returns an independent copy of rf.
func (rf *RegisterFile) Clone() *RegisterFile {
	clone := &RegisterFile{}
	for i := range rf.occupant {
		if rf.occupant[i] != nil {
			v := *rf.occupant[i]
			clone.occupant[i] = &v
		}
	}

	return clone
}

// SameValue reports whether a and b refer to the same SSA value: equal
// constants, or equal (func, block, statement) coordinates for results.
func SameValue(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	if a.IsConstant() {
		return a.Constant() == b.Constant()
	}

	return a.funcID == b.funcID && a.blockID == b.blockID && a.stmtIndex == b.stmtIndex
}

// MergeRegisterFiles merges the register files of a block's successors:
// empty-plus-anything yields that value; two non-empty, disagreeing entries
// for the same register is an InvalidMerge error.
func MergeRegisterFiles(files []*RegisterFile) (*RegisterFile, error) {
	merged := NewRegisterFile()

	for _, rf := range files {
		if rf == nil {
			continue
		}

		for i := 0; i < rvreg.NumRegisters; i++ {
			reg := rvreg.Register(i)

			v, ok := rf.Get(reg)
			if !ok {
				continue
			}

			cur, curOk := merged.Get(reg)
			if curOk {
				if !SameValue(cur, v) {
					return nil, rverrors.Wrap(rverrors.CategoryAllocation, "successor register files disagree", rverrors.ErrInvalidMerge)
				}

				continue
			}

			merged.Set(reg, v)
		}
	}

	return merged, nil
}
