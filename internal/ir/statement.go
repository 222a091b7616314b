package ir

import "github.com/rv64core/rv64core/internal/rvreg"

// StatementKind enumerates the three statement variants from spec.md
// section 3. Conditional branches and phi are deliberately absent: the
// Design Notes direct implementers to skip phi support until a
// conditional-branch StatementType exists.
type StatementKind int

const (
	// StmtReadRegister produces the value currently held in a physical
	// register at function entry or immediately after a call boundary.
	StmtReadRegister StatementKind = iota
	// StmtWriteRegister consumes a value and binds it to a physical
	// register, producing no SSA result.
	StmtWriteRegister
	// StmtAdd produces the wrapping sum of two operands.
	StmtAdd
)

// Statement is one instruction in a Block: an optional display name, a
// variant, and (iff value-producing) a RegisterAllocation filled in by the
// allocator.
type Statement struct {
	Name    string
	Kind    StatementKind
	FuncID  uint64
	BlockID int
	Index   int

	Allocation *RegisterAllocation

	// StmtReadRegister
	ReadFrom rvreg.Register

	// StmtWriteRegister
	WriteTo    rvreg.Register
	WriteValue *ValueInfo

	// StmtAdd
	AddA *ValueInfo
	AddB *ValueInfo

	// Restore bookkeeping: set by the allocator on a StmtWriteRegister when
	// its target register held a different live value that had to be moved
	// aside first (spec.md section 4.3, point 4).
	HasRestore       bool
	RestoreDisplaced *Statement
	RestoreTo        rvreg.Register
}

// ProducesValue reports whether this statement yields an SSA result and
// therefore must carry a RegisterAllocation after allocation.
func (s *Statement) ProducesValue() bool {
	return s.Kind == StmtReadRegister || s.Kind == StmtAdd
}

// Operands returns this statement's consumed ValueInfos, in left-to-right
// program order. Per the Design Notes, a statement never has more than two.
func (s *Statement) Operands() []*ValueInfo {
	switch s.Kind {
	case StmtWriteRegister:
		return []*ValueInfo{s.WriteValue}
	case StmtAdd:
		return []*ValueInfo{s.AddA, s.AddB}
	default:
		return nil
	}
}

// PreferredRegister returns the register this statement's OWN result should
// prefer, if any. Only StmtReadRegister has an intrinsic preference: it
// prefers to be allocated to the register it reads from, eliding a move.
func (s *Statement) PreferredRegister() (rvreg.Register, bool) {
	if s.Kind == StmtReadRegister {
		return s.ReadFrom, true
	}

	return rvreg.Zero, false
}

// Result returns the Value referring to this statement's produced result.
// Panics if the statement does not produce a value; callers must check
// ProducesValue first.
func (s *Statement) Result() Value {
	if !s.ProducesValue() {
		panic("ir: Result called on a non-value-producing statement")
	}

	return ResultValue(s.FuncID, s.BlockID, s.Index)
}
