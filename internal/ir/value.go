// Package ir implements the SSA-based intermediate representation consumed
// by the register allocator, verifier, and materializer: Function, Block,
// Statement, Value, ValueInfo, and the register-file/spill bookkeeping types
// used during allocation.
//
// Values and statements are referenced by (block id, statement index) pairs
// rather than pointers, per the Design Notes' "arena + index" guidance: a
// Function owns its Blocks, and a Block owns its Statements, in plain slices.
package ir

import "github.com/rv64core/rv64core/internal/rvreg"

// ValueKind distinguishes a compile-time constant from a reference to a
// statement's result.
type ValueKind int

const (
	// ValueConstant holds an immediate 64-bit value known at build time.
	ValueConstant ValueKind = iota
	// ValueResult refers to the result produced by a statement.
	ValueResult
)

// Value is either a compile-time Constant(u64) or a Result{block, index}
// reference to a prior statement's produced value.
type Value struct {
	kind      ValueKind
	constant  uint64
	funcID    uint64
	blockID   int
	stmtIndex int
}

// ConstantValue builds a compile-time constant Value.
func ConstantValue(c uint64) Value {
	return Value{kind: ValueConstant, constant: c}
}

// ResultValue builds a Value referring to the result of the statement at
// blockID/stmtIndex within the function identified by funcID.
func ResultValue(funcID uint64, blockID, stmtIndex int) Value {
	return Value{kind: ValueResult, funcID: funcID, blockID: blockID, stmtIndex: stmtIndex}
}

// IsConstant reports whether v is a compile-time constant.
func (v Value) IsConstant() bool { return v.kind == ValueConstant }

// IsResult reports whether v refers to a statement's produced value.
func (v Value) IsResult() bool { return v.kind == ValueResult }

// Constant returns the constant payload. Only meaningful when IsConstant.
func (v Value) Constant() uint64 { return v.constant }

// FuncID returns the owning function id of a Result value.
func (v Value) FuncID() uint64 { return v.funcID }

// BlockID returns the block id of a Result value.
func (v Value) BlockID() int { return v.blockID }

// StatementIndex returns the statement index within its block of a Result
// value.
func (v Value) StatementIndex() int { return v.stmtIndex }

// ImmediateKind selects how a ValueInfo's constant may be folded into an
// instruction encoding.
type ImmediateKind int

const (
	// ImmNone means the value may never be folded into an immediate field;
	// it must always occupy a register.
	ImmNone ImmediateKind = iota
	// ImmUnlimited means any constant value may be materialized directly
	// (e.g. via an li sequence) without first requiring a register.
	ImmUnlimited
	// ImmSized means a constant may be folded only if it fits within Bits
	// bits, signed or unsigned per Signed.
	ImmSized
)

// Immediate describes a ValueInfo's eligibility for folding into an
// instruction's immediate field.
type Immediate struct {
	Kind   ImmediateKind
	Bits   int
	Signed bool
}

// NoImmediate forbids folding; the value always needs a register.
func NoImmediate() Immediate { return Immediate{Kind: ImmNone} }

// UnlimitedImmediate allows folding any constant regardless of magnitude.
func UnlimitedImmediate() Immediate { return Immediate{Kind: ImmUnlimited} }

// SizedImmediate allows folding a constant that fits in the given bit width.
func SizedImmediate(bits int, signed bool) Immediate {
	return Immediate{Kind: ImmSized, Bits: bits, Signed: signed}
}

// NeedsRegister is the pure predicate over (policy, value) from spec.md
// section 3: a non-constant value always needs a register; a constant needs
// one unless the policy permits folding it at its current magnitude.
func (p Immediate) NeedsRegister(v Value) bool {
	if !v.IsConstant() {
		return true
	}

	switch p.Kind {
	case ImmUnlimited:
		return false
	case ImmSized:
		return !fitsSigned(v.Constant(), p.Bits)
	default:
		return true
	}
}

// fitsSigned reports whether the wrapping 64-bit value v, reinterpreted as
// signed, fits within a signed field of the given bit width.
func fitsSigned(v uint64, bits int) bool {
	if bits <= 0 {
		return false
	}
	if bits >= 64 {
		return true
	}

	sv := int64(v)
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << (bits - 1)) - 1

	return sv >= lo && sv <= hi
}

// MemActionKind enumerates the before/after memory actions an allocator may
// attach to a ValueInfo.
type MemActionKind int

const (
	// MemLoadImmediate materializes a constant into the operand's register.
	MemLoadImmediate MemActionKind = iota
	// MemLoadFromSpill reloads a spilled value into the operand's register.
	MemLoadFromSpill
	// MemStoreToSpill spills the operand's register to a stack slot.
	MemStoreToSpill
)

// MemAction is one before/after memory action attached to a ValueInfo by the
// allocator.
type MemAction struct {
	Kind      MemActionKind
	Immediate uint64
	Slot      int
}

// LoadImmediate returns a MemAction that materializes c into the register.
func LoadImmediate(c uint64) *MemAction {
	return &MemAction{Kind: MemLoadImmediate, Immediate: c}
}

// LoadFromSpill returns a MemAction that reloads spill slot.
func LoadFromSpill(slot int) *MemAction {
	return &MemAction{Kind: MemLoadFromSpill, Slot: slot}
}

// StoreToSpill returns a MemAction that spills to slot.
func StoreToSpill(slot int) *MemAction {
	return &MemAction{Kind: MemStoreToSpill, Slot: slot}
}

// ValueInfo wraps an operand Value with the allocator's working state: the
// register it currently occupies (once assigned), the before/after memory
// actions needed to get it there, and the immediate-folding policy. This is
// the type referred to as "ReadAllocation" in spec.md section 4.3.
type ValueInfo struct {
	Value  Value
	Policy Immediate

	HasRegister bool
	Register    rvreg.Register

	// HasPreferredRegister/PreferredRegister is a construction-time hint:
	// e.g. a WriteRegister's own operand hints at its write target so the
	// producing statement's result is allocated directly into that register,
	// eliding a move (spec.md scenario 2).
	HasPreferredRegister bool
	PreferredRegister    rvreg.Register

	Before *MemAction
	After  *MemAction
}

// NewValueInfo builds an operand ValueInfo wrapping v under the given
// immediate policy.
func NewValueInfo(v Value, policy Immediate) ValueInfo {
	return ValueInfo{Value: v, Policy: policy}
}

// NeedsRegister reports whether this operand must occupy a register given
// its current value and immediate policy.
func (vi *ValueInfo) NeedsRegister() bool {
	return vi.Policy.NeedsRegister(vi.Value)
}

// AllocKind distinguishes a register allocation from a spill allocation for
// a value-producing statement's own result.
type AllocKind int

const (
	// AllocNone marks a statement that does not yet have an allocation.
	AllocNone AllocKind = iota
	// AllocRegister means the produced value lives in a physical register.
	AllocRegister
	// AllocSpill means the produced value lives in a stack spill slot.
	AllocSpill
)

// RegisterAllocation records where a value-producing statement's result
// lives after allocation: either a physical register or a spill slot.
type RegisterAllocation struct {
	Kind     AllocKind
	Register rvreg.Register
	Slot     int
}
