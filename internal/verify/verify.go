// Package verify implements the Verifier: a second, independent simulation
// of an allocated Function that checks register-file consistency without
// trusting the allocator's own bookkeeping.
//
// Grounded on the per-register occupancy bookkeeping of
// SeleniaProject-Orizon's internal/codegen/regalloc (the same tracking shape
// internal/allocregs uses), recomputed here independently after allocation
// as a standalone pass over arbitrary CFG shapes.
package verify

import (
	"github.com/rv64core/rv64core/internal/ir"
	"github.com/rv64core/rv64core/internal/rverrors"
)

// pathState is one in-flight simulation branch: a block to visit plus the
// simulated register file and spill contents flowing into it.
type pathState struct {
	block   int
	rf      *ir.RegisterFile
	spilled map[int]ir.Value
}

// VerifyRegisterAllocation re-executes f's allocated program in program
// order, starting from the prologue, following every successor edge at most
// once, and reports the first inconsistency found.
func VerifyRegisterAllocation(f *ir.Function) error {
	if !f.HasSpillSize() {
		return rverrors.Wrap(rverrors.CategoryVerification, "verify_register_allocation called before allocate_registers", rverrors.ErrNoRegisterAllocation)
	}

	edgeVisited := make(map[[2]int]bool)
	stack := []*pathState{{
		block:   f.PrologueBlock().ID,
		rf:      ir.NewRegisterFile(),
		spilled: make(map[int]ir.Value),
	}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		b := f.Blocks[cur.block]

		for _, stmt := range b.Statements {
			if err := simulateStatement(stmt, cur.rf, cur.spilled); err != nil {
				return err
			}
		}

		for _, succ := range b.Successors() {
			edge := [2]int{cur.block, succ}
			if edgeVisited[edge] {
				continue
			}
			edgeVisited[edge] = true

			stack = append(stack, &pathState{
				block:   succ,
				rf:      cur.rf.Clone(),
				spilled: cloneSpilled(cur.spilled),
			})
		}
	}

	return nil
}

func cloneSpilled(m map[int]ir.Value) map[int]ir.Value {
	clone := make(map[int]ir.Value, len(m))
	for k, v := range m {
		clone[k] = v
	}

	return clone
}

// simulateStatement applies one statement's effect to the simulated state,
// in the order spec.md section 4.4 describes: before actions, operand
// consistency checks, the statement's own result, then after actions.
func simulateStatement(stmt *ir.Statement, rf *ir.RegisterFile, spilled map[int]ir.Value) error {
	for _, vi := range stmt.Operands() {
		if vi == nil || vi.Before == nil {
			continue
		}
		if err := applyAction(vi, vi.Before, rf, spilled); err != nil {
			return err
		}
	}

	for _, vi := range stmt.Operands() {
		if vi == nil || !vi.HasRegister {
			continue
		}

		got, ok := rf.Get(vi.Register)
		if !ok || !ir.SameValue(got, vi.Value) {
			return rverrors.Wrap(rverrors.CategoryVerification, "operand register does not hold the expected value", rverrors.ErrRegisterHoldsDifferentValue)
		}
	}

	if stmt.Kind == ir.StmtWriteRegister && stmt.HasRestore && stmt.RestoreDisplaced != nil {
		rf.Set(stmt.RestoreTo, stmt.RestoreDisplaced.Result())
	}

	if stmt.ProducesValue() {
		if stmt.Allocation == nil {
			return rverrors.Wrap(rverrors.CategoryVerification, "value-producing statement has no allocation", rverrors.ErrMissingAllocation)
		}

		switch stmt.Allocation.Kind {
		case ir.AllocRegister:
			if stmt.Allocation.Register.IsZero() {
				return rverrors.Wrap(rverrors.CategoryVerification, "x0 is not a legal allocation target", rverrors.ErrInvalidRegister)
			}
			rf.Set(stmt.Allocation.Register, stmt.Result())
		case ir.AllocSpill:
			spilled[stmt.Allocation.Slot] = stmt.Result()
		default:
			return rverrors.Wrap(rverrors.CategoryVerification, "allocation present with no kind set", rverrors.ErrMissingAllocation)
		}
	} else if stmt.Allocation != nil {
		return rverrors.Wrap(rverrors.CategoryVerification, "non-value statement carries an allocation", rverrors.ErrAllocationForNonValue)
	}

	if stmt.Kind == ir.StmtWriteRegister {
		vi := stmt.WriteValue
		if vi.NeedsRegister() {
			rf.Set(stmt.WriteTo, vi.Value)
		} else {
			rf.Clear(stmt.WriteTo)
		}
	}

	for _, vi := range stmt.Operands() {
		if vi == nil || vi.After == nil {
			continue
		}
		// An after-reload restores the value evicted from vi's register,
		// not vi's own value: load whatever the slot holds.
		if vi.After.Kind == ir.MemLoadFromSpill {
			evicted, ok := spilled[vi.After.Slot]
			if !ok {
				return rverrors.Wrap(rverrors.CategoryVerification, "spill slot is empty at reload", rverrors.ErrInvalidMemoryAction)
			}
			rf.Set(vi.Register, evicted)

			continue
		}
		if err := applyAction(vi, vi.After, rf, spilled); err != nil {
			return err
		}
	}

	return nil
}

func applyAction(vi *ir.ValueInfo, action *ir.MemAction, rf *ir.RegisterFile, spilled map[int]ir.Value) error {
	switch action.Kind {
	case ir.MemLoadImmediate:
		rf.Set(vi.Register, vi.Value)
	case ir.MemLoadFromSpill:
		expected, ok := spilled[action.Slot]
		if !ok || !ir.SameValue(expected, vi.Value) {
			return rverrors.Wrap(rverrors.CategoryVerification, "spill slot does not hold the expected value", rverrors.ErrInvalidMemoryAction)
		}
		rf.Set(vi.Register, vi.Value)
	case ir.MemStoreToSpill:
		spilled[action.Slot] = vi.Value
	default:
		return rverrors.Wrap(rverrors.CategoryVerification, "unknown memory action kind", rverrors.ErrInvalidMemoryAction)
	}

	return nil
}
