// Package allocregs implements the dominator-tree-directed, reverse-walk
// register allocator: it assigns every value-producing statement either a
// physical register or a spill slot, honors the hard register constraints
// WriteRegister imposes, and records reload/restore actions at use sites.
//
// Grounded on the shape of SeleniaProject-Orizon's
// internal/codegen/regalloc allocator (struct layout, error wrapping via
// CodegenError, eviction-by-score eviction policy) but implementing a
// different algorithm: that allocator is a linear-scan allocator over
// virtual-register live intervals; this one walks the CFG post-order
// backward, which is the allocator the source's newer, CFG-aware
// implementation describes (the Design Notes direct implementers away from
// the superseded spill-slot allocator).
package allocregs

import (
	"github.com/rv64core/rv64core/internal/cfg"
	"github.com/rv64core/rv64core/internal/ir"
	"github.com/rv64core/rv64core/internal/rverrors"
	"github.com/rv64core/rv64core/internal/rvreg"
)

// locationKind distinguishes where the allocator currently believes a value
// lives during the backward walk.
type locationKind int

const (
	locRegister locationKind = iota
	locSpill
)

type location struct {
	kind     locationKind
	register rvreg.Register
	slot     int
}

// valueKey identifies an ir.Value for the allocator's own bookkeeping maps.
// Constants key on their literal payload; results key on their (func, block,
// statement) coordinates.
type valueKey struct {
	constant bool
	payload  uint64
	funcID   uint64
	blockID  int
	stmtIdx  int
}

func keyOf(v ir.Value) valueKey {
	if v.IsConstant() {
		return valueKey{constant: true, payload: v.Constant()}
	}

	return valueKey{funcID: v.FuncID(), blockID: v.BlockID(), stmtIdx: v.StatementIndex()}
}

// allocator carries the state that persists across the whole backward walk
// over every block of a Function, in post-order.
type allocator struct {
	f        *ir.Function
	g        *cfg.Graph
	spill    *ir.Spill
	valueLoc map[valueKey]location
}

// AllocateRegisters assigns a physical register or spill slot to every
// value-producing statement of f, and a register to every operand whose
// immediate policy requires one. It walks f's CFG post-order — equivalently,
// the dominator tree from leaves toward the root — performing a reverse
// (last-use-first) pass over each block's statements.
func AllocateRegisters(f *ir.Function) error {
	g := f.ComputeCFG()

	a := &allocator{
		f:        f,
		g:        g,
		spill:    ir.NewSpill(),
		valueLoc: make(map[valueKey]location),
	}

	for _, blockID := range g.PostOrder() {
		if err := a.allocateBlock(f.Blocks[blockID]); err != nil {
			return err
		}
	}

	f.SetSpillSize(a.spill.Len())

	return nil
}

// allocateBlock merges b's successors' register files (step 1), then walks
// b's statements in reverse (steps 2-4).
func (a *allocator) allocateBlock(b *ir.Block) error {
	successors := b.Successors()
	files := make([]*ir.RegisterFile, 0, len(successors))
	for _, s := range successors {
		if sf := a.f.Blocks[s].RegisterFile; sf != nil {
			files = append(files, sf)
		}
	}

	rf, err := ir.MergeRegisterFiles(files)
	if err != nil {
		return rverrors.Wrap(rverrors.CategoryAllocation, "merging successor register files", err)
	}

	a.syncTrackingFromRegisterFile(rf)

	for i := len(b.Statements) - 1; i >= 0; i-- {
		stmt := b.Statements[i]

		// Free the statement's own result slot first (spec.md section 4.3,
		// step 2) so an operand resolved immediately afterward (step 3) can
		// reuse the register the result just vacated.
		if stmt.ProducesValue() {
			if err := a.resolveProducer(rf, stmt); err != nil {
				return err
			}
		}

		switch stmt.Kind {
		case ir.StmtWriteRegister:
			if err := a.resolveWriteRegister(rf, stmt); err != nil {
				return err
			}
		case ir.StmtAdd:
			if err := a.resolveOperand(rf, stmt.AddA); err != nil {
				return err
			}
			if err := a.resolveOperand(rf, stmt.AddB); err != nil {
				return err
			}
		}
	}

	b.RegisterFile = rf

	return nil
}

// syncTrackingFromRegisterFile discards stale register-location entries left
// over from a sibling block and rebuilds them from rf, the freshly merged
// state this block's walk actually starts from. Spill entries are untouched:
// a value spilled earlier in the walk (i.e. later in program order) stays
// spilled regardless of which block we are entering.
func (a *allocator) syncTrackingFromRegisterFile(rf *ir.RegisterFile) {
	for k, loc := range a.valueLoc {
		if loc.kind == locRegister {
			delete(a.valueLoc, k)
		}
	}

	for i := 0; i < rvreg.NumRegisters; i++ {
		reg := rvreg.Register(i)
		if v, ok := rf.Get(reg); ok {
			a.valueLoc[keyOf(v)] = location{kind: locRegister, register: reg}
		}
	}
}

// resolveProducer finalizes the RegisterAllocation of a value-producing
// statement: if some later (already-processed) use seeded an allocation for
// its result, adopt it and free the slot; otherwise the result is dead
// (never consumed) and still needs a present allocation per the contract.
func (a *allocator) resolveProducer(rf *ir.RegisterFile, stmt *ir.Statement) error {
	result := stmt.Result()
	key := keyOf(result)

	loc, tracked := a.valueLoc[key]
	if !tracked {
		preferredReg, preferredOk := stmt.PreferredRegister()

		reg, _, err := a.acquireRegister(rf, preferredReg, preferredOk)
		if err != nil {
			return err
		}

		stmt.Allocation = &ir.RegisterAllocation{Kind: ir.AllocRegister, Register: reg}
		rf.Clear(reg)

		return nil
	}

	delete(a.valueLoc, key)

	switch loc.kind {
	case locRegister:
		stmt.Allocation = &ir.RegisterAllocation{Kind: ir.AllocRegister, Register: loc.register}
		rf.Clear(loc.register)
	case locSpill:
		stmt.Allocation = &ir.RegisterAllocation{Kind: ir.AllocSpill, Slot: loc.slot}
		a.spill.Delete(loc.slot)
	}

	return nil
}

// resolveOperand implements find_read_register for one consumed ValueInfo.
func (a *allocator) resolveOperand(rf *ir.RegisterFile, vi *ir.ValueInfo) error {
	if !vi.NeedsRegister() {
		return nil
	}

	preferredReg, preferredOk := a.preferenceFor(vi)

	key := keyOf(vi.Value)
	if loc, tracked := a.valueLoc[key]; tracked {
		switch loc.kind {
		case locRegister:
			vi.HasRegister = true
			vi.Register = loc.register

			return nil
		case locSpill:
			reg, evictedAfter, err := a.acquireRegister(rf, preferredReg, preferredOk)
			if err != nil {
				return err
			}

			if evictedAfter != nil {
				vi.After = evictedAfter
			}
			vi.Before = ir.LoadFromSpill(loc.slot)
			vi.HasRegister = true
			vi.Register = reg
			rf.Set(reg, vi.Value)
			a.valueLoc[key] = location{kind: locRegister, register: reg}

			return nil
		}
	}

	reg, evictedAfter, err := a.acquireRegister(rf, preferredReg, preferredOk)
	if err != nil {
		return err
	}

	vi.HasRegister = true
	vi.Register = reg
	if evictedAfter != nil {
		vi.After = evictedAfter
	}
	if vi.Value.IsConstant() {
		vi.Before = ir.LoadImmediate(vi.Value.Constant())
	}

	rf.Set(reg, vi.Value)
	a.valueLoc[key] = location{kind: locRegister, register: reg}

	return nil
}

// preferenceFor resolves the two preference sources spec.md section 4.3
// names: the operand's own construction-time hint (WriteRegister's operand
// hints at its write target), or failing that, the upstream producing
// statement's own preference (ReadRegister prefers its own physical
// register).
func (a *allocator) preferenceFor(vi *ir.ValueInfo) (rvreg.Register, bool) {
	if vi.HasPreferredRegister {
		return vi.PreferredRegister, true
	}
	if vi.Value.IsResult() {
		if prod, err := a.f.StatementAt(vi.Value.BlockID(), vi.Value.StatementIndex()); err == nil {
			if r, ok := prod.PreferredRegister(); ok {
				return r, ok
			}
		}
	}

	return rvreg.Zero, false
}

// resolveWriteRegister implements the hard-preference case: the target
// register is not merely preferred, it is required. Any different value
// currently occupying it must be relocated first, and the relocation is
// recorded on the statement so the materializer can emit the extra move.
//
// Like resolveOperand, it consults a.valueLoc before claiming the target
// register as vi.Value's canonical location: a producer may legally
// hard-write the same SSA value to two different physical registers (e.g.
// WriteRegister(a0, x) followed by WriteRegister(a1, x)). Walking backward,
// the second-processed write already pins x to one register; this write
// must only copy x into target, not overwrite that pin — otherwise the
// register file would show x still live in its original register with no
// tracked allocation behind it, and a later (earlier-processed) conflict
// there would spuriously "restore" a statement that was never displaced.
func (a *allocator) resolveWriteRegister(rf *ir.RegisterFile, stmt *ir.Statement) error {
	target := stmt.WriteTo
	vi := stmt.WriteValue

	if !vi.NeedsRegister() {
		rf.Clear(target)

		return nil
	}

	key := keyOf(vi.Value)

	if occ, ok := rf.Get(target); ok && !ir.SameValue(occ, vi.Value) {
		newReg, _, err := a.acquireRegister(rf, rvreg.Zero, false)
		if err != nil {
			return err
		}

		rf.Set(newReg, occ)
		if occ.IsResult() {
			a.valueLoc[keyOf(occ)] = location{kind: locRegister, register: newReg}
		}

		stmt.HasRestore = true
		stmt.RestoreTo = newReg
		if occ.IsResult() {
			if displaced, err := a.f.StatementAt(occ.BlockID(), occ.StatementIndex()); err == nil {
				stmt.RestoreDisplaced = displaced
			}
		}
	}

	if loc, tracked := a.valueLoc[key]; tracked {
		switch loc.kind {
		case locRegister:
			// vi.Value is already pinned elsewhere by another use; this
			// write only needs a copy into target (materialize.go emits it
			// automatically when vi.Register != stmt.WriteTo).
			vi.HasRegister = true
			vi.Register = loc.register
			rf.Clear(target)

			return nil
		case locSpill:
			// No existing register copy to read from; reload the spilled
			// value directly into target, the one register this write
			// needs it in anyway.
			vi.Before = ir.LoadFromSpill(loc.slot)
			vi.HasRegister = true
			vi.Register = target
			rf.Clear(target)

			return nil
		}
	}

	rf.Set(target, vi.Value)
	vi.HasRegister = true
	vi.Register = target
	a.valueLoc[key] = location{kind: locRegister, register: target}

	return nil
}

// acquireRegister finds a register for a new value, in the order spec.md
// section 4.3 names: the preferred register if free, else the
// highest-indexed free allocatable register, else an eviction. When an
// eviction happens and the evicted value is a live Result, the returned
// MemAction is LoadFromSpill(slot) and must be attached to the caller's own
// reader ValueInfo as its "after" action. Evicted constants need no spill at
// all: they can always be re-materialized with LoadImmediate on demand.
func (a *allocator) acquireRegister(rf *ir.RegisterFile, preferredReg rvreg.Register, preferredOk bool) (rvreg.Register, *ir.MemAction, error) {
	if preferredOk && rvreg.Allocatable(preferredReg) && rf.IsFree(preferredReg) {
		return preferredReg, nil, nil
	}

	for i := rvreg.MaxUsableIndex; i >= 0; i-- {
		r := rvreg.Register(i)
		if rvreg.Allocatable(r) && rf.IsFree(r) {
			return r, nil, nil
		}
	}

	return a.evict(rf)
}

// evict picks the occupant minimizing (dominator_tree_depth(block),
// statement_index) among all allocatable registers, per spec.md section
// 4.3's eviction scoring, and frees its register.
func (a *allocator) evict(rf *ir.RegisterFile) (rvreg.Register, *ir.MemAction, error) {
	bestReg := rvreg.Zero
	bestDepth, bestIndex := -1, -1
	found := false

	for i := 0; i < rvreg.NumRegisters; i++ {
		r := rvreg.Register(i)
		if !rvreg.Allocatable(r) {
			continue
		}

		v, ok := rf.Get(r)
		if !ok {
			continue
		}

		depth, index := a.scoreOf(v)
		if !found || depth < bestDepth || (depth == bestDepth && index < bestIndex) {
			bestReg, bestDepth, bestIndex, found = r, depth, index, true
		}
	}

	if !found {
		return rvreg.Zero, nil, rverrors.Wrap(rverrors.CategoryAllocation, "no free register and nothing to evict", rverrors.ErrNoRegister)
	}

	evicted, _ := rf.Get(bestReg)
	rf.Clear(bestReg)

	if evicted.IsConstant() {
		delete(a.valueLoc, keyOf(evicted))

		return bestReg, nil, nil
	}

	slot := a.spill.Put(evicted)
	a.valueLoc[keyOf(evicted)] = location{kind: locSpill, slot: slot}

	return bestReg, ir.LoadFromSpill(slot), nil
}

// scoreOf returns the (dominator_tree_depth, statement_index) eviction
// score for a live occupant. Constants, having no defining statement, score
// lowest so they are evicted before any live Result value.
func (a *allocator) scoreOf(v ir.Value) (int, int) {
	if v.IsConstant() {
		return -1, -1
	}

	return a.g.GetDominatorTreeDepth(v.BlockID()), v.StatementIndex()
}
