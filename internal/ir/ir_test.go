package ir

import (
	"testing"

	"github.com/rv64core/rv64core/internal/rvreg"
)

func TestNewFunctionFixedBlocks(t *testing.T) {
	f := NewFunction("f")

	if len(f.Blocks) != 3 {
		t.Fatalf("expected 3 fixed blocks, got %d", len(f.Blocks))
	}
	if f.PrologueBlock().Exit.Kind != ExitJump || f.PrologueBlock().Exit.Target != f.EntryBlock().ID {
		t.Fatalf("prologue must unconditionally jump to entry")
	}
	if f.EpilogueBlock().Exit.Kind != ExitFunctionExit {
		t.Fatalf("epilogue exit must be FunctionExit")
	}
	if len(f.SavedRegisters) != 11 {
		t.Fatalf("expected 11 saved callee-saved registers, got %d", len(f.SavedRegisters))
	}
}

func TestReadWriteZeroRegister(t *testing.T) {
	f := NewFunction("f")
	entry := f.EntryBlock()

	before := len(entry.Statements)
	v := entry.AppendReadRegister(rvreg.Zero, "")
	if !v.IsConstant() || v.Constant() != 0 {
		t.Fatalf("reading x0 must yield Constant(0), got %+v", v)
	}
	if len(entry.Statements) != before {
		t.Fatalf("reading x0 must not emit a statement")
	}

	if err := entry.AppendWriteRegister(rvreg.Zero, ConstantValue(42)); err != nil {
		t.Fatalf("writing x0 must not error: %v", err)
	}
	if len(entry.Statements) != before {
		t.Fatalf("writing x0 must be a silent no-op")
	}
}

func TestAppendAddFoldsConstants(t *testing.T) {
	f := NewFunction("f")
	entry := f.EntryBlock()

	before := len(entry.Statements)
	sum, err := entry.AppendAdd(ConstantValue(3), ConstantValue(4), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sum.IsConstant() || sum.Constant() != 7 {
		t.Fatalf("expected folded constant 7, got %+v", sum)
	}
	if len(entry.Statements) != before {
		t.Fatalf("folding both-constant add must not emit a statement")
	}
}

func TestAppendAddSwapsConstantToB(t *testing.T) {
	f := NewFunction("f")
	entry := f.EntryBlock()

	param, err := f.AddParameter("p")
	if err != nil {
		t.Fatalf("AddParameter: %v", err)
	}

	sum, err := entry.AppendAdd(ConstantValue(21), param, "sum")
	if err != nil {
		t.Fatalf("AppendAdd: %v", err)
	}

	stmt, err := f.StatementAt(sum.BlockID(), sum.StatementIndex())
	if err != nil {
		t.Fatalf("StatementAt: %v", err)
	}
	if stmt.AddA.Value.IsConstant() {
		t.Fatalf("a operand must not be the constant after normalization")
	}
	if !stmt.AddB.Value.IsConstant() || stmt.AddB.Value.Constant() != 21 {
		t.Fatalf("b operand must carry the swapped-in constant 21")
	}
	if stmt.AddA.Policy.Kind != ImmNone {
		t.Fatalf("a's policy must forbid immediate folding")
	}
	if stmt.AddB.Policy.Kind != ImmSized || stmt.AddB.Policy.Bits != 12 || !stmt.AddB.Policy.Signed {
		t.Fatalf("b's policy must be signed 12-bit")
	}
}

func TestAddRejectsForeignValue(t *testing.T) {
	f1 := NewFunction("f1")
	f2 := NewFunction("f2")

	foreign, err := f2.AddParameter("x")
	if err != nil {
		t.Fatalf("AddParameter: %v", err)
	}

	_, err = f1.EntryBlock().AppendAdd(foreign, ConstantValue(1), "")
	if err == nil {
		t.Fatalf("expected InvalidValue error referencing a foreign function")
	}
}

func TestSetFunctionExitOnlyOnce(t *testing.T) {
	f := NewFunction("f")
	entry := f.EntryBlock()

	ret, _ := f.AddParameter("p")
	if err := f.SetFunctionExit(entry, ret); err != nil {
		t.Fatalf("first SetFunctionExit must succeed: %v", err)
	}
	if err := f.SetFunctionExit(entry, ret); err == nil {
		t.Fatalf("second SetFunctionExit must fail with MultipleExits")
	}
}

func TestNeedsRegisterPredicate(t *testing.T) {
	tests := []struct {
		name   string
		policy Immediate
		value  Value
		want   bool
	}{
		{name: "result_always_needs_register", policy: NoImmediate(), value: ResultValue(1, 0, 0), want: true},
		{name: "none_policy_constant", policy: NoImmediate(), value: ConstantValue(5), want: true},
		{name: "unlimited_policy_constant", policy: UnlimitedImmediate(), value: ConstantValue(1 << 40), want: false},
		{name: "sized_fits", policy: SizedImmediate(12, true), value: ConstantValue(21), want: false},
		{name: "sized_does_not_fit", policy: SizedImmediate(12, true), value: ConstantValue(80000000), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.NeedsRegister(tt.value); got != tt.want {
				t.Fatalf("NeedsRegister() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeRegisterFilesDetectsConflict(t *testing.T) {
	a := NewRegisterFile()
	a.Set(rvreg.A0, ConstantValue(1))

	b := NewRegisterFile()
	b.Set(rvreg.A0, ConstantValue(2))

	if _, err := MergeRegisterFiles([]*RegisterFile{a, b}); err == nil {
		t.Fatalf("expected InvalidMerge error for disagreeing register files")
	}

	c := NewRegisterFile()
	merged, err := MergeRegisterFiles([]*RegisterFile{a, c})
	if err != nil {
		t.Fatalf("merging with an empty file must succeed: %v", err)
	}
	if v, ok := merged.Get(rvreg.A0); !ok || v.Constant() != 1 {
		t.Fatalf("empty-plus-anything must yield the non-empty value")
	}
}

func TestSpillPutDelete(t *testing.T) {
	s := NewSpill()

	slot0 := s.Put(ConstantValue(1))
	slot1 := s.Put(ConstantValue(2))
	if slot0 != 0 || slot1 != 1 {
		t.Fatalf("expected sequential slots 0,1, got %d,%d", slot0, slot1)
	}

	s.Delete(slot0)
	slot2 := s.Put(ConstantValue(3))
	if slot2 != 0 {
		t.Fatalf("expected reused lowest free slot 0, got %d", slot2)
	}
}
