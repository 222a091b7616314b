package ir

import "github.com/rv64core/rv64core/internal/rvreg"

// ExitKind distinguishes a Block's two possible terminators.
type ExitKind int

const (
	// ExitNone marks a block whose terminator has not been set yet.
	ExitNone ExitKind = iota
	// ExitJump unconditionally transfers control to Target.
	ExitJump
	// ExitFunctionExit marks the function's single exit point (the
	// epilogue).
	ExitFunctionExit
)

// Exit is a Block's terminator: either Jump(target) or FunctionExit.
type Exit struct {
	Kind   ExitKind
	Target int // block id, valid iff Kind == ExitJump
}

// Block owns an ordered list of Statements and exactly one Exit. Its id is
// unique within its owning function; FuncID back-links to that function so
// operations can reject cross-function values.
type Block struct {
	ID      int
	FuncID  uint64
	fn      *Function
	Statements []*Statement
	Exit    Exit

	// RegisterFile is the post-allocation snapshot used to coordinate
	// allocation across the dominator tree (spec.md section 3).
	RegisterFile *RegisterFile
}

// AppendReadRegister appends a ReadRegister statement reading r, returning
// the Value it produces. Reading x0 is a pure identity: it returns
// Constant(0) without emitting a statement, per spec.md's x0 modeling rule.
func (b *Block) AppendReadRegister(r rvreg.Register, name string) Value {
	if r == rvreg.Zero {
		return ConstantValue(0)
	}

	stmt := &Statement{
		Name:     name,
		Kind:     StmtReadRegister,
		FuncID:   b.FuncID,
		BlockID:  b.ID,
		ReadFrom: r,
	}
	stmt.Index = len(b.Statements)
	b.Statements = append(b.Statements, stmt)

	return stmt.Result()
}

// AppendWriteRegister appends a WriteRegister statement binding v to
// register r. Writing to x0 is silently discarded, per spec.md's x0
// modeling rule. Returns an error if v refers to a foreign function.
func (b *Block) AppendWriteRegister(r rvreg.Register, v Value) error {
	if err := b.fn.checkForeign(v); err != nil {
		return err
	}
	if r == rvreg.Zero {
		return nil
	}

	vi := NewValueInfo(v, UnlimitedImmediate())
	vi.HasPreferredRegister = true
	vi.PreferredRegister = r

	stmt := &Statement{
		Kind:       StmtWriteRegister,
		FuncID:     b.FuncID,
		BlockID:    b.ID,
		WriteTo:    r,
		WriteValue: &vi,
	}
	stmt.Index = len(b.Statements)
	b.Statements = append(b.Statements, stmt)

	return nil
}

// AppendAdd appends an Add statement computing the wrapping sum of a and b.
// If both operands are compile-time constants, the add folds immediately and
// no statement is emitted. If exactly one operand is constant, it is swapped
// into the b position so it becomes the commutative-add immediate candidate,
// eligible for a signed 12-bit immediate; a's policy forbids folding.
// Returns an error if either operand refers to a foreign function.
func (b *Block) AppendAdd(a, c Value, name string) (Value, error) {
	if err := b.fn.checkForeign(a); err != nil {
		return Value{}, err
	}
	if err := b.fn.checkForeign(c); err != nil {
		return Value{}, err
	}

	if a.IsConstant() && c.IsConstant() {
		return ConstantValue(a.Constant() + c.Constant()), nil
	}

	if a.IsConstant() && !c.IsConstant() {
		a, c = c, a
	}

	aInfo := NewValueInfo(a, NoImmediate())
	bInfo := NewValueInfo(c, SizedImmediate(12, true))

	stmt := &Statement{
		Name:    name,
		Kind:    StmtAdd,
		FuncID:  b.FuncID,
		BlockID: b.ID,
		AddA:    &aInfo,
		AddB:    &bInfo,
	}
	stmt.Index = len(b.Statements)
	b.Statements = append(b.Statements, stmt)

	return stmt.Result(), nil
}

// Jump sets this block's exit to an unconditional jump to target. Returns an
// error if target belongs to a different function.
func (b *Block) Jump(target *Block) error {
	if target.FuncID != b.FuncID {
		return foreignBlockError()
	}

	b.Exit = Exit{Kind: ExitJump, Target: target.ID}

	return nil
}

// Successors returns the block ids this block may transfer control to: zero
// or one for Jump/FunctionExit as currently produced, though the CFG module
// tolerates up to two (spec.md's invariant on bounded successor arrays).
func (b *Block) Successors() []int {
	if b.Exit.Kind == ExitJump {
		return []int{b.Exit.Target}
	}

	return nil
}
