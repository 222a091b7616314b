package ir

import (
	"sync/atomic"

	"github.com/rv64core/rv64core/internal/cfg"
	"github.com/rv64core/rv64core/internal/rverrors"
	"github.com/rv64core/rv64core/internal/rvreg"
)

// nextFuncID is the process-wide monotonic counter minting Function
// identities, per spec.md section 5: a single atomic integer with relaxed
// ordering, used only for debug identity and foreign-Result rejection.
var nextFuncID uint64

// SavedRegister pairs a callee-saved register with the SSA value read from
// it at the prologue, so the epilogue can restore it later.
type SavedRegister struct {
	Register rvreg.Register
	Value    Value
}

// Function owns an ordered sequence of Blocks built by an external producer.
// Exactly three blocks exist from construction: prologue (0), epilogue (1),
// entry (2). The prologue unconditionally jumps to entry; the epilogue's
// exit is FunctionExit. The entry's terminator is set by the producer.
type Function struct {
	ID   uint64
	Name string

	Blocks []*Block

	cfgGraph *cfg.Graph

	SpillSize    int
	spillSizeSet bool

	SavedRegisters []SavedRegister

	paramCount int
	exitSet    bool
}

// calleeSavedGeneral is the set of callee-saved registers the prologue
// captures unconditionally and the epilogue unconditionally restores via
// AddPseudoInstructions. ra, sp, gp, tp and fp are not captured here; of
// these, only fp is saved and restored, by the materializer's frame setup
// and only when the function spills.
var calleeSavedGeneral = [...]rvreg.Register{
	rvreg.S1, rvreg.S2, rvreg.S3, rvreg.S4, rvreg.S5, rvreg.S6,
	rvreg.S7, rvreg.S8, rvreg.S9, rvreg.S10, rvreg.S11,
}

// NewFunction creates a Function named name, assigns it a process-unique id,
// and initializes its three fixed blocks.
func NewFunction(name string) *Function {
	id := atomic.AddUint64(&nextFuncID, 1)

	f := &Function{ID: id, Name: name}

	prologue := f.newBlock()
	epilogue := f.newBlock()
	entry := f.newBlock()

	prologue.Exit = Exit{Kind: ExitJump, Target: entry.ID}
	epilogue.Exit = Exit{Kind: ExitFunctionExit}

	for _, reg := range calleeSavedGeneral {
		v := prologue.AppendReadRegister(reg, "")
		f.SavedRegisters = append(f.SavedRegisters, SavedRegister{Register: reg, Value: v})
	}

	return f
}

func (f *Function) newBlock() *Block {
	b := &Block{ID: len(f.Blocks), FuncID: f.ID, fn: f}
	f.Blocks = append(f.Blocks, b)

	return b
}

// AddBlock appends a new block to the function and returns it.
func (f *Function) AddBlock() *Block { return f.newBlock() }

// PrologueBlock returns the fixed prologue block (id 0).
func (f *Function) PrologueBlock() *Block { return f.Blocks[0] }

// EpilogueBlock returns the fixed epilogue block (id 1).
func (f *Function) EpilogueBlock() *Block { return f.Blocks[1] }

// EntryBlock returns the fixed entry block (id 2).
func (f *Function) EntryBlock() *Block { return f.Blocks[2] }

// AddParameter reads the next ABI argument register into the prologue block
// and returns the resulting Value. Only the first eight arguments (a0-a7)
// are supported, per the RISC-V integer calling convention.
func (f *Function) AddParameter(name string) (Value, error) {
	reg, ok := rvreg.ArgRegister(f.paramCount)
	if !ok {
		return Value{}, rverrors.Wrap(rverrors.CategoryValue, "no argument register available", rverrors.ErrInvalidValue)
	}

	f.paramCount++

	return f.PrologueBlock().AppendReadRegister(reg, name), nil
}

// SetFunctionExit wires block's exit to the epilogue and appends a
// WriteRegister(a0, returnValue) to the epilogue. Legal exactly once per
// function.
func (f *Function) SetFunctionExit(block *Block, returnValue Value) error {
	if f.exitSet {
		return rverrors.Wrap(rverrors.CategoryFunction, "set_function_exit called twice", rverrors.ErrMultipleExits)
	}
	if block.FuncID != f.ID {
		return foreignBlockError()
	}
	if err := f.checkForeign(returnValue); err != nil {
		return err
	}

	block.Exit = Exit{Kind: ExitJump, Target: f.EpilogueBlock().ID}
	if err := f.EpilogueBlock().AppendWriteRegister(rvreg.A0, returnValue); err != nil {
		return err
	}

	f.exitSet = true

	return nil
}

// AddPseudoInstructions appends the epilogue WriteRegisters that restore
// each callee-saved register from the value captured at the prologue.
func (f *Function) AddPseudoInstructions() {
	epilogue := f.EpilogueBlock()
	for _, sr := range f.SavedRegisters {
		// Errors are impossible here: sr.Value always belongs to this
		// function, having been produced by this same constructor.
		_ = epilogue.AppendWriteRegister(sr.Register, sr.Value)
	}
}

// ComputeCFG (re)builds the control-flow graph from the current block exits
// and stores it on the function. Blocks are their own CFG node ids.
func (f *Function) ComputeCFG() *cfg.Graph {
	succ := make([][]int, len(f.Blocks))
	for i, b := range f.Blocks {
		succ[i] = b.Successors()
	}

	g := cfg.New(len(f.Blocks), succ)
	g.Analyze()
	f.cfgGraph = g

	return g
}

// CFG returns the cached control-flow graph, computing it first if absent.
func (f *Function) CFG() *cfg.Graph {
	if f.cfgGraph == nil {
		return f.ComputeCFG()
	}

	return f.cfgGraph
}

// SetSpillSize records the number of 8-byte spill slots the allocator used.
func (f *Function) SetSpillSize(n int) {
	f.SpillSize = n
	f.spillSizeSet = true
}

// HasSpillSize reports whether allocation has run and recorded a spill size.
func (f *Function) HasSpillSize() bool { return f.spillSizeSet }

// StatementAt looks up the statement at (blockID, index), returning an error
// if either coordinate is out of range.
func (f *Function) StatementAt(blockID, index int) (*Statement, error) {
	if blockID < 0 || blockID >= len(f.Blocks) {
		return nil, rverrors.Wrap(rverrors.CategoryValue, "block id out of range", rverrors.ErrInvalidValue)
	}

	b := f.Blocks[blockID]
	if index < 0 || index >= len(b.Statements) {
		return nil, rverrors.Wrap(rverrors.CategoryValue, "statement index out of range", rverrors.ErrInvalidValue)
	}

	return b.Statements[index], nil
}

// checkForeign rejects a Value whose Result refers to a different function.
func (f *Function) checkForeign(v Value) error {
	if v.IsResult() && v.FuncID() != f.ID {
		return rverrors.Wrap(rverrors.CategoryValue, "value refers to a foreign function", rverrors.ErrInvalidValue)
	}

	return nil
}

func foreignBlockError() error {
	return rverrors.Wrap(rverrors.CategoryValue, "block belongs to a foreign function", rverrors.ErrInvalidValue)
}
