// Package rvreg defines the RV64I physical register identity and the ABI
// roles assigned to each of the 32 integer registers.
package rvreg

import "fmt"

// Register identifies one of the 32 RV64I integer registers, x0 through x31.
type Register int

// NumRegisters is the size of the RV64I integer register file.
const NumRegisters = 32

// The 32 integer registers named by their ABI role.
const (
	Zero Register = iota // x0, hard-wired zero
	RA                   // x1, return address
	SP                   // x2, stack pointer
	GP                   // x3, global pointer
	TP                   // x4, thread pointer
	T0                   // x5, temporary
	T1                   // x6, temporary
	T2                   // x7, temporary
	FP                   // x8 / s0, frame pointer (also saved register 0)
	S1                   // x9, saved
	A0                   // x10, argument 0 / return value 0
	A1                   // x11, argument 1 / return value 1
	A2                   // x12, argument 2
	A3                   // x13, argument 3
	A4                   // x14, argument 4
	A5                   // x15, argument 5
	A6                   // x16, argument 6
	A7                   // x17, argument 7
	S2                   // x18, saved
	S3                   // x19, saved
	S4                   // x20, saved
	S5                   // x21, saved
	S6                   // x22, saved
	S7                   // x23, saved
	S8                   // x24, saved
	S9                   // x25, saved
	S10                  // x26, saved
	S11                  // x27, saved
	T3                   // x28, temporary
	T4                   // x29, temporary
	T5                   // x30, temporary
	T6                   // x31, temporary
)

var names = [NumRegisters]string{
	Zero: "zero", RA: "ra", SP: "sp", GP: "gp", TP: "tp",
	T0: "t0", T1: "t1", T2: "t2",
	FP: "fp",
	S1: "s1",
	A0: "a0", A1: "a1", A2: "a2", A3: "a3", A4: "a4", A5: "a5", A6: "a6", A7: "a7",
	S2: "s2", S3: "s3", S4: "s4", S5: "s5", S6: "s6", S7: "s7", S8: "s8", S9: "s9", S10: "s10", S11: "s11",
	T3: "t3", T4: "t4", T5: "t5", T6: "t6",
}

// String renders the register in its RISC-V ABI name, e.g. "a0" or "fp".
func (r Register) String() string {
	if r < 0 || int(r) >= NumRegisters {
		return fmt.Sprintf("x%d(invalid)", int(r))
	}

	return names[r]
}

// Index returns the raw xN encoding index, 0-31.
func (r Register) Index() int { return int(r) }

// Valid reports whether r names one of the 32 RV64I integer registers.
func (r Register) Valid() bool { return r >= 0 && int(r) < NumRegisters }

// IsZero reports whether r is the hard-wired zero register.
func (r Register) IsZero() bool { return r == Zero }

// CalleeSaved is the set of registers a callee must preserve across a call,
// per the RISC-V calling convention: ra, sp, gp, tp, fp/s0, s1-s11.
var CalleeSaved = [...]Register{RA, SP, GP, TP, FP, S1, S2, S3, S4, S5, S6, S7, S8, S9, S10, S11}

// IsCalleeSaved reports whether r must be preserved across a call boundary.
func IsCalleeSaved(r Register) bool {
	for _, c := range CalleeSaved {
		if c == r {
			return true
		}
	}

	return false
}

// argRegisters maps the first eight argument positions to a0..a7; the RISC-V
// calling convention defines no integer argument registers beyond a7.
var argRegisters = [8]Register{A0, A1, A2, A3, A4, A5, A6, A7}

// ArgRegister returns the physical register holding integer argument index i
// (0-based). Only the first eight arguments are register-mapped.
func ArgRegister(i int) (Register, bool) {
	if i < 0 || i >= len(argRegisters) {
		return Zero, false
	}

	return argRegisters[i], true
}

// MaxUsableIndex is the highest allocatable register index: x0 (zero) and
// fp/s0 (frame pointer) are excluded from the free-register search, so the
// backward walk scans 31 downward but skips 0 and FP's index.
const MaxUsableIndex = NumRegisters - 1

// Allocatable reports whether r is a candidate for general allocation, i.e.
// neither the hard-wired zero register nor the frame pointer.
func Allocatable(r Register) bool {
	return r.Valid() && r != Zero && r != FP
}
