package materialize

import (
	"encoding/binary"
	"fmt"

	"github.com/rv64core/rv64core/internal/rverrors"
	"github.com/rv64core/rv64core/internal/rvreg"
)

// DisassembleText decodes a RV64I .text byte stream back into one mnemonic
// line per instruction word. It is the inverse of the encoders in encode.go,
// used only by tests as an in-repo stand-in for readelf/objdump: spec.md
// section 6 requires the emitted object to be byte-accurately disassemblable
// by an external tool, and this gives that property a dependency-free,
// in-process check.
func DisassembleText(text []byte) ([]string, error) {
	if len(text)%4 != 0 {
		return nil, rverrors.Wrap(rverrors.CategoryMaterialize, "text length is not a multiple of 4", rverrors.ErrInvalidValue)
	}

	lines := make([]string, 0, len(text)/4)
	for i := 0; i < len(text); i += 4 {
		w := binary.LittleEndian.Uint32(text[i:])
		line, err := decodeWord(w)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, nil
}

func decodeWord(w uint32) (string, error) {
	opcode := w & 0x7F
	rd := rvreg.Register((w >> 7) & 0x1F)
	funct3 := (w >> 12) & 0x7
	rs1 := rvreg.Register((w >> 15) & 0x1F)
	rs2 := rvreg.Register((w >> 20) & 0x1F)
	funct7 := (w >> 25) & 0x7F

	switch opcode {
	case opOp:
		if funct3 == funct3Add && funct7 == funct7Add {
			return fmt.Sprintf("add %s,%s,%s", rd, rs1, rs2), nil
		}
	case opOpImm:
		imm := signExtend12(w >> 20)
		if funct3 == funct3Addi {
			if imm == 0 {
				return fmt.Sprintf("mv %s,%s", rd, rs1), nil
			}
			if rs1 == rvreg.Zero {
				return fmt.Sprintf("li %s,%d", rd, imm), nil
			}

			return fmt.Sprintf("addi %s,%s,%d", rd, rs1, imm), nil
		}
	case opOpImm32:
		imm := signExtend12(w >> 20)
		if funct3 == funct3Addiw {
			return fmt.Sprintf("addiw %s,%s,%d", rd, rs1, imm), nil
		}
	case opLoad:
		imm := signExtend12(w >> 20)
		if funct3 == funct3Ld {
			return fmt.Sprintf("ld %s,%d(%s)", rd, imm, rs1), nil
		}
	case opStore:
		imm := signExtend12(((w >> 25) << 5) | ((w >> 7) & 0x1F))
		if funct3 == funct3Sd {
			return fmt.Sprintf("sd %s,%d(%s)", rs2, imm, rs1), nil
		}
	case opLui:
		imm20 := w >> 12

		return fmt.Sprintf("lui %s,%#x", rd, imm20), nil
	case opJalr:
		if funct3 == funct3Jalr {
			imm := signExtend12(w >> 20)
			if rd == rvreg.Zero && rs1 == rvreg.RA && imm == 0 {
				return "ret", nil
			}

			return fmt.Sprintf("jalr %s,%s,%d", rd, rs1, imm), nil
		}
	}

	return "", rverrors.Wrap(rverrors.CategoryMaterialize, fmt.Sprintf("word %#08x does not decode to a known RV64I instruction", w), rverrors.ErrInvalidValue)
}

// signExtend12 sign-extends the low 12 bits of v.
func signExtend12(v uint32) int32 {
	v &= 0xFFF
	if v&0x800 != 0 {
		return int32(v) - 0x1000
	}

	return int32(v)
}
