package materialize

import "github.com/rv64core/rv64core/internal/rvreg"

// RV64I opcode/funct3/funct7 values consumed here, per spec.md section 6.
const (
	opOpImm   = 0b0010011 // addi
	opOpImm32 = 0b0011011 // addiw
	opOp      = 0b0110011 // add
	opLoad    = 0b0000011 // ld
	opStore   = 0b0100011 // sd
	opLui     = 0b0110111 // lui
	opJalr    = 0b1100111 // jalr

	funct3Addi  = 0b000
	funct3Addiw = 0b000
	funct3Add   = 0b000
	funct3Ld    = 0b011
	funct3Sd    = 0b011
	funct3Jalr  = 0b000

	funct7Add = 0b0000000
)

// encodeR encodes an R-type instruction: add rd, rs1, rs2.
func encodeR(opcode uint32, funct3, funct7 uint32, rd, rs1, rs2 rvreg.Register) uint32 {
	return funct7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7 | opcode
}

// encodeI encodes an I-type instruction: addi/addiw/ld/jalr rd, rs1, imm.
func encodeI(opcode uint32, funct3 uint32, rd, rs1 rvreg.Register, imm int32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7 | opcode
}

// encodeS encodes an S-type instruction: sd rs2, imm(rs1).
func encodeS(opcode uint32, funct3 uint32, rs1, rs2 rvreg.Register, imm int32) uint32 {
	u := uint32(imm)
	imm11_5 := (u >> 5) & 0x7F
	imm4_0 := u & 0x1F

	return imm11_5<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 | imm4_0<<7 | opcode
}

// encodeU encodes a U-type instruction: lui rd, imm20.
func encodeU(opcode uint32, rd rvreg.Register, imm20 uint32) uint32 {
	return (imm20 << 12) | uint32(rd)<<7 | opcode
}

// EncodeAdd encodes "add rd, rs1, rs2".
func EncodeAdd(rd, rs1, rs2 rvreg.Register) uint32 {
	return encodeR(opOp, funct3Add, funct7Add, rd, rs1, rs2)
}

// EncodeAddi encodes "addi rd, rs1, imm" (imm must fit a signed 12-bit
// field). mv rd, rs is addi rd, rs, 0.
func EncodeAddi(rd, rs1 rvreg.Register, imm int32) uint32 {
	return encodeI(opOpImm, funct3Addi, rd, rs1, imm)
}

// EncodeAddiw encodes "addiw rd, rs1, imm", the second half of a two-
// instruction li sequence for a 32-bit constant.
func EncodeAddiw(rd, rs1 rvreg.Register, imm int32) uint32 {
	return encodeI(opOpImm32, funct3Addiw, rd, rs1, imm)
}

// EncodeLui encodes "lui rd, imm20".
func EncodeLui(rd rvreg.Register, imm20 uint32) uint32 {
	return encodeU(opLui, rd, imm20&0xFFFFF)
}

// EncodeLd encodes "ld rd, imm(rs1)", a spill reload.
func EncodeLd(rd, rs1 rvreg.Register, imm int32) uint32 {
	return encodeI(opLoad, funct3Ld, rd, rs1, imm)
}

// EncodeSd encodes "sd rs2, imm(rs1)", a spill store.
func EncodeSd(rs1, rs2 rvreg.Register, imm int32) uint32 {
	return encodeS(opStore, funct3Sd, rs1, rs2, imm)
}

// EncodeJalr encodes "jalr rd, rs1, imm", used only for the function's final
// return: jalr x0, ra, 0.
func EncodeJalr(rd, rs1 rvreg.Register, imm int32) uint32 {
	return encodeI(opJalr, funct3Jalr, rd, rs1, imm)
}
