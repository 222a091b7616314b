package elfwriter

import (
	"encoding/binary"
	"testing"
)

func TestBytesProducesValidElfMagicAndHeaderFields(t *testing.T) {
	a := NewAssembler()
	a.AddSymbolAtEnd("addtwo", []byte{0x33, 0x05, 0xb5, 0x00}) // add a0,a0,a1

	out, err := a.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(out) < ehdrSize {
		t.Fatalf("output too short for an ELF header: %d bytes", len(out))
	}

	if out[0] != eiMag0 || out[1] != 'E' || out[2] != 'L' || out[3] != 'F' {
		t.Fatalf("bad e_ident magic: %v", out[:4])
	}
	if out[4] != elfClass64 {
		t.Fatalf("expected ELFCLASS64, got %d", out[4])
	}
	if out[5] != elfDataLSB {
		t.Fatalf("expected little-endian data encoding, got %d", out[5])
	}

	eType := binary.LittleEndian.Uint16(out[16:18])
	if eType != etRel {
		t.Fatalf("e_type = %d, want ET_REL (%d)", eType, etRel)
	}
	eMachine := binary.LittleEndian.Uint16(out[18:20])
	if eMachine != emRISCV {
		t.Fatalf("e_machine = %d, want EM_RISCV (%d)", eMachine, emRISCV)
	}
	eFlags := binary.LittleEndian.Uint32(out[48:52])
	if eFlags != elfFlags {
		t.Fatalf("e_flags = %#x, want %#x", eFlags, elfFlags)
	}
	eShentsize := binary.LittleEndian.Uint16(out[58:60])
	if eShentsize != shdrSize {
		t.Fatalf("e_shentsize = %d, want %d", eShentsize, shdrSize)
	}
	eShnum := binary.LittleEndian.Uint16(out[60:62])
	if eShnum != 6 {
		t.Fatalf("e_shnum = %d, want 6", eShnum)
	}
}

func TestBytesSectionHeaderTableHasFixedSixSectionLayout(t *testing.T) {
	a := NewAssembler()
	a.AddSymbolAtEnd("f", []byte{0x33, 0x05, 0xb5, 0x00})

	out, err := a.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	shoff := binary.LittleEndian.Uint64(out[40:48])
	shnum := int(binary.LittleEndian.Uint16(out[60:62]))

	wantTypes := []uint32{shtNull, shtStrtab, shtProgbits, shtRela, shtProgbits, shtSymtab}
	if shnum != len(wantTypes) {
		t.Fatalf("shnum = %d, want %d", shnum, len(wantTypes))
	}

	for i, want := range wantTypes {
		off := shoff + uint64(i)*shdrSize
		gotType := binary.LittleEndian.Uint32(out[off+4:])
		if gotType != want {
			t.Errorf("section %d: sh_type = %d, want %d", i, gotType, want)
		}
	}

	// .rela.text (index 3) must link to .symtab (index 5) and point sh_info
	// at .text (index 2), per spec.md section 4.6.
	relaOff := shoff + 3*shdrSize
	link := binary.LittleEndian.Uint32(out[relaOff+40:])
	info := binary.LittleEndian.Uint32(out[relaOff+44:])
	if link != 5 {
		t.Errorf(".rela.text sh_link = %d, want 5 (.symtab)", link)
	}
	if info != 2 {
		t.Errorf(".rela.text sh_info = %d, want 2 (.text)", info)
	}

	// .symtab (index 5) must link to .strtab (index 1).
	symtabOff := shoff + 5*shdrSize
	symtabLink := binary.LittleEndian.Uint32(out[symtabOff+40:])
	if symtabLink != 1 {
		t.Errorf(".symtab sh_link = %d, want 1 (.strtab)", symtabLink)
	}
}

func TestAddSymbolAtEndAccumulatesOffsetsAndSizes(t *testing.T) {
	a := NewAssembler()
	a.AddSymbolAtEnd("first", []byte{1, 2, 3, 4})
	a.AddSymbolAtEnd("second", []byte{5, 6, 7, 8, 9, 10, 11, 12})

	if len(a.symbols) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(a.symbols))
	}
	if a.symbols[0].value != 0 || a.symbols[0].size != 4 {
		t.Errorf("first symbol = %+v, want value 0 size 4", a.symbols[0])
	}
	if a.symbols[1].value != 4 || a.symbols[1].size != 8 {
		t.Errorf("second symbol = %+v, want value 4 size 8", a.symbols[1])
	}
	if len(a.text) != 12 {
		t.Fatalf(".text length = %d, want 12", len(a.text))
	}
}

func TestStringTableFixedNamesMatchSpecOffsets(t *testing.T) {
	st := newStringTable()
	want := map[string]uint32{"": 0, ".strtab": 1, "main": 9, ".text": 14, ".data": 20, ".symtab": 26}

	for name, off := range want {
		if got := st.offsets[name]; got != off {
			t.Errorf("offset of %q = %d, want %d", name, got, off)
		}
	}
}

func TestStringTableInternsRepeatedNames(t *testing.T) {
	st := newStringTable()
	a := st.add(".text")
	b := st.add(".strtab")
	c := st.add(".text")

	if a != c {
		t.Errorf("repeated name got different offsets: %d vs %d", a, c)
	}
	if a == b {
		t.Errorf("distinct names collided at offset %d", a)
	}
	if st.buf[0] != 0 {
		t.Errorf("string table must start with a NUL byte, got %#x", st.buf[0])
	}
}

func TestBytesRejectsNothingButLaysOutEmptyAssembler(t *testing.T) {
	a := NewAssembler()
	out, err := a.Bytes()
	if err != nil {
		t.Fatalf("Bytes on empty assembler: %v", err)
	}
	if len(out) < ehdrSize+shdrSize*6 {
		t.Fatalf("empty-assembler output too short: %d bytes", len(out))
	}
}
