// Package elfwriter serializes an Assembler's accumulated .text bytes and
// symbols into a relocatable ELF64 RISC-V object file, per spec.md section
// 4.6.
//
// Grounded on the byte-exact, field-by-field header construction of
// SeleniaProject-Orizon/internal/debug/elf_writer.go: no debug/elf stdlib
// type reuse, a plain []byte built up with explicit offsets, matching how
// the teacher hand-rolls its own ELF-adjacent binary layouts rather than
// reaching for debug/elf (which only reads ELF, it cannot write one).
package elfwriter

import (
	"bytes"
	"encoding/binary"

	"github.com/rv64core/rv64core/internal/rverrors"
)

// ELF64 file-header constants relevant to a RISC-V relocatable object.
const (
	etRel    = 1
	emRISCV  = 243
	evCurrent = 1
	elfFlags = 0x04 // reserved, per spec.md section 4.6

	eiMag0       = 0x7F
	elfClass64   = 2
	elfDataLSB   = 1
	elfOSABINone = 0

	ehdrSize = 64
	shdrSize = 64
	symSize  = 24
	relaSize = 24
)

// Section types and flags used by the fixed six-section layout.
const (
	shtNull    = 0
	shtProgbits = 1
	shtSymtab  = 2
	shtStrtab  = 3
	shtRela    = 4

	shfWrite     = 0x1
	shfAlloc     = 0x2
	shfExecInstr = 0x4
	shfInfoLink  = 0x40
)

// Symbol binding/type, per spec.md section 4.6: every added symbol is
// STB_GLOBAL/STT_NOTYPE.
const (
	stbGlobal = 1
	sttNotype = 0
	stVisibilityDefault = 0
)

func stInfo(bind, typ uint8) uint8 { return bind<<4 | (typ & 0xF) }

// fixedNames are the six names spec.md section 4.6 says the string table is
// "pre-seeded with ... at known offsets (0, 1, 9, 14, 20, 26)". The spec
// gives the offsets but not the strings; working the gaps backward gives
// required lengths [0, 7, 4, 5, 5, (unconstrained)]. Four of the five
// section names fit directly (.strtab=7, .text=5, .data=5), but none is 4
// characters, and two (.strtab, .symtab) are 7 — too many candidates for
// too few slots. "main", the conventional entry-symbol name, is the only
// 4-character candidate in the domain and closes the gap exactly; .symtab then lands in the
// unconstrained trailing slot. .rela.text (10 chars) does not fit anywhere
// in the fixed six and is appended afterward instead — consistent with
// rv64core never emitting an actual relocation (spec.md's Non-goals exclude
// inter-procedural analysis, so .rela.text is always empty; its name is
// filled in lazily rather than reserved up front). This is an Open Question
// resolution; see DESIGN.md.
var fixedNames = []string{"", ".strtab", "main", ".text", ".data", ".symtab"}

// stringTable is an ELF string table: fixedNames pre-seeded at construction,
// then each added name null-terminated at its next natural offset.
type stringTable struct {
	buf     []byte
	offsets map[string]uint32
}

func newStringTable() *stringTable {
	t := &stringTable{buf: nil, offsets: make(map[string]uint32)}
	for _, n := range fixedNames {
		t.buf = append(t.buf, []byte(n)...)
		t.buf = append(t.buf, 0)
		t.offsets[n] = uint32(len(t.buf) - len(n) - 1)
	}

	return t
}

// add interns name, returning its byte offset. Repeated names share storage.
func (t *stringTable) add(name string) uint32 {
	if off, ok := t.offsets[name]; ok {
		return off
	}

	off := uint32(len(t.buf))
	t.buf = append(t.buf, []byte(name)...)
	t.buf = append(t.buf, 0)
	t.offsets[name] = off

	return off
}

// symbolEntry is one function materialized into the Assembler's .text
// buffer, recorded by AddSymbolAtEnd.
type symbolEntry struct {
	name  string
	value uint64
	size  uint64
}

// Assembler accumulates materialized .text bytes and the symbols naming
// each function's offset within it, then serializes everything into one
// ELF64 relocatable object via WriteToFile.
type Assembler struct {
	text    []byte
	data    []byte
	symbols []symbolEntry
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// AddSymbolAtEnd appends text to the assembler's .text section and records a
// STB_GLOBAL/STT_NOTYPE symbol named name at the offset text is placed,
// sized len(text). This is the producer API spec.md section 6 names
// add_symbol_at_end.
func (a *Assembler) AddSymbolAtEnd(name string, text []byte) {
	value := uint64(len(a.text))
	a.symbols = append(a.symbols, symbolEntry{name: name, value: value, size: uint64(len(text))})
	a.text = append(a.text, text...)
}

// Bytes serializes the accumulated state into a complete ELF64 relocatable
// object: [Ehdr][.text][.rela.text (empty)][.data][.symtab][.strtab][Shdr
// table]. Section file order is chosen for simple, monotonically increasing
// offsets; the logical section *index* order required by spec.md section
// 4.6 ([SHT_NULL], .strtab, .text, .rela.text, .data, .symtab) is preserved
// in the section header table regardless of file layout order.
func (a *Assembler) Bytes() ([]byte, error) {
	strtab := newStringTable()
	for _, s := range a.symbols {
		strtab.add(s.name)
	}
	strtabNameOff := strtab.add(".strtab")
	textNameOff := strtab.add(".text")
	relaNameOff := strtab.add(".rela.text")
	dataNameOff := strtab.add(".data")
	symtabNameOff := strtab.add(".symtab")

	symtabBytes := a.buildSymtab(strtab)

	const (
		idxNull = iota
		idxStrtab
		idxText
		idxRelaText
		idxData
		idxSymtab
		numSections
	)

	type placed struct {
		offset uint64
		size   uint64
	}

	// Place section contents after the header.
	cursor := uint64(ehdrSize)
	place := func(b []byte, align uint64) placed {
		if align > 1 {
			cursor = (cursor + align - 1) / align * align
		}
		p := placed{offset: cursor, size: uint64(len(b))}
		cursor += uint64(len(b))

		return p
	}

	textPlaced := place(a.text, 4)
	relaPlaced := place(nil, 1) // .rela.text carries no relocations yet
	dataPlaced := place(a.data, 1)
	symtabPlaced := place(symtabBytes, 8)
	strtabPlaced := place(strtab.buf, 1)
	shoff := cursor

	var buf bytes.Buffer
	writeEhdr(&buf, shoff, numSections, idxStrtab)

	buf.Write(a.text)
	buf.Write(make([]byte, int(relaPlaced.offset)-buf.Len()))
	buf.Write(a.data)
	buf.Write(make([]byte, int(symtabPlaced.offset)-buf.Len()))
	buf.Write(symtabBytes)
	buf.Write(make([]byte, int(strtabPlaced.offset)-buf.Len()))
	buf.Write(strtab.buf)

	if buf.Len() != int(shoff) {
		return nil, rverrors.Wrap(rverrors.CategoryMaterialize, "internal layout mismatch before section header table", rverrors.ErrInvalidValue)
	}

	writeShdr(&buf, shdr{name: 0, typ: shtNull})
	writeShdr(&buf, shdr{
		name: strtabNameOff, typ: shtStrtab, offset: strtabPlaced.offset, size: strtabPlaced.size, align: 1,
	})
	writeShdr(&buf, shdr{
		name: textNameOff, typ: shtProgbits, flags: shfAlloc | shfExecInstr,
		offset: textPlaced.offset, size: textPlaced.size, align: 4,
	})
	writeShdr(&buf, shdr{
		name: relaNameOff, typ: shtRela, flags: shfInfoLink,
		offset: relaPlaced.offset, size: relaPlaced.size,
		link: idxSymtab, info: idxText, entsize: relaSize, align: 8,
	})
	writeShdr(&buf, shdr{
		name: dataNameOff, typ: shtProgbits, flags: shfAlloc | shfWrite,
		offset: dataPlaced.offset, size: dataPlaced.size, align: 1,
	})
	writeShdr(&buf, shdr{
		name: symtabNameOff, typ: shtSymtab,
		offset: symtabPlaced.offset, size: symtabPlaced.size,
		link: idxStrtab, info: 1, entsize: symSize, align: 8,
	})

	return buf.Bytes(), nil
}

// buildSymtab serializes the null first entry followed by one Elf64_Sym per
// recorded symbol, all section-relative to .text (st_shndx = idxText).
func (a *Assembler) buildSymtab(strtab *stringTable) []byte {
	const idxText = 2 // matches the idxText constant in Bytes; kept in sync by the single caller

	var buf bytes.Buffer
	buf.Write(make([]byte, symSize)) // mandatory null symbol at index 0

	for _, s := range a.symbols {
		nameOff := strtab.add(s.name)

		var entry [symSize]byte
		binary.LittleEndian.PutUint32(entry[0:4], nameOff)
		entry[4] = stInfo(stbGlobal, sttNotype)
		entry[5] = stVisibilityDefault
		binary.LittleEndian.PutUint16(entry[6:8], idxText)
		binary.LittleEndian.PutUint64(entry[8:16], s.value)
		binary.LittleEndian.PutUint64(entry[16:24], s.size)
		buf.Write(entry[:])
	}

	return buf.Bytes()
}

func writeEhdr(buf *bytes.Buffer, shoff uint64, shnum, shstrndx uint16) {
	var ident [16]byte
	ident[0] = eiMag0
	ident[1] = 'E'
	ident[2] = 'L'
	ident[3] = 'F'
	ident[4] = elfClass64
	ident[5] = elfDataLSB
	ident[6] = evCurrent
	ident[7] = elfOSABINone

	buf.Write(ident[:])
	writeU16(buf, etRel)
	writeU16(buf, emRISCV)
	writeU32(buf, evCurrent)
	writeU64(buf, 0) // e_entry
	writeU64(buf, 0) // e_phoff
	writeU64(buf, shoff)
	writeU32(buf, elfFlags)
	writeU16(buf, ehdrSize)
	writeU16(buf, 0) // e_phentsize
	writeU16(buf, 0) // e_phnum
	writeU16(buf, shdrSize)
	writeU16(buf, shnum)
	writeU16(buf, shstrndx)
}

// shdr is the in-memory staging form of one Elf64_Shdr entry.
type shdr struct {
	name    uint32
	typ     uint32
	flags   uint64
	offset  uint64
	size    uint64
	link    uint32
	info    uint32
	align   uint64
	entsize uint64
}

func writeShdr(buf *bytes.Buffer, s shdr) {
	writeU32(buf, s.name)
	writeU32(buf, s.typ)
	writeU64(buf, s.flags)
	writeU64(buf, 0) // sh_addr
	writeU64(buf, s.offset)
	writeU64(buf, s.size)
	writeU32(buf, s.link)
	writeU32(buf, s.info)
	writeU64(buf, s.align)
	writeU64(buf, s.entsize)
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
