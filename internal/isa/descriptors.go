package isa

import (
	"github.com/rv64lab/emu64/internal/cpustate"
	"github.com/rv64lab/emu64/internal/decoder"
)

// Opcode field values (inst[6:0]).
const (
	opLUI     = 0b0110111
	opAUIPC   = 0b0010111
	opJAL     = 0b1101111
	opJALR    = 0b1100111
	opBRANCH  = 0b1100011
	opLOAD    = 0b0000011
	opSTORE   = 0b0100011
	opOPIMM   = 0b0010011
	opOP      = 0b0110011
	opOPIMM32 = 0b0011011
	opOP32    = 0b0111011
	opMISCMEM = 0b0001111
	opSYSTEM  = 0b1110011
	opAMO     = 0b0101111
)

const mask7 = 0x7F

// funct7 field exactly 0000001 marks the M-extension OP/OP-32 forms;
// the base-ALU descriptors require it to be zero everywhere except
// bit 5 (ADD/SUB, SRL/SRA), so the two families never overlap.
const (
	maskOPBase    = mask7 | (0x5F << 25)
	idOPBase      = opOP
	maskOPMulDiv  = mask7 | (0x7F << 25)
	idOPMulDiv    = opOP | (0b0000001 << 25)
	maskOP32Base  = mask7 | (0x5F << 25)
	idOP32Base    = opOP32
	maskOP32MulDiv = mask7 | (0x7F << 25)
	idOP32MulDiv  = opOP32 | (0b0000001 << 25)
)

const mask7f3 = mask7 | (0x7 << 12)

// BuildDescriptors assembles the full instruction descriptor list for
// the given enabled extensions, in "I before M before A" insertion
// order as required by the decoder's bucket search.
func BuildDescriptors(ext cpustate.Extensions) []*decoder.Descriptor {
	descs := []*decoder.Descriptor{
		{Mask: mask7, Identifier: opLUI, Name: "lui", Execute: execLUI},
		{Mask: mask7, Identifier: opAUIPC, Name: "auipc", Execute: execAUIPC},
		{Mask: mask7, Identifier: opJAL, Name: "jal", Execute: execJAL},
		{Mask: mask7, Identifier: opJALR, Name: "jalr", Execute: execJALR},
		{Mask: mask7, Identifier: opBRANCH, Name: "branch", Execute: execBranch},
		{Mask: mask7, Identifier: opLOAD, Name: "load", Execute: execLoad},
		{Mask: mask7, Identifier: opSTORE, Name: "store", Execute: execStore},
		{Mask: mask7, Identifier: opOPIMM, Name: "op-imm", Execute: execOpImm},
		{Mask: mask7, Identifier: opOPIMM32, Name: "op-imm-32", Execute: execOpImm32},
		{Mask: maskOPBase, Identifier: idOPBase, Name: "op", Execute: execOp},
		{Mask: maskOP32Base, Identifier: idOP32Base, Name: "op-32", Execute: execOp32},
		{Mask: mask7, Identifier: opMISCMEM, Name: "fence", Execute: execFENCE},
		{Mask: 0xFFFFFFFF, Identifier: 0x00000073, Name: "ecall", Execute: execECALL},
		{Mask: 0xFFFFFFFF, Identifier: 0x00100073, Name: "ebreak", Execute: execEBREAK},
	}

	if ext.M {
		descs = append(descs,
			&decoder.Descriptor{Mask: maskOPMulDiv, Identifier: idOPMulDiv, Name: "muldiv", Execute: execMulDiv},
			&decoder.Descriptor{Mask: maskOP32MulDiv, Identifier: idOP32MulDiv, Name: "muldiv-w", Execute: execMulDivW},
		)
	}

	if ext.A {
		descs = append(descs,
			&decoder.Descriptor{Mask: mask7f3, Identifier: opAMO | (0b010 << 12), Name: "amo.w", Execute: execAMOW},
			&decoder.Descriptor{Mask: mask7f3, Identifier: opAMO | (0b011 << 12), Name: "amo.d", Execute: execAMOD},
		)
	}

	return descs
}
