package decoder

import "fmt"

// Compressed-instruction field extraction. Quadrants 0/1 mostly use
// the 3-bit register encoding that maps to x8-x15 ("rd'"/"rs1'"/
// "rs2'"); quadrant 2 mostly uses the full 5-bit encoding.
func cOp(insn uint16) uint16     { return insn & 0x3 }
func cFunct3(insn uint16) uint16 { return (insn >> 13) & 0x7 }

func cRdp(insn uint16) uint32  { return uint32(((insn >> 2) & 0x7) + 8) }
func cRs1p(insn uint16) uint32 { return uint32(((insn >> 7) & 0x7) + 8) }
func cRs2p(insn uint16) uint32 { return uint32(((insn >> 2) & 0x7) + 8) }

func cRd(insn uint16) uint32  { return uint32((insn >> 7) & 0x1f) }
func cRs1(insn uint16) uint32 { return uint32((insn >> 7) & 0x1f) }
func cRs2(insn uint16) uint32 { return uint32((insn >> 2) & 0x1f) }

var errIllegalCompressed = fmt.Errorf("decoder: illegal compressed instruction")

// expandCompressed expands a 16-bit RVC instruction into the
// equivalent RV64I/M/A 32-bit instruction word plus a mnemonic for
// diagnostics. Floating-point compressed forms (C.FLD/C.FSD/
// C.FLDSP/C.FSDSP) are rejected: this emulator carries no FP state.
func expandCompressed(insn uint16) (uint32, string, error) {
	switch cOp(insn) {
	case 0b00:
		return expandQuadrant0(insn, cFunct3(insn))
	case 0b01:
		return expandQuadrant1(insn, cFunct3(insn))
	case 0b10:
		return expandQuadrant2(insn, cFunct3(insn))
	default:
		return 0, "", errIllegalCompressed
	}
}

func expandQuadrant0(insn uint16, funct3 uint16) (uint32, string, error) {
	switch funct3 {
	case 0b000: // C.ADDI4SPN
		imm := ((uint32(insn) >> 6) & 0x1) << 2
		imm |= ((uint32(insn) >> 5) & 0x1) << 3
		imm |= ((uint32(insn) >> 11) & 0x3) << 4
		imm |= ((uint32(insn) >> 7) & 0xf) << 6
		if imm == 0 {
			return 0, "", errIllegalCompressed
		}
		rd := cRdp(insn)
		return (imm << 20) | (2 << 15) | (rd << 7) | 0b0010011, "addi4spn", nil

	case 0b010: // C.LW
		imm := ((uint32(insn) >> 6) & 0x1) << 2
		imm |= ((uint32(insn) >> 10) & 0x7) << 3
		imm |= ((uint32(insn) >> 5) & 0x1) << 6
		rs1 := cRs1p(insn)
		rd := cRdp(insn)
		return (imm << 20) | (rs1 << 15) | (0b010 << 12) | (rd << 7) | 0b0000011, "lw", nil

	case 0b011: // C.LD
		imm := ((uint32(insn) >> 10) & 0x7) << 3
		imm |= ((uint32(insn) >> 5) & 0x3) << 6
		rs1 := cRs1p(insn)
		rd := cRdp(insn)
		return (imm << 20) | (rs1 << 15) | (0b011 << 12) | (rd << 7) | 0b0000011, "ld", nil

	case 0b110: // C.SW
		imm := ((uint32(insn) >> 6) & 0x1) << 2
		imm |= ((uint32(insn) >> 10) & 0x7) << 3
		imm |= ((uint32(insn) >> 5) & 0x1) << 6
		rs1 := cRs1p(insn)
		rs2 := cRs2p(insn)
		immHi := (imm >> 5) & 0x7f
		immLo := imm & 0x1f
		return (immHi << 25) | (rs2 << 20) | (rs1 << 15) | (0b010 << 12) | (immLo << 7) | 0b0100011, "sw", nil

	case 0b111: // C.SD
		imm := ((uint32(insn) >> 10) & 0x7) << 3
		imm |= ((uint32(insn) >> 5) & 0x3) << 6
		rs1 := cRs1p(insn)
		rs2 := cRs2p(insn)
		immHi := (imm >> 5) & 0x7f
		immLo := imm & 0x1f
		return (immHi << 25) | (rs2 << 20) | (rs1 << 15) | (0b011 << 12) | (immLo << 7) | 0b0100011, "sd", nil
	}
	return 0, "", errIllegalCompressed
}

func expandQuadrant1(insn uint16, funct3 uint16) (uint32, string, error) {
	switch funct3 {
	case 0b000: // C.NOP / C.ADDI
		rd := cRd(insn)
		imm := uint32(insn>>2) & 0x1f
		if (insn>>12)&1 != 0 {
			imm |= 0xffffffe0
		}
		if rd == 0 {
			return 0b0010011, "nop", nil
		}
		return (imm << 20) | (rd << 15) | (rd << 7) | 0b0010011, "addi", nil

	case 0b001: // C.ADDIW
		rd := cRd(insn)
		if rd == 0 {
			return 0, "", errIllegalCompressed
		}
		imm := uint32(insn>>2) & 0x1f
		if (insn>>12)&1 != 0 {
			imm |= 0xffffffe0
		}
		return (imm << 20) | (rd << 15) | (rd << 7) | 0b0011011, "addiw", nil

	case 0b010: // C.LI
		rd := cRd(insn)
		imm := uint32(insn>>2) & 0x1f
		if (insn>>12)&1 != 0 {
			imm |= 0xffffffe0
		}
		return (imm << 20) | (rd << 7) | 0b0010011, "li", nil

	case 0b011: // C.ADDI16SP / C.LUI
		rd := cRd(insn)
		if rd == 2 {
			imm := ((uint32(insn) >> 2) & 0x1) << 5
			imm |= ((uint32(insn) >> 3) & 0x3) << 7
			imm |= ((uint32(insn) >> 5) & 0x1) << 6
			imm |= ((uint32(insn) >> 6) & 0x1) << 4
			if (insn>>12)&1 != 0 {
				imm |= 0xfffffc00
			}
			if imm == 0 {
				return 0, "", errIllegalCompressed
			}
			return (imm << 20) | (2 << 15) | (2 << 7) | 0b0010011, "addi16sp", nil
		}
		if rd == 0 {
			return 0, "", errIllegalCompressed
		}
		imm := (uint32(insn>>2) & 0x1f) << 12
		if (insn>>12)&1 != 0 {
			imm |= 0xfffe0000
		}
		if imm == 0 {
			return 0, "", errIllegalCompressed
		}
		return (imm & 0xfffff000) | (rd << 7) | 0b0110111, "lui", nil

	case 0b100: // C.SRLI/C.SRAI/C.ANDI/C.SUB/C.XOR/C.OR/C.AND/C.SUBW/C.ADDW
		funct2 := (insn >> 10) & 0x3
		rd := cRs1p(insn)
		switch funct2 {
		case 0b00:
			shamt := uint32(insn>>2) & 0x1f
			if (insn>>12)&1 != 0 {
				shamt |= 0x20
			}
			return (shamt << 20) | (rd << 15) | (0b101 << 12) | (rd << 7) | 0b0010011, "srli", nil
		case 0b01:
			shamt := uint32(insn>>2) & 0x1f
			if (insn>>12)&1 != 0 {
				shamt |= 0x20
			}
			return (uint32(0b0100000<<25) | shamt<<20) | (rd << 15) | (0b101 << 12) | (rd << 7) | 0b0010011, "srai", nil
		case 0b10:
			imm := uint32(insn>>2) & 0x1f
			if (insn>>12)&1 != 0 {
				imm |= 0xffffffe0
			}
			return (imm << 20) | (rd << 15) | (0b111 << 12) | (rd << 7) | 0b0010011, "andi", nil
		case 0b11:
			rs2 := cRs2p(insn)
			if (insn>>12)&1 == 0 {
				switch (insn >> 5) & 0x3 {
				case 0b00:
					return (uint32(0b0100000) << 25) | (rs2 << 20) | (rd << 15) | (rd << 7) | 0b0110011, "sub", nil
				case 0b01:
					return (rs2 << 20) | (rd << 15) | (0b100 << 12) | (rd << 7) | 0b0110011, "xor", nil
				case 0b10:
					return (rs2 << 20) | (rd << 15) | (0b110 << 12) | (rd << 7) | 0b0110011, "or", nil
				case 0b11:
					return (rs2 << 20) | (rd << 15) | (0b111 << 12) | (rd << 7) | 0b0110011, "and", nil
				}
			} else {
				switch (insn >> 5) & 0x3 {
				case 0b00:
					return (uint32(0b0100000) << 25) | (rs2 << 20) | (rd << 15) | (rd << 7) | 0b0111011, "subw", nil
				case 0b01:
					return (rs2 << 20) | (rd << 15) | (rd << 7) | 0b0111011, "addw", nil
				}
			}
		}
		return 0, "", errIllegalCompressed

	case 0b101: // C.J
		imm := ((uint32(insn) >> 2) & 0x1) << 5
		imm |= ((uint32(insn) >> 3) & 0x7) << 1
		imm |= ((uint32(insn) >> 6) & 0x1) << 7
		imm |= ((uint32(insn) >> 7) & 0x1) << 6
		imm |= ((uint32(insn) >> 8) & 0x1) << 10
		imm |= ((uint32(insn) >> 9) & 0x3) << 8
		imm |= ((uint32(insn) >> 11) & 0x1) << 4
		if (insn>>12)&1 != 0 {
			imm |= 0xfffff800
		}
		jimm := ((imm >> 12) & 0xff) << 12
		jimm |= ((imm >> 11) & 0x1) << 20
		jimm |= ((imm >> 1) & 0x3ff) << 21
		jimm |= ((imm >> 11) & 0x1) << 31
		return (jimm & 0xfffff000) | 0b1101111, "j", nil

	case 0b110, 0b111: // C.BEQZ / C.BNEZ
		rs1 := cRs1p(insn)
		imm := ((uint32(insn) >> 2) & 0x1) << 5
		imm |= ((uint32(insn) >> 3) & 0x3) << 1
		imm |= ((uint32(insn) >> 5) & 0x3) << 6
		imm |= ((uint32(insn) >> 10) & 0x3) << 3
		if (insn>>12)&1 != 0 {
			imm |= 0xffffff00
		}
		bimm := ((imm >> 11) & 0x1) << 31
		bimm |= ((imm >> 5) & 0x3f) << 25
		bimm |= ((imm >> 1) & 0xf) << 8
		bimm |= ((imm >> 11) & 0x1) << 7
		if funct3 == 0b110 {
			return bimm | (rs1 << 15) | 0b1100011, "beqz", nil
		}
		return bimm | (rs1 << 15) | (0b001 << 12) | 0b1100011, "bnez", nil
	}
	return 0, "", errIllegalCompressed
}

func expandQuadrant2(insn uint16, funct3 uint16) (uint32, string, error) {
	switch funct3 {
	case 0b000: // C.SLLI
		rd := cRd(insn)
		if rd == 0 {
			return 0, "", errIllegalCompressed
		}
		shamt := uint32(insn>>2) & 0x1f
		if (insn>>12)&1 != 0 {
			shamt |= 0x20
		}
		return (shamt << 20) | (rd << 15) | (0b001 << 12) | (rd << 7) | 0b0010011, "slli", nil

	case 0b010: // C.LWSP
		rd := cRd(insn)
		if rd == 0 {
			return 0, "", errIllegalCompressed
		}
		imm := ((uint32(insn) >> 2) & 0x3) << 6
		imm |= ((uint32(insn) >> 4) & 0x7) << 2
		imm |= ((uint32(insn) >> 12) & 0x1) << 5
		return (imm << 20) | (2 << 15) | (0b010 << 12) | (rd << 7) | 0b0000011, "lwsp", nil

	case 0b011: // C.LDSP
		rd := cRd(insn)
		if rd == 0 {
			return 0, "", errIllegalCompressed
		}
		imm := ((uint32(insn) >> 2) & 0x7) << 6
		imm |= ((uint32(insn) >> 5) & 0x3) << 3
		imm |= ((uint32(insn) >> 12) & 0x1) << 5
		return (imm << 20) | (2 << 15) | (0b011 << 12) | (rd << 7) | 0b0000011, "ldsp", nil

	case 0b100: // C.JR/C.MV/C.EBREAK/C.JALR/C.ADD
		rs1 := cRs1(insn)
		rs2 := cRs2(insn)
		if (insn>>12)&1 == 0 {
			if rs2 == 0 {
				if rs1 == 0 {
					return 0, "", errIllegalCompressed
				}
				return (rs1 << 15) | 0b1100111, "jr", nil
			}
			return (rs2 << 20) | (rs1 << 7) | 0b0110011, "mv", nil
		}
		if rs2 == 0 {
			if rs1 == 0 {
				return 0x00100073, "ebreak", nil
			}
			return (rs1 << 15) | (1 << 7) | 0b1100111, "jalr", nil
		}
		return (rs2 << 20) | (rs1 << 15) | (rs1 << 7) | 0b0110011, "add", nil

	case 0b110: // C.SWSP
		rs2 := cRs2(insn)
		imm := ((uint32(insn) >> 7) & 0x3) << 6
		imm |= ((uint32(insn) >> 9) & 0xf) << 2
		immHi := (imm >> 5) & 0x7f
		immLo := imm & 0x1f
		return (immHi << 25) | (rs2 << 20) | (2 << 15) | (0b010 << 12) | (immLo << 7) | 0b0100011, "swsp", nil

	case 0b111: // C.SDSP
		rs2 := cRs2(insn)
		imm := ((uint32(insn) >> 7) & 0x7) << 6
		imm |= ((uint32(insn) >> 10) & 0x7) << 3
		immHi := (imm >> 5) & 0x7f
		immLo := imm & 0x1f
		return (immHi << 25) | (rs2 << 20) | (2 << 15) | (0b011 << 12) | (immLo << 7) | 0b0100011, "sdsp", nil
	}
	return 0, "", errIllegalCompressed
}
