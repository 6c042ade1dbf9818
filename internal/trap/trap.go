// Package trap defines the exception taxonomy shared by the CPU
// state, instruction handlers, the execution loop and the GDB
// adapter. Exceptions are values deposited into a pending-exception
// slot, never control-flow escapes: a handler that hits one of these
// conditions returns it (or, for InstructionAddressMisaligned, records
// it and returns nil) rather than panicking or unwinding the loop.
package trap

import "fmt"

// InstructionAddressMisaligned is recorded when a taken branch or jump
// targets an address whose low two bits are nonzero.
type InstructionAddressMisaligned struct {
	Target uint64
}

func (e *InstructionAddressMisaligned) Error() string {
	return fmt.Sprintf("instruction address misaligned: target=0x%x", e.Target)
}

// InstructionFault is recorded when fetching the instruction word at
// pc fails.
type InstructionFault struct {
	PC uint64
}

func (e *InstructionFault) Error() string {
	return fmt.Sprintf("instruction fault at pc=0x%x", e.PC)
}

// IllegalInstruction is recorded when decode fails to match any
// descriptor.
type IllegalInstruction struct {
	Inst uint32
	PC   uint64
}

func (e *IllegalInstruction) Error() string {
	return fmt.Sprintf("illegal instruction 0x%08x at pc=0x%x", e.Inst, e.PC)
}

// InvalidRegister indicates a register index >= 32 reached code that
// assumes a valid GPR index. This is a programming bug: the decoder
// never produces such an index from a well-formed 32-bit instruction
// word, so callers may panic on it.
type InvalidRegister struct {
	N uint32
}

func (e *InvalidRegister) Error() string {
	return fmt.Sprintf("invalid register index %d", e.N)
}

// InvalidCsr is returned when a CSR number has no entry in the CSR
// map, i.e. it is not implemented.
type InvalidCsr struct {
	N uint16
}

func (e *InvalidCsr) Error() string {
	return fmt.Sprintf("invalid csr 0x%03x", e.N)
}
