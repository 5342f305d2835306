package classfile

import (
	"encoding/binary"
	"fmt"
)

// Opcodes the dependency extractor cares about.
const (
	OpLdc             = 0x12
	OpLdcW            = 0x13
	OpLdc2W           = 0x14
	OpIinc            = 0x84
	OpTableSwitch     = 0xaa
	OpLookupSwitch    = 0xab
	OpGetStatic       = 0xb2
	OpPutStatic       = 0xb3
	OpGetField        = 0xb4
	OpPutField        = 0xb5
	OpInvokeVirtual   = 0xb6
	OpInvokeSpecial   = 0xb7
	OpInvokeStatic    = 0xb8
	OpInvokeInterface = 0xb9
	OpInvokeDynamic   = 0xba
	OpNew             = 0xbb
	OpANewArray       = 0xbd
	OpCheckCast       = 0xc0
	OpInstanceOf      = 0xc1
	OpWide            = 0xc4
	OpMultiANewArray  = 0xc5
)

// Instruction is one decoded bytecode instruction. Operands holds the raw
// operand bytes; switch padding is excluded.
type Instruction struct {
	PC       int
	Opcode   uint8
	Operands []byte
}

// Index returns the big-endian u2 operand used by constant-pool instructions.
// For ldc it returns the single u1 operand.
func (in Instruction) Index() uint16 {
	switch {
	case in.Opcode == OpLdc && len(in.Operands) >= 1:
		return uint16(in.Operands[0])
	case len(in.Operands) >= 2:
		return binary.BigEndian.Uint16(in.Operands)
	default:
		return 0
	}
}

// operandLengths maps opcode to operand byte count; -1 marks a variable
// length instruction and -2 an undefined opcode.
var operandLengths = buildOperandLengths()

func buildOperandLengths() [256]int {
	var t [256]int
	for i := range t {
		t[i] = -2
	}
	set := func(from, to, n int) {
		for op := from; op <= to; op++ {
			t[op] = n
		}
	}
	set(0x00, 0x0f, 0) // nop, constants
	t[0x10] = 1        // bipush
	t[0x11] = 2        // sipush
	t[OpLdc] = 1
	t[OpLdcW] = 2
	t[OpLdc2W] = 2
	set(0x15, 0x19, 1) // loads with index
	set(0x1a, 0x35, 0)
	set(0x36, 0x3a, 1) // stores with index
	set(0x3b, 0x83, 0)
	t[OpIinc] = 2
	set(0x85, 0x98, 0)
	set(0x99, 0xa8, 2) // branches, goto, jsr
	t[0xa9] = 1        // ret
	t[OpTableSwitch] = -1
	t[OpLookupSwitch] = -1
	set(0xac, 0xb1, 0) // returns
	set(OpGetStatic, OpInvokeStatic, 2)
	t[OpInvokeInterface] = 4
	t[OpInvokeDynamic] = 4
	t[OpNew] = 2
	t[0xbc] = 1 // newarray
	t[OpANewArray] = 2
	t[0xbe] = 0 // arraylength
	t[0xbf] = 0 // athrow
	t[OpCheckCast] = 2
	t[OpInstanceOf] = 2
	t[0xc2] = 0 // monitorenter
	t[0xc3] = 0 // monitorexit
	t[OpWide] = -1
	t[OpMultiANewArray] = 3
	t[0xc6] = 2 // ifnull
	t[0xc7] = 2 // ifnonnull
	t[0xc8] = 4 // goto_w
	t[0xc9] = 4 // jsr_w
	t[0xca] = 0 // breakpoint
	t[0xfe] = 0 // impdep1
	t[0xff] = 0 // impdep2
	return t
}

// Instructions decodes code in order and calls fn for each instruction.
// Iteration stops at the first error returned by fn.
func Instructions(code []byte, fn func(Instruction) error) error {
	pc := 0
	for pc < len(code) {
		op := code[pc]
		start := pc + 1
		var n int

		switch l := operandLengths[op]; l {
		case -2:
			return fmt.Errorf("%w: 0x%02x at pc %d", ErrUnknownOpcode, op, pc)
		case -1:
			var err error
			start, n, err = variableOperands(code, pc)
			if err != nil {
				return err
			}
		default:
			n = l
		}

		if start+n > len(code) {
			return fmt.Errorf("%w: instruction 0x%02x at pc %d", ErrTruncated, op, pc)
		}
		if err := fn(Instruction{PC: pc, Opcode: op, Operands: code[start : start+n]}); err != nil {
			return err
		}
		pc = start + n
	}
	return nil
}

// variableOperands returns the operand start offset and length of a switch
// or wide instruction located at pc.
func variableOperands(code []byte, pc int) (int, int, error) {
	op := code[pc]
	if op == OpWide {
		if pc+1 >= len(code) {
			return 0, 0, fmt.Errorf("%w: wide at pc %d", ErrTruncated, pc)
		}
		if code[pc+1] == OpIinc {
			return pc + 1, 5, nil
		}
		return pc + 1, 3, nil
	}

	start := pc + 1 + (4-(pc+1)%4)%4
	u4 := func(off int) (int32, bool) {
		if off+4 > len(code) {
			return 0, false
		}
		return int32(binary.BigEndian.Uint32(code[off:])), true
	}

	if op == OpTableSwitch {
		low, ok1 := u4(start + 4)
		high, ok2 := u4(start + 8)
		if !ok1 || !ok2 || high < low {
			return 0, 0, fmt.Errorf("%w: tableswitch at pc %d", ErrTruncated, pc)
		}
		return start, 12 + int(int64(high)-int64(low)+1)*4, nil
	}

	npairs, ok := u4(start + 4)
	if !ok || npairs < 0 {
		return 0, 0, fmt.Errorf("%w: lookupswitch at pc %d", ErrTruncated, pc)
	}
	return start, 8 + int(npairs)*8, nil
}
