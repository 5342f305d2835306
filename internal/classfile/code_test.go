package classfile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectOpcodes(t *testing.T, code []byte) ([]uint8, []int) {
	t.Helper()
	var ops []uint8
	var pcs []int
	err := Instructions(code, func(in Instruction) error {
		ops = append(ops, in.Opcode)
		pcs = append(pcs, in.PC)
		return nil
	})
	require.NoError(t, err)
	return ops, pcs
}

func TestInstructions_FixedLength(t *testing.T) {
	code := []byte{
		0x03,             // iconst_0
		0x10, 0x05,       // bipush 5
		0x11, 0x01, 0x00, // sipush 256
		0x36, 0x01, // istore 1
		0x84, 0x01, 0x01, // iinc 1 1
		0xbb, 0x00, 0x07, // new #7
		0xb9, 0x00, 0x08, 0x01, 0x00, // invokeinterface #8 1
		0xc5, 0x00, 0x09, 0x02, // multianewarray #9 2
		0xc8, 0x00, 0x00, 0x00, 0x03, // goto_w
		0xb1, // return
	}

	ops, pcs := collectOpcodes(t, code)
	assert.Equal(t, []uint8{0x03, 0x10, 0x11, 0x36, 0x84, 0xbb, 0xb9, 0xc5, 0xc8, 0xb1}, ops)
	assert.Equal(t, []int{0, 1, 3, 6, 8, 11, 14, 19, 23, 28}, pcs)
}

func TestInstructions_TableSwitch(t *testing.T) {
	// tableswitch at pc 1: operands start at pc 4 after two padding bytes.
	code := []byte{
		0x1a,       // iload_0
		0xaa,       // tableswitch
		0x00, 0x00, // padding
		0x00, 0x00, 0x00, 0x10, // default
		0x00, 0x00, 0x00, 0x01, // low
		0x00, 0x00, 0x00, 0x02, // high
		0x00, 0x00, 0x00, 0x10,
		0x00, 0x00, 0x00, 0x10,
		0xb1,
	}

	ops, pcs := collectOpcodes(t, code)
	assert.Equal(t, []uint8{0x1a, 0xaa, 0xb1}, ops)
	assert.Equal(t, []int{0, 1, 24}, pcs)
}

func TestInstructions_LookupSwitch(t *testing.T) {
	// lookupswitch at pc 3: no padding needed.
	code := []byte{
		0x00, 0x00, 0x1a,
		0xab,
		0x00, 0x00, 0x00, 0x10, // default
		0x00, 0x00, 0x00, 0x01, // npairs
		0x00, 0x00, 0x00, 0x07, 0x00, 0x00, 0x00, 0x10,
		0xb1,
	}

	ops, pcs := collectOpcodes(t, code)
	assert.Equal(t, []uint8{0x00, 0x00, 0x1a, 0xab, 0xb1}, ops)
	assert.Equal(t, []int{0, 1, 2, 3, 20}, pcs)
}

func TestInstructions_Wide(t *testing.T) {
	code := []byte{
		0xc4, 0x15, 0x01, 0x00, // wide iload 256
		0xc4, 0x84, 0x01, 0x00, 0x00, 0x01, // wide iinc 256 1
		0xb1,
	}

	ops, pcs := collectOpcodes(t, code)
	assert.Equal(t, []uint8{0xc4, 0xc4, 0xb1}, ops)
	assert.Equal(t, []int{0, 4, 10}, pcs)
}

func TestInstructions_Errors(t *testing.T) {
	tests := []struct {
		name    string
		code    []byte
		wantErr error
	}{
		{"undefined opcode", []byte{0xcb}, ErrUnknownOpcode},
		{"missing operand", []byte{0xbb, 0x00}, ErrTruncated},
		{"truncated switch", []byte{0xaa, 0, 0, 0}, ErrTruncated},
		{"truncated wide", []byte{0xc4}, ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Instructions(tt.code, func(Instruction) error { return nil })
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestInstructions_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := Instructions([]byte{0x00, 0x00, 0x00}, func(Instruction) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestInstruction_Index(t *testing.T) {
	assert.Equal(t, uint16(0x12), Instruction{Opcode: OpLdc, Operands: []byte{0x12}}.Index())
	assert.Equal(t, uint16(0x0102), Instruction{Opcode: OpLdcW, Operands: []byte{0x01, 0x02}}.Index())
	assert.Equal(t, uint16(0x0304), Instruction{Opcode: OpInvokeInterface, Operands: []byte{0x03, 0x04, 1, 0}}.Index())
	assert.Equal(t, uint16(0), Instruction{Opcode: 0xb1}.Index())
}
