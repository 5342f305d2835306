package classfile

import "errors"

var (
	// ErrInvalidMagic is returned when the input does not start with 0xCAFEBABE.
	ErrInvalidMagic = errors.New("invalid class file magic")

	// ErrTruncated is returned when the input ends in the middle of a structure.
	ErrTruncated = errors.New("truncated class file")

	// ErrBadConstant is returned when a constant pool index or tag is invalid.
	ErrBadConstant = errors.New("invalid constant pool entry")

	// ErrUnknownOpcode is returned when bytecode contains an undefined opcode.
	ErrUnknownOpcode = errors.New("unknown opcode")
)
