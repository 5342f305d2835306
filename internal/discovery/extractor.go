package discovery

import (
	"errors"
	"fmt"

	"github.com/depdiscover/internal/classfile"
)

// ErrMalformedCode marks bytecode or constant pool references that could not
// be decoded. The rest of the method is skipped.
var ErrMalformedCode = errors.New("malformed method code")

// ReferenceSink receives the symbols found in one method, in order. An error
// returned by the sink stops the extraction and is returned unchanged.
type ReferenceSink interface {
	TypeRef(name string) error
	MethodRef(ref classfile.MemberRef) error
	FieldRef(ref classfile.MemberRef) error
}

// Extractor reports the type, method and field references of a method body.
// It keeps no state between methods.
type Extractor struct{}

// sinkError carries a sink failure through the instruction walk.
type sinkError struct{ err error }

func (e sinkError) Error() string { return e.err.Error() }

// Extract visits exception handler types, then instructions, then local
// variable types of method.
func (Extractor) Extract(class *classfile.ClassDescriptor, method *classfile.Member, sink ReferenceSink) error {
	code := method.Code
	if code == nil {
		return nil
	}
	pool := class.Pool

	for _, h := range code.ExceptionTable {
		if h.CatchType == 0 {
			continue
		}
		name, err := pool.ClassName(h.CatchType)
		if err != nil {
			return fmt.Errorf("%w: catch type: %v", ErrMalformedCode, err)
		}
		if err := reportType(sink, classfile.ClassRefName(name)); err != nil {
			return err
		}
	}

	err := classfile.Instructions(code.Bytecode, func(in classfile.Instruction) error {
		if err := visit(pool, in, sink); err != nil {
			var se sinkError
			if errors.As(err, &se) {
				return err
			}
			return fmt.Errorf("%w: pc %d: %v", ErrMalformedCode, in.PC, err)
		}
		return nil
	})
	if err != nil {
		var se sinkError
		if errors.As(err, &se) {
			return se.err
		}
		if errors.Is(err, ErrMalformedCode) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMalformedCode, err)
	}

	for _, lv := range code.LocalVariables {
		if err := reportType(sink, classfile.ElementTypeName(lv.Descriptor)); err != nil {
			return err
		}
	}
	return nil
}

func visit(pool *classfile.ConstantPool, in classfile.Instruction, sink ReferenceSink) error {
	switch in.Opcode {
	case classfile.OpNew, classfile.OpANewArray, classfile.OpCheckCast,
		classfile.OpInstanceOf, classfile.OpMultiANewArray:
		name, err := pool.ClassName(in.Index())
		if err != nil {
			return err
		}
		return wrapSink(reportType(sink, classfile.ClassRefName(name)))

	case classfile.OpLdc, classfile.OpLdcW:
		e, err := pool.Entry(in.Index())
		if err != nil {
			return err
		}
		if _, ok := e.(*classfile.ConstantClass); !ok {
			return nil
		}
		name, err := pool.ClassName(in.Index())
		if err != nil {
			return err
		}
		return wrapSink(reportType(sink, classfile.ClassRefName(name)))

	case classfile.OpInvokeVirtual, classfile.OpInvokeSpecial,
		classfile.OpInvokeStatic, classfile.OpInvokeInterface:
		ref, err := pool.MemberRef(in.Index())
		if err != nil {
			return err
		}
		if in.Opcode == classfile.OpInvokeInterface {
			ref.Interface = true
		}
		return wrapSink(sink.MethodRef(ref))

	case classfile.OpGetField, classfile.OpPutField,
		classfile.OpGetStatic, classfile.OpPutStatic:
		ref, err := pool.MemberRef(in.Index())
		if err != nil {
			return err
		}
		if err := reportType(sink, classfile.ElementTypeName(ref.Descriptor)); err != nil {
			return wrapSink(err)
		}
		return wrapSink(sink.FieldRef(ref))
	}
	return nil
}

// reportType drops empty names, which stand for primitive types.
func reportType(sink ReferenceSink, name string) error {
	if name == "" {
		return nil
	}
	return sink.TypeRef(name)
}

func wrapSink(err error) error {
	if err == nil {
		return nil
	}
	return sinkError{err: err}
}
