package classfile

import (
	"fmt"
	"io"
)

const magic = 0xCAFEBABE

const (
	attrCode               = "Code"
	attrLocalVariableTable = "LocalVariableTable"
)

// Parse decodes a complete class file.
func Parse(data []byte) (*ClassDescriptor, error) {
	r := newReader(data)

	if m := r.u4(); r.err != nil {
		return nil, r.err
	} else if m != magic {
		return nil, fmt.Errorf("%w: 0x%08X", ErrInvalidMagic, m)
	}

	cd := &ClassDescriptor{
		MinorVersion: r.u2(),
		MajorVersion: r.u2(),
	}
	if r.err != nil {
		return nil, r.err
	}

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read constant pool: %w", err)
	}
	cd.Pool = pool

	cd.AccessFlags = r.u2()
	thisClass := r.u2()
	superClass := r.u2()
	if r.err != nil {
		return nil, r.err
	}

	if cd.Name, err = pool.ClassName(thisClass); err != nil {
		return nil, fmt.Errorf("failed to read this_class: %w", err)
	}
	if superClass != 0 {
		if cd.SuperName, err = pool.ClassName(superClass); err != nil {
			return nil, fmt.Errorf("failed to read super_class: %w", err)
		}
	}

	count := int(r.u2())
	cd.Interfaces = make([]string, 0, count)
	for i := 0; i < count; i++ {
		idx := r.u2()
		if r.err != nil {
			return nil, r.err
		}
		name, err := pool.ClassName(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to read interface %d: %w", i, err)
		}
		cd.Interfaces = append(cd.Interfaces, name)
	}

	if cd.Fields, err = readMembers(r, pool, false); err != nil {
		return nil, fmt.Errorf("failed to read fields of %s: %w", cd.Name, err)
	}
	if cd.Methods, err = readMembers(r, pool, true); err != nil {
		return nil, fmt.Errorf("failed to read methods of %s: %w", cd.Name, err)
	}

	// Class-level attributes carry nothing the analysis needs.
	if err := skipAttributes(r); err != nil {
		return nil, err
	}
	return cd, nil
}

// ParseReader reads the whole stream and decodes it as a class file.
func ParseReader(rd io.Reader) (*ClassDescriptor, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to read class file: %w", err)
	}
	return Parse(data)
}

func readMembers(r *reader, pool *ConstantPool, methods bool) ([]*Member, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	members := make([]*Member, 0, count)
	for i := 0; i < count; i++ {
		m := &Member{AccessFlags: r.u2()}
		nameIdx := r.u2()
		descIdx := r.u2()
		if r.err != nil {
			return nil, r.err
		}
		var err error
		if m.Name, err = pool.Utf8(nameIdx); err != nil {
			return nil, err
		}
		if m.Descriptor, err = pool.Utf8(descIdx); err != nil {
			return nil, err
		}

		attrs := int(r.u2())
		for j := 0; j < attrs; j++ {
			name, body, err := readAttribute(r, pool)
			if err != nil {
				return nil, err
			}
			if methods && name == attrCode {
				if m.Code, err = parseCode(body, pool); err != nil {
					return nil, fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
				}
			}
		}
		if r.err != nil {
			return nil, r.err
		}
		members = append(members, m)
	}
	return members, nil
}

func readAttribute(r *reader, pool *ConstantPool) (string, []byte, error) {
	nameIdx := r.u2()
	length := r.u4()
	if r.err != nil {
		return "", nil, r.err
	}
	name, err := pool.Utf8(nameIdx)
	if err != nil {
		return "", nil, err
	}
	body := r.bytes(int(length))
	if r.err != nil {
		return "", nil, r.err
	}
	return name, body, nil
}

func skipAttributes(r *reader) error {
	count := int(r.u2())
	for i := 0; i < count; i++ {
		r.skip(2)
		r.skip(int(r.u4()))
	}
	return r.err
}

func parseCode(body []byte, pool *ConstantPool) (*Code, error) {
	r := newReader(body)
	code := &Code{
		MaxStack:  r.u2(),
		MaxLocals: r.u2(),
	}
	code.Bytecode = r.bytes(int(r.u4()))

	handlers := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	code.ExceptionTable = make([]ExceptionHandler, 0, handlers)
	for i := 0; i < handlers; i++ {
		code.ExceptionTable = append(code.ExceptionTable, ExceptionHandler{
			StartPC:   r.u2(),
			EndPC:     r.u2(),
			HandlerPC: r.u2(),
			CatchType: r.u2(),
		})
	}

	attrs := int(r.u2())
	for i := 0; i < attrs; i++ {
		name, attr, err := readAttribute(r, pool)
		if err != nil {
			return nil, err
		}
		if name != attrLocalVariableTable {
			continue
		}
		vars, err := parseLocalVariables(attr, pool)
		if err != nil {
			return nil, err
		}
		code.LocalVariables = append(code.LocalVariables, vars...)
	}
	if r.err != nil {
		return nil, r.err
	}
	return code, nil
}

func parseLocalVariables(body []byte, pool *ConstantPool) ([]LocalVariable, error) {
	r := newReader(body)
	count := int(r.u2())
	vars := make([]LocalVariable, 0, count)
	for i := 0; i < count; i++ {
		lv := LocalVariable{StartPC: r.u2(), Length: r.u2()}
		nameIdx := r.u2()
		descIdx := r.u2()
		lv.Index = r.u2()
		if r.err != nil {
			return nil, r.err
		}
		var err error
		if lv.Name, err = pool.Utf8(nameIdx); err != nil {
			return nil, err
		}
		if lv.Descriptor, err = pool.Utf8(descIdx); err != nil {
			return nil, err
		}
		vars = append(vars, lv)
	}
	return vars, nil
}
