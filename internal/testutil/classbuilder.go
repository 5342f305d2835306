package testutil

import (
	"bytes"
	"encoding/binary"
)

// Access flags used by fixtures.
const (
	AccPublic    = 0x0001
	AccStatic    = 0x0008
	AccNative    = 0x0100
	AccInterface = 0x0200
	AccAbstract  = 0x0400
)

// ClassBuilder assembles a minimal but well-formed class file.
type ClassBuilder struct {
	pool       *poolBuilder
	flags      uint16
	name       string
	super      string
	noSuper    bool
	interfaces []string
	fields     []member
	methods    []*MethodBuilder
}

type member struct {
	flags uint16
	name  string
	desc  string
}

// NewClass starts a public class extending java/lang/Object.
func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{
		pool:  newPoolBuilder(),
		flags: AccPublic,
		name:  name,
		super: "java/lang/Object",
	}
}

// NewInterface starts a public abstract interface.
func NewInterface(name string) *ClassBuilder {
	b := NewClass(name)
	b.flags = AccPublic | AccInterface | AccAbstract
	return b
}

// Extends sets the superclass. An empty name writes super_class 0.
func (b *ClassBuilder) Extends(super string) *ClassBuilder {
	b.super = super
	b.noSuper = super == ""
	return b
}

// Implements appends interfaces in declaration order.
func (b *ClassBuilder) Implements(names ...string) *ClassBuilder {
	b.interfaces = append(b.interfaces, names...)
	return b
}

// Field declares a field.
func (b *ClassBuilder) Field(flags uint16, name, desc string) *ClassBuilder {
	b.fields = append(b.fields, member{flags: flags, name: name, desc: desc})
	return b
}

// Method declares a method and returns its builder. Methods that never emit
// an instruction are written without a Code attribute.
func (b *ClassBuilder) Method(flags uint16, name, desc string) *MethodBuilder {
	m := &MethodBuilder{class: b, member: member{flags: flags, name: name, desc: desc}}
	b.methods = append(b.methods, m)
	return m
}

// Abstract declares a method without code and returns the class builder.
func (b *ClassBuilder) Abstract(name, desc string) *ClassBuilder {
	b.Method(AccPublic|AccAbstract, name, desc)
	return b
}

// Native declares a native method and returns the class builder.
func (b *ClassBuilder) Native(name, desc string) *ClassBuilder {
	b.Method(AccPublic|AccNative, name, desc)
	return b
}

// Bytes serializes the class file.
func (b *ClassBuilder) Bytes() []byte {
	p := b.pool
	thisIdx := p.class(b.name)
	var superIdx uint16
	if !b.noSuper {
		superIdx = p.class(b.super)
	}
	ifaces := make([]uint16, len(b.interfaces))
	for i, n := range b.interfaces {
		ifaces[i] = p.class(n)
	}

	var body bytes.Buffer
	w16 := func(v uint16) { _ = binary.Write(&body, binary.BigEndian, v) }

	w16(b.flags)
	w16(thisIdx)
	w16(superIdx)
	w16(uint16(len(ifaces)))
	for _, idx := range ifaces {
		w16(idx)
	}

	w16(uint16(len(b.fields)))
	for _, f := range b.fields {
		w16(f.flags)
		w16(p.utf8(f.name))
		w16(p.utf8(f.desc))
		w16(0)
	}

	w16(uint16(len(b.methods)))
	for _, m := range b.methods {
		w16(m.flags)
		w16(p.utf8(m.name))
		w16(p.utf8(m.desc))
		if !m.hasCode {
			w16(0)
			continue
		}
		w16(1)
		code := m.codeAttribute()
		w16(p.utf8("Code"))
		_ = binary.Write(&body, binary.BigEndian, uint32(len(code)))
		body.Write(code)
	}
	w16(0) // class attributes

	var out bytes.Buffer
	_ = binary.Write(&out, binary.BigEndian, uint32(0xCAFEBABE))
	_ = binary.Write(&out, binary.BigEndian, uint16(0))
	_ = binary.Write(&out, binary.BigEndian, uint16(52))
	out.Write(p.bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

// MethodBuilder emits bytecode for one method.
type MethodBuilder struct {
	class *ClassBuilder
	member
	hasCode  bool
	code     []byte
	handlers []handler
	locals   []member
}

type handler struct {
	catchType string
}

// Done returns the owning class builder.
func (m *MethodBuilder) Done() *ClassBuilder {
	if !m.hasCode {
		m.Return()
	}
	return m.class
}

// Class returns the owning class builder without emitting code.
func (m *MethodBuilder) Class() *ClassBuilder {
	return m.class
}

// Raw appends raw bytecode.
func (m *MethodBuilder) Raw(code ...byte) *MethodBuilder {
	m.hasCode = true
	m.code = append(m.code, code...)
	return m
}

func (m *MethodBuilder) op16(op byte, idx uint16) *MethodBuilder {
	return m.Raw(op, byte(idx>>8), byte(idx))
}

// Return appends a void return.
func (m *MethodBuilder) Return() *MethodBuilder { return m.Raw(0xb1) }

// New appends "new <name>".
func (m *MethodBuilder) New(name string) *MethodBuilder {
	return m.op16(0xbb, m.class.pool.class(name))
}

// ANewArray appends "anewarray <name>".
func (m *MethodBuilder) ANewArray(name string) *MethodBuilder {
	return m.op16(0xbd, m.class.pool.class(name))
}

// CheckCast appends "checkcast <name>".
func (m *MethodBuilder) CheckCast(name string) *MethodBuilder {
	return m.op16(0xc0, m.class.pool.class(name))
}

// InstanceOf appends "instanceof <name>".
func (m *MethodBuilder) InstanceOf(name string) *MethodBuilder {
	return m.op16(0xc1, m.class.pool.class(name))
}

// MultiANewArray appends "multianewarray <desc> <dims>".
func (m *MethodBuilder) MultiANewArray(desc string, dims byte) *MethodBuilder {
	idx := m.class.pool.class(desc)
	return m.Raw(0xc5, byte(idx>>8), byte(idx), dims)
}

// LdcClass loads a class literal, using ldc_w when the index needs it.
func (m *MethodBuilder) LdcClass(name string) *MethodBuilder {
	idx := m.class.pool.class(name)
	if idx < 256 {
		return m.Raw(0x12, byte(idx))
	}
	return m.op16(0x13, idx)
}

// LdcString loads a string literal.
func (m *MethodBuilder) LdcString(s string) *MethodBuilder {
	return m.Raw(0x12, byte(m.class.pool.str(s)))
}

// InvokeVirtual appends invokevirtual on a Methodref.
func (m *MethodBuilder) InvokeVirtual(owner, name, desc string) *MethodBuilder {
	return m.op16(0xb6, m.class.pool.ref(10, owner, name, desc))
}

// InvokeSpecial appends invokespecial on a Methodref.
func (m *MethodBuilder) InvokeSpecial(owner, name, desc string) *MethodBuilder {
	return m.op16(0xb7, m.class.pool.ref(10, owner, name, desc))
}

// InvokeStatic appends invokestatic on a Methodref.
func (m *MethodBuilder) InvokeStatic(owner, name, desc string) *MethodBuilder {
	return m.op16(0xb8, m.class.pool.ref(10, owner, name, desc))
}

// InvokeInterface appends invokeinterface on an InterfaceMethodref.
func (m *MethodBuilder) InvokeInterface(owner, name, desc string, args byte) *MethodBuilder {
	idx := m.class.pool.ref(11, owner, name, desc)
	return m.Raw(0xb9, byte(idx>>8), byte(idx), args, 0)
}

// GetStatic appends getstatic.
func (m *MethodBuilder) GetStatic(owner, name, desc string) *MethodBuilder {
	return m.op16(0xb2, m.class.pool.ref(9, owner, name, desc))
}

// PutStatic appends putstatic.
func (m *MethodBuilder) PutStatic(owner, name, desc string) *MethodBuilder {
	return m.op16(0xb3, m.class.pool.ref(9, owner, name, desc))
}

// GetField appends getfield.
func (m *MethodBuilder) GetField(owner, name, desc string) *MethodBuilder {
	return m.op16(0xb4, m.class.pool.ref(9, owner, name, desc))
}

// PutField appends putfield.
func (m *MethodBuilder) PutField(owner, name, desc string) *MethodBuilder {
	return m.op16(0xb5, m.class.pool.ref(9, owner, name, desc))
}

// Catch adds an exception handler covering the whole method. An empty type
// catches everything.
func (m *MethodBuilder) Catch(catchType string) *MethodBuilder {
	m.hasCode = true
	m.handlers = append(m.handlers, handler{catchType: catchType})
	return m
}

// Local adds a LocalVariableTable row.
func (m *MethodBuilder) Local(name, desc string) *MethodBuilder {
	m.hasCode = true
	m.locals = append(m.locals, member{name: name, desc: desc})
	return m
}

func (m *MethodBuilder) codeAttribute() []byte {
	p := m.class.pool
	code := m.code
	if len(code) == 0 || code[len(code)-1] != 0xb1 {
		code = append(append([]byte(nil), code...), 0xb1)
	}

	var buf bytes.Buffer
	w16 := func(v uint16) { _ = binary.Write(&buf, binary.BigEndian, v) }
	w16(8) // max_stack
	w16(uint16(len(m.locals) + 1))
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(code)))
	buf.Write(code)

	w16(uint16(len(m.handlers)))
	for _, h := range m.handlers {
		var ct uint16
		if h.catchType != "" {
			ct = p.class(h.catchType)
		}
		w16(0)
		w16(uint16(len(code) - 1))
		w16(uint16(len(code) - 1))
		w16(ct)
	}

	if len(m.locals) == 0 {
		w16(0)
		return buf.Bytes()
	}
	w16(1)
	w16(p.utf8("LocalVariableTable"))
	_ = binary.Write(&buf, binary.BigEndian, uint32(2+10*len(m.locals)))
	w16(uint16(len(m.locals)))
	for i, lv := range m.locals {
		w16(0)
		w16(uint16(len(code)))
		w16(p.utf8(lv.name))
		w16(p.utf8(lv.desc))
		w16(uint16(i))
	}
	return buf.Bytes()
}

// poolBuilder interns constants and hands out 1-based indexes.
type poolBuilder struct {
	buf   bytes.Buffer
	next  uint16
	index map[string]uint16
}

func newPoolBuilder() *poolBuilder {
	return &poolBuilder{next: 1, index: make(map[string]uint16)}
}

func (p *poolBuilder) intern(key string, write func()) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	write()
	idx := p.next
	p.next++
	p.index[key] = idx
	return idx
}

func (p *poolBuilder) u1(v byte)   { p.buf.WriteByte(v) }
func (p *poolBuilder) u2(v uint16) { _ = binary.Write(&p.buf, binary.BigEndian, v) }

func (p *poolBuilder) utf8(s string) uint16 {
	return p.intern("u:"+s, func() {
		p.u1(1)
		p.u2(uint16(len(s)))
		p.buf.WriteString(s)
	})
}

func (p *poolBuilder) class(name string) uint16 {
	nameIdx := p.utf8(name)
	return p.intern("c:"+name, func() {
		p.u1(7)
		p.u2(nameIdx)
	})
}

func (p *poolBuilder) str(s string) uint16 {
	idx := p.utf8(s)
	return p.intern("s:"+s, func() {
		p.u1(8)
		p.u2(idx)
	})
}

func (p *poolBuilder) nameAndType(name, desc string) uint16 {
	n := p.utf8(name)
	d := p.utf8(desc)
	return p.intern("nt:"+name+":"+desc, func() {
		p.u1(12)
		p.u2(n)
		p.u2(d)
	})
}

func (p *poolBuilder) ref(tag byte, owner, name, desc string) uint16 {
	c := p.class(owner)
	nt := p.nameAndType(name, desc)
	key := string(rune('0'+tag)) + ":" + owner + "." + name + ":" + desc
	return p.intern(key, func() {
		p.u1(tag)
		p.u2(c)
		p.u2(nt)
	})
}

func (p *poolBuilder) bytes() []byte {
	var out bytes.Buffer
	_ = binary.Write(&out, binary.BigEndian, p.next)
	out.Write(p.buf.Bytes())
	return out.Bytes()
}
