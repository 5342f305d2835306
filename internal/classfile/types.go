package classfile

// Access flags shared by classes, fields and methods.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSynchronized = 0x0020
	AccBridge       = 0x0040
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
	AccModule       = 0x8000
)

// RootType is the internal name of the universal root type.
const RootType = "java/lang/Object"

// ClassDescriptor is the parsed, immutable view of one class file.
type ClassDescriptor struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16
	Name         string
	SuperName    string // empty only for the root type and module-info
	Interfaces   []string
	Fields       []*Member
	Methods      []*Member
	Pool         *ConstantPool
}

// Member is a field or method declaration.
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Code        *Code // nil for fields, abstract and native methods
}

// IsNative reports whether the native modifier bit is set.
func (m *Member) IsNative() bool {
	return m.AccessFlags&AccNative != 0
}

// IsStatic reports whether the static modifier bit is set.
func (m *Member) IsStatic() bool {
	return m.AccessFlags&AccStatic != 0
}

// Code is the Code attribute of a method.
type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	Bytecode       []byte
	ExceptionTable []ExceptionHandler
	LocalVariables []LocalVariable
}

// ExceptionHandler is one exception_table row. CatchType 0 catches everything.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// LocalVariable is one LocalVariableTable row.
type LocalVariable struct {
	StartPC    uint16
	Length     uint16
	Name       string
	Descriptor string
	Index      uint16
}

// IsInterface reports whether the class is an interface.
func (c *ClassDescriptor) IsInterface() bool {
	return c.AccessFlags&AccInterface != 0
}

// Method returns the declared method with the exact name and descriptor.
func (c *ClassDescriptor) Method(name, descriptor string) *Member {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// Field returns the declared field with the exact name and descriptor.
func (c *ClassDescriptor) Field(name, descriptor string) *Member {
	for _, f := range c.Fields {
		if f.Name == name && f.Descriptor == descriptor {
			return f
		}
	}
	return nil
}
