package classfile

import "fmt"

// Constant pool tags.
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// ConstantPoolEntry is implemented by all constant pool entry types.
type ConstantPoolEntry interface {
	Tag() uint8
}

// ConstantUtf8 holds a decoded modified-UTF-8 string.
type ConstantUtf8 struct {
	Value string
}

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

// ConstantNumber covers Integer, Float, Long and Double; the raw bits are kept.
type ConstantNumber struct {
	tag  uint8
	Bits uint64
}

func (c *ConstantNumber) Tag() uint8 { return c.tag }

// ConstantClass references a class or array type by internal name.
type ConstantClass struct {
	NameIndex uint16
}

func (c *ConstantClass) Tag() uint8 { return TagClass }

// ConstantString references a string literal.
type ConstantString struct {
	StringIndex uint16
}

func (c *ConstantString) Tag() uint8 { return TagString }

// ConstantMemberRef covers Fieldref, Methodref and InterfaceMethodref.
type ConstantMemberRef struct {
	tag              uint8
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMemberRef) Tag() uint8 { return c.tag }

// ConstantNameAndType pairs a member name with its descriptor.
type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

// ConstantMethodHandle references a member through a handle kind.
type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *ConstantMethodHandle) Tag() uint8 { return TagMethodHandle }

// ConstantIndexed covers MethodType, Module and Package, which hold one index.
type ConstantIndexed struct {
	tag   uint8
	Index uint16
}

func (c *ConstantIndexed) Tag() uint8 { return c.tag }

// ConstantDynamic covers Dynamic and InvokeDynamic.
type ConstantDynamic struct {
	tag                      uint8
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamic) Tag() uint8 { return c.tag }

// MemberRef is a resolved Fieldref, Methodref or InterfaceMethodref.
type MemberRef struct {
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

// ConstantPool is a 1-based constant pool. Slot 0 and the slot following a
// Long or Double are nil.
type ConstantPool struct {
	entries []ConstantPoolEntry
}

// Len returns constant_pool_count.
func (p *ConstantPool) Len() int {
	return len(p.entries)
}

// Entry returns the entry at index.
func (p *ConstantPool) Entry(index uint16) (ConstantPoolEntry, error) {
	if int(index) <= 0 || int(index) >= len(p.entries) || p.entries[index] == nil {
		return nil, fmt.Errorf("%w: index %d", ErrBadConstant, index)
	}
	return p.entries[index], nil
}

// Utf8 returns the string stored at index.
func (p *ConstantPool) Utf8(index uint16) (string, error) {
	e, err := p.Entry(index)
	if err != nil {
		return "", err
	}
	u, ok := e.(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("%w: index %d is tag %d, want Utf8", ErrBadConstant, index, e.Tag())
	}
	return u.Value, nil
}

// ClassName returns the internal name referenced by a Class entry. Array
// classes come back in descriptor form, e.g. "[Ljava/lang/String;".
func (p *ConstantPool) ClassName(index uint16) (string, error) {
	e, err := p.Entry(index)
	if err != nil {
		return "", err
	}
	c, ok := e.(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("%w: index %d is tag %d, want Class", ErrBadConstant, index, e.Tag())
	}
	return p.Utf8(c.NameIndex)
}

// NameAndType returns the name and descriptor of a NameAndType entry.
func (p *ConstantPool) NameAndType(index uint16) (string, string, error) {
	e, err := p.Entry(index)
	if err != nil {
		return "", "", err
	}
	nt, ok := e.(*ConstantNameAndType)
	if !ok {
		return "", "", fmt.Errorf("%w: index %d is tag %d, want NameAndType", ErrBadConstant, index, e.Tag())
	}
	name, err := p.Utf8(nt.NameIndex)
	if err != nil {
		return "", "", err
	}
	desc, err := p.Utf8(nt.DescriptorIndex)
	if err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// MemberRef resolves a Fieldref, Methodref or InterfaceMethodref entry.
func (p *ConstantPool) MemberRef(index uint16) (MemberRef, error) {
	e, err := p.Entry(index)
	if err != nil {
		return MemberRef{}, err
	}
	ref, ok := e.(*ConstantMemberRef)
	if !ok {
		return MemberRef{}, fmt.Errorf("%w: index %d is tag %d, want a member ref", ErrBadConstant, index, e.Tag())
	}
	owner, err := p.ClassName(ref.ClassIndex)
	if err != nil {
		return MemberRef{}, err
	}
	name, desc, err := p.NameAndType(ref.NameAndTypeIndex)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{
		Owner:      owner,
		Name:       name,
		Descriptor: desc,
		Interface:  ref.tag == TagInterfaceMethodref,
	}, nil
}

func readConstantPool(r *reader) (*ConstantPool, error) {
	count := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	pool := &ConstantPool{entries: make([]ConstantPoolEntry, count)}

	for i := 1; i < int(count); i++ {
		tag := r.u1()
		var entry ConstantPoolEntry
		switch tag {
		case TagUtf8:
			length := r.u2()
			entry = &ConstantUtf8{Value: decodeModifiedUTF8(r.bytes(int(length)))}
		case TagInteger, TagFloat:
			entry = &ConstantNumber{tag: tag, Bits: uint64(r.u4())}
		case TagLong, TagDouble:
			hi := uint64(r.u4())
			lo := uint64(r.u4())
			entry = &ConstantNumber{tag: tag, Bits: hi<<32 | lo}
		case TagClass:
			entry = &ConstantClass{NameIndex: r.u2()}
		case TagString:
			entry = &ConstantString{StringIndex: r.u2()}
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			entry = &ConstantMemberRef{tag: tag, ClassIndex: r.u2(), NameAndTypeIndex: r.u2()}
		case TagNameAndType:
			entry = &ConstantNameAndType{NameIndex: r.u2(), DescriptorIndex: r.u2()}
		case TagMethodHandle:
			entry = &ConstantMethodHandle{ReferenceKind: r.u1(), ReferenceIndex: r.u2()}
		case TagMethodType, TagModule, TagPackage:
			entry = &ConstantIndexed{tag: tag, Index: r.u2()}
		case TagDynamic, TagInvokeDynamic:
			entry = &ConstantDynamic{tag: tag, BootstrapMethodAttrIndex: r.u2(), NameAndTypeIndex: r.u2()}
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: unknown tag %d at index %d", ErrBadConstant, tag, i)
		}
		if r.err != nil {
			return nil, r.err
		}
		pool.entries[i] = entry
		if tag == TagLong || tag == TagDouble {
			// 8-byte constants take two slots.
			i++
		}
	}
	return pool, nil
}
