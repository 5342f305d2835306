package formatter

import (
	"strings"

	"github.com/depdiscover/internal/classfile"
)

const constructorName = "<init>"

var primitiveNames = map[byte]string{
	'Z': "boolean",
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'V': "void",
}

// ClassName returns the Java form of an internal class name. Array class
// names are converted like descriptors.
func ClassName(name string) string {
	if classfile.IsArray(name) {
		return DescriptorName(name)
	}
	return strings.ReplaceAll(name, "/", ".")
}

// DescriptorName returns the Java form of a field descriptor:
// "[[Ljava/lang/String;" becomes "java.lang.String[][]" and "J" becomes
// "long".
func DescriptorName(desc string) string {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	elem := desc[dims:]

	var base string
	if len(elem) == 1 {
		base = primitiveNames[elem[0]]
	}
	if base == "" {
		if strings.HasPrefix(elem, "L") && strings.HasSuffix(elem, ";") {
			elem = elem[1 : len(elem)-1]
		}
		base = strings.ReplaceAll(elem, "/", ".")
	}
	return base + strings.Repeat("[]", dims)
}

// SimpleName returns the class name without its package.
func SimpleName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// MethodTypeName returns the Java form of a method descriptor, e.g.
// "(I[Ljava/lang/String;)V" becomes "(int,java.lang.String[])void".
// Malformed descriptors are returned unchanged.
func MethodTypeName(desc string) string {
	params, ret, ok := classfile.SplitMethodDescriptor(desc)
	if !ok {
		return desc
	}
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(DescriptorName(p))
	}
	b.WriteByte(')')
	b.WriteString(DescriptorName(ret))
	return b.String()
}

// MethodName returns "owner.name(params)ret" in Java form. Constructors
// are printed with the simple name of their class.
func MethodName(owner, name, desc string) string {
	if name == constructorName {
		name = SimpleName(owner)
	}
	return ClassName(owner) + "." + name + MethodTypeName(desc)
}

// FieldName returns "owner.field" in Java form.
func FieldName(owner, name string) string {
	return ClassName(owner) + "." + name
}
