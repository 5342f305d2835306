package classfile

import "strings"

// IsArray reports whether an internal name or descriptor denotes an array.
func IsArray(name string) bool {
	return strings.HasPrefix(name, "[")
}

// ElementTypeName reduces a field descriptor to the internal name of its
// element class: "[[Ljava/lang/String;" and "Ljava/lang/String;" both yield
// "java/lang/String". Primitive types and primitive arrays yield "".
func ElementTypeName(descriptor string) string {
	d := strings.TrimLeft(descriptor, "[")
	if len(d) > 2 && d[0] == 'L' && d[len(d)-1] == ';' {
		return d[1 : len(d)-1]
	}
	return ""
}

// ClassRefName reduces the name stored in a Class constant. Plain internal
// names are returned unchanged; array class names are reduced like
// descriptors.
func ClassRefName(name string) string {
	if IsArray(name) {
		return ElementTypeName(name)
	}
	return name
}

// SplitMethodDescriptor splits "(I[Ljava/lang/String;)V" into its parameter
// descriptors and return descriptor. ok is false for malformed input.
func SplitMethodDescriptor(descriptor string) (params []string, ret string, ok bool) {
	if !strings.HasPrefix(descriptor, "(") {
		return nil, "", false
	}
	i := 1
	for i < len(descriptor) && descriptor[i] != ')' {
		n := fieldDescriptorLen(descriptor[i:])
		if n == 0 {
			return nil, "", false
		}
		params = append(params, descriptor[i:i+n])
		i += n
	}
	if i >= len(descriptor) {
		return nil, "", false
	}
	ret = descriptor[i+1:]
	if ret != "V" && fieldDescriptorLen(ret) != len(ret) {
		return nil, "", false
	}
	return params, ret, true
}

// fieldDescriptorLen returns the length of the field descriptor at the start
// of s, or 0 if none is there.
func fieldDescriptorLen(s string) int {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return 0
		}
		return i + end + 1
	default:
		return 0
	}
}

// ToInternalName converts a dotted class name to its slashed internal form.
func ToInternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}
