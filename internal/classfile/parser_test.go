package classfile

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depdiscover/internal/testutil"
)

func TestParse_ClassStructure(t *testing.T) {
	data := testutil.NewClass("com/acme/Widget").
		Extends("com/acme/Base").
		Implements("java/io/Serializable", "java/lang/Runnable").
		Field(testutil.AccPublic, "size", "I").
		Field(testutil.AccStatic, "NAME", "Ljava/lang/String;").
		Native("hash", "()I").
		Method(testutil.AccPublic, "run", "()V").New("com/acme/Part").Done().
		Bytes()

	cd, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, uint16(52), cd.MajorVersion)
	assert.Equal(t, "com/acme/Widget", cd.Name)
	assert.Equal(t, "com/acme/Base", cd.SuperName)
	assert.Equal(t, []string{"java/io/Serializable", "java/lang/Runnable"}, cd.Interfaces)
	assert.False(t, cd.IsInterface())

	require.Len(t, cd.Fields, 2)
	assert.Equal(t, "size", cd.Fields[0].Name)
	assert.Equal(t, "Ljava/lang/String;", cd.Fields[1].Descriptor)
	assert.True(t, cd.Fields[1].IsStatic())

	require.Len(t, cd.Methods, 2)
	hash := cd.Method("hash", "()I")
	require.NotNil(t, hash)
	assert.True(t, hash.IsNative())
	assert.Nil(t, hash.Code)

	run := cd.Method("run", "()V")
	require.NotNil(t, run)
	require.NotNil(t, run.Code)
	assert.Equal(t, []byte{OpNew, 0, 0, 0xb1}, zeroIndexes(run.Code.Bytecode))

	assert.Nil(t, cd.Method("run", "(I)V"))
	assert.NotNil(t, cd.Field("size", "I"))
	assert.Nil(t, cd.Field("size", "J"))
}

func TestParse_RootTypeHasNoSuper(t *testing.T) {
	cd, err := Parse(testutil.JDKObject().Bytes())
	require.NoError(t, err)
	assert.Equal(t, RootType, cd.Name)
	assert.Empty(t, cd.SuperName)
}

func TestParse_Interface(t *testing.T) {
	cd, err := Parse(testutil.NewInterface("a/I").Abstract("m", "()V").Bytes())
	require.NoError(t, err)
	assert.True(t, cd.IsInterface())
}

func TestParse_CodeTables(t *testing.T) {
	data := testutil.NewClass("a/A").
		Method(testutil.AccPublic, "m", "()V").
		Catch("java/io/IOException").
		Catch("").
		Local("this", "La/A;").
		Local("n", "I").
		Done().
		Bytes()

	cd, err := Parse(data)
	require.NoError(t, err)
	code := cd.Methods[0].Code
	require.NotNil(t, code)

	require.Len(t, code.ExceptionTable, 2)
	name, err := cd.Pool.ClassName(code.ExceptionTable[0].CatchType)
	require.NoError(t, err)
	assert.Equal(t, "java/io/IOException", name)
	assert.Equal(t, uint16(0), code.ExceptionTable[1].CatchType)

	require.Len(t, code.LocalVariables, 2)
	assert.Equal(t, "this", code.LocalVariables[0].Name)
	assert.Equal(t, "La/A;", code.LocalVariables[0].Descriptor)
	assert.Equal(t, uint16(1), code.LocalVariables[1].Index)
}

func TestParse_Errors(t *testing.T) {
	valid := testutil.NewClass("a/A").Bytes()

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncated},
		{"bad magic", []byte{0xCA, 0xFE, 0xD0, 0x0D, 0, 0, 0, 52}, ErrInvalidMagic},
		{"truncated header", valid[:9], ErrTruncated},
		{"truncated body", valid[:len(valid)-3], ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestParse_UnknownConstantTag(t *testing.T) {
	data := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52, 0, 2, 2}
	_, err := Parse(data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadConstant))
}

func TestParseReader(t *testing.T) {
	cd, err := ParseReader(bytes.NewReader(testutil.NewClass("x/Y").Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "x/Y", cd.Name)
}

func TestConstantPool_MemberRef(t *testing.T) {
	data := testutil.NewClass("a/A").
		Method(testutil.AccPublic, "m", "()V").
		InvokeInterface("java/util/List", "size", "()I", 1).
		GetField("a/A", "count", "J").
		Done().
		Bytes()

	cd, err := Parse(data)
	require.NoError(t, err)

	var refs []MemberRef
	err = Instructions(cd.Methods[0].Code.Bytecode, func(in Instruction) error {
		switch in.Opcode {
		case OpInvokeInterface, OpGetField:
			ref, err := cd.Pool.MemberRef(in.Index())
			if err != nil {
				return err
			}
			refs = append(refs, ref)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []MemberRef{
		{Owner: "java/util/List", Name: "size", Descriptor: "()I", Interface: true},
		{Owner: "a/A", Name: "count", Descriptor: "J"},
	}, refs)
}

func TestConstantPool_InvalidIndexes(t *testing.T) {
	cd, err := Parse(testutil.NewClass("a/A").Bytes())
	require.NoError(t, err)

	_, err = cd.Pool.Entry(0)
	assert.ErrorIs(t, err, ErrBadConstant)

	_, err = cd.Pool.Entry(uint16(cd.Pool.Len()))
	assert.ErrorIs(t, err, ErrBadConstant)

	// Index 1 is the Utf8 name of this_class, not a Class entry.
	_, err = cd.Pool.ClassName(1)
	assert.ErrorIs(t, err, ErrBadConstant)

	_, err = cd.Pool.MemberRef(1)
	assert.ErrorIs(t, err, ErrBadConstant)
}

func TestDecodeModifiedUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"ascii", []byte("java/lang/Object"), "java/lang/Object"},
		{"encoded nul", []byte{'a', 0xC0, 0x80, 'b'}, "a\x00b"},
		{"two byte", []byte{0xC3, 0xA9}, "é"},
		{"three byte", []byte{0xE2, 0x82, 0xAC}, "€"},
		{"surrogate pair", []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}, "\U0001F600"},
		{"malformed", []byte{0xFF}, "�"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeModifiedUTF8(tt.input))
		})
	}
}

// zeroIndexes masks constant pool indexes so assertions do not depend on
// pool layout.
func zeroIndexes(code []byte) []byte {
	out := append([]byte(nil), code...)
	if len(out) >= 3 && out[0] == OpNew {
		out[1], out[2] = 0, 0
	}
	return out
}
