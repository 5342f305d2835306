package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONWriter[sample]().Write(sample{Name: "a<b>", Count: 2}, &buf))
	assert.Equal(t, "{\"name\":\"a<b>\",\"count\":2}\n", buf.String())

	buf.Reset()
	require.NoError(t, NewPrettyJSONWriter[sample]().Write(sample{Name: "x"}, &buf))
	assert.Equal(t, "{\n  \"name\": \"x\",\n  \"count\": 0\n}\n", buf.String())
}

func TestJSONWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, NewJSONWriter[[]int]().WriteToFile([]int{1, 2}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[1,2]\n", string(data))

	assert.Error(t, NewJSONWriter[int]().WriteToFile(1, filepath.Join(t.TempDir(), "missing", "dir", "x.json")))
}

func TestOpen(t *testing.T) {
	var fallback bytes.Buffer

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "result.txt")
		out, err := Open(path, &fallback)
		require.NoError(t, err)
		assert.False(t, out.IsFallback())
		assert.Equal(t, path, out.Path)

		_, err = out.Write([]byte("hello\n"))
		require.NoError(t, err)
		require.NoError(t, out.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(data))
	})

	t.Run("empty path uses fallback", func(t *testing.T) {
		out, err := Open("", &fallback)
		require.NoError(t, err)
		assert.True(t, out.IsFallback())
		assert.NoError(t, out.Close())
	})

	t.Run("unwritable path falls back", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

		out, err := Open(filepath.Join(blocker, "result.txt"), &fallback)
		assert.Error(t, err)
		require.NotNil(t, out)
		assert.True(t, out.IsFallback())

		_, err = out.Write([]byte("to stdout"))
		require.NoError(t, err)
		assert.Equal(t, "to stdout", fallback.String())
	})
}
