// Package testutil provides class-file and classpath fixtures for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// Classes maps internal class names to class file bytes.
type Classes map[string][]byte

// Add serializes the builders into the set.
func (c Classes) Add(builders ...*ClassBuilder) Classes {
	for _, b := range builders {
		c[b.name] = b.Bytes()
	}
	return c
}

// ClassSet builds a Classes set from builders.
func ClassSet(builders ...*ClassBuilder) Classes {
	return Classes{}.Add(builders...)
}

// WriteClassDir writes every class below dir as <name>.class and returns dir.
func WriteClassDir(t *testing.T, dir string, classes Classes) string {
	t.Helper()
	for name, data := range classes {
		path := filepath.Join(dir, filepath.FromSlash(name)+".class")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create class directory: %v", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatalf("failed to write class %s: %v", name, err)
		}
	}
	return dir
}

// WriteJar writes the classes into a jar at path and returns path. Extra
// entries are written verbatim.
func WriteJar(t *testing.T, path string, classes Classes, extra map[string]string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create jar directory: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create jar: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, data := range classes {
		w, err := zw.Create(name + ".class")
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	for name, content := range extra {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish jar: %v", err)
	}
	return path
}

// WriteFile writes content to a file in the given directory.
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

// ReadFile reads a file and returns its contents.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return string(data)
}

// FileExists checks if a file exists.
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}

// JDKObject returns a java/lang/Object with the members fixtures rely on.
func JDKObject() *ClassBuilder {
	return NewClass("java/lang/Object").Extends("").
		Abstract("<init>", "()V").
		Abstract("toString", "()Ljava/lang/String;").
		Abstract("hashCode", "()I").
		Method(AccPublic|AccNative, "clone", "()Ljava/lang/Object;").Class()
}
