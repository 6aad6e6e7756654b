package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JsonFile stores a single JSON document. Writes replace the whole file
// through a temporary file and a rename, so readers in other processes see
// either the old or the new document, never a mix.
type JsonFile[T any] struct {
	sync.Mutex
	FilePath string
	Perm     os.FileMode
}

func NewJsonFile[T any](filePath string) *JsonFile[T] {
	return &JsonFile[T]{FilePath: filePath, Perm: 0644}
}

func (j *JsonFile[T]) Read() (*T, error) {
	j.Lock()
	defer j.Unlock()
	return j.read()
}

func (j *JsonFile[T]) read() (*T, error) {
	bs, err := os.ReadFile(j.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", j.FilePath, err)
	}
	if len(bs) == 0 {
		return nil, fmt.Errorf("file %s is empty", j.FilePath)
	}
	obj := new(T)
	err = json.Unmarshal(bs, obj)
	if err != nil {
		return nil, fmt.Errorf("unmarshal json: %w", err)
	}
	return obj, nil
}

// Write overwrites the file with obj.
func (j *JsonFile[T]) Write(obj *T) error {
	j.Lock()
	defer j.Unlock()
	return j.write(obj)
}

func (j *JsonFile[T]) write(obj *T) error {
	bs, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(j.FilePath), "."+filepath.Base(j.FilePath)+".*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", j.FilePath, err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(bs); err != nil {
		tmp.Close()
		return fmt.Errorf("write file %s: %w", tmp.Name(), err)
	}
	if err = tmp.Chmod(j.Perm); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), j.FilePath); err != nil {
		return fmt.Errorf("write file %s: %w", j.FilePath, err)
	}
	return nil
}
