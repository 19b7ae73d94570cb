// Package storage persists tool results so they can be downloaded again
// by job id.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Object is a stored result.
type Object struct {
	Name        string
	ContentType string
	Data        []byte
}

// Sink stores and retrieves result objects.
type Sink interface {
	Put(ctx context.Context, key string, obj Object) (string, error)
	Get(ctx context.Context, ref string) (Object, error)
	Check(ctx context.Context) error
}

// Local writes results below a directory. Directory defaults to
// ./uploads/results.
type Local struct {
	Dir string
}

func NewLocal(dir string) *Local {
	if dir == "" {
		dir = filepath.Join("uploads", "results")
	}
	return &Local{Dir: dir}
}

type localMeta struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

// Put stores data at <dir>/<key> with a .meta.json sidecar and returns the
// path as reference.
func (l *Local) Put(_ context.Context, key string, obj Object) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid result key %q", key)
	}
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(l.Dir, key)
	if err := os.WriteFile(p, obj.Data, 0o644); err != nil {
		return "", err
	}
	meta, _ := json.Marshal(localMeta{Name: obj.Name, ContentType: obj.ContentType})
	if err := os.WriteFile(p+".meta.json", meta, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

func (l *Local) Get(_ context.Context, ref string) (Object, error) {
	if !l.owns(ref) {
		return Object{}, fmt.Errorf("result %q is outside %s", ref, l.Dir)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return Object{}, err
	}
	obj := Object{Name: filepath.Base(ref), Data: data}
	if b, err := os.ReadFile(ref + ".meta.json"); err == nil {
		var m localMeta
		if json.Unmarshal(b, &m) == nil {
			obj.Name, obj.ContentType = m.Name, m.ContentType
		}
	}
	return obj, nil
}

func (l *Local) owns(ref string) bool {
	rel, err := filepath.Rel(l.Dir, ref)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// Check verifies the directory can be created.
func (l *Local) Check(_ context.Context) error {
	return os.MkdirAll(l.Dir, 0o755)
}

func (l *Local) String() string { return l.Dir }

// Cleanup removes stored results older than maxAge and returns how many
// files were deleted.
func (l *Local) Cleanup(maxAge time.Duration) int {
	now := time.Now()
	removed := 0
	_ = filepath.Walk(l.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if now.Sub(info.ModTime()) >= maxAge {
			if os.Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	return removed
}
