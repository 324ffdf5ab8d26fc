package tracker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/schema"
	"gopkg.in/yaml.v3"
)

// closedStates are item states that ListOpenItems leaves out.
var closedStates = map[string]struct{}{"closed": {}, "done": {}, "completed": {}}

// itemsFile is the on-disk layout of a file tracker.
type itemsFile struct {
	Items []schema.Item `yaml:"items"`
}

// File keeps items in a local YAML document, for offline use and tests.
type File struct {
	path string
	mu   sync.Mutex
}

var _ contract.Tracker = &File{} // Compile-time check

// NewFile creates a tracker backed by the YAML file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) load() (itemsFile, error) {
	var doc itemsFile
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return doc, nil
}

func (f *File) save(doc itemsFile) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}

// FetchItems implements the Tracker interface.
func (f *File) FetchItems(_ context.Context, ids []string) []schema.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		contract.LogWarn("Failed to read tracker file", err)
		return nil
	}
	byID := make(map[string]schema.Item, len(doc.Items))
	for _, item := range doc.Items {
		byID[item.ID] = item
	}
	var items []schema.Item
	for _, id := range ids {
		if item, ok := byID[strings.TrimPrefix(id, "#")]; ok {
			items = append(items, item)
		}
	}
	return items
}

// ListOpenItems implements the Tracker interface.
func (f *File) ListOpenItems(_ context.Context, limit int) []schema.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		contract.LogWarn("Failed to read tracker file", err)
		return nil
	}
	var items []schema.Item
	for _, item := range doc.Items {
		if _, closed := closedStates[strings.ToLower(item.State)]; closed {
			continue
		}
		if limit > 0 && len(items) >= limit {
			break
		}
		items = append(items, item)
	}
	return items
}

// UpdateItemStatus implements the Tracker interface by rewriting the item's state.
func (f *File) UpdateItemStatus(_ context.Context, id string, status string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		contract.LogWarn("Failed to read tracker file", err)
		return false
	}
	id = strings.TrimPrefix(id, "#")
	for i := range doc.Items {
		if doc.Items[i].ID != id {
			continue
		}
		doc.Items[i].State = status
		if err := f.save(doc); err != nil {
			contract.LogWarn("Failed to write tracker file", err)
			return false
		}
		return true
	}
	return false
}
