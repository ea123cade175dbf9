package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

type Object struct {
	Data        []byte
	ContentType string
}

// Memory keeps objects in a map. FailUploads makes every upload fail, for rollback tests.
type Memory struct {
	BaseURL     string
	FailUploads bool

	mu      sync.Mutex
	objects map[string]Object
}

func NewMemory(baseURL string) *Memory {
	return &Memory{BaseURL: baseURL, objects: map[string]Object{}}
}

func (m *Memory) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailUploads {
		return fmt.Errorf("memory upload %s: refused", key)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: buf.Bytes(), ContentType: contentType}
	return nil
}

func (m *Memory) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	return m.BaseURL + "/" + key
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *Memory) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}

func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
