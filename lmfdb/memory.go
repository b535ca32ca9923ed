package lmfdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

type levelWeight struct {
	level, weight int
}

// Memory is an in-process Source backed by fixtures.
type Memory struct {
	mu       sync.RWMutex
	forms    map[levelWeight][]NewformStub
	extended map[string]Coefficients
}

// NewMemory indexes fixtures by (level, weight) and label.
func NewMemory(fixtures ...Fixture) *Memory {
	m := &Memory{
		forms:    make(map[levelWeight][]NewformStub),
		extended: make(map[string]Coefficients),
	}
	m.Add(fixtures...)
	return m
}

// Add inserts fixtures, keeping each (level, weight) bucket sorted by label.
func (m *Memory) Add(fixtures ...Fixture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	touched := map[levelWeight]bool{}
	for _, f := range fixtures {
		key := levelWeight{f.Level, f.Weight}
		m.forms[key] = append(m.forms[key], f.NewformStub)
		touched[key] = true
		if f.Extended != nil {
			m.extended[f.Label] = *f.Extended
		}
	}
	for key := range touched {
		bucket := m.forms[key]
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].Label < bucket[j].Label })
	}
}

func (m *Memory) FormsBy(ctx context.Context, level, weight int) ([]NewformStub, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket := m.forms[levelWeight{level, weight}]
	return append([]NewformStub(nil), bucket...), nil
}

func (m *Memory) ExtendedCoefficients(ctx context.Context, label string) (Coefficients, error) {
	if err := ctx.Err(); err != nil {
		return Coefficients{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.extended[label]
	if !ok {
		return Coefficients{}, fmt.Errorf("%w: extended coefficients for %s", ErrNotFound, label)
	}
	return c, nil
}

// ReadFixtures decodes a JSON array of fixtures.
func ReadFixtures(r io.Reader) ([]Fixture, error) {
	var out []Fixture
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("lmfdb: decode fixtures: %w", err)
	}
	return out, nil
}

// LoadFixtures reads fixtures from a JSON file.
func LoadFixtures(path string) ([]Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFixtures(f)
}
