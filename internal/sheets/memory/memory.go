package memory

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"keuangan/internal/core"
	ports "keuangan/internal/sheets"

	"gopkg.in/yaml.v3"
)

// AnyPeriod is the period key of tables shared by every period.
const AnyPeriod = "*"

// Store is an in-memory worksheet. It also counts reads so callers can
// assert on round trips.
type Store struct {
	mu     sync.Mutex
	tables map[string]map[ports.Table]ports.Rows
	values map[string]map[ports.Name]string
	reads  int
	err    error
}

var (
	_ ports.Worksheet      = (*Store)(nil)
	_ ports.SnapshotWriter = (*Store)(nil)
)

func New() *Store {
	return &Store{
		tables: map[string]map[ports.Table]ports.Rows{},
		values: map[string]map[ports.Name]string{},
	}
}

// fixture is the YAML shape of a seed file: period key ("2025-12" or "*")
// to tables given as value matrices and named values.
type fixture map[string]struct {
	Tables map[ports.Table][][]string `yaml:"tables"`
	Values map[ports.Name]string      `yaml:"values"`
}

//go:embed demo.yaml
var demoFixture []byte

// NewFromFile seeds a store from a YAML fixture.
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	s, err := fromYAML(b)
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return s, nil
}

// NewDemo returns a store seeded with the bundled demo workbook.
func NewDemo() *Store {
	s, err := fromYAML(demoFixture)
	if err != nil {
		panic(fmt.Sprintf("memory: bad demo fixture: %v", err))
	}
	return s
}

func fromYAML(b []byte) (*Store, error) {
	var fx fixture
	if err := yaml.Unmarshal(b, &fx); err != nil {
		return nil, err
	}
	s := New()
	for key, period := range fx {
		for t, values := range period.Tables {
			s.Put(key, t, ports.FromValues(values))
		}
		for n, v := range period.Values {
			s.PutValue(key, n, v)
		}
	}
	return s, nil
}

// Put stores rows under a period key; use AnyPeriod for shared tables.
func (s *Store) Put(periodKey string, t ports.Table, rows ports.Rows) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables[periodKey] == nil {
		s.tables[periodKey] = map[ports.Table]ports.Rows{}
	}
	s.tables[periodKey][t] = rows
}

func (s *Store) PutValue(periodKey string, n ports.Name, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[periodKey] == nil {
		s.values[periodKey] = map[ports.Name]string{}
	}
	s.values[periodKey][n] = v
}

// FailWith makes every subsequent read return err; nil clears it.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Reads returns the number of reads served so far.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *Store) ReadTable(_ context.Context, p core.Period, t ports.Table) (ports.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return ports.Rows{}, s.err
	}
	for _, key := range []string{p.Key(), AnyPeriod} {
		if rows, ok := s.tables[key][t]; ok {
			return rows, nil
		}
	}
	return ports.Rows{}, nil
}

func (s *Store) ReadValue(_ context.Context, p core.Period, n ports.Name) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return "", s.err
	}
	for _, key := range []string{p.Key(), AnyPeriod} {
		if v, ok := s.values[key][n]; ok {
			return v, nil
		}
	}
	return "", nil
}

func (s *Store) WriteTable(_ context.Context, p core.Period, t ports.Table, rows ports.Rows) error {
	s.Put(p.Key(), t, rows)
	return nil
}

func (s *Store) WriteValue(_ context.Context, p core.Period, n ports.Name, v string) error {
	s.PutValue(p.Key(), n, v)
	return nil
}
