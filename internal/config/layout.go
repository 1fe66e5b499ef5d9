package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"keuangan/internal/aggregate"
	"keuangan/internal/sheets"

	"gopkg.in/yaml.v3"
)

// Layout is the YAML worksheet layout: table locations, named value
// overrides and the ledger headers.
type Layout struct {
	sheets.Layout `yaml:",inline"`
	Ledger        aggregate.LedgerColumns `yaml:"ledger"`
}

// DefaultLayout is used when no layout file is configured.
func DefaultLayout() Layout {
	return Layout{Layout: sheets.DefaultLayout(), Ledger: aggregate.DefaultLedgerColumns()}
}

// LoadLayout reads path and fills anything it leaves out from the
// defaults. An empty path returns DefaultLayout.
func LoadLayout(path string) (Layout, error) {
	if path == "" {
		return DefaultLayout(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	var l Layout
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil && !errors.Is(err, io.EOF) {
		return Layout{}, fmt.Errorf("parse layout %s: %w", path, err)
	}
	l.Layout = l.Layout.Merge(sheets.DefaultLayout())
	l.Ledger = l.Ledger.WithDefaults()
	if err := l.Layout.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}
