package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"keuangan/internal/core"
	"keuangan/internal/sheets"
)

// TablesRefreshed announces that the stored copy of some tables changed
// for a period, either because the mirror ran or a transaction was
// ingested. Receivers drop their cached copies.
type TablesRefreshed struct {
	Period    string    `json:"period"` // core.Period.Key()
	Tables    []string  `json:"tables"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTablesRefreshed creates a message stamped with the current time.
func NewTablesRefreshed(p core.Period, source string, tables ...sheets.Table) *TablesRefreshed {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = string(t)
	}
	return &TablesRefreshed{
		Period:    p.Key(),
		Tables:    names,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TablesRefreshed) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TablesRefreshedFromJSON decodes and validates a message.
func TablesRefreshedFromJSON(data []byte) (*TablesRefreshed, error) {
	var msg TablesRefreshed
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := msg.ResolvedPeriod(); err != nil {
		return nil, fmt.Errorf("message period: %w", err)
	}
	if len(msg.Tables) == 0 {
		return nil, errors.New("message lists no tables")
	}
	return &msg, nil
}

func (m *TablesRefreshed) ResolvedPeriod() (core.Period, error) {
	return core.ParsePeriodKey(m.Period)
}

func (m *TablesRefreshed) TableList() []sheets.Table {
	out := make([]sheets.Table, len(m.Tables))
	for i, t := range m.Tables {
		out[i] = sheets.Table(t)
	}
	return out
}
