package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// OperatorRule renames an operator, optionally only inside [Start, End]
type OperatorRule struct {
	From  string     `json:"de"`
	To    string     `json:"para"`
	Start *time.Time `json:"-"`
	End   *time.Time `json:"-"`
}

// OperatorMap resolves operator names through the remapping rules
type OperatorMap struct {
	rules []OperatorRule
}

type operatorRuleFile struct {
	From  string `json:"de"`
	To    string `json:"para"`
	Start string `json:"inicio"`
	End   string `json:"fim"`
}

var windowLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// LoadOperatorMap reads a remapping file. Empty path yields an empty map.
func LoadOperatorMap(path string) (*OperatorMap, error) {
	if path == "" {
		return &OperatorMap{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read operator map: %w", err)
	}
	return ParseOperatorMap(data)
}

// ParseOperatorMap accepts either {"old": "new"} or a list of
// {"de", "para", "inicio", "fim"} entries.
func ParseOperatorMap(data []byte) (*OperatorMap, error) {
	data = bytes.TrimSpace(data)
	m := &OperatorMap{}
	if len(data) == 0 {
		return m, nil
	}

	if data[0] == '{' {
		var simple map[string]string
		if err := json.Unmarshal(data, &simple); err != nil {
			return nil, fmt.Errorf("invalid operator map: %w", err)
		}
		for from, to := range simple {
			m.rules = append(m.rules, OperatorRule{From: strings.TrimSpace(from), To: strings.TrimSpace(to)})
		}
		return m, nil
	}

	var entries []operatorRuleFile
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid operator map: %w", err)
	}
	for i, e := range entries {
		if e.From == "" || e.To == "" {
			return nil, fmt.Errorf("operator map entry %d: de and para are required", i)
		}
		r := OperatorRule{From: strings.TrimSpace(e.From), To: strings.TrimSpace(e.To)}
		if e.Start != "" {
			t, err := parseWindow(e.Start)
			if err != nil {
				return nil, fmt.Errorf("operator map entry %d: %w", i, err)
			}
			r.Start = &t
		}
		if e.End != "" {
			t, err := parseWindow(e.End)
			if err != nil {
				return nil, fmt.Errorf("operator map entry %d: %w", i, err)
			}
			// a bare date closes at the end of that day
			if len(strings.TrimSpace(e.End)) == 10 {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			r.End = &t
		}
		m.rules = append(m.rules, r)
	}
	return m, nil
}

func parseWindow(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range windowLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// Len returns the number of rules
func (m *OperatorMap) Len() int {
	return len(m.rules)
}

// Resolve returns the remapped operator for a sample taken at ts. Windowed
// rules win over unbounded ones; the first matching rule applies.
func (m *OperatorMap) Resolve(operator string, ts time.Time) string {
	if m == nil || len(m.rules) == 0 {
		return operator
	}
	key := strings.TrimSpace(operator)
	var fallback string
	for _, r := range m.rules {
		if r.From != key {
			continue
		}
		if r.Start == nil && r.End == nil {
			if fallback == "" {
				fallback = r.To
			}
			continue
		}
		if r.Start != nil && ts.Before(*r.Start) {
			continue
		}
		if r.End != nil && ts.After(*r.End) {
			continue
		}
		return r.To
	}
	if fallback != "" {
		return fallback
	}
	return operator
}
