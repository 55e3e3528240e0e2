package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"harvest-fleet-monitor/internal/config"
	"harvest-fleet-monitor/internal/models"
	"harvest-fleet-monitor/pkg/logger"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Parser reads telemetry exports of one equipment type
type Parser struct {
	equipment models.EquipmentType
	settings  config.EquipmentSettings
	rules     config.Rules
	aliases   map[string]string // folded header -> canonical column
	operators *config.OperatorMap

	excludedOps    map[string]bool
	excludedGroups map[string]bool
}

// Result is the outcome of parsing one file
type Result struct {
	Samples      []models.Sample
	Encoding     string
	Columns      []string
	RowsRead     int
	RowsExcluded int
	RowsSkipped  int
}

// NewParser creates a parser for the given equipment type
func NewParser(t models.EquipmentType, cfg *config.Config, operators *config.OperatorMap) (*Parser, error) {
	settings, err := cfg.For(t)
	if err != nil {
		return nil, err
	}

	p := &Parser{
		equipment:      t,
		settings:       settings,
		rules:          cfg.Rules,
		aliases:        make(map[string]string),
		operators:      operators,
		excludedOps:    foldSet(settings.ExcludedOperations),
		excludedGroups: foldSet(settings.ExcludedGroups),
	}
	for _, c := range settings.Columns {
		p.aliases[Fold(c)] = c
	}
	for alias, canonical := range cfg.Aliases {
		p.aliases[Fold(alias)] = canonical
	}
	return p, nil
}

func foldSet(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[Fold(v)] = true
	}
	return m
}

// ParseFile parses a telemetry export file
func (p *Parser) ParseFile(filename string) (*Result, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	res, err := p.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return res, nil
}

// Parse reads a semicolon-delimited export
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	text, enc, err := DecodeText(raw)
	if err != nil {
		return nil, err
	}
	if enc != "utf-8" {
		logger.Warnf("input is not utf-8, decoded as %s", enc)
	}

	df, rowsRead, err := p.load(text)
	if err != nil {
		return nil, err
	}

	res := &Result{Encoding: enc, RowsRead: rowsRead}

	df, res.RowsExcluded = p.exclude(df)
	res.Columns = df.Names()

	records := df.Records()
	indices := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		indices[h] = i
	}

	for n, record := range records[1:] {
		s, err := p.recordToSample(record, indices)
		if err != nil {
			logger.Debugf("row %d: %v", n+2, err)
			res.RowsSkipped++
			continue
		}
		if errs := Validate(&s); len(errs) > 0 {
			logger.Debugf("row %d: %s", n+2, strings.Join(errs, "; "))
			res.RowsSkipped++
			continue
		}
		res.Samples = append(res.Samples, s)
	}

	if res.RowsSkipped > 0 {
		logger.Warnf("%d rows skipped (unparseable or invalid)", res.RowsSkipped)
	}
	return res, nil
}

// load reads the CSV text into a DataFrame with canonical column names,
// projected onto the configured column list.
func (p *Parser) load(text string) (dataframe.DataFrame, int, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, 0, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(all) < 2 {
		return dataframe.DataFrame{}, 0, models.ErrEmptyFile
	}

	header := p.canonicalHeader(all[0])
	width := len(header)
	rows := make([][]string, 0, len(all))
	rows = append(rows, header)
	for _, rec := range all[1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]string, width)
		copy(row, rec)
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		rows = append(rows, row)
	}
	if len(rows) < 2 {
		return dataframe.DataFrame{}, 0, models.ErrEmptyFile
	}

	if missing := p.missingColumns(header); len(missing) > 0 {
		return dataframe.DataFrame{}, 0, fmt.Errorf("%w: %s", models.ErrMissingColumns, strings.Join(missing, ", "))
	}

	df := dataframe.LoadRecords(rows,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, 0, fmt.Errorf("failed to load table: %w", df.Err)
	}

	present := make(map[string]bool, width)
	for _, h := range header {
		present[h] = true
	}
	var keep []string
	for _, c := range p.settings.Columns {
		if present[c] {
			keep = append(keep, c)
		}
	}
	df = df.Select(keep)
	if df.Err != nil {
		return dataframe.DataFrame{}, 0, fmt.Errorf("failed to select columns: %w", df.Err)
	}
	return df, len(rows) - 1, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// canonicalHeader renames header cells to canonical names. Unknown or
// duplicate columns keep a unique version of their original name.
func (p *Parser) canonicalHeader(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(string(bytes.TrimPrefix([]byte(h), utf8BOM)))
		name := h
		if c, ok := p.aliases[Fold(h)]; ok {
			name = c
		}
		if name == "" {
			name = fmt.Sprintf("col_%d", i+1)
		}
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func (p *Parser) missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, c := range p.settings.Required {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if !present[models.ColTimestamp] && !(present[models.ColDate] && present[models.ColHour]) {
		missing = append(missing, models.ColTimestamp)
	}
	sort.Strings(missing)
	return missing
}

// exclude drops rows whose operation or operation group is in the exclusion sets
func (p *Parser) exclude(df dataframe.DataFrame) (dataframe.DataFrame, int) {
	before := df.Nrow()

	filters := []struct {
		column string
		set    map[string]bool
	}{
		{models.ColOperation, p.excludedOps},
		{models.ColGroup, p.excludedGroups},
	}
	for _, f := range filters {
		if len(f.set) == 0 || !hasColumn(df, f.column) {
			continue
		}
		set := f.set
		filtered := df.Filter(dataframe.F{
			Colname:    f.column,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				return !isExcluded(el.String(), set)
			},
		})
		if filtered.Err != nil {
			logger.Errorf("exclusion filter on %s failed: %v", f.column, filtered.Err)
			continue
		}
		df = filtered
	}

	excluded := before - df.Nrow()
	if excluded > 0 {
		logger.Infof("%d rows excluded by operation/group rules", excluded)
	}
	return df, excluded
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// isExcluded matches the whole value ("8490 - LAVAGEM") and its name part ("LAVAGEM")
func isExcluded(value string, set map[string]bool) bool {
	if set[Fold(value)] {
		return true
	}
	if _, name, ok := splitCode(value); ok && set[Fold(name)] {
		return true
	}
	return false
}
