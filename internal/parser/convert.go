package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"harvest-fleet-monitor/internal/models"

	"cloud.google.com/go/civil"
)

var frontPattern = regexp.MustCompile(`(?i)frente\s*0*(\d+)`)

// recordToSample converts a normalized record to a Sample
func (p *Parser) recordToSample(record []string, indices map[string]int) (models.Sample, error) {
	var s models.Sample
	var err error

	getValue := func(key string) string {
		if idx, ok := indices[key]; ok && idx < len(record) {
			v := strings.TrimSpace(record[idx])
			if v == "NaN" {
				return ""
			}
			return v
		}
		return ""
	}
	_, hasEngine := indices[models.ColEngine]

	s.Equipment = getValue(models.ColEquipment)
	if s.Equipment == "" {
		return s, fmt.Errorf("missing equipment")
	}
	s.MachineNumber = parseIntLoose(s.Equipment)

	tsStr := getValue(models.ColTimestamp)
	if tsStr == "" {
		tsStr = strings.TrimSpace(getValue(models.ColDate) + " " + getValue(models.ColHour))
	}
	s.Timestamp, err = ParseTimestamp(tsStr)
	if err != nil {
		return s, fmt.Errorf("invalid timestamp: %w", err)
	}
	s.Date = civil.DateOf(s.Timestamp)
	s.Hour = s.Timestamp.Format("15:04:05")

	p.setOperator(&s, getValue(models.ColOperator))

	op := getValue(models.ColOperation)
	if code, name, ok := splitCode(op); ok {
		s.OperationCode, s.OperationName = code, name
	} else {
		s.OperationName = op
	}
	s.OperationGroup = getValue(models.ColGroup)
	s.Front = ExtractFront(getValue(models.ColFront))

	s.Speed = ParseNumber(getValue(models.ColSpeed))
	s.RPM = ParseMagnitude(getValue(models.ColRPM))
	s.CutPressure = ParseMagnitude(getValue(models.ColCutPressure))
	s.Latitude = ParseNumber(getValue(models.ColLatitude))
	s.Longitude = ParseNumber(getValue(models.ColLongitude))
	s.RTKOn = ParseFlag(getValue(models.ColRTK))

	if hasEngine {
		s.EngineOn = ParseFlag(getValue(models.ColEngine))
	} else {
		s.EngineOn = s.RPM >= p.rules.MinEngineRPM && s.RPM > 0
	}

	return s, nil
}

// setOperator applies the remapping and splits "ID - NAME"
func (p *Parser) setOperator(s *models.Sample, raw string) {
	op := raw
	if p.operators != nil {
		op = p.operators.Resolve(raw, s.Timestamp)
	}
	s.Operator = op
	if id, name, ok := splitCode(op); ok {
		s.OperatorID, s.OperatorName = id, name
	} else {
		s.OperatorName = op
	}
}

// splitCode splits "8490 - LAVAGEM" into its code and name
func splitCode(v string) (string, string, bool) {
	idx := strings.Index(v, " - ")
	if idx <= 0 {
		return "", v, false
	}
	code := strings.TrimSpace(v[:idx])
	if _, err := strconv.Atoi(code); err != nil {
		return "", v, false
	}
	return code, strings.TrimSpace(v[idx+3:]), true
}

// ExtractFront pulls "Frente N" out of the composite equipment-group column
func ExtractFront(v string) string {
	if m := frontPattern.FindStringSubmatch(v); m != nil {
		return "Frente " + m[1]
	}
	return strings.TrimSpace(v)
}

// ParseTimestamp tries the export formats, then ISO ones
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	formats := []string{
		"02/01/2006 15:04:05",
		"02/01/2006 15:04",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"02/01/2006",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", s)
}

// ParseNumber parses numbers in either BR ("1.234,5") or US ("1,234.5") notation.
// Unparseable values are 0.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.Trim(s, `"'`)
	s = strings.ReplaceAll(s, " ", "")

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasDot && hasComma:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseMagnitude is ParseNumber for columns that never carry a fraction below
// one thousandth, such as RPM and cut pressure: a value with dots only, where
// every dot is followed by exactly three digits, is read as BR thousands
// ("1.850" is 1850).
func ParseMagnitude(s string) float64 {
	t := strings.ReplaceAll(strings.Trim(strings.TrimSpace(s), `"'`), " ", "")
	if !strings.Contains(t, ".") || strings.Contains(t, ",") {
		return ParseNumber(s)
	}
	parts := strings.Split(t, ".")
	if len(parts[0]) == 0 || len(parts[0]) > 3 {
		return ParseNumber(s)
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return ParseNumber(s)
		}
	}
	return ParseNumber(strings.Join(parts, ""))
}

// ParseFlag reads the on/off columns (LIGADO, SIM, 1, true ...)
func ParseFlag(s string) bool {
	switch Fold(s) {
	case "ligado", "ligada", "sim", "s", "true", "verdadeiro", "on", "yes", "habilitado":
		return true
	case "", "desligado", "desligada", "nao", "n", "false", "falso", "off", "no", "desabilitado":
		return false
	}
	return ParseNumber(s) > 0
}

func parseIntLoose(s string) int {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	v, _ := strconv.Atoi(b.String())
	return v
}

// Validate validates a converted sample
func Validate(s *models.Sample) []string {
	var errors []string

	if s.Equipment == "" {
		errors = append(errors, "equipment is required")
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		errors = append(errors, "latitude must be between -90 and 90")
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		errors = append(errors, "longitude must be between -180 and 180")
	}
	if s.Speed < 0 {
		errors = append(errors, "speed cannot be negative")
	}

	return errors
}
