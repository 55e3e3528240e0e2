package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"harvest-fleet-monitor/internal/models"
	"harvest-fleet-monitor/internal/report"
	"harvest-fleet-monitor/pkg/logger"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the processed workbook
const (
	SheetSamples   = "Base Calculo"
	SheetOperators = "Operadores"
	SheetMachines  = "Equipamentos"
	SheetDayHours  = "Horas por Dia"
	SheetIdle      = "Motor Ocioso"
)

// Built-in excelize number formats
const (
	numFmtDecimal = 2  // 0.00
	numFmtPercent = 10 // 0.00%
)

type format int

const (
	plain format = iota
	decimal
	percent
)

type column struct {
	header string
	format format
}

type table struct {
	sheet   string
	columns []column
	rows    [][]interface{}
}

// OutputPaths returns the workbook and coordinates paths for an input file
func OutputPaths(input, outDir string) (string, string) {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	return filepath.Join(outDir, base+"_processado.xlsx"),
		filepath.Join(outDir, base+"_coordenadas.csv")
}

// WriteWorkbook writes every table of rep to path, one sheet per table
func WriteWorkbook(path string, rep *report.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Errorf("failed to close workbook: %v", err)
		}
	}()

	decimalStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtDecimal})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	percentStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtPercent})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	tables := []table{
		samplesTable(rep),
		operatorsTable(rep.Operators),
		machinesTable(rep.Machines),
		dayHoursTable(rep.DayHours),
		idleTable(rep.IdleSpans),
	}

	for i, tb := range tables {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), tb.sheet); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(tb.sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", tb.sheet, err)
		}

		headers := make([]interface{}, len(tb.columns))
		for c, col := range tb.columns {
			headers[c] = col.header
		}
		if err := f.SetSheetRow(tb.sheet, "A1", &headers); err != nil {
			return fmt.Errorf("failed to write %s header: %w", tb.sheet, err)
		}

		for r := range tb.rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(tb.sheet, cell, &tb.rows[r]); err != nil {
				return fmt.Errorf("failed to write %s row %d: %w", tb.sheet, r+2, err)
			}
		}

		if len(tb.rows) == 0 {
			continue
		}
		for c, col := range tb.columns {
			style := 0
			switch col.format {
			case decimal:
				style = decimalStyle
			case percent:
				style = percentStyle
			default:
				continue
			}
			top, _ := excelize.CoordinatesToCellName(c+1, 2)
			bottom, _ := excelize.CoordinatesToCellName(c+1, len(tb.rows)+1)
			if err := f.SetCellStyle(tb.sheet, top, bottom, style); err != nil {
				return fmt.Errorf("failed to format %s: %w", tb.sheet, err)
			}
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	logger.Infof("workbook written to %s", path)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "SIM"
	}
	return "NAO"
}

func samplesTable(rep *report.Report) table {
	tb := table{
		sheet: SheetSamples,
		columns: []column{
			{"Equipamento", plain},
			{"Data", plain},
			{"Hora", plain},
			{"Operador", plain},
			{"Operacao", plain},
			{"Grupo Operacao", plain},
			{"Frente", plain},
			{"Velocidade", decimal},
			{"RPM Motor", decimal},
			{"Motor Ligado", plain},
			{"RTK", plain},
			{"Pressao de Corte", decimal},
			{"Latitude", plain},
			{"Longitude", plain},
			{"Diferenca_Hora", decimal},
			{"Parado com Motor Ligado", plain},
			{"Horas Motor Ocioso", decimal},
			{"Horas Elevador", decimal},
		},
	}
	for _, s := range rep.Samples {
		op := s.OperationName
		if s.OperationCode != "" {
			op = s.OperationCode + " - " + s.OperationName
		}
		tb.rows = append(tb.rows, []interface{}{
			s.Equipment, s.Date.String(), s.Hour, s.Operator, op, s.OperationGroup, s.Front,
			s.Speed, s.RPM, yesNo(s.EngineOn), yesNo(s.RTKOn), s.CutPressure,
			s.Latitude, s.Longitude,
			s.ElapsedHours, yesNo(s.StoppedEngineOn), s.IdleHours, s.ElevatorHours,
		})
	}
	return tb
}

func operatorsTable(ops []models.OperatorSummary) table {
	tb := table{
		sheet: SheetOperators,
		columns: []column{
			{"Equipamento", plain},
			{"Operador", plain},
			{"Horas Totais", decimal},
			{"Horas Motor Ligado", decimal},
			{"Horas Motor Ocioso", decimal},
			{"Motor Ocioso %", percent},
			{"Horas Produtivas", decimal},
			{"Horas Elevador", decimal},
			{"Eficiencia Energetica", percent},
			{"Horas RTK", decimal},
			{"Uso GPS", percent},
			{"Velocidade Media", decimal},
		},
	}
	for _, o := range ops {
		tb.rows = append(tb.rows, []interface{}{
			o.Equipment, o.Operator, o.TotalHours, o.EngineOnHours, o.IdleHours, o.IdlePct,
			o.ProductiveHours, o.ElevatorHours, o.EnergyEfficiency, o.RTKHours, o.GPSUsagePct, o.AvgSpeed,
		})
	}
	return tb
}

func machinesTable(machines []models.EquipmentSummary) table {
	tb := table{
		sheet: SheetMachines,
		columns: []column{
			{"Equipamento", plain},
			{"Frente", plain},
			{"Horas Totais", decimal},
			{"Horas Manutencao", decimal},
			{"Disponibilidade Mecanica", percent},
			{"Horas Motor Ligado", decimal},
			{"Horas Motor Ocioso", decimal},
			{"Motor Ocioso %", percent},
			{"Horas Produtivas", decimal},
			{"Horas Elevador", decimal},
			{"Eficiencia Energetica", percent},
			{"Uso GPS", percent},
			{"Velocidade Media", decimal},
			{"Distancia (km)", decimal},
		},
	}
	for _, m := range machines {
		tb.rows = append(tb.rows, []interface{}{
			m.Equipment, m.Front, m.TotalHours, m.MaintenanceHours, m.MechanicalAvailability,
			m.EngineOnHours, m.IdleHours, m.IdlePct, m.ProductiveHours, m.ElevatorHours,
			m.EnergyEfficiency, m.GPSUsagePct, m.AvgSpeed, m.DistanceKM,
		})
	}
	return tb
}

func dayHoursTable(days []models.DayHoursCheck) table {
	tb := table{
		sheet: SheetDayHours,
		columns: []column{
			{"Equipamento", plain},
			{"Data", plain},
			{"Horas", decimal},
			{"Excede 24h", plain},
		},
	}
	for _, d := range days {
		tb.rows = append(tb.rows, []interface{}{d.Equipment, d.Date.String(), d.Hours, yesNo(d.Exceeded)})
	}
	return tb
}

func idleTable(spans []models.IdleSpan) table {
	tb := table{
		sheet: SheetIdle,
		columns: []column{
			{"Equipamento", plain},
			{"Operador", plain},
			{"Inicio", plain},
			{"Minutos Parado", decimal},
			{"Horas Motor Ocioso", decimal},
		},
	}
	for _, sp := range spans {
		tb.rows = append(tb.rows, []interface{}{
			sp.Equipment, sp.Operator, sp.Start.Format("2006-01-02 15:04:05"), sp.Minutes, sp.IdleHours,
		})
	}
	return tb
}

// WriteCoordinates writes the GPS fixes of samples as a CSV file and returns
// how many points were written. No file is created when there are none.
func WriteCoordinates(path string, samples []models.Sample) (int, error) {
	var (
		equipment []string
		stamps    []string
		lats      []float64
		lons      []float64
	)
	for i := range samples {
		s := &samples[i]
		if !s.HasFix() {
			continue
		}
		equipment = append(equipment, s.Equipment)
		stamps = append(stamps, s.Timestamp.Format("2006-01-02 15:04:05"))
		lats = append(lats, s.Latitude)
		lons = append(lons, s.Longitude)
	}
	if len(equipment) == 0 {
		logger.Debugf("no GPS fixes, %s not written", path)
		return 0, nil
	}

	df := dataframe.New(
		series.New(equipment, series.String, "Equipamento"),
		series.New(stamps, series.String, "Data/Hora"),
		series.New(lats, series.Float, "Latitude"),
		series.New(lons, series.Float, "Longitude"),
	)
	if df.Err != nil {
		return 0, fmt.Errorf("failed to build coordinates: %w", df.Err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	if err := df.WriteCSV(out); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return len(equipment), nil
}
