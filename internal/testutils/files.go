package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// HarvesterHeader is the header of a harvester export, accents included
const HarvesterHeader = "Equipamento;Data/Hora;Operador;Operação;Grupo Operação;Grupo Equipamento/Frente;" +
	"Velocidade;RPM Motor;Motor Ligado;RTK (Piloto Automático);Pressão de Corte;Latitude;Longitude"

// TransporterHeader has no cut pressure and splits date and hour
const TransporterHeader = "Equipamento;Data;Hora;Operador;Operação;Grupo Operação;Grupo Equipamento/Frente;" +
	"Velocidade;RPM Motor;Motor Ligado;RTK (Piloto Automático);Latitude;Longitude"

// Row is one line of a test export
type Row struct {
	Equipment string
	Time      time.Time
	Operator  string
	Operation string
	Group     string
	Front     string
	Speed     float64
	RPM       float64
	Engine    bool
	RTK       bool
	Pressure  float64
	Lat       float64
	Lon       float64
}

func flag(b bool) string {
	if b {
		return "LIGADO"
	}
	return "DESLIGADO"
}

// br formats a number with a decimal comma
func br(f float64) string {
	return strings.ReplaceAll(fmt.Sprintf("%g", f), ".", ",")
}

// HarvesterLine renders r in the harvester layout
func (r Row) HarvesterLine() string {
	return strings.Join([]string{
		r.Equipment,
		r.Time.Format("02/01/2006 15:04:05"),
		r.Operator,
		r.Operation,
		r.Group,
		r.Front,
		br(r.Speed),
		br(r.RPM),
		flag(r.Engine),
		flag(r.RTK),
		br(r.Pressure),
		br(r.Lat),
		br(r.Lon),
	}, ";")
}

// TransporterLine renders r in the transporter layout
func (r Row) TransporterLine() string {
	return strings.Join([]string{
		r.Equipment,
		r.Time.Format("02/01/2006"),
		r.Time.Format("15:04:05"),
		r.Operator,
		r.Operation,
		r.Group,
		r.Front,
		br(r.Speed),
		br(r.RPM),
		flag(r.Engine),
		flag(r.RTK),
		br(r.Lat),
		br(r.Lon),
	}, ";")
}

// WriteExport writes header and lines to dir/name. With latin1 set the file
// is encoded as Windows-1252, like the vendor exports.
func WriteExport(t *testing.T, dir, name, header string, lines []string, latin1 bool) string {
	t.Helper()
	content := header + "\n" + strings.Join(lines, "\n") + "\n"
	data := []byte(content)
	if latin1 {
		enc, err := charmap.Windows1252.NewEncoder().String(content)
		if err != nil {
			t.Fatalf("Failed to encode export: %v", err)
		}
		data = []byte(enc)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write export: %v", err)
	}
	return path
}
