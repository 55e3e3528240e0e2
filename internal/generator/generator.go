package generator

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"harvest-fleet-monitor/internal/models"

	"golang.org/x/text/encoding/charmap"
)

// Options control the synthetic export
type Options struct {
	Equipment models.EquipmentType
	Machines  int
	Hours     int
	Start     time.Time
	Front     int
	Seed      int64
}

const (
	harvesterHeader = "Equipamento;Data/Hora;Operador;Operação;Grupo Operação;Grupo Equipamento/Frente;" +
		"Velocidade;RPM Motor;Motor Ligado;RTK (Piloto Automático);Pressão de Corte;Latitude;Longitude"
	transporterHeader = "Equipamento;Data;Hora;Operador;Operação;Grupo Operação;Grupo Equipamento/Frente;" +
		"Velocidade;RPM Motor;Motor Ligado;RTK (Piloto Automático);Latitude;Longitude"
)

type state struct {
	operation string
	group     string
	minSpeed  float64
	maxSpeed  float64
	engine    bool
	minutes   [2]int
}

var harvesterStates = []state{
	{"1 - COLHEITA MECANIZADA", "Produtiva", 4, 7, true, [2]int{20, 90}},
	{"820 - MANOBRA", "Produtiva", 2, 5, true, [2]int{2, 6}},
	{"240 - AGUARDANDO TRANSBORDO", "Improdutiva", 0, 0, true, [2]int{3, 15}},
	{"9000 - MANUTENCAO MECANICA", "Manutenção", 0, 0, false, [2]int{10, 60}},
	{"8490 - LAVAGEM", "Improdutiva", 0, 0, true, [2]int{5, 10}},
}

var transporterStates = []state{
	{"301 - TRANSBORDO CARREGANDO", "Produtiva", 4, 7, true, [2]int{10, 30}},
	{"302 - DESLOCAMENTO CARREGADO", "Produtiva", 12, 25, true, [2]int{5, 20}},
	{"240 - AGUARDANDO COLHEDORA", "Improdutiva", 0, 0, true, [2]int{3, 20}},
	{"9000 - MANUTENCAO MECANICA", "Manutenção", 0, 0, false, [2]int{10, 45}},
	{"9016 - ENCH SISTEMA FREIO", "Improdutiva", 0, 0, true, [2]int{2, 5}},
}

var operators = []string{
	"1234 - JOAO SILVA",
	"2345 - MARIA SOUZA",
	"3456 - JOSÉ CONCEIÇÃO",
	"4567 - ANTÔNIO PEREIRA",
}

// Generate writes a Windows-1252 export with one sample per minute per machine
func Generate(w io.Writer, opts Options) (int, error) {
	var (
		header string
		states []state
		base   int
	)
	switch opts.Equipment {
	case models.Harvester:
		header, states, base = harvesterHeader, harvesterStates, 7000
	case models.Transporter:
		header, states, base = transporterHeader, transporterStates, 1500
	default:
		return 0, fmt.Errorf("%w: %q", models.ErrUnsupportedEquipment, opts.Equipment)
	}
	if opts.Machines < 1 || opts.Hours < 1 {
		return 0, fmt.Errorf("machines and hours must be positive")
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2024, 5, 3, 6, 0, 0, 0, time.UTC)
	}
	if opts.Front == 0 {
		opts.Front = 1
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	enc := charmap.Windows1252.NewEncoder().Writer(w)
	out := bufio.NewWriter(enc)

	if _, err := out.WriteString(header + "\n"); err != nil {
		return 0, err
	}

	rows := 0
	minutes := opts.Hours * 60
	for m := 0; m < opts.Machines; m++ {
		equipment := strconv.Itoa(base + 31 + m)
		operator := operators[m%len(operators)]
		lat := -21.20 - rng.Float64()*0.05
		lon := -48.30 - rng.Float64()*0.05

		var cur state
		left := 0
		for i := 0; i < minutes; i++ {
			if left == 0 {
				cur = states[rng.Intn(len(states))]
				left = cur.minutes[0] + rng.Intn(cur.minutes[1]-cur.minutes[0]+1)
			}
			left--

			speed := 0.0
			if cur.maxSpeed > 0 {
				speed = cur.minSpeed + rng.Float64()*(cur.maxSpeed-cur.minSpeed)
				// about speed km/h over one minute, in degrees
				lat += speed / 60 / 111.32 * (rng.Float64() - 0.3)
				lon += speed / 60 / 111.32 * (rng.Float64() - 0.5)
			}
			rpm := 0.0
			if cur.engine {
				rpm = 800 + speed*150 + rng.Float64()*100
			}
			ts := opts.Start.Add(time.Duration(i) * time.Minute)

			fields := []string{equipment}
			if opts.Equipment == models.Harvester {
				fields = append(fields, ts.Format("02/01/2006 15:04:05"))
			} else {
				fields = append(fields, ts.Format("02/01/2006"), ts.Format("15:04:05"))
			}
			fields = append(fields,
				operator,
				cur.operation,
				cur.group,
				fmt.Sprintf("%s FRENTE %02d", strings.ToUpper(groupName(opts.Equipment)), opts.Front),
				decimal(speed, 1),
				decimal(rpm, 0),
				flag(cur.engine),
				flag(speed > 0 && rng.Float64() < 0.9),
			)
			if opts.Equipment == models.Harvester {
				pressure := 0.0
				if speed > 0 {
					pressure = 350 + rng.Float64()*450
				}
				fields = append(fields, decimal(pressure, 0))
			}
			fields = append(fields, decimal(lat, 6), decimal(lon, 6))

			if _, err := out.WriteString(strings.Join(fields, ";") + "\n"); err != nil {
				return rows, err
			}
			rows++
		}
	}

	if err := out.Flush(); err != nil {
		return rows, err
	}
	if c, ok := enc.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func groupName(t models.EquipmentType) string {
	if t == models.Harvester {
		return "Colhedoras"
	}
	return "Transbordos"
}

// decimal formats f with a decimal comma
func decimal(f float64, prec int) string {
	return strings.Replace(strconv.FormatFloat(f, 'f', prec, 64), ".", ",", 1)
}

func flag(b bool) string {
	if b {
		return "LIGADO"
	}
	return "DESLIGADO"
}
