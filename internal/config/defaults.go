package config

import "harvest-fleet-monitor/internal/models"

var commonColumns = []string{
	models.ColEquipment,
	models.ColTimestamp,
	models.ColDate,
	models.ColHour,
	models.ColOperator,
	models.ColOperation,
	models.ColGroup,
	models.ColFront,
	models.ColSpeed,
	models.ColRPM,
	models.ColEngine,
	models.ColRTK,
	models.ColLatitude,
	models.ColLongitude,
}

var requiredColumns = []string{
	models.ColEquipment,
	models.ColOperator,
	models.ColOperation,
	models.ColGroup,
	models.ColSpeed,
}

// Default returns the built-in configuration
func Default() *Config {
	harvesterCols := append(append([]string{}, commonColumns...), models.ColCutPressure)

	return &Config{
		DBPath:       "fleet_reports.db",
		OutputDir:    "output",
		LogLevel:     "info",
		StoreEnabled: true,
		Rules: Rules{
			GapCapMinutes:        30,
			GapPolicy:            GapClamp,
			IdleToleranceMinutes: 1,
			StopSpeed:            0,
			MinEngineRPM:         300,
			CutPressureThreshold: 400,
			DayHoursLimit:        24,
			MaxSpeedKMH:          80,
			ProductiveGroups:     []string{"Produtiva"},
			MaintenanceGroups:    []string{"Manutenção"},
		},
		Aliases: map[string]string{
			"Data Hora":                "Data/Hora",
			"DataHora":                 "Data/Hora",
			"Velocidade (km/h)":        "Velocidade",
			"Velocidade km/h":          "Velocidade",
			"Descricao da Operacao":    "Operacao",
			"Operacao Descricao":       "Operacao",
			"Grupo de Operacao":        "Grupo Operacao",
			"Frente":                   "Grupo Equipamento/Frente",
			"Grupo Equipamento Frente": "Grupo Equipamento/Frente",
			"RPM":                      "RPM Motor",
			"Rotacao Motor":            "RPM Motor",
			"Motor":                    "Motor Ligado",
			"RTK":                      "RTK (Piloto Automatico)",
			"Piloto Automatico":        "RTK (Piloto Automatico)",
			"Pressao Corte":            "Pressao de Corte",
			"Lat":                      "Latitude",
			"Long":                     "Longitude",
			"Lon":                      "Longitude",
		},
		Equipment: map[models.EquipmentType]EquipmentSettings{
			models.Harvester: {
				Columns:  harvesterCols,
				Required: requiredColumns,
				ExcludedOperations: []string{
					"8490 - LAVAGEM",
					"LAVAGEM",
					"9016 - ENCH SISTEMA FREIO",
					"6340 - BASCULANDO TRANSBORDAGEM",
					"9024 - DESATOLAMENTO",
					"SEM APONTAMENTO",
				},
				ExcludedGroups: []string{"Perdida", "Sem Apontamento"},
			},
			models.Transporter: {
				Columns:  append([]string{}, commonColumns...),
				Required: requiredColumns,
				ExcludedOperations: []string{
					"8490 - LAVAGEM",
					"LAVAGEM",
					"9016 - ENCH SISTEMA FREIO",
					"9024 - DESATOLAMENTO",
					"SEM APONTAMENTO",
				},
				ExcludedGroups: []string{"Perdida", "Sem Apontamento"},
			},
		},
		Influx: InfluxConfig{
			URL:    "http://localhost:8086",
			Org:    "fleetorg",
			Bucket: "fleet_reports",
		},
	}
}
