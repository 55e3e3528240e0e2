package models

// Canonical column names of the telemetry exports. Headers are matched to
// these after accent and case folding, and through the configured aliases.
const (
	ColEquipment   = "Equipamento"
	ColTimestamp   = "Data/Hora"
	ColDate        = "Data"
	ColHour        = "Hora"
	ColOperator    = "Operador"
	ColOperation   = "Operacao"
	ColGroup       = "Grupo Operacao"
	ColFront       = "Grupo Equipamento/Frente"
	ColSpeed       = "Velocidade"
	ColRPM         = "RPM Motor"
	ColEngine      = "Motor Ligado"
	ColRTK         = "RTK (Piloto Automatico)"
	ColCutPressure = "Pressao de Corte"
	ColLatitude    = "Latitude"
	ColLongitude   = "Longitude"
)
