package recurrence

import (
	"fmt"
	"time"
)

// Frequency is the closed set of firing frequencies for an alert type.
// The string values are part of the persisted wire contract. Both the
// calculator and the config validation path share this type so an invalid
// combination is rejected before it ever reaches the scheduler.
type Frequency string

const (
	FrequencyOnce      Frequency = "unica"
	FrequencyDaily     Frequency = "diaria"
	FrequencyWeekly    Frequency = "semanal"
	FrequencyMonthly   Frequency = "mensual"
	FrequencyEveryDays Frequency = "cada_x_dias"
)

// ParseFrequency validates a raw frequency code.
func ParseFrequency(raw string) (Frequency, error) {
	switch f := Frequency(raw); f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyEveryDays:
		return f, nil
	}
	return "", fmt.Errorf("frecuencia desconocida: %q", raw)
}

// TimeOfDay is a wall-clock dispatch time (hora_envio, "HH:MM").
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses the 24h "HH:MM" format used by hora_envio.
// An empty string yields midnight, which matches an unset column.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	if raw == "" {
		return TimeOfDay{}, nil
	}
	var h, m int
	if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
		return TimeOfDay{}, fmt.Errorf("hora_envio inválida: %q", raw)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("hora_envio fuera de rango: %q", raw)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// Spec is everything the calculator needs from an alert-type config.
type Spec struct {
	Frequency    Frequency
	IntervalDays int            // intervalo_dias, only for cada_x_dias
	Weekdays     []time.Weekday // dias_semana, only for semanal
	SendAt       TimeOfDay      // hora_envio
	LeadDays     int            // dias_anticipacion
	ActivatedAt  time.Time
}

// Validate rejects the misconfigurations the scheduler must never see:
// cada_x_dias needs a positive interval, semanal a non-empty weekday set.
func (s Spec) Validate() error {
	switch s.Frequency {
	case FrequencyEveryDays:
		if s.IntervalDays <= 0 {
			return fmt.Errorf("frecuencia cada_x_dias requiere intervalo_dias > 0, recibido %d", s.IntervalDays)
		}
	case FrequencyWeekly:
		if len(s.Weekdays) == 0 {
			return fmt.Errorf("frecuencia semanal requiere al menos un día de la semana")
		}
	case FrequencyOnce, FrequencyDaily, FrequencyMonthly:
		// nothing extra
	default:
		return fmt.Errorf("frecuencia desconocida: %q", s.Frequency)
	}
	return nil
}

func (s Spec) firesOn(day time.Weekday) bool {
	for _, wd := range s.Weekdays {
		if wd == day {
			return true
		}
	}
	return false
}
