package timer

// Settings is the persisted and user-editable form of an Entry.
// LastFired and the override flag are runtime-only and not part of it.
type Settings struct {
	Enabled         bool       `json:"enabled"`
	OnTime          string     `json:"on_time"`
	OffTime         string     `json:"off_time"`
	RepeatMode      RepeatMode `json:"repeat_mode"`
	DurationMinutes int        `json:"duration_minutes"`
	PowerSaving     bool       `json:"power_saving"`
}

// DefaultSettings returns the settings of a freshly reset entry.
func DefaultSettings() Settings {
	var e Entry
	e.Reset()
	return e.Settings()
}
