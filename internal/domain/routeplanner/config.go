package routeplanner

import "time"

// Config holds runtime knobs for the conversation service.
type Config struct {
	FetchTimeout  time.Duration
	RecordTimeout time.Duration
	MaxCityLength int
	HistoryLimit  int
}

func (c Config) withDefaults() Config {
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 5 * time.Second
	}
	if c.RecordTimeout <= 0 {
		c.RecordTimeout = 5 * time.Second
	}
	if c.MaxCityLength <= 0 {
		c.MaxCityLength = 100
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 20
	}
	return c
}
