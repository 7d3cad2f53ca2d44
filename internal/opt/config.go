package opt

import (
	"fmt"
	"time"
)

// Config tunes one search run. Zero fields take the defaults from
// DefaultConfig.
type Config struct {
	Timeout                   time.Duration `yaml:"timeout" json:"timeout"`
	Workers                   int           `yaml:"workers" json:"workers"`
	Seed                      int64         `yaml:"seed" json:"seed"`
	Operators                 []string      `yaml:"operators" json:"operators,omitempty"`
	FineSamples               int           `yaml:"fineSamples" json:"fineSamples"`
	FineToleranceThreshold    float64       `yaml:"fineToleranceThreshold" json:"fineToleranceThreshold"`
	StagnationTimeout         time.Duration `yaml:"stagnationTimeout" json:"stagnationTimeout"`
	RestartPeriod             time.Duration `yaml:"restartPeriod" json:"restartPeriod"`
	MinTolerance              float64       `yaml:"minTolerance" json:"minTolerance"`
	MaxInitialTolerance       float64       `yaml:"maxInitialTolerance" json:"maxInitialTolerance"`
	PolishAfterRestarts       int           `yaml:"polishAfterRestarts" json:"polishAfterRestarts"`
	PolishAfterRestartsRepeat int           `yaml:"polishAfterRestartsRepeat" json:"polishAfterRestartsRepeat"`
	ExchangeRetries           int           `yaml:"exchangeRetries" json:"exchangeRetries"`
	CyclicPeriod              int           `yaml:"cyclicPeriod" json:"cyclicPeriod"`
	DropFailedCandidates      bool          `yaml:"dropFailedCandidates" json:"dropFailedCandidates"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:                   295 * time.Second,
		Workers:                   10,
		Seed:                      defaultSeed,
		Operators:                 append([]string(nil), DefaultOperators...),
		FineSamples:               10,
		FineToleranceThreshold:    10,
		StagnationTimeout:         10 * time.Second,
		RestartPeriod:             30 * time.Second,
		MinTolerance:              0.5,
		MaxInitialTolerance:       1000,
		PolishAfterRestarts:       4,
		PolishAfterRestartsRepeat: 2,
		ExchangeRetries:           5,
		CyclicPeriod:              5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	if len(c.Operators) == 0 {
		c.Operators = d.Operators
	}
	if c.FineSamples <= 0 {
		c.FineSamples = d.FineSamples
	}
	if c.FineToleranceThreshold <= 0 {
		c.FineToleranceThreshold = d.FineToleranceThreshold
	}
	if c.StagnationTimeout <= 0 {
		c.StagnationTimeout = d.StagnationTimeout
	}
	if c.RestartPeriod <= 0 {
		c.RestartPeriod = d.RestartPeriod
	}
	if c.MinTolerance <= 0 {
		c.MinTolerance = d.MinTolerance
	}
	if c.MaxInitialTolerance <= 0 {
		c.MaxInitialTolerance = d.MaxInitialTolerance
	}
	if c.PolishAfterRestarts <= 0 {
		c.PolishAfterRestarts = d.PolishAfterRestarts
	}
	if c.PolishAfterRestartsRepeat <= 0 {
		c.PolishAfterRestartsRepeat = d.PolishAfterRestartsRepeat
	}
	if c.ExchangeRetries <= 0 {
		c.ExchangeRetries = d.ExchangeRetries
	}
	if c.CyclicPeriod <= 0 {
		c.CyclicPeriod = d.CyclicPeriod
	}
	return c
}

// Validate reports settings that cannot be defaulted away.
func (c Config) Validate() error {
	if c.MinTolerance > c.MaxInitialTolerance && c.MaxInitialTolerance > 0 {
		return fmt.Errorf("minTolerance %.3f above maxInitialTolerance %.3f", c.MinTolerance, c.MaxInitialTolerance)
	}
	for _, n := range c.Operators {
		if _, err := NewOperator(n, c); err != nil {
			return err
		}
	}
	return nil
}
