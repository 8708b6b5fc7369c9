// Package agent runs the leasing agent's reasoning loop: the model picks a
// tool, the tool's observation is fed back, and the loop ends on a final
// answer for the prospect.
package agent

import (
	"errors"
	"fmt"
	"time"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultMaxIterations = 6
	DefaultCallTimeout   = 30 * time.Second
)

// FallbackReply is returned when the loop cannot produce an answer.
const FallbackReply = "I'm sorry, I wasn't able to find an answer to that right now. A member of our leasing team will follow up with you shortly."

// ErrInvalidTemperature is returned for a temperature outside [0, 1].
var ErrInvalidTemperature = errors.New("agent: temperature must be between 0 and 1")

// Config binds sampling and loop limits to an agent.
type Config struct {
	// Temperature is passed to every LLM call.
	Temperature float64
	// Prefix is the rendered prompt template placed before the tool list.
	Prefix        string
	MaxIterations int
	// CallTimeout bounds one LLM round-trip.
	CallTimeout time.Duration
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("agent: max iterations must not be negative")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	return c
}
