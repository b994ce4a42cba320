package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

var ErrOpen = errors.New("circuit breaker is open")

type Settings struct {
	Name string
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	OnStateChange       func(name string, from, to string)
}

type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	threshold := settings.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	st := gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
	if settings.OnStateChange != nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			settings.OnStateChange(name, from.String(), to.String())
		}
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(st)}
}

func (c *CircuitBreaker) Execute(fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

func (c *CircuitBreaker) State() string {
	return c.cb.State().String()
}
