package battery

import "errors"

var (
	ErrNonPositiveCapacity           = errors.New("nominal capacity must be positive")
	ErrNonPositiveVoltage            = errors.New("nominal voltage must be positive")
	ErrNonPositiveThermalCapacitance = errors.New("thermal capacitance must be positive")
	ErrNegativeConductance           = errors.New("thermal conductance must not be negative")
	ErrNonPositiveStep               = errors.New("time step must be positive")
)
