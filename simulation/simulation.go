// Package simulation assembles a kernel with its supporting services:
// data recording, task tracing, and the monitoring server.
package simulation

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/xid"

	"github.com/sarchlab/musim/datarecording"
	"github.com/sarchlab/musim/monitoring"
	"github.com/sarchlab/musim/sim"
	"github.com/sarchlab/musim/tracing"
)

// Config controls the optional services of a simulation. It is normally
// loaded from the environment, with a .env file as fallback.
type Config struct {
	// Debug enables internal consistency checks with enriched messages.
	Debug bool
	// Monitor starts the monitoring web server.
	Monitor bool
	// MonitorPort fixes the monitoring port; 0 picks a random one.
	MonitorPort int
	// TraceDB enables task tracing into the named SQLite database. An
	// empty name disables tracing.
	TraceDB string
}

// ConfigFromEnv reads the configuration from MUSIM_DEBUG, MUSIM_MONITOR,
// MUSIM_MONITOR_PORT and MUSIM_TRACE_DB. A .env file in the working
// directory is honored.
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{}
	cfg.Debug = envBool("MUSIM_DEBUG")
	cfg.Monitor = envBool("MUSIM_MONITOR")
	cfg.TraceDB = os.Getenv("MUSIM_TRACE_DB")

	if port, err := strconv.Atoi(os.Getenv("MUSIM_MONITOR_PORT")); err == nil {
		cfg.MonitorPort = port
	}

	return cfg
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}

// A Simulation provides the services required to define and run a
// simulation.
type Simulation struct {
	kernel *sim.Kernel

	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
	tracer       *tracing.DBTracer
}

// A Builder can build a simulation.
type Builder struct {
	config Config
}

// MakeBuilder creates a Builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{}
}

// WithConfig sets the configuration to use.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	return b
}

// Build creates the simulation.
func (b Builder) Build() *Simulation {
	s := &Simulation{}
	s.kernel = sim.NewKernel()

	if b.config.Debug {
		sim.EnableDebugChecks()
	}

	if b.config.TraceDB != "" {
		name := b.config.TraceDB
		if name == "auto" {
			name = "musim_" + xid.New().String()
		}
		s.dataRecorder = datarecording.New(name)
		s.tracer = tracing.NewDBTracer(s.kernel, s.dataRecorder)
		s.kernel.AcceptHook(s.tracer)
	}

	if b.config.Monitor {
		s.monitor = monitoring.NewMonitor()
		s.monitor.WithPortNumber(b.config.MonitorPort)
		s.monitor.RegisterKernel(s.kernel)
		s.monitor.StartServer(false)
	}

	return s
}

// GetKernel returns the kernel driving the simulation.
func (s *Simulation) GetKernel() *sim.Kernel {
	return s.kernel
}

// GetMonitor returns the monitor of the simulation, if one is enabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// GetDataRecorder returns the data recorder, if tracing is enabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// Run starts the simulation with the given roots and an unbounded time
// horizon.
func (s *Simulation) Run(roots ...sim.Activity) error {
	return s.kernel.Run(roots...)
}

// RunUntil starts the simulation and stops it once virtual time would pass
// till.
func (s *Simulation) RunUntil(
	till sim.VTimeInSec,
	roots ...sim.Activity,
) error {
	return s.kernel.RunUntil(till, roots...)
}

// Terminate releases the services of the simulation.
func (s *Simulation) Terminate() {
	if s.dataRecorder != nil {
		s.dataRecorder.Close()
	}
}
