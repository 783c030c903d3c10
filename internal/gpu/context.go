package gpu

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvBackend overrides Options.Backend when set
const EnvBackend = "ARX_GPU_BACKEND"

// Backend names a device implementation
type Backend string

const (
	BackendAuto     Backend = "auto"
	BackendSoftware Backend = "software"
	BackendNone     Backend = "none"
)

// AdapterInfo describes the selected device
type AdapterInfo struct {
	Name    string  `json:"name"`
	Backend Backend `json:"backend"`
	Workers int     `json:"workers"`
}

// Options configures context creation
type Options struct {
	Backend string          // "auto", "software" or "none"; EnvBackend wins when set
	Workers int             // Parallel workgroups for the software device (0 = GOMAXPROCS)
	Logger  *zerolog.Logger // nil = global logger
}

// Context owns the device shared by all kernels in a process. It is safe
// for concurrent use.
type Context struct {
	device Device
	info   AdapterInfo
	log    zerolog.Logger
}

// NewContext selects a device for the requested backend
func NewContext(opts Options) (*Context, error) {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str("component", "gpu").Logger()

	backend := resolveBackend(opts.Backend, logger)
	var dev Device
	switch backend {
	case BackendNone:
		logger.Warn().Msg("compute backend disabled")
		return nil, &Error{Op: "request adapter", Err: ErrNoAdapter}
	default:
		dev = newSoftwareDevice(opts.Workers)
	}

	c := NewContextWithDevice(dev, logger)
	logger.Info().
		Str("adapter", c.info.Name).
		Str("backend", string(c.info.Backend)).
		Int("workers", c.info.Workers).
		Msg("selected compute device")
	return c, nil
}

// NewContextWithDevice wraps an existing device
func NewContextWithDevice(dev Device, logger zerolog.Logger) *Context {
	return &Context{device: dev, info: dev.Info(), log: logger}
}

// Device returns the context's device
func (c *Context) Device() Device {
	return c.device
}

// Info returns the adapter description
func (c *Context) Info() AdapterInfo {
	return c.info
}

func resolveBackend(requested string, logger zerolog.Logger) Backend {
	name := requested
	if env := os.Getenv(EnvBackend); env != "" {
		logger.Info().Str("env", EnvBackend).Str("backend", env).Msg("backend override from environment")
		name = env
	}
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case "", BackendAuto:
		return BackendAuto
	case BackendSoftware, BackendNone:
		return b
	default:
		logger.Warn().Str("backend", name).Msg("unknown compute backend, using auto")
		return BackendAuto
	}
}
