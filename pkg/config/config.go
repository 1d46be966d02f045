// Package config loads server settings from optional .env files and
// WTS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/playdodgeball/wtserver/pkg/sim"
)

const (
	TransportWebTransport = "webtransport"
	TransportQUIC         = "quic"
	TransportWebSocket    = "websocket"
)

type Config struct {
	Listen    string
	Transport string
	// Path is the HTTP path upgraded to a session.
	Path     string
	CertFile string
	KeyFile  string
	// Origins allowed to connect. Empty allows every origin.
	Origins []string

	TickHz      int
	SpawnJitter float32
	Seed        uint64

	InboundCap  int
	OutboundCap int
	PeerBuffer  int

	LogLevel string
	LogFile  string
	// AdminAddr serves /metrics and /healthz. Empty disables it.
	AdminAddr string
}

func Default() Config {
	return Config{
		Listen:      ":4433",
		Transport:   TransportWebTransport,
		Path:        "/",
		TickHz:      30,
		InboundCap:  1024,
		OutboundCap: 8192,
		PeerBuffer:  256,
		LogLevel:    "info",
	}
}

// Load applies the given .env files, then reads the environment over
// the defaults. Missing files are skipped; variables already set in the
// environment win over file entries.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	c := Default()
	e := env{}

	e.strVar("WTS_LISTEN", &c.Listen)
	e.strVar("WTS_TRANSPORT", &c.Transport)
	e.strVar("WTS_PATH", &c.Path)
	e.strVar("WTS_CERT_FILE", &c.CertFile)
	e.strVar("WTS_KEY_FILE", &c.KeyFile)
	e.listVar("WTS_ORIGINS", &c.Origins)
	e.intVar("WTS_TICK_HZ", &c.TickHz)
	e.floatVar("WTS_SPAWN_JITTER", &c.SpawnJitter)
	e.uintVar("WTS_SEED", &c.Seed)
	e.intVar("WTS_INBOUND_CAP", &c.InboundCap)
	e.intVar("WTS_OUTBOUND_CAP", &c.OutboundCap)
	e.intVar("WTS_PEER_BUFFER", &c.PeerBuffer)
	e.strVar("WTS_LOG_LEVEL", &c.LogLevel)
	e.strVar("WTS_LOG_FILE", &c.LogFile)
	e.strVar("WTS_ADMIN_ADDR", &c.AdminAddr)

	if err := errors.Join(e.errs...); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Transport {
	case TransportWebTransport, TransportQUIC, TransportWebSocket:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if !strings.HasPrefix(c.Path, "/") {
		errs = append(errs, fmt.Errorf("path %q must start with /", c.Path))
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		errs = append(errs, errors.New("cert and key files must be set together"))
	}
	if c.TickHz < 1 || c.TickHz > 1000 {
		errs = append(errs, fmt.Errorf("tick rate %d Hz out of range", c.TickHz))
	}
	if c.SpawnJitter < 0 {
		errs = append(errs, errors.New("spawn jitter must not be negative"))
	}
	if c.InboundCap < 1 || c.OutboundCap < 1 || c.PeerBuffer < 1 {
		errs = append(errs, errors.New("queue capacities must be positive"))
	}
	return errors.Join(errs...)
}

// TickRate is the duration of one simulation step.
func (c Config) TickRate() time.Duration {
	return time.Second / time.Duration(c.TickHz)
}

// Sim returns the simulation settings derived from c.
func (c Config) Sim() sim.Config {
	sc := sim.DefaultConfig()
	sc.TickRate = c.TickRate()
	sc.SpawnJitter = c.SpawnJitter
	sc.Seed = c.Seed
	return sc
}

// AllowOrigin reports whether a browser origin may connect.
func (c Config) AllowOrigin(origin string) bool {
	if len(c.Origins) == 0 || origin == "" {
		return true
	}
	for _, o := range c.Origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

type env struct {
	errs []error
}

func (e *env) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *env) strVar(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *env) listVar(key string, dst *[]string) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

func (e *env) intVar(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *env) uintVar(key string, dst *uint64) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (e *env) floatVar(key string, dst *float32) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = float32(f)
}
