// Package redistest adds the server commands the Redis cache relies on
// to a miniredis instance. miniredis does not implement CONFIG.
package redistest

import (
	"strings"
	"sync"

	"github.com/alicebob/miniredis/v2"
	"github.com/alicebob/miniredis/v2/server"
)

// Config answers CONFIG GET and CONFIG SET from an in-memory table.
type Config struct {
	mu       sync.Mutex
	params   map[string]string
	gets     int
	sets     int
	failGets int
}

// RegisterConfig installs a CONFIG command on mr seeded with params.
func RegisterConfig(mr *miniredis.Miniredis, params map[string]string) (*Config, error) {
	c := &Config{params: make(map[string]string, len(params))}
	for k, v := range params {
		c.params[k] = v
	}
	if err := mr.Server().Register("CONFIG", c.serve); err != nil {
		return nil, err
	}
	return c, nil
}

// Value returns the current value of param.
func (c *Config) Value(param string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params[param]
}

// Set changes param without counting as a CONFIG SET call.
func (c *Config) Set(param, value string) {
	c.mu.Lock()
	c.params[param] = value
	c.mu.Unlock()
}

// Gets returns how many CONFIG GET calls were served, failed ones included.
func (c *Config) Gets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

// Sets returns how many CONFIG SET calls were applied.
func (c *Config) Sets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

// FailGets makes the next n CONFIG GET calls return an error.
func (c *Config) FailGets(n int) {
	c.mu.Lock()
	c.failGets = n
	c.mu.Unlock()
}

func (c *Config) serve(p *server.Peer, _ string, args []string) {
	if len(args) < 2 {
		p.WriteError("ERR wrong number of arguments for 'config' command")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch strings.ToUpper(args[0]) {
	case "GET":
		c.gets++
		if c.failGets > 0 {
			c.failGets--
			p.WriteError("ERR CONFIG is disabled")
			return
		}
		p.WriteMapLen(1)
		p.WriteBulk(args[1])
		p.WriteBulk(c.params[args[1]])
	case "SET":
		if len(args) != 3 {
			p.WriteError("ERR wrong number of arguments for 'config|set' command")
			return
		}
		c.params[args[1]] = args[2]
		c.sets++
		p.WriteOK()
	default:
		p.WriteError("ERR unknown subcommand '" + args[0] + "'")
	}
}
