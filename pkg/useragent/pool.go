package useragent

import "sync/atomic"

// defaultAgents is a small set of common desktop browser User-Agent strings
// used when fetching article pages behind search results.
var defaultAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
}

// Pool hands out User-Agent strings in rotation. Safe for concurrent use.
type Pool struct {
	agents []string
	idx    atomic.Uint64
}

// NewPool creates a pool from the given agents, falling back to the built-in
// set when agents is empty.
func NewPool(agents []string) *Pool {
	if len(agents) == 0 {
		agents = defaultAgents
	}
	return &Pool{agents: agents}
}

// Next returns the next User-Agent in sequence, wrapping around.
func (p *Pool) Next() string {
	n := p.idx.Add(1) - 1
	return p.agents[n%uint64(len(p.agents))]
}
