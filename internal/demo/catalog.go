package demo

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

var (
	ErrUnknownGame   = errors.New("demo: unknown game type")
	ErrInvalidAmount = errors.New("demo: amount must be positive")
)

// GameConfig is the public configuration of one game type.
type GameConfig struct {
	Type    string  `json:"type"`
	MinBet  float64 `json:"minBet"`
	MaxBet  float64 `json:"maxBet"`
	RTP     float64 `json:"rtp"`
	Enabled bool    `json:"enabled"`
}

// Catalog holds game configurations keyed by lowercased type.
type Catalog struct {
	mu    sync.RWMutex
	games map[string]GameConfig
}

// NewCatalog returns a catalog seeded with the built-in games.
func NewCatalog() *Catalog {
	c := &Catalog{games: make(map[string]GameConfig)}
	for _, g := range []GameConfig{
		{Type: "slots", MinBet: 0.1, MaxBet: 100, RTP: 0.96, Enabled: true},
		{Type: "dice", MinBet: 0.01, MaxBet: 500, RTP: 0.99, Enabled: true},
		{Type: "crash", MinBet: 0.1, MaxBet: 1000, RTP: 0.97, Enabled: true},
		{Type: "blackjack", MinBet: 1, MaxBet: 250, RTP: 0.995, Enabled: false},
	} {
		c.games[g.Type] = g
	}
	return c
}

// Get returns the configuration for gameType.
func (c *Catalog) Get(gameType string) (GameConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g, ok := c.games[strings.ToLower(gameType)]
	if !ok {
		return GameConfig{}, ErrUnknownGame
	}
	return g, nil
}

// Put replaces a game's configuration.
func (c *Catalog) Put(g GameConfig) {
	g.Type = strings.ToLower(g.Type)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.games[g.Type] = g
}

// Types returns the sorted game types.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.games))
	for t := range c.games {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Ledger holds user balances in minor units (cents).
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]int64)}
}

// Balance returns the balance for user. Users compare case-insensitively.
func (l *Ledger) Balance(user string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[strings.ToLower(user)]
}

// Deposit adds amount and returns the new balance.
func (l *Ledger) Deposit(user string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	user = strings.ToLower(user)
	l.balances[user] += amount
	return l.balances[user], nil
}
