package mealplan

import "time"

// Config wires runtime tunables for the planning engine.
type Config struct {
	MaxCandidates     int
	MaxHorizonDays    int
	MaxMembers        int
	StrictDiets       []string
	MaxAlternatives   int
	GenerationTimeout time.Duration
	SwapTimeout       time.Duration
	MaxPromptTokens   int
}

// DefaultStrictDiets are diet codes enforced as hard constraints.
var DefaultStrictDiets = []string{"vegetarian", "vegan", "gluten_free", "dairy_free", "halal", "kosher", "pescatarian"}

func (c Config) withDefaults() Config {
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 150
	}
	if c.MaxHorizonDays <= 0 {
		c.MaxHorizonDays = 31
	}
	if c.MaxMembers <= 0 {
		c.MaxMembers = 12
	}
	if c.StrictDiets == nil {
		c.StrictDiets = DefaultStrictDiets
	}
	if c.MaxAlternatives <= 0 {
		c.MaxAlternatives = 20
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = 30 * time.Second
	}
	if c.SwapTimeout <= 0 {
		c.SwapTimeout = 15 * time.Second
	}
	if c.MaxPromptTokens <= 0 {
		c.MaxPromptTokens = 12000
	}
	return c
}
