package phrases

import (
	"math/rand/v2"
	"slices"
	"sync"
)

// DefaultMemory is how many recent outputs the picker avoids.
const DefaultMemory = 5

// Select picks one entry of pool that is not in recent. When every entry was
// used recently it still avoids the most recent output if the pool allows
// it. Select never modifies its arguments.
func Select(pool []string, recent []string, rng *rand.Rand) string {
	switch len(pool) {
	case 0:
		return ""
	case 1:
		return pool[0]
	}

	available := make([]string, 0, len(pool))
	for _, phrase := range pool {
		if !slices.Contains(recent, phrase) {
			available = append(available, phrase)
		}
	}

	if len(available) == 0 {
		last := recent[len(recent)-1]
		for _, phrase := range pool {
			if phrase != last {
				available = append(available, phrase)
			}
		}
	}

	return available[rng.IntN(len(available))]
}

// Picker remembers what it said last so consecutive picks vary.
type Picker struct {
	mu     sync.Mutex
	rng    *rand.Rand
	memory int
	recent []string
}

func NewPicker(seed uint64, memory int) *Picker {
	if memory <= 0 {
		memory = DefaultMemory
	}
	return &Picker{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		memory: memory,
	}
}

func (p *Picker) Pick(pool []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	phrase := Select(pool, p.recent, p.rng)
	if phrase == "" {
		return phrase
	}

	p.recent = append(p.recent, phrase)
	if len(p.recent) > p.memory {
		p.recent = p.recent[len(p.recent)-p.memory:]
	}
	return phrase
}

// Recent returns the remembered outputs, oldest first.
func (p *Picker) Recent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.recent)
}
