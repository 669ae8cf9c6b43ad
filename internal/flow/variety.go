package flow

import (
	"math/rand/v2"
	"sync"

	"github.com/BTreeMap/SivetachiBot/internal/models"
)

// Selector picks reply texts so that a conversation never gets the same canned
// reply twice in a row for a rule key, unless the rule has a single candidate.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a Selector. A nil rng uses a randomly seeded source.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{rng: rng}
}

func (s *Selector) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Pick chooses one of candidates for key and remembers it in state.
func (s *Selector) Pick(state *models.ConversationState, key string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	if state.LastReplyByKey == nil {
		state.LastReplyByKey = make(map[string]string)
	}
	if len(candidates) == 1 {
		state.LastReplyByKey[key] = candidates[0]
		return candidates[0]
	}

	last, seen := state.LastReplyByKey[key]
	choice := candidates[s.intN(len(candidates))]
	if seen && choice == last {
		remaining := make([]string, 0, len(candidates)-1)
		for _, c := range candidates {
			if c != last {
				remaining = append(remaining, c)
			}
		}
		// All candidates identical to the last pick: nothing else to offer.
		if len(remaining) > 0 {
			choice = remaining[s.intN(len(remaining))]
		}
	}
	state.LastReplyByKey[key] = choice
	return choice
}
