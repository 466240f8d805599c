package matchmaking

import (
	"fmt"
	"math/rand"
)

// AssignTeams splits a completed roster into two equal sides. Members are
// drawn uniformly at random without replacement to fill blue; the rest are
// red. The input slice is not modified.
func AssignTeams(rng *rand.Rand, members []string) (blue, red []string, err error) {
	if len(members) == 0 || len(members)%2 != 0 {
		return nil, nil, fmt.Errorf("cannot split %d players into two teams", len(members))
	}
	n := len(members) / 2
	order := rng.Perm(len(members))
	blue = make([]string, 0, n)
	red = make([]string, 0, n)
	for i, idx := range order {
		if i < n {
			blue = append(blue, members[idx])
		} else {
			red = append(red, members[idx])
		}
	}
	return blue, red, nil
}
