package matchmaking

import "math"

// Outcome scores for the blue side.
const (
	BlueWins = 1.0
	Draw     = 0.5
	RedWins  = 0.0
)

// TeamElo computes rating changes for a finished match using team Elo: each
// side plays as one rating equal to its members' average, and every member
// of a side receives that side's delta. blueScore is one of the Outcome
// scores. A match with an empty side changes nothing.
func TeamElo(blue, red map[string]float64, blueScore, k float64) map[string]float64 {
	if len(blue) == 0 || len(red) == 0 {
		return map[string]float64{}
	}
	expected := 1 / (1 + math.Pow(10, (mean(red)-mean(blue))/400))
	delta := k * (blueScore - expected)

	out := make(map[string]float64, len(blue)+len(red))
	for id := range blue {
		out[id] = delta
	}
	for id := range red {
		out[id] = -delta
	}
	return out
}

func mean(ratings map[string]float64) float64 {
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return sum / float64(len(ratings))
}
