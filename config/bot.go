package config

// BotDifficulty affects reaction time and decision quality
type BotDifficulty int

const (
	BotDifficultyEasy BotDifficulty = iota
	BotDifficultyNormal
	BotDifficultyHard
)

// BotDifficultyConfig holds tuning values for bot behavior at a specific difficulty
type BotDifficultyConfig struct {
	ReactionDelay  int     // Ticks between decisions
	AimTolerance   float64 // Radians of heading error accepted before turning
	BoostDistance  float64 // Boost when the ball is farther than this
	FlipDistance   float64 // Flip when the ball is closer than this
	ApproachOffset float64 // Distance behind the ball to line up a shot
}

// BotConfigData holds all bot-related configuration
type BotConfigData struct {
	Difficulties map[BotDifficulty]BotDifficultyConfig
	Default      BotDifficulty
}

// Bot holds bot AI configuration
var Bot BotConfigData

func init() {
	Bot = BotConfigData{
		Difficulties: map[BotDifficulty]BotDifficultyConfig{
			BotDifficultyEasy: {
				ReactionDelay:  30, // 0.5 second at 60 Hz
				AimTolerance:   0.5,
				BoostDistance:  9999,
				FlipDistance:   0,
				ApproachOffset: 20,
			},
			BotDifficultyNormal: {
				ReactionDelay:  12,
				AimTolerance:   0.25,
				BoostDistance:  400,
				FlipDistance:   50,
				ApproachOffset: 40,
			},
			BotDifficultyHard: {
				ReactionDelay:  4,
				AimTolerance:   0.12,
				BoostDistance:  250,
				FlipDistance:   70,
				ApproachOffset: 60,
			},
		},
		Default: BotDifficultyNormal,
	}
}

// BotTuning returns the tuning for d, falling back to the default difficulty.
func BotTuning(d BotDifficulty) BotDifficultyConfig {
	if c, ok := Bot.Difficulties[d]; ok {
		return c
	}
	return Bot.Difficulties[Bot.Default]
}
