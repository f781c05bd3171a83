package npc

import "rummy-lite/rummy"

// NPCPersona defines a named computer opponent.
type NPCPersona struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Tagline    string  `json:"tagline"`
	AvatarKey  string  `json:"avatarKey"`
	Difficulty string  `json:"difficulty"` // easy | medium | hard
	Tempo      float64 `json:"tempo"`      // think time multiplier, 0 means 1
}

func (p *NPCPersona) Tier() rummy.Difficulty {
	d, err := rummy.ParseDifficulty(p.Difficulty)
	if err != nil {
		return rummy.DifficultyMedium
	}
	return d
}

func (p *NPCPersona) tempo() float64 {
	if p.Tempo <= 0 {
		return 1
	}
	return p.Tempo
}

// fallbackPersona is used when the registry has nobody for a tier.
func fallbackPersona(d rummy.Difficulty) *NPCPersona {
	return &NPCPersona{
		ID:         "bot_" + d.String(),
		Name:       "AI Bot (" + d.String() + ")",
		Difficulty: d.String(),
	}
}
