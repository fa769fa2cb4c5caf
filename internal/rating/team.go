package rating

import (
	"strings"

	"github.com/goserg/poolrating/internal/domain"
)

// ParseTeam splits a side identifier into player names. Singles sides are
// returned verbatim as a team of one.
func ParseTeam(side string, isTeam bool) []string {
	if !isTeam {
		return []string{side}
	}
	parts := strings.Split(side, domain.TeamSeparator)
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}

// TeamRating is the virtual opponent formed by a side: the arithmetic mean of
// its members' values.
type TeamRating struct {
	Rating     float64
	RD         float64
	Volatility float64
}

func AverageTeam(members []domain.PlayerRating) TeamRating {
	var t TeamRating
	if len(members) == 0 {
		return t
	}
	for _, m := range members {
		t.Rating += m.Rating
		t.RD += m.RD
		t.Volatility += m.Volatility
	}
	n := float64(len(members))
	t.Rating /= n
	t.RD /= n
	t.Volatility /= n
	return t
}
