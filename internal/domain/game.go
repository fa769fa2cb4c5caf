package domain

import (
	"time"

	"github.com/google/uuid"
)

type Format string

const (
	FormatSingles Format = "8-ball"
	FormatDoubles Format = "8-ball-2v2"
)

// IsTeam reports whether sides of the format are "A & B" teams.
func (f Format) IsTeam() bool {
	return f == FormatDoubles
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
)

// TeamSeparator joins team member names inside one side of a doubles game.
const TeamSeparator = " & "

// DateLayout is the day granularity used by Match.Date.
const DateLayout = time.DateOnly

type Match struct {
	ID      string
	Date    string
	Table   string
	Format  Format
	PlayerA string
	PlayerB string
	// Winner equals PlayerA or PlayerB exactly.
	Winner    string
	Score     string
	CreatedAt time.Time
	Status    Status

	SubmittedBy    uuid.UUID
	OpponentID     uuid.UUID
	BallsRemaining *int
}

// Sides returns both side identifiers in submission order.
func (m Match) Sides() [2]string {
	return [2]string{m.PlayerA, m.PlayerB}
}

func (m Match) IsVerified() bool {
	return m.Status == StatusVerified
}
