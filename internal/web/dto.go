package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/service"
)

var ErrMissingFields = errors.New("missing required fields")

type submitGameRequest struct {
	Date           string `json:"date"`
	Table          string `json:"table"`
	Format         string `json:"format"`
	PlayerA        string `json:"playerA"`
	PlayerB        string `json:"playerB"`
	Winner         string `json:"winner"`
	Score          string `json:"score"`
	SubmittedBy    string `json:"submittedBy"`
	OpponentID     string `json:"opponentId"`
	BallsRemaining *int   `json:"ballsRemaining"`
}

func (r submitGameRequest) toService() (service.SubmitGame, error) {
	var err error
	submittedBy, e := parseOptionalUUID("submittedBy", r.SubmittedBy)
	err = errors.Join(err, e)
	opponent, e := parseOptionalUUID("opponentId", r.OpponentID)
	err = errors.Join(err, e)
	if err != nil {
		return service.SubmitGame{}, err
	}
	return service.SubmitGame{
		Date:           r.Date,
		Table:          r.Table,
		Format:         domain.Format(r.Format),
		PlayerA:        r.PlayerA,
		PlayerB:        r.PlayerB,
		Winner:         r.Winner,
		Score:          r.Score,
		SubmittedBy:    submittedBy,
		OpponentID:     opponent,
		BallsRemaining: r.BallsRemaining,
	}, nil
}

func parseOptionalUUID(field, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s is not a valid id", errBadRequest, field)
	}
	return id, nil
}

type verifyRequest struct {
	GameID string `json:"gameId"`
	Action string `json:"action"`
	UserID string `json:"userId"`
}

func (r verifyRequest) Validate() error {
	if r.GameID == "" || r.Action == "" || r.UserID == "" {
		return ErrMissingFields
	}
	if _, err := uuid.Parse(r.UserID); err != nil {
		return fmt.Errorf("%w: userId is not a valid id", errBadRequest)
	}
	return nil
}

type createProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type gameResponse struct {
	ID             string    `json:"id"`
	Date           string    `json:"date"`
	Table          string    `json:"table"`
	Format         string    `json:"format"`
	PlayerA        string    `json:"playerA"`
	PlayerB        string    `json:"playerB"`
	Winner         string    `json:"winner"`
	Score          string    `json:"score,omitempty"`
	Status         string    `json:"status"`
	BallsRemaining *int      `json:"ballsRemaining,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func newGameResponse(m domain.Match) gameResponse {
	return gameResponse{
		ID:             m.ID,
		Date:           m.Date,
		Table:          m.Table,
		Format:         string(m.Format),
		PlayerA:        m.PlayerA,
		PlayerB:        m.PlayerB,
		Winner:         m.Winner,
		Score:          m.Score,
		Status:         string(m.Status),
		BallsRemaining: m.BallsRemaining,
		CreatedAt:      m.CreatedAt,
	}
}

type historyPoint struct {
	GameID   string  `json:"gameId"`
	Date     string  `json:"date"`
	Rating   float64 `json:"rating"`
	Delta    float64 `json:"delta"`
	Opponent string  `json:"opponent"`
	Result   string  `json:"result"`
}

func newHistory(points []domain.HistoryPoint) []historyPoint {
	res := make([]historyPoint, 0, len(points))
	for _, p := range points {
		result := "L"
		if p.Won {
			result = "W"
		}
		res = append(res, historyPoint{
			GameID:   p.GameID,
			Date:     p.Date,
			Rating:   p.Rating,
			Delta:    p.Delta,
			Opponent: p.Opponent,
			Result:   result,
		})
	}
	return res
}
