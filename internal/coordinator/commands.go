package coordinator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/validate"
)

var (
	validateCode   = validate.Field("code", validate.MaxLength(domain.MaxCodeBytes))
	validateSource = validate.Field("source", validate.MaxLength(128))
)

type joinRoomCmd struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type joinSlotCmd struct {
	RoomID    string `json:"roomId"`
	Team      string `json:"team"`
	SlotIndex *int   `json:"slotIndex"`
	Username  string `json:"username"`
}

type roomCmd struct {
	RoomID string `json:"roomId"`
}

type teamCmd struct {
	RoomID string `json:"roomId"`
	TeamID string `json:"teamId"`
}

type problemCmd struct {
	RoomID    string `json:"roomId"`
	TeamID    string `json:"teamId"`
	ProblemID string `json:"problemId"`
	Username  string `json:"username"`
}

type editorChangeCmd struct {
	RoomID    string `json:"roomId"`
	TeamID    string `json:"teamId"`
	ProblemID string `json:"problemId"`
	Code      string `json:"code"`
	Source    string `json:"source"`
}

type leaveRoomCmd struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type submitSolutionCmd struct {
	RoomID     string `json:"roomId"`
	TeamID     string `json:"teamId"`
	ProblemID  string `json:"problemId"`
	LanguageID int    `json:"languageId"`
	Code       string `json:"code"`
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(bytes.TrimSpace(raw)) == 0 {
		return v, fmt.Errorf("%w: missing data", domain.ErrMalformedEvent)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	return v, nil
}

// target is a validated (room, team, problem) triple.
type target struct {
	roomID    string
	team      domain.Team
	problemID string
}

func parseTeamTarget(roomID, teamID string) (target, error) {
	if err := domain.ValidateRoomID(roomID); err != nil {
		return target{}, err
	}
	team, err := domain.ParseTeam(teamID)
	if err != nil {
		return target{}, err
	}
	return target{roomID: roomID, team: team}, nil
}

func parseProblemTarget(roomID, teamID, problemID string) (target, error) {
	t, err := parseTeamTarget(roomID, teamID)
	if err != nil {
		return target{}, err
	}
	if err := domain.ValidateProblemID(problemID); err != nil {
		return target{}, err
	}
	t.problemID = problemID
	return t, nil
}

// resolveIdentity picks the acting identity. A verified session identity wins
// and a disagreeing username is refused.
func resolveIdentity(sessionIdentity, username string) (string, error) {
	if username == "" {
		if sessionIdentity == "" {
			return "", fmt.Errorf("%w: username is required", domain.ErrMalformedEvent)
		}
		return sessionIdentity, nil
	}

	identity, err := domain.NormalizeIdentity(username)
	if err != nil {
		return "", err
	}
	if sessionIdentity != "" && identity != sessionIdentity {
		return "", domain.ErrIdentityMismatch
	}
	return identity, nil
}

func (cmd editorChangeCmd) validate() error {
	if err := validateCodeLength(cmd.Code); err != nil {
		return err
	}
	if err := validateSource(cmd.Source); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	return nil
}

func (cmd submitSolutionCmd) validate() error {
	if cmd.LanguageID <= 0 {
		return fmt.Errorf("%w: languageId must be positive", domain.ErrMalformedEvent)
	}
	if err := validate.Field("code", validate.Required())(cmd.Code); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	return validateCodeLength(cmd.Code)
}

func validateCodeLength(code string) error {
	if err := validateCode(code); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	return nil
}
