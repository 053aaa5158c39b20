package coordinator

import (
	"fmt"

	"github.com/hilthontt/codeclash/internal/domain"
)

func RoomChannel(roomID string) string {
	return "room:" + roomID
}

func TeamChannel(roomID string, team domain.Team) string {
	return fmt.Sprintf("room:%s-team-%s", roomID, team)
}

func ProblemChannel(roomID string, team domain.Team, problemID string) string {
	return fmt.Sprintf("room:%s-team-%s-problem-%s", roomID, team, problemID)
}
