package rooms

// teamResponse lists the two slots of a team; empty slots are null.
type teamResponse [2]*string

// roomResponse is the public snapshot of a room
type roomResponse struct {
	ID                string              `json:"id" example:"room-42"`                                  // Room identifier
	TeamA             teamResponse        `json:"teamA"`                                                 // Team A slots
	TeamB             teamResponse        `json:"teamB"`                                                 // Team B slots
	Status            string              `json:"status" example:"lobby" enum:"lobby,in-progress,ended"` // Lifecycle status
	StartTime         int64               `json:"startTime,omitempty" example:"1700000000000"`           // Match start, unix ms
	EndTime           int64               `json:"endTime,omitempty" example:"1700001800000"`             // Match end, unix ms
	Duration          int64               `json:"duration,omitempty" example:"1800"`                     // Match duration in seconds
	TeamAFinishedTime int64               `json:"teamAFinishedTime,omitempty"`                           // Team A finish, unix ms
	TeamBFinishedTime int64               `json:"teamBFinishedTime,omitempty"`                           // Team B finish, unix ms
	EndReason         string              `json:"endReason,omitempty" example:"time_up"`                 // Why the match ended
	Solved            map[string][]string `json:"solved"`                                                // Solved problem ids per team
}
