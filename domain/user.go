package domain

import "time"

// User is a row of the external user store. Gameplay consumes it as an
// immutable snapshot taken at join time; the only write path back is the
// end-of-game stat update, which is last-write-wins.
type User struct {
	Id           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Wins         int       `json:"wins"`
	TotalScore   int       `json:"totalScore"`
	PlayedGames  int       `json:"playedGames"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
