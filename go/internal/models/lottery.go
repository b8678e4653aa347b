package models

import "time"

// LotteryRecord is one archived round, kept only for the read-only history
// endpoint. The authoritative core never reads these back.
type LotteryRecord struct {
	ID           int64     `json:"id"`
	RoomCode     string    `json:"room"`
	Participants []string  `json:"participants"`
	Winner       string    `json:"winner"`
	DrawValue    float64   `json:"draw_value"`
	ResolvedAt   time.Time `json:"date"`
}
