package model

import "time"

// RequestHistory is one row per song request with its latest state.
type RequestHistory struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID     string    `gorm:"type:varchar(36);uniqueIndex" json:"requestId"`
	ContentID     string    `gorm:"type:varchar(64);index" json:"contentId"`
	Title         string    `gorm:"type:varchar(255)" json:"title"`
	RequesterName string    `gorm:"type:varchar(100)" json:"requesterName"`
	Note          string    `gorm:"type:varchar(500)" json:"note"`
	State         SongState `gorm:"type:varchar(20);index" json:"state"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TableName overrides the gorm table name.
func (RequestHistory) TableName() string {
	return "song_request_history"
}
