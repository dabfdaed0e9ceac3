package model

import "time"

// TurnRecord is the archived copy of a conversation turn.
type TurnRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:128;not null;index" json:"session_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnBatch is the archive message for one answered question.
type TurnBatch struct {
	SessionID  string    `json:"session_id"`
	Turns      []Turn    `json:"turns"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Records expands the batch into archive rows sharing its timestamp.
func (b TurnBatch) Records() []TurnRecord {
	records := make([]TurnRecord, len(b.Turns))
	for i, t := range b.Turns {
		records[i] = TurnRecord{
			SessionID: b.SessionID,
			Role:      t.Role,
			Content:   t.Content,
			CreatedAt: b.AnsweredAt,
		}
	}
	return records
}
