package history

import "time"

// Entry is one Result produced by the relay.
type Entry struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID      string    `gorm:"index;size:64;not null" json:"session_id"`
	SourceLang     string    `gorm:"size:8;not null" json:"source_lang"`
	TargetLang     string    `gorm:"size:8;not null" json:"target_lang"`
	SourceText     string    `gorm:"type:text" json:"source_text"`
	TranslatedText string    `gorm:"type:text" json:"translated_text"`
	AudioMs        int64     `json:"audio_ms"`
	LatencyMs      int64     `json:"latency_ms"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (Entry) TableName() string {
	return "translation_history"
}
