package bridgelog

import (
	"time"

	"gorm.io/gorm"
)

// CallRecord is one completed transmission on the bridge's single
// talkgroup/slot, adapted from the teacher's Transmission model to the
// bridge's srcId/dstId/direction vocabulary instead of
// radioId/talkgroupId/repeaterId.
type CallRecord struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	SrcID       uint32    `gorm:"index;not null" json:"src_id"`
	DstID       uint32    `gorm:"index;not null" json:"dst_id"`
	StreamID    uint32    `gorm:"index" json:"stream_id"`
	Direction   string    `gorm:"size:16;not null" json:"direction"`
	Protocol    string    `gorm:"size:16;not null" json:"protocol"`
	StartTime   time.Time `gorm:"index;not null" json:"start_time"`
	EndTime     time.Time `gorm:"not null" json:"end_time"`
	Duration    float64   `gorm:"not null" json:"duration"`
	FrameCount  int       `gorm:"default:0" json:"frame_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func (CallRecord) TableName() string { return "call_records" }

func (c *CallRecord) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return nil
}
