package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationExpense    NotificationType = "EXPENSE"
	NotificationProject    NotificationType = "PROJECT"
	NotificationAttendance NotificationType = "ATTENDANCE"
	NotificationSystem     NotificationType = "SYSTEM"
)

type ReferenceType string

const (
	ReferenceProject    ReferenceType = "PROJECT"
	ReferenceExpense    ReferenceType = "EXPENSE"
	ReferenceAssignment ReferenceType = "ASSIGNMENT"
)

type Notification struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	Title         string           `gorm:"not null;size:200" json:"title"`
	Message       string           `gorm:"not null;size:500" json:"message"`
	Type          NotificationType `gorm:"not null;size:20" json:"type"`
	SenderID      *uuid.UUID       `gorm:"type:uuid" json:"sender_id"`
	ReceiverID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"receiver_id"`
	ReferenceID   *uuid.UUID       `gorm:"type:uuid" json:"reference_id"`
	ReferenceType *ReferenceType   `gorm:"size:20" json:"reference_type"`
	Read          bool             `gorm:"default:false" json:"read"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
