package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "PENDING"
	ExpenseApproved ExpenseStatus = "APPROVED"
	ExpenseRejected ExpenseStatus = "REJECTED"
)

// Expense approval itself lives in a collaborator system; the model
// exists here so project reads can eager-load the expenses relation.
type Expense struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	ProjectID uuid.UUID     `gorm:"type:uuid;not null;index" json:"project_id"`
	Title     string        `gorm:"not null;size:200" json:"title"`
	Amount    float64       `gorm:"not null" json:"amount"`
	Status    ExpenseStatus `gorm:"not null;size:20;default:PENDING" json:"status"`
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
