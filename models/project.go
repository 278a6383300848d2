package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Project struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	Name            string       `gorm:"uniqueIndex;not null;size:200" json:"name"`
	ClientName      string       `gorm:"size:200" json:"client_name"`
	PropertyAddress string       `gorm:"size:500" json:"property_address"`
	LastWorkingDate *time.Time   `json:"last_working_date"`
	Assignments     []Assignment `gorm:"foreignKey:ProjectID" json:"assignments,omitempty"`
	Expenses        []Expense    `gorm:"foreignKey:ProjectID" json:"expenses,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
