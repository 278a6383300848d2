// Package notifications persists in-app notifications addressed either
// to one user or fanned out to a role.
package notifications

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"staffhub/models"
	"staffhub/query"
)

type Input struct {
	Title         string
	Message       string
	Type          models.NotificationType
	SenderID      *uuid.UUID
	ReferenceID   *uuid.UUID
	ReferenceType *models.ReferenceType
	ReceiverID    *uuid.UUID
	ReceiverRole  *models.Role
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log}
}

// Create resolves the receivers and writes one notification row per
// receiver. An explicit ReceiverID wins over ReceiverRole; when no
// receivers resolve, Create is a silent no-op.
func (s *Service) Create(ctx context.Context, in Input) error {
	var receivers []uuid.UUID

	switch {
	case in.ReceiverID != nil:
		receivers = []uuid.UUID{*in.ReceiverID}
	case in.ReceiverRole != nil:
		var users []models.User
		err := s.db.WithContext(ctx).
			Select("id").
			Where("role = ?", *in.ReceiverRole).
			Find(&users).Error
		if err != nil {
			return err
		}
		for _, u := range users {
			receivers = append(receivers, u.ID)
		}
	}

	if len(receivers) == 0 {
		return nil
	}

	rows := make([]models.Notification, 0, len(receivers))
	for _, id := range receivers {
		rows = append(rows, models.Notification{
			Title:         in.Title,
			Message:       in.Message,
			Type:          in.Type,
			SenderID:      in.SenderID,
			ReceiverID:    id,
			ReferenceID:   in.ReferenceID,
			ReferenceType: in.ReferenceType,
		})
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

// ListForUser returns the user's notifications, filtered, sorted and
// paginated from the request parameters.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, params url.Values) ([]models.Notification, query.Meta, error) {
	builder := query.New(s.db.WithContext(ctx).Model(&models.Notification{}), params).
		RawFilter("receiver_id = ?", userID).
		Filter().
		Sort().
		Paginate()

	var rows []models.Notification
	if err := builder.Execute(&rows); err != nil {
		return nil, query.Meta{}, err
	}
	meta, err := builder.CountTotal()
	if err != nil {
		return nil, query.Meta{}, err
	}
	return rows, meta, nil
}
