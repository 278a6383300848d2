package database

import (
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"staffhub/models"
)

// Init opens the database, migrates the schema and seeds the default
// admin. TranslateError is on so unique-index violations surface as
// gorm.ErrDuplicatedKey.
func Init(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Assignment{},
		&models.Expense{},
		&models.Notification{},
	)
	if err != nil {
		return nil, err
	}

	if err := seedDefaultAdmin(db, log); err != nil {
		return nil, err
	}

	return db, nil
}

func seedDefaultAdmin(db *gorm.DB, log *zap.Logger) error {
	var count int64
	db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Name:         "Administrator",
		Email:        "admin@staffhub.local",
		PasswordHash: string(hashedPassword),
		Role:         models.RoleAdmin,
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Info("default admin user created", zap.String("email", admin.Email))
	return nil
}
