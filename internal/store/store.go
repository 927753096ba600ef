package store

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// User accumulates study minutes across connections, keyed by the stable
// id clients persist on disk.
type User struct {
	ID                uint   `gorm:"primaryKey"`
	StableID          string `gorm:"uniqueIndex;size:64"`
	DisplayName       string
	TotalStudyMinutes int
}

// Store is the persistence layer backing study-time accounting. It
// implements coordinator.StudyLedger.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite database at path and runs
// migrations.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// GetOrCreate resolves the user row for a stable id, creating it on first
// sight and keeping the display name current.
func (s *Store) GetOrCreate(stableID, displayName string) (*User, error) {
	var user User
	err := s.db.Where(User{StableID: stableID}).
		Assign(User{DisplayName: displayName}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("get or create user %s: %w", stableID, err)
	}
	return &user, nil
}

// Credit adds study minutes to the user's running total.
func (s *Store) Credit(stableID string, minutes int) error {
	res := s.db.Model(&User{}).
		Where("stable_id = ?", stableID).
		UpdateColumn("total_study_minutes", gorm.Expr("total_study_minutes + ?", minutes))
	if res.Error != nil {
		return fmt.Errorf("credit %d minutes to %s: %w", minutes, stableID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Unknown stable id; create the row so the minutes are not lost.
		user := User{StableID: stableID, TotalStudyMinutes: minutes}
		if err := s.db.Create(&user).Error; err != nil {
			return fmt.Errorf("credit %d minutes to %s: %w", minutes, stableID, err)
		}
	}
	return nil
}

// Minutes returns the accumulated study minutes for a stable id, zero when
// the id is unknown.
func (s *Store) Minutes(stableID string) int {
	var user User
	if err := s.db.Where("stable_id = ?", stableID).First(&user).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logrus.WithError(err).WithField("stable_id", stableID).Warn("minutes lookup failed")
		}
		return 0
	}
	return user.TotalStudyMinutes
}
