package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"student-roster-go/models"
)

// studentRow is the gorm model behind SQLStore
type studentRow struct {
	ID      int    `gorm:"primaryKey;autoIncrement"`
	Name    string `gorm:"column:name"`
	Year    string `gorm:"column:year"`
	Section string `gorm:"column:section"`
}

func (studentRow) TableName() string { return "students" }

func (r studentRow) student() models.Student {
	return models.Student{ID: r.ID, Name: r.Name, Year: r.Year, Section: r.Section}
}

// SQLStore keeps the roster in a private in-memory SQLite database. The pool
// is pinned to one connection because each connection to :memory: is its own
// database.
type SQLStore struct {
	DB *gorm.DB
}

// NewSQLStore opens the in-memory database and creates the schema.
func NewSQLStore() (*SQLStore, error) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	pool, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite pool: %w", err)
	}
	pool.SetMaxOpenConns(1)
	pool.SetMaxIdleConns(1)
	pool.SetConnMaxLifetime(0)

	if err := gdb.AutoMigrate(&studentRow{}); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to migrate students table: %w", err)
	}
	return &SQLStore{DB: gdb}, nil
}

func (s *SQLStore) List(ctx context.Context) ([]models.Student, error) {
	var rows []studentRow
	if err := s.DB.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		logrus.WithError(err).Error("Error listing students")
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	students := make([]models.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (s *SQLStore) Get(ctx context.Context, id int) (*models.Student, error) {
	var row studentRow
	err := s.DB.WithContext(ctx).Take(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		logrus.WithError(err).Errorf("Error getting student %d", id)
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	student := row.student()
	return &student, nil
}

func (s *SQLStore) Add(ctx context.Context, in models.NewStudent) (*models.Student, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	built := in.Build(0)
	row := studentRow{Name: built.Name, Year: built.Year, Section: built.Section}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		logrus.WithError(err).Error("Error adding student")
		return nil, fmt.Errorf("failed to add student: %w", err)
	}
	student := row.student()
	return &student, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&studentRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return int(n), nil
}

// Reset drops and recreates the students table, which also restarts ids.
func (s *SQLStore) Reset(ctx context.Context) error {
	m := s.DB.WithContext(ctx).Migrator()
	if err := m.DropTable(&studentRow{}); err != nil {
		return fmt.Errorf("failed to drop students table: %w", err)
	}
	if err := s.DB.WithContext(ctx).AutoMigrate(&studentRow{}); err != nil {
		return fmt.Errorf("failed to recreate students table: %w", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	pool, err := s.DB.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	pool, err := s.DB.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}
