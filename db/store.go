package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Pallinder/go-randomdata"
	"github.com/sirupsen/logrus"
	"student-roster-go/models"
)

var (
	// ErrNotFound is returned when no student has the requested id.
	ErrNotFound = errors.New("student not found")
	// ErrInvalidInput is returned when an add request lacks required fields.
	ErrInvalidInput = errors.New("missing required fields")
)

// Store holds the student roster. Ids are unique and assigned from a
// counter that only moves forward until Reset.
type Store interface {
	// List returns every student in insertion order, never nil.
	List(ctx context.Context) ([]models.Student, error)
	// Get returns the student with id, or ErrNotFound.
	Get(ctx context.Context, id int) (*models.Student, error)
	// Add validates in, assigns the next id and appends the record.
	Add(ctx context.Context, in models.NewStudent) (*models.Student, error)
	// Count returns the number of stored students.
	Count(ctx context.Context) (int, error)
	// Reset drops all records and restarts ids at 1.
	Reset(ctx context.Context) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend's connections.
	Close() error
}

// SeedStudents are the records present at process start.
var SeedStudents = []models.NewStudent{
	models.NewStudentOf("John Doe", "1st Year", "Zechariah"),
	models.NewStudentOf("Jane Smith", "2nd Year", "Gabriel"),
}

var yearLevels = []string{"1st Year", "2nd Year", "3rd Year", "4th Year"}

func validate(in models.NewStudent) error {
	if missing := in.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// Seed resets s, adds SeedStudents and then extra randomly generated students.
func Seed(ctx context.Context, s Store, extra int) error {
	if err := s.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset store before seeding: %w", err)
	}
	for _, in := range SeedStudents {
		if _, err := s.Add(ctx, in); err != nil {
			return fmt.Errorf("failed to add seed student %s: %w", *in.Name, err)
		}
	}
	for i := 0; i < extra; i++ {
		if _, err := s.Add(ctx, RandomStudent()); err != nil {
			return fmt.Errorf("failed to add random student %d: %w", i+1, err)
		}
	}
	logrus.Infof("Seeded store with %d students", len(SeedStudents)+extra)
	return nil
}

// RandomStudent generates a plausible student for demo data.
func RandomStudent() models.NewStudent {
	return models.NewStudentOf(
		randomdata.FullName(randomdata.RandomGender),
		randomdata.StringSample(yearLevels...),
		randomdata.SillyName(),
	)
}
