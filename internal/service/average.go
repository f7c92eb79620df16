package service

import (
	"context"
	"time"

	"github.com/phrazzld/coursework/internal/domain"
	"github.com/phrazzld/coursework/internal/store"
)

// lockAverage takes the write lock on a student's course average and returns
// the version the following recomputeAverage must compare against.
func lockAverage(ctx context.Context, s store.Stores, studentID, courseID int64, now time.Time) (int64, error) {
	version, err := s.Averages.Lock(ctx, studentID, courseID, now)
	if err != nil {
		return 0, classify(err, "course average", courseID)
	}
	return version, nil
}

// recomputeAverage rebuilds a student's course average from every persisted
// grade of that student in the course and writes it if nobody else has
// since the lock was taken.
func recomputeAverage(
	ctx context.Context,
	s store.Stores,
	studentID, courseID, lockedVersion int64,
	now time.Time,
) (*domain.CourseAverage, error) {
	scores, err := s.Grades.ListScores(ctx, studentID, courseID)
	if err != nil {
		return nil, classify(err, "grade", studentID)
	}

	score, percent := domain.ComputeCourseAverage(scores)
	avg := &domain.CourseAverage{
		StudentID:      studentID,
		CourseID:       courseID,
		AverageScore:   score,
		AveragePercent: percent,
		GradedCount:    len(scores),
		UpdatedAt:      now,
	}
	if err := s.Averages.CompareAndSet(ctx, avg, lockedVersion); err != nil {
		return nil, classify(err, "course average", courseID)
	}
	return avg, nil
}

// refreshAverage is lockAverage followed by recomputeAverage.
func refreshAverage(ctx context.Context, s store.Stores, studentID, courseID int64, now time.Time) error {
	version, err := lockAverage(ctx, s, studentID, courseID, now)
	if err != nil {
		return err
	}
	_, err = recomputeAverage(ctx, s, studentID, courseID, version, now)
	return err
}
