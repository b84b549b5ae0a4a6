package ai

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.December, 25, 9, 30, 0, 0, time.UTC)

func TestFallbackStudyPlan(t *testing.T) {
	req := StudyPlanRequest{
		StudentID: "student-1",
		Subject:   "Matematik",
		WeakAreas: []string{"Üslü İfadeler", "Eşitsizlikler"},
	}
	plan := FallbackStudyPlan(req, testNow, "google")

	require.Len(t, plan.StudySchedule, PlanDays)
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "student-1", plan.StudentID)
	assert.Equal(t, "google", plan.Provider)
	assert.Equal(t, testNow, plan.CreatedAt)

	start := time.Date(2024, time.December, 25, 0, 0, 0, 0, time.UTC)
	wantTypes := []SessionType{SessionConcept, SessionPractice, SessionReview}
	for i, s := range plan.StudySchedule {
		assert.Equal(t, start.AddDate(0, 0, i).Format("2006-01-02"), s.Date, "day %d", i)
		assert.Equal(t, "16:00", s.Time)
		assert.Equal(t, wantTypes[i%3], s.Type)
		assert.Equal(t, req.WeakAreas[i%2], s.Topic)
		assert.Equal(t, fmt.Sprintf("%s-session-%d", plan.ID, i+1), s.ID)
		assert.Positive(t, s.Duration)
		assert.False(t, s.Completed)
		assert.Nil(t, s.Score)
	}
	// Crosses a month and a year boundary.
	assert.Equal(t, "2025-01-07", plan.StudySchedule[13].Date)
}

func TestFallbackStudyPlanDatesStrictlyIncrease(t *testing.T) {
	plan := FallbackStudyPlan(StudyPlanRequest{Subject: "Fen Bilimleri"}, time.Date(2024, time.February, 20, 23, 59, 0, 0, time.UTC), "")
	require.Len(t, plan.StudySchedule, PlanDays)

	prev, err := time.Parse("2006-01-02", plan.StudySchedule[0].Date)
	require.NoError(t, err)
	for _, s := range plan.StudySchedule[1:] {
		d, err := time.Parse("2006-01-02", s.Date)
		require.NoError(t, err)
		assert.Equal(t, 24*time.Hour, d.Sub(prev))
		prev = d
	}
}

func TestFallbackStudyPlanWithoutWeakAreas(t *testing.T) {
	plan := FallbackStudyPlan(StudyPlanRequest{Subject: "Türkçe"}, testNow, "")
	for _, s := range plan.StudySchedule {
		assert.Equal(t, "Türkçe", s.Topic)
	}
	assert.Equal(t, []string{}, plan.WeakAreas)

	plan = FallbackStudyPlan(StudyPlanRequest{}, testNow, "")
	assert.Equal(t, generalTopic, plan.StudySchedule[0].Topic)
}

func TestPlanFromTopicsUsesFourWayCycle(t *testing.T) {
	plan := planFromTopics(StudyPlanRequest{Subject: "Matematik"}, []string{"A", "B", "C"}, testNow, "ollama")
	require.Len(t, plan.StudySchedule, PlanDays)

	wantTypes := []SessionType{SessionConcept, SessionPractice, SessionReview, SessionTest}
	for i, s := range plan.StudySchedule {
		assert.Equal(t, wantTypes[i%4], s.Type)
		assert.Equal(t, []string{"A", "B", "C"}[i%3], s.Topic)
	}
}

func TestFallbackQuestions(t *testing.T) {
	questions := FallbackQuestions(QuestionRequest{Topic: "Basınç"})
	require.Len(t, questions, DefaultQuestionCount)
	for i, q := range questions {
		assert.True(t, q.Valid())
		assert.Equal(t, 0, q.CorrectAnswer)
		assert.Equal(t, DifficultyMedium, q.Difficulty)
		assert.Contains(t, q.Question, fmt.Sprintf("%d. soru", i+1))
	}
}

func TestFallbackExplanation(t *testing.T) {
	e := FallbackExplanation("Üslü İfadeler")
	assert.Equal(t, "Üslü İfadeler", e.Title)
	assert.Len(t, e.KeyPoints, 3)
	assert.Len(t, e.Examples, 2)
	assert.NotEmpty(t, e.RelatedTopics)
	assert.NotContains(t, e.RelatedTopics, "Üslü İfadeler")

	unknown := FallbackExplanation("Bilinmeyen Konu")
	assert.Equal(t, []string{}, unknown.RelatedTopics)
}

func TestFallbackFeedback(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{92, "harika gidiyorsun"},
		{75, "iyi bir ilerleme"},
		{55, "gelişim gösteriyorsun"},
		{30, "birlikte çalışarak"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := FallbackFeedback(ProgressSummary{
				StudentName:       "Ayşe",
				Subject:           "Matematik",
				AverageScore:      tt.score,
				CompletedSessions: 5,
				TotalSessions:     14,
				Strengths:         []string{"Üslü İfadeler"},
				WeakAreas:         []string{"Eşitsizlikler"},
			})
			assert.True(t, strings.HasPrefix(got, "Ayşe, "))
			assert.Contains(t, got, tt.want)
			assert.Contains(t, got, "14 oturumun 5 tanesini")
			assert.Contains(t, got, "Eşitsizlikler")
		})
	}
}
