package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeProgressIsStablePerDay(t *testing.T) {
	morning := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, time.May, 1, 21, 0, 0, 0, time.UTC)

	a := AnalyzeProgress("student-1", "Matematik", morning)
	b := AnalyzeProgress("student-1", "Matematik", evening)

	assert.Equal(t, a.OverallScore, b.OverallScore)
	assert.Equal(t, a.Trend, b.Trend)
	assert.Equal(t, a.Strengths, b.Strengths)
	assert.Equal(t, a.WeakAreas, b.WeakAreas)
}

func TestAnalyzeProgressShape(t *testing.T) {
	now := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	a := AnalyzeProgress("student-1", "Matematik", now)

	assert.Equal(t, ProgressProvider, a.Provider)
	assert.Equal(t, "student-1", a.StudentID)
	assert.Equal(t, now, a.AnalyzedAt)
	assert.GreaterOrEqual(t, a.OverallScore, 55)
	assert.Less(t, a.OverallScore, 95)
	assert.Contains(t, []Trend{TrendImproving, TrendStable, TrendDeclining}, a.Trend)
	require.Len(t, a.Strengths, 2)
	require.Len(t, a.WeakAreas, 2)
	assert.NotContains(t, a.Strengths, a.WeakAreas[0])
	assert.NotContains(t, a.Strengths, a.WeakAreas[1])
	assert.Len(t, a.Recommendations, 3)

	c, err := DefaultCurriculum()
	require.NoError(t, err)
	assert.Subset(t, c.TopicNames("Matematik"), append(a.Strengths, a.WeakAreas...))

	generic := AnalyzeProgress("student-1", "Astronomi", now)
	assert.Subset(t, genericSkills, generic.Strengths)
}

func TestManagerAnalyzeStudentProgressCallsNoProvider(t *testing.T) {
	google := &fakeProvider{id: ProviderGoogle, available: true}
	m := newTestManager(t, RoutingSettings{PrimaryProvider: ProviderGoogle}, google)

	ctx, cancel := context.WithCancel(context.Background())
	a, err := m.AnalyzeStudentProgress(ctx, "s", "Türkçe")
	require.NoError(t, err)
	assert.Equal(t, "local", a.Provider)
	assert.Zero(t, google.totalCalls())

	cancel()
	_, err = m.AnalyzeStudentProgress(ctx, "s", "Türkçe")
	assert.ErrorIs(t, err, context.Canceled)
}
