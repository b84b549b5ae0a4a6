package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"
)

// ProgressProvider labels analyses computed without a provider call
const ProgressProvider = "local"

var genericSkills = []string{
	"Temel Kavramlar",
	"Problem Çözme",
	"Grafik ve Tablo Yorumlama",
	"Okuduğunu Anlama",
	"Zaman Yönetimi",
}

// AnalyzeStudentProgress returns a synthetic progress analysis. No provider is
// called; results are stable for the same student, subject and day.
func (m *Manager) AnalyzeStudentProgress(ctx context.Context, studentID, subject string) (*ProgressAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return AnalyzeProgress(studentID, subject, m.now()), nil
}

// AnalyzeProgress is the pure form of AnalyzeStudentProgress
func AnalyzeProgress(studentID, subject string, now time.Time) *ProgressAnalysis {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", studentID, subject, now.Format(dateLayout))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	pool := genericSkills
	if c, err := DefaultCurriculum(); err == nil {
		if topics := c.TopicNames(subject); len(topics) >= 4 {
			pool = topics
		}
	}
	perm := rng.Perm(len(pool))
	strengths := []string{pool[perm[0]], pool[perm[1]]}
	weakAreas := []string{pool[perm[2]], pool[perm[3]]}

	score := 55 + rng.Intn(40)
	trend := []Trend{TrendImproving, TrendStable, TrendDeclining}[rng.Intn(3)]

	recommendations := []string{
		fmt.Sprintf("%s konusunda her gün 20 dakika ek pratik yap", weakAreas[0]),
		fmt.Sprintf("%s konusunu haftada iki kez tekrar et", weakAreas[1]),
	}
	switch trend {
	case TrendDeclining:
		recommendations = append(recommendations, "Çalışma planına kısa tekrar oturumları ekle ve düzenini koru")
	case TrendImproving:
		recommendations = append(recommendations, "Mevcut çalışma düzenini koru ve deneme sınavlarıyla kendini ölç")
	default:
		recommendations = append(recommendations, "Her hafta bir deneme sınavı çözerek ilerlemeni takip et")
	}

	return &ProgressAnalysis{
		StudentID:       studentID,
		Subject:         subject,
		OverallScore:    score,
		Trend:           trend,
		Strengths:       strengths,
		WeakAreas:       weakAreas,
		Recommendations: recommendations,
		AnalyzedAt:      now,
		Provider:        ProgressProvider,
	}
}
