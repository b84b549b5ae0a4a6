package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// PlanDays is the number of daily sessions in every study plan
	PlanDays = 14
	// DefaultQuestionCount is used when a request does not name a count
	DefaultQuestionCount = 5

	sessionStartTime = "16:00"
	dateLayout       = "2006-01-02"
	generalTopic     = "Genel Tekrar"
)

var (
	fallbackCycle = []SessionType{SessionConcept, SessionPractice, SessionReview}
	providerCycle = []SessionType{SessionConcept, SessionPractice, SessionReview, SessionTest}
)

func sessionDuration(t SessionType) int {
	switch t {
	case SessionConcept:
		return 45
	case SessionPractice:
		return 60
	case SessionReview:
		return 30
	case SessionTest:
		return 40
	default:
		return 45
	}
}

// buildStudyPlan lays topics out over PlanDays days starting today
func buildStudyPlan(req StudyPlanRequest, topics []string, cycle []SessionType, now time.Time, provider string) *StudyPlan {
	topics = cleanList(topics)
	if len(topics) == 0 {
		topics = cleanList(req.WeakAreas)
	}
	if len(topics) == 0 {
		subject := strings.TrimSpace(req.Subject)
		if subject == "" {
			subject = generalTopic
		}
		topics = []string{subject}
	}

	planID := uuid.NewString()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sessions := make([]StudySession, 0, PlanDays)
	for day := 0; day < PlanDays; day++ {
		sessionType := cycle[day%len(cycle)]
		sessions = append(sessions, StudySession{
			ID:       fmt.Sprintf("%s-session-%d", planID, day+1),
			Date:     start.AddDate(0, 0, day).Format(dateLayout),
			Time:     sessionStartTime,
			Topic:    topics[day%len(topics)],
			Type:     sessionType,
			Duration: sessionDuration(sessionType),
		})
	}

	weakAreas := append([]string(nil), req.WeakAreas...)
	if weakAreas == nil {
		weakAreas = []string{}
	}

	return &StudyPlan{
		ID:            planID,
		StudentID:     req.StudentID,
		Subject:       req.Subject,
		WeakAreas:     weakAreas,
		StudySchedule: sessions,
		CreatedAt:     now,
		UpdatedAt:     now,
		Provider:      provider,
	}
}

// planFromTopics is used when a provider returned usable focus topics
func planFromTopics(req StudyPlanRequest, topics []string, now time.Time, provider string) *StudyPlan {
	return buildStudyPlan(req, topics, providerCycle, now, provider)
}

// FallbackStudyPlan builds the deterministic plan used when provider output is unusable
func FallbackStudyPlan(req StudyPlanRequest, now time.Time, provider string) *StudyPlan {
	return buildStudyPlan(req, nil, fallbackCycle, now, provider)
}

// FallbackQuestion is the stub substituted for a question that failed validation
func FallbackQuestion(topic string, difficulty Difficulty, index int) GeneratedQuestion {
	if topic == "" {
		topic = generalTopic
	}
	return GeneratedQuestion{
		ID:       uuid.NewString(),
		Question: fmt.Sprintf("%s konusu ile ilgili %d. soru: Aşağıdakilerden hangisi bu konunun temel kavramlarından biridir?", topic, index+1),
		Options: []string{
			fmt.Sprintf("%s konusunun temel tanımı", topic),
			"Konuyla ilgisi olmayan bir kavram",
			"Başka bir derse ait bir bilgi",
			"Hiçbiri",
		},
		CorrectAnswer: 0,
		Explanation:   fmt.Sprintf("Doğru cevap A seçeneğidir. %s konusunu çalışırken önce temel tanımları öğrenmek gerekir.", topic),
		Difficulty:    ParseDifficulty(string(difficulty)),
		Topic:         topic,
	}
}

// FallbackQuestions returns count stub questions
func FallbackQuestions(req QuestionRequest) []GeneratedQuestion {
	req = normalizeQuestionRequest(req)
	out := make([]GeneratedQuestion, req.Count)
	for i := range out {
		out[i] = FallbackQuestion(req.Topic, req.Difficulty, i)
	}
	return out
}

// FallbackExplanation is the templated explanation used when provider output is unusable
func FallbackExplanation(topic string) *ConceptExplanation {
	if topic == "" {
		topic = generalTopic
	}
	related := []string{}
	if c, err := DefaultCurriculum(); err == nil {
		if s, _, ok := c.FindTopic(topic); ok {
			for _, t := range s.Topics {
				if t.Name != topic && len(related) < 3 {
					related = append(related, t.Name)
				}
			}
		}
	}

	return &ConceptExplanation{
		ID:      uuid.NewString(),
		Topic:   topic,
		Title:   topic,
		Content: fmt.Sprintf("%s, müfredatın önemli konularından biridir. Konuyu kavramak için önce temel tanımları öğren, ardından örnek soruları adım adım çözerek pekiştir.", topic),
		Examples: []string{
			fmt.Sprintf("%s ile ilgili temel bir örneği çözüm adımlarını yazarak incele.", topic),
			fmt.Sprintf("%s konusunda geçmiş yıllarda çıkmış bir LGS sorusunu çöz.", topic),
		},
		KeyPoints: []string{
			"Temel kavramları ve tanımları öğren",
			"Kuralları örnekler üzerinde uygula",
			"Düzenli tekrar yaparak bilgini pekiştir",
		},
		RelatedTopics: related,
		Difficulty:    DifficultyMedium,
	}
}

// FallbackFeedback builds a templated feedback text from the progress summary
func FallbackFeedback(summary ProgressSummary) string {
	name := strings.TrimSpace(summary.StudentName)
	if name == "" {
		name = "Sevgili öğrenci"
	}

	var b strings.Builder
	switch {
	case summary.AverageScore >= 85:
		fmt.Fprintf(&b, "%s, harika gidiyorsun! %s dersinde ortalaman %.0f.", name, summary.Subject, summary.AverageScore)
	case summary.AverageScore >= 70:
		fmt.Fprintf(&b, "%s, iyi bir ilerleme kaydediyorsun. %s dersinde ortalaman %.0f.", name, summary.Subject, summary.AverageScore)
	case summary.AverageScore >= 50:
		fmt.Fprintf(&b, "%s, gelişim gösteriyorsun. %s dersinde ortalaman %.0f ve daha da yükseltebilirsin.", name, summary.Subject, summary.AverageScore)
	default:
		fmt.Fprintf(&b, "%s, birlikte çalışarak %s dersinde ortalamanı (%.0f) yükseltebiliriz.", name, summary.Subject, summary.AverageScore)
	}

	if summary.TotalSessions > 0 {
		fmt.Fprintf(&b, " Planındaki %d oturumun %d tanesini tamamladın.", summary.TotalSessions, summary.CompletedSessions)
	}
	if strengths := cleanList(summary.Strengths); len(strengths) > 0 {
		fmt.Fprintf(&b, " Güçlü olduğun konular: %s.", strings.Join(strengths, ", "))
	}
	if weak := cleanList(summary.WeakAreas); len(weak) > 0 {
		fmt.Fprintf(&b, " Önümüzdeki günlerde %s konularına ağırlık vermeni öneririm.", strings.Join(weak, ", "))
	}
	b.WriteString(" Düzenli çalışmaya devam et!")
	return b.String()
}

func normalizeQuestionRequest(req QuestionRequest) QuestionRequest {
	if req.Count <= 0 {
		req.Count = DefaultQuestionCount
	}
	req.Difficulty = ParseDifficulty(string(req.Difficulty))
	return req
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
