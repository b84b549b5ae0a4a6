package ai

import (
	"fmt"
	"strings"
)

// responseFormat is how a provider is asked to shape its answer
type responseFormat int

const (
	formatJSON responseFormat = iota
	formatTagged
)

const systemPrompt = `Sen LGS'ye hazırlanan 8. sınıf öğrencilerine yardım eden deneyimli bir öğretmensin.
Cevaplarını Türkçe ver, müfredata sadık kal ve yalnızca istenen formatta yanıt üret.`

func curriculumReference(subject string) string {
	c, err := DefaultCurriculum()
	if err != nil {
		return ""
	}
	return c.Reference(subject)
}

func topicReference(topic string) string {
	c, err := DefaultCurriculum()
	if err != nil {
		return ""
	}
	return c.TopicReference(topic)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "belirtilmedi"
	}
	return strings.Join(items, ", ")
}

// buildStudyPlanPrompt asks for the focus topics of a two-week plan
func buildStudyPlanPrompt(req StudyPlanRequest, format responseFormat) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ders: %s\n", req.Subject)
	fmt.Fprintf(&b, "Zayıf konular: %s\n", joinOrNone(req.WeakAreas))
	if req.CurrentLevel != "" {
		fmt.Fprintf(&b, "Mevcut seviye: %s\n", req.CurrentLevel)
	}
	if ref := curriculumReference(req.Subject); ref != "" {
		fmt.Fprintf(&b, "\nMüfredat referansı:\n%s\n", ref)
	}
	b.WriteString("\nBu öğrenci için 14 günlük bir çalışma planının odaklanacağı konuları sırayla listele. ")
	b.WriteString("Zayıf konulara öncelik ver ve yalnızca müfredattaki konuları kullan.\n")

	switch format {
	case formatJSON:
		b.WriteString(`Yalnızca şu JSON nesnesini döndür: {"topics": ["konu 1", "konu 2"]}`)
	default:
		b.WriteString("Her konuyu ayrı bir satırda şu formatta yaz:\nKONU: <konu adı>")
	}
	return b.String()
}

// buildQuestionsPrompt asks for count multiple-choice questions
func buildQuestionsPrompt(req QuestionRequest, format responseFormat) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Konu: %s\n", req.Topic)
	fmt.Fprintf(&b, "Zorluk: %s\n", req.Difficulty)
	if ref := topicReference(req.Topic); ref != "" {
		fmt.Fprintf(&b, "\nMüfredat referansı:\n%s\n", ref)
	}
	fmt.Fprintf(&b, "\nBu konu hakkında LGS formatında %d adet dört seçenekli çoktan seçmeli soru hazırla.\n", req.Count)

	switch format {
	case formatJSON:
		b.WriteString(`Yalnızca şu JSON nesnesini döndür: {"questions": [{"question": "...", "options": ["...", "...", "...", "..."], "correctAnswer": 0, "explanation": "..."}]}`)
		b.WriteString("\ncorrectAnswer doğru seçeneğin 0 ile 3 arasındaki indeksidir.")
	default:
		b.WriteString("Her soruyu tam olarak şu formatta yaz ve soruları boş bir satırla ayır:\n")
		b.WriteString("SORU: <soru metni>\nA) <seçenek>\nB) <seçenek>\nC) <seçenek>\nD) <seçenek>\nDOĞRU CEVAP: <A, B, C veya D>\nAÇIKLAMA: <çözüm açıklaması>")
	}
	return b.String()
}

// buildExplanationPrompt asks for a structured concept explanation
func buildExplanationPrompt(topic string, format responseFormat) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Konu: %s\n", topic)
	if ref := topicReference(topic); ref != "" {
		fmt.Fprintf(&b, "\nMüfredat referansı:\n%s\n", ref)
	}
	b.WriteString("\nBu konuyu 8. sınıf öğrencisinin anlayacağı şekilde açıkla. Örnekler, ana noktalar ve ilgili konular ekle.\n")

	switch format {
	case formatJSON:
		b.WriteString(`Yalnızca şu JSON nesnesini döndür: {"title": "...", "content": "...", "examples": ["..."], "keyPoints": ["..."], "relatedTopics": ["..."]}`)
	default:
		b.WriteString("Şu bölümleri kullan, liste öğelerini \"- \" ile başlat:\n")
		b.WriteString("BAŞLIK: <başlık>\nİÇERİK: <açıklama>\nÖRNEKLER:\n- <örnek>\nANA NOKTALAR:\n- <nokta>\nİLGİLİ KONULAR:\n- <konu>")
	}
	return b.String()
}

// buildFeedbackPrompt asks for a short motivating feedback paragraph
func buildFeedbackPrompt(summary ProgressSummary, format responseFormat) string {
	var b strings.Builder
	name := summary.StudentName
	if name == "" {
		name = "Öğrenci"
	}
	fmt.Fprintf(&b, "Öğrenci: %s\n", name)
	fmt.Fprintf(&b, "Ders: %s\n", summary.Subject)
	fmt.Fprintf(&b, "Ortalama puan: %.0f\n", summary.AverageScore)
	fmt.Fprintf(&b, "Tamamlanan oturum: %d / %d\n", summary.CompletedSessions, summary.TotalSessions)
	fmt.Fprintf(&b, "Güçlü yönler: %s\n", joinOrNone(summary.Strengths))
	fmt.Fprintf(&b, "Geliştirilmesi gereken konular: %s\n", joinOrNone(summary.WeakAreas))
	if len(summary.RecentScores) > 0 {
		scores := make([]string, len(summary.RecentScores))
		for i, s := range summary.RecentScores {
			scores[i] = fmt.Sprintf("%d", s)
		}
		fmt.Fprintf(&b, "Son puanlar: %s\n", strings.Join(scores, ", "))
	}
	b.WriteString("\nBu öğrenciye kişiselleştirilmiş, motive edici ve somut öneriler içeren kısa bir geri bildirim yaz.")

	if format == formatJSON {
		b.WriteString("\n" + `Yalnızca şu JSON nesnesini döndür: {"feedback": "..."}`)
	}
	return b.String()
}
