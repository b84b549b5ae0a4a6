package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	numberingRe    = regexp.MustCompile(`^\d+\s*[.)\-]\s*`)
	optionRe       = regexp.MustCompile(`^([A-Ea-e])\s*[).:\-]\s*(.*)$`)
	answerLetterRe = regexp.MustCompile(`^\(?([A-Da-d])(?:[).:\s]|$)`)
	codeFenceRe    = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\n?(.*?)```")

	turkishFolder = strings.NewReplacer(
		"İ", "I", "ı", "i", "Ç", "C", "ç", "c", "Ş", "S", "ş", "s",
		"Ğ", "G", "ğ", "g", "Ö", "O", "ö", "o", "Ü", "U", "ü", "u",
	)
)

// Tagged-text markers after Turkish folding and upper-casing
const (
	markerQuestion    = "SORU"
	markerAnswer      = "DOGRU CEVAP"
	markerExplanation = "ACIKLAMA"
	markerTopic       = "KONU"
	markerTitle       = "BASLIK"
	markerContent     = "ICERIK"
	markerExamples    = "ORNEKLER"
	markerKeyPoints   = "ANA NOKTALAR"
	markerRelated     = "ILGILI KONULAR"
)

var knownMarkers = map[string]bool{
	markerQuestion: true, markerAnswer: true, markerExplanation: true, markerTopic: true,
	markerTitle: true, markerContent: true, markerExamples: true, markerKeyPoints: true, markerRelated: true,
}

// extractJSON strips code fences and prose around the first JSON value in text
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON value found", ErrParse)
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end < start {
		return "", fmt.Errorf("%w: unterminated JSON value", ErrParse)
	}
	return text[start : end+1], nil
}

func decodeJSON(text string, v interface{}) error {
	raw, err := extractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

// parseJSONPlanTopics reads {"topics": [...]} or a bare array of topics
func parseJSONPlanTopics(text string) ([]string, error) {
	var topics []string
	if raw, err := extractJSON(text); err == nil && strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &topics); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	} else {
		var plan struct {
			Topics      []string `json:"topics"`
			FocusTopics []string `json:"focusTopics"`
		}
		if err := decodeJSON(text, &plan); err != nil {
			return nil, err
		}
		topics = append(plan.Topics, plan.FocusTopics...)
	}

	topics = dedupe(cleanList(topics))
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: no topics", ErrParse)
	}
	return topics, nil
}

// answerIndex accepts 0-3, "0"-"3" or "A"-"D". Anything else decodes to -1;
// an absent or null answer leaves the pointer nil.
type answerIndex int

func (a *answerIndex) UnmarshalJSON(data []byte) error {
	*a = -1
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*a = answerIndex(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		*a = answerIndex(n)
		return nil
	}
	*a = answerIndex(letterIndex(s))
	return nil
}

type jsonQuestion struct {
	Question      string       `json:"question"`
	Options       []string     `json:"options"`
	CorrectAnswer *answerIndex `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
}

// parseJSONQuestions reads {"questions": [...]} or a bare array of questions.
// Individual questions are not validated here.
func parseJSONQuestions(text string) ([]GeneratedQuestion, error) {
	var items []jsonQuestion
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(raw, "[") {
		err = json.Unmarshal([]byte(raw), &items)
	} else {
		var wrapper struct {
			Questions []jsonQuestion `json:"questions"`
		}
		err = json.Unmarshal([]byte(raw), &wrapper)
		items = wrapper.Questions
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrParse)
	}

	out := make([]GeneratedQuestion, 0, len(items))
	for _, item := range items {
		options := make([]string, 0, len(item.Options))
		for _, opt := range item.Options {
			options = append(options, strings.TrimSpace(opt))
		}
		answer := -1
		if item.CorrectAnswer != nil {
			answer = int(*item.CorrectAnswer)
		}
		out = append(out, GeneratedQuestion{
			Question:      strings.TrimSpace(item.Question),
			Options:       options,
			CorrectAnswer: answer,
			Explanation:   strings.TrimSpace(item.Explanation),
		})
	}
	return out, nil
}

// parseJSONExplanation reads a structured explanation object
func parseJSONExplanation(text, topic string) (*ConceptExplanation, error) {
	var body struct {
		Title         string   `json:"title"`
		Content       string   `json:"content"`
		Examples      []string `json:"examples"`
		KeyPoints     []string `json:"keyPoints"`
		RelatedTopics []string `json:"relatedTopics"`
		Difficulty    string   `json:"difficulty"`
	}
	if err := decodeJSON(text, &body); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body.Content) == "" {
		return nil, fmt.Errorf("%w: empty content", ErrParse)
	}
	return newExplanation(topic, body.Title, body.Content, body.Examples, body.KeyPoints, body.RelatedTopics, ParseDifficulty(body.Difficulty)), nil
}

// parseFeedback accepts {"feedback": "..."} or plain prose
func parseFeedback(text string) (string, error) {
	var body struct {
		Feedback string `json:"feedback"`
	}
	if err := decodeJSON(text, &body); err == nil && strings.TrimSpace(body.Feedback) != "" {
		return strings.TrimSpace(body.Feedback), nil
	}
	plain := strings.TrimSpace(text)
	if plain == "" || strings.HasPrefix(plain, "{") {
		return "", fmt.Errorf("%w: empty feedback", ErrParse)
	}
	return plain, nil
}

// parseTaggedPlanTopics collects the KONU: lines
func parseTaggedPlanTopics(text string) ([]string, error) {
	var topics []string
	for _, line := range strings.Split(text, "\n") {
		item, _ := listItem(cleanLine(line))
		if marker, rest, ok := splitMarker(item); ok && marker == markerTopic && rest != "" {
			topics = append(topics, rest)
		}
	}
	topics = dedupe(topics)
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: no KONU lines", ErrParse)
	}
	return topics, nil
}

type taggedQuestion struct {
	question    []string
	options     [5]string
	answer      int
	explanation []string
	field       string
}

func (t *taggedQuestion) build() GeneratedQuestion {
	q := GeneratedQuestion{
		Question:      strings.TrimSpace(strings.Join(t.question, " ")),
		CorrectAnswer: t.answer,
		Explanation:   strings.TrimSpace(strings.Join(t.explanation, " ")),
	}
	for _, opt := range t.options {
		if opt != "" {
			q.Options = append(q.Options, opt)
		}
	}
	return q
}

// parseTaggedQuestions splits text into SORU: blocks. Blocks are returned as
// parsed; a block with a missing part fails GeneratedQuestion.Valid.
func parseTaggedQuestions(text string) []GeneratedQuestion {
	var (
		out     []GeneratedQuestion
		current *taggedQuestion
	)
	flush := func() {
		if current != nil {
			out = append(out, current.build())
		}
	}

	for _, rawLine := range strings.Split(text, "\n") {
		line := cleanLine(rawLine)
		if line == "" {
			continue
		}

		if marker, rest, ok := splitMarker(line); ok {
			switch marker {
			case markerQuestion:
				flush()
				current = &taggedQuestion{answer: -1, field: markerQuestion}
				if rest != "" {
					current.question = append(current.question, rest)
				}
			case markerAnswer:
				if current != nil {
					current.answer = letterIndex(rest)
					current.field = markerAnswer
				}
			case markerExplanation:
				if current != nil {
					current.field = markerExplanation
					if rest != "" {
						current.explanation = append(current.explanation, rest)
					}
				}
			}
			continue
		}
		if current == nil {
			continue
		}

		// Lettered lines after DOĞRU CEVAP are explanation text. An E) line
		// fills the fifth slot so the block fails Valid.
		if current.field == markerQuestion || current.field == "option" {
			if m := optionRe.FindStringSubmatch(line); m != nil {
				idx := strings.IndexByte("ABCDE", strings.ToUpper(m[1])[0])
				current.options[idx] = strings.TrimSpace(m[2])
				current.field = "option"
				continue
			}
		}

		switch current.field {
		case markerQuestion:
			current.question = append(current.question, line)
		case markerExplanation:
			current.explanation = append(current.explanation, line)
		}
	}
	flush()
	return out
}

// parseTaggedExplanation reads the BAŞLIK/İÇERİK/ÖRNEKLER/ANA NOKTALAR/İLGİLİ
// KONULAR sections. Text without any section header is used as the content.
func parseTaggedExplanation(text, topic string) (*ConceptExplanation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty explanation", ErrParse)
	}

	var (
		title, section                     string
		content, examples, points, related []string
		sawHeader                          bool
	)
	for _, rawLine := range strings.Split(text, "\n") {
		line := cleanLine(rawLine)
		if line == "" {
			continue
		}
		if marker, rest, ok := splitMarker(line); ok && marker != markerQuestion && marker != markerAnswer {
			sawHeader = true
			section = marker
			if rest == "" {
				continue
			}
			line = rest
		}

		item, isItem := listItem(line)
		switch section {
		case markerTitle:
			if title == "" {
				title = line
			}
		case markerContent:
			content = append(content, line)
		case markerExamples:
			examples = append(examples, item)
		case markerKeyPoints:
			points = append(points, item)
		case markerRelated:
			if isItem || !strings.Contains(item, ",") {
				related = append(related, item)
			} else {
				related = append(related, strings.Split(item, ",")...)
			}
		default:
			content = append(content, line)
		}
	}

	if !sawHeader {
		return newExplanation(topic, "", text, nil, nil, nil, DifficultyMedium), nil
	}
	body := strings.TrimSpace(strings.Join(content, "\n"))
	if body == "" {
		return nil, fmt.Errorf("%w: explanation without content", ErrParse)
	}
	return newExplanation(topic, title, body, examples, points, related, DifficultyMedium), nil
}

func newExplanation(topic, title, content string, examples, points, related []string, difficulty Difficulty) *ConceptExplanation {
	title = strings.TrimSpace(title)
	if title == "" {
		title = topic
	}
	return &ConceptExplanation{
		ID:            uuid.NewString(),
		Topic:         topic,
		Title:         title,
		Content:       strings.TrimSpace(content),
		Examples:      nonNil(cleanList(examples)),
		KeyPoints:     nonNil(cleanList(points)),
		RelatedTopics: nonNil(dedupe(cleanList(related))),
		Difficulty:    difficulty,
	}
}

// completeQuestions keeps valid candidates in order, substitutes the stub for
// every invalid or missing index and trims to req.Count. It returns how many
// stubs were used.
func completeQuestions(candidates []GeneratedQuestion, req QuestionRequest) ([]GeneratedQuestion, int) {
	req = normalizeQuestionRequest(req)
	out := make([]GeneratedQuestion, req.Count)
	stubs := 0
	for i := range out {
		if i < len(candidates) && candidates[i].Valid() {
			q := candidates[i]
			q.ID = uuid.NewString()
			q.Difficulty = req.Difficulty
			q.Topic = req.Topic
			out[i] = q
			continue
		}
		out[i] = FallbackQuestion(req.Topic, req.Difficulty, i)
		stubs++
	}
	return out, stubs
}

// cleanLine drops markdown emphasis, headings and list numbering
func cleanLine(line string) string {
	line = strings.ReplaceAll(line, "**", "")
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#")
	line = strings.TrimSpace(line)
	return numberingRe.ReplaceAllString(line, "")
}

// splitMarker recognises "MARKER: rest" lines, accepting Turkish letters with
// or without diacritics in any case.
func splitMarker(line string) (string, string, bool) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", false
	}
	key := strings.ToUpper(turkishFolder.Replace(strings.TrimSpace(line[:idx])))
	if !knownMarkers[key] {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}

func listItem(line string) (string, bool) {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}
	return strings.TrimSpace(line), false
}

// letterIndex maps a lone A-D, optionally written as "(B)", "B)" or "B: ...",
// onto 0-3. Anything else, including "Cevap B", maps onto -1.
func letterIndex(s string) int {
	m := answerLetterRe.FindStringSubmatch(strings.TrimSpace(strings.ReplaceAll(s, "*", "")))
	if m == nil {
		return -1
	}
	switch m[1][0] {
	case 'A', 'a':
		return 0
	case 'B', 'b':
		return 1
	case 'C', 'c':
		return 2
	case 'D', 'd':
		return 3
	default:
		return -1
	}
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
