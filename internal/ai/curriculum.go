package ai

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed curriculum.yaml
var curriculumYAML []byte

// Curriculum is the reference syllabus given to providers as grounding context
type Curriculum struct {
	Grade    int                 `yaml:"grade"`
	Subjects []CurriculumSubject `yaml:"subjects"`
}

// CurriculumSubject is one subject of the syllabus
type CurriculumSubject struct {
	Name    string            `yaml:"name"`
	Aliases []string          `yaml:"aliases"`
	Topics  []CurriculumTopic `yaml:"topics"`
}

// CurriculumTopic is a unit with its learning objectives
type CurriculumTopic struct {
	Name       string   `yaml:"name"`
	Objectives []string `yaml:"objectives"`
}

var (
	curriculumOnce sync.Once
	curriculum     *Curriculum
	curriculumErr  error
)

// ParseCurriculum decodes a curriculum document
func ParseCurriculum(data []byte) (*Curriculum, error) {
	var c Curriculum
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse curriculum: %w", err)
	}
	if len(c.Subjects) == 0 {
		return nil, fmt.Errorf("failed to parse curriculum: no subjects")
	}
	return &c, nil
}

// DefaultCurriculum returns the embedded curriculum reference
func DefaultCurriculum() (*Curriculum, error) {
	curriculumOnce.Do(func() {
		curriculum, curriculumErr = ParseCurriculum(curriculumYAML)
	})
	return curriculum, curriculumErr
}

// Subject finds a subject by name or alias, case-insensitively
func (c *Curriculum) Subject(name string) (*CurriculumSubject, bool) {
	if c == nil {
		return nil, false
	}
	needle := foldKey(name)
	if needle == "" {
		return nil, false
	}
	for i := range c.Subjects {
		s := &c.Subjects[i]
		if foldKey(s.Name) == needle {
			return s, true
		}
		for _, alias := range s.Aliases {
			if foldKey(alias) == needle {
				return s, true
			}
		}
	}
	return nil, false
}

// FindTopic locates a topic anywhere in the curriculum
func (c *Curriculum) FindTopic(topic string) (*CurriculumSubject, *CurriculumTopic, bool) {
	if c == nil {
		return nil, nil, false
	}
	needle := foldKey(topic)
	for i := range c.Subjects {
		s := &c.Subjects[i]
		for j := range s.Topics {
			if foldKey(s.Topics[j].Name) == needle {
				return s, &s.Topics[j], true
			}
		}
	}
	return nil, nil, false
}

// TopicNames lists the topic names of a subject, empty when unknown
func (c *Curriculum) TopicNames(subject string) []string {
	s, ok := c.Subject(subject)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(s.Topics))
	for _, t := range s.Topics {
		names = append(names, t.Name)
	}
	return names
}

// Reference renders the subject's syllabus as plain text for prompts.
// Unknown subjects render every subject's topic list.
func (c *Curriculum) Reference(subject string) string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d. sınıf müfredatı\n", c.Grade)

	if s, ok := c.Subject(subject); ok {
		writeSubject(&b, s, true)
		return b.String()
	}
	for i := range c.Subjects {
		writeSubject(&b, &c.Subjects[i], false)
	}
	return b.String()
}

// TopicReference renders the subject and objectives a topic belongs to
func (c *Curriculum) TopicReference(topic string) string {
	s, t, ok := c.FindTopic(topic)
	if !ok {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s / %s\n", s.Name, t.Name)
	for _, obj := range t.Objectives {
		fmt.Fprintf(&b, "- %s\n", obj)
	}
	return b.String()
}

// foldKey compares names regardless of case and Turkish diacritics
func foldKey(s string) string {
	return strings.ToLower(turkishFolder.Replace(strings.TrimSpace(s)))
}

func writeSubject(b *strings.Builder, s *CurriculumSubject, withObjectives bool) {
	fmt.Fprintf(b, "%s:\n", s.Name)
	for _, t := range s.Topics {
		fmt.Fprintf(b, "- %s\n", t.Name)
		if !withObjectives {
			continue
		}
		for _, obj := range t.Objectives {
			fmt.Fprintf(b, "  * %s\n", obj)
		}
	}
}
