package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCurriculum(t *testing.T) {
	c, err := DefaultCurriculum()
	require.NoError(t, err)
	assert.Equal(t, 8, c.Grade)
	assert.NotEmpty(t, c.Subjects)

	for _, s := range c.Subjects {
		assert.NotEmpty(t, s.Name)
		assert.NotEmpty(t, s.Topics, s.Name)
	}
}

func TestCurriculumLookup(t *testing.T) {
	c, err := DefaultCurriculum()
	require.NoError(t, err)

	s, ok := c.Subject("math")
	require.True(t, ok)
	assert.Equal(t, "Matematik", s.Name)

	_, ok = c.Subject("Astronomi")
	assert.False(t, ok)

	subject, topic, ok := c.FindTopic("üslü ifadeler")
	require.True(t, ok)
	assert.Equal(t, "Matematik", subject.Name)
	assert.Equal(t, "Üslü İfadeler", topic.Name)

	assert.Contains(t, c.TopicNames("fen"), "Basınç")
	assert.Nil(t, c.TopicNames("Astronomi"))
}

func TestCurriculumReference(t *testing.T) {
	c, err := DefaultCurriculum()
	require.NoError(t, err)

	ref := c.Reference("Matematik")
	assert.Contains(t, ref, "Matematik:")
	assert.Contains(t, ref, "- Üslü İfadeler")
	assert.Contains(t, ref, "* Bilimsel gösterimi kullanır")
	assert.NotContains(t, ref, "Basınç")

	all := c.Reference("Astronomi")
	assert.Contains(t, all, "Matematik:")
	assert.Contains(t, all, "- Basınç")

	assert.Contains(t, c.TopicReference("Basınç"), "Fen Bilimleri / Basınç")
	assert.Empty(t, c.TopicReference("Bilinmeyen"))
}

func TestParseCurriculumErrors(t *testing.T) {
	_, err := ParseCurriculum([]byte("grade: [unterminated"))
	assert.Error(t, err)

	_, err = ParseCurriculum([]byte("grade: 8\nsubjects: []\n"))
	assert.Error(t, err)
}
