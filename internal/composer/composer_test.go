package composer

import (
	"context"
	"testing"

	"github.com/SAP-F-2025/mastery-service/internal/generator"
	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/SAP-F-2025/mastery-service/internal/profile"
	"github.com/SAP-F-2025/mastery-service/internal/repositories"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestComposer(t *testing.T, weakSamples map[string]int) (*Composer, *profile.Store) {
	t.Helper()
	store := profile.NewStore(repositories.NewMemoryProfileRepository(), nil, utils.NewDevelopmentLogger(), profile.DefaultConfig())
	ctx := context.Background()
	for topic, misses := range weakSamples {
		for i := 0; i < misses; i++ {
			require.NoError(t, store.Upsert(ctx, "u1", topic, "Physics", false))
		}
	}
	return New(store, generator.NewMockClient(), utils.NewDevelopmentLogger(), Config{}), store
}

func baseRequest(count int, useWeak bool) *ComposeRequest {
	return &ComposeRequest{
		UserID:        "u1",
		Subject:       "Physics",
		Topic:         "Thermodynamics",
		QuestionCount: count,
		UseWeakTopics: useWeak,
	}
}

func TestPlan_NoWeakTopics(t *testing.T) {
	c, _ := newTestComposer(t, nil)
	plan, err := c.Plan(context.Background(), baseRequest(10, true))
	require.NoError(t, err)
	require.Len(t, plan.TopicMix, 1)
	assert.Equal(t, "Thermodynamics", plan.TopicMix[0].Topic)
	assert.Equal(t, 10, plan.TopicMix[0].Count)
	assert.Equal(t, 0, plan.WeakCount())
}

func TestPlan_OptedOutIgnoresProfile(t *testing.T) {
	c, _ := newTestComposer(t, map[string]int{"Energy": 2})
	plan, err := c.Plan(context.Background(), baseRequest(10, false))
	require.NoError(t, err)
	assert.Equal(t, 0, plan.WeakCount())
}

func TestPlan_AtLeastFortyPercentWeak(t *testing.T) {
	c, _ := newTestComposer(t, map[string]int{"Energy": 3, "Kinematics": 1})

	for _, count := range []int{5, 10, 7, 1} {
		plan, err := c.Plan(context.Background(), baseRequest(count, true))
		require.NoError(t, err)

		total := 0
		for _, tw := range plan.TopicMix {
			total += tw.Count
		}
		assert.Equal(t, count, total, "count=%d", count)
		assert.GreaterOrEqual(t, float64(plan.WeakCount()), 0.4*float64(count), "count=%d", count)
	}
}

func TestPlan_WorstTopicGetsMostQuestions(t *testing.T) {
	// Energy has more failed attempts than Kinematics at the same score,
	// so it leads the weak list and takes the extra question.
	c, _ := newTestComposer(t, map[string]int{"Energy": 3, "Kinematics": 1})
	plan, err := c.Plan(context.Background(), baseRequest(7, true)) // ceil(0.4*7) = 3 weak
	require.NoError(t, err)

	assert.Equal(t, 3, plan.WeakCount())
	require.GreaterOrEqual(t, len(plan.TopicMix), 2)
	assert.Equal(t, "Energy", plan.TopicMix[0].Topic)
	assert.Equal(t, 2, plan.TopicMix[0].Count)
	assert.Equal(t, "Kinematics", plan.TopicMix[1].Topic)
	assert.Equal(t, 1, plan.TopicMix[1].Count)
}

func TestGenerate_ParsesQuestions(t *testing.T) {
	client := generator.NewMockClient(`Here is your quiz:
` + "```json" + `
{"questions":[{"id":"q1","text":"What is work?","kind":"short_answer","correct_answer":"Force times distance","topic":"Energy","difficulty":"Easy","marks":1}]}
` + "```")
	c := New(nil, client, utils.NewDevelopmentLogger(), Config{})

	questions, err := c.Generate(context.Background(), &QuizPlan{
		Subject:       "Physics",
		QuestionCount: 1,
		TopicMix:      []TopicWeight{{Topic: "Energy", Count: 1, Weak: true}},
	})
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, models.KindShortAnswer, questions[0].Kind)
	assert.Equal(t, "Energy", questions[0].Topic)
}

func TestGenerate_ParseErrorSurfaced(t *testing.T) {
	client := generator.NewMockClient("sorry, I can't help with that")
	c := New(nil, client, utils.NewDevelopmentLogger(), Config{})

	_, err := c.Generate(context.Background(), &QuizPlan{Subject: "Physics", QuestionCount: 1})
	assert.True(t, generator.IsParseError(err))
}
