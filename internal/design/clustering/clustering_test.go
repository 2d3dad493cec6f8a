package clustering

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

func TestClassify(t *testing.T) {
	tests := map[string]string{
		"modern":               Modern,
		"Sleek, Modern SaaS":   Modern,
		"retro-diner":          Vintage,
		"fun and vibrant":      Playful,
		"Corporate":            Professional,
		"abstract art gallery": Artistic,
		"smart start":          Minimalist,
		"":                     Minimalist,
		"modern vintage":       Modern,
	}
	for style, want := range tests {
		t.Run(style, func(t *testing.T) {
			assert.Equal(t, want, Classify(style))
		})
	}
}

func scored(id, style string, s, c, a int) v1.DesignArtifact {
	return v1.DesignArtifact{ID: id, Style: style, Scores: &v1.ScoreSet{Style: s, Contrast: c, Accessibility: a}}
}

func batch() []v1.DesignArtifact {
	return []v1.DesignArtifact{
		scored("a", "modern", 90, 90, 90),
		scored("b", "modern", 60, 60, 60),
		scored("c", "retro", 70, 70, 70),
		scored("d", "clean", 80, 80, 80),
		scored("e", "modern", 90, 90, 90),
		scored("f", "playful", 10, 20, 30),
	}
}

func TestCluster_PartitionAndOrdering(t *testing.T) {
	res := Cluster(batch())

	seen := map[string]int{}
	for _, c := range res.Clusters {
		for i, id := range c.Members {
			seen[id]++
			if i > 0 {
				assert.GreaterOrEqual(t, overallOf(t, c.Members[i-1]), overallOf(t, id))
			}
		}
		assert.Equal(t, c.Members[0], c.TopMemberID)
	}
	assert.Len(t, seen, 6)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}

	names := make([]string, len(res.Clusters))
	for i, c := range res.Clusters {
		names[i] = c.ClusterName
	}
	assert.Equal(t, []string{Modern, Vintage, Playful, Minimalist}, names)

	assert.Equal(t, []string{"a", "e", "b"}, res.Clusters[0].Members)
	assert.InDelta(t, 80.0, res.Clusters[0].AverageScore, 0.001)
}

func overallOf(t *testing.T, id string) int {
	for _, a := range batch() {
		if a.ID == id {
			return a.Scores.Overall()
		}
	}
	t.Fatalf("unknown id %s", id)
	return 0
}

func TestCluster_TopIsOrderInvariant(t *testing.T) {
	want := Cluster(batch()).Top
	require.Equal(t, []string{"a", "e", "d"}, want)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		b := batch()
		rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
		res := Cluster(b)
		assert.Equal(t, want, res.Top)
		assert.Equal(t, Cluster(batch()).Clusters, res.Clusters)
	}
}

func TestCluster_TopLength(t *testing.T) {
	for n := 0; n <= 5; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			b := batch()[:n]
			res := Cluster(b)
			want := n
			if want > TopN {
				want = TopN
			}
			assert.Len(t, res.Top, want)
		})
	}
}

func TestCluster_ScoresUnscoredArtifacts(t *testing.T) {
	res := Cluster([]v1.DesignArtifact{{ID: "x", Style: "vintage", Responsive: true}})
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, Vintage, res.Clusters[0].ClusterName)
	assert.Equal(t, []string{"x"}, res.Top)
}

func TestAnnotate(t *testing.T) {
	b := batch()
	Annotate(b)
	assert.Equal(t, Modern, b[0].Cluster)
	assert.Equal(t, Minimalist, b[3].Cluster)
}
