// Package clustering groups scored artifacts by style and ranks them.
// Results depend only on the batch, never on its order or on prior calls.
package clustering

import (
	"sort"
	"strings"
	"unicode"

	"github.com/robinstudios/dot/internal/design/scoring"
	v1 "github.com/robinstudios/dot/pkg/api/v1"
)

// Cluster names in reporting order.
const (
	Modern       = "modern"
	Vintage      = "vintage"
	Playful      = "playful"
	Professional = "professional"
	Artistic     = "artistic"
	Minimalist   = "minimalist"
)

// TopN is the size of the global ranking.
const TopN = 3

var clusterOrder = []string{Modern, Vintage, Playful, Professional, Artistic, Minimalist}

var keywords = []struct {
	cluster string
	words   []string
}{
	{Modern, []string{"modern", "sleek", "contemporary", "futuristic", "tech"}},
	{Vintage, []string{"vintage", "retro", "classic", "nostalgic"}},
	{Playful, []string{"playful", "fun", "whimsical", "vibrant", "colorful"}},
	{Professional, []string{"professional", "corporate", "business", "enterprise"}},
	{Artistic, []string{"artistic", "art", "creative", "expressive", "abstract"}},
}

// Classify maps a style tag to a cluster name. The first rule with a
// matching word wins; unmatched styles are minimalist.
func Classify(style string) string {
	words := strings.FieldsFunc(strings.ToLower(style), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	for _, rule := range keywords {
		for _, w := range rule.words {
			if set[w] {
				return rule.cluster
			}
		}
	}
	return Minimalist
}

// Result is the clustering of one batch.
type Result struct {
	Clusters []v1.ClusterAssignment `json:"clusters"`
	Top      []string               `json:"top"`
}

type ranked struct {
	id      string
	overall int
}

func less(a, b ranked) bool {
	if a.overall != b.overall {
		return a.overall > b.overall
	}
	return a.id < b.id
}

// Cluster groups the batch, ranks each group and the whole batch. Artifacts
// without scores are scored on the fly.
func Cluster(artifacts []v1.DesignArtifact) Result {
	groups := make(map[string][]ranked)
	all := make([]ranked, 0, len(artifacts))

	for i := range artifacts {
		a := &artifacts[i]
		var s v1.ScoreSet
		if a.Scores != nil {
			s = *a.Scores
		} else {
			s = scoring.Score(a)
		}
		r := ranked{id: a.ID, overall: s.Overall()}
		name := Classify(a.Style)
		groups[name] = append(groups[name], r)
		all = append(all, r)
	}

	res := Result{Clusters: []v1.ClusterAssignment{}, Top: []string{}}
	for _, name := range clusterOrder {
		members := groups[name]
		if len(members) == 0 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return less(members[i], members[j]) })

		ids := make([]string, len(members))
		var sum int
		for i, m := range members {
			ids[i] = m.id
			sum += m.overall
		}
		res.Clusters = append(res.Clusters, v1.ClusterAssignment{
			ClusterName:  name,
			Members:      ids,
			TopMemberID:  ids[0],
			AverageScore: float64(sum) / float64(len(members)),
		})
	}

	sort.Slice(all, func(i, j int) bool { return less(all[i], all[j]) })
	for i := 0; i < len(all) && i < TopN; i++ {
		res.Top = append(res.Top, all[i].id)
	}
	return res
}

// Annotate sets each artifact's cluster name in place.
func Annotate(artifacts []v1.DesignArtifact) {
	for i := range artifacts {
		artifacts[i].Cluster = Classify(artifacts[i].Style)
	}
}
