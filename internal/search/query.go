package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// DefaultLimit caps result lists when the caller passes no limit.
const DefaultLimit = 20

// Params configures a search query.
type Params struct {
	UserID string // Only plants owned by this user match
	Query  string
	Limit  int
}

// Result is the outcome of a search.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is a single matching plant.
type Hit struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Search runs params against the index. An empty query lists every plant
// of the user.
func (s *PlantIndex) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	req := bleve.NewSearchRequestOptions(buildQuery(params), limit, 0, false)
	req.Fields = []string{"id", "name"}
	if strings.TrimSpace(params.Query) == "" {
		req.SortBy([]string{"name"})
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := Hit{ID: hit.ID, Score: hit.Score}
		if n, ok := hit.Fields["name"].(string); ok {
			h.Name = n
		}
		result.Hits = append(result.Hits, h)
	}
	return result, nil
}

// buildQuery matches the stemmed name, the folded name, a fuzzy variant and
// a prefix of the last word, restricted to one user.
func buildQuery(params Params) query.Query {
	owner := bleve.NewTermQuery(params.UserID)
	owner.SetField("user_id")

	folded := Fold(params.Query)
	if folded == "" {
		return owner
	}

	nameMatch := bleve.NewMatchQuery(params.Query)
	nameMatch.SetField("name")
	nameMatch.SetBoost(3.0)

	foldedMatch := bleve.NewMatchQuery(folded)
	foldedMatch.SetField("folded")
	foldedMatch.SetBoost(2.0)

	fuzzy := bleve.NewMatchQuery(folded)
	fuzzy.SetField("folded")
	fuzzy.SetFuzziness(1)
	fuzzy.SetBoost(0.8)

	text := []query.Query{nameMatch, foldedMatch, fuzzy}

	words := strings.Fields(folded)
	if last := words[len(words)-1]; len(last) >= 2 {
		prefix := bleve.NewPrefixQuery(last)
		prefix.SetField("folded")
		prefix.SetBoost(0.5)
		text = append(text, prefix)
	}

	return bleve.NewConjunctionQuery(owner, bleve.NewDisjunctionQuery(text...))
}
