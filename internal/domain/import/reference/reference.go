// Package reference provides the read-once account/category snapshot an
// import session matches rows against. Matching is exact equality over
// normalized names; a small in-memory search index backs "did you mean"
// suggestions for validation messages.
package reference

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/cyberhive54/EZfinance-sub001/internal/domain/finance/repository"
)

// NormalizeName canonicalizes a free-text name for matching: trim, collapse
// internal whitespace to single underscores, and upper-case single words.
// Multi-word names keep their case as typed.
func NormalizeName(name string) string {
	joined := strings.Join(strings.Fields(name), "_")
	if !strings.Contains(joined, "_") {
		return strings.ToUpper(joined)
	}
	return joined
}

// categoryKey builds the "type_name" lookup key for a category.
func categoryKey(typ, name string) string {
	return strings.ToLower(strings.TrimSpace(typ)) + "_" + NormalizeName(name)
}

// Snapshot is the reference data for one import session. It is built once,
// never refreshed mid-batch, and safe for the single orchestrating flow.
type Snapshot struct {
	accounts   []*repository.Account
	categories []*repository.Category

	accountByName map[string]*repository.Account
	categoryByKey map[string]*repository.Category

	index bleve.Index
	names []string
}

// NewSnapshot builds the lookup maps and suggestion index from the current
// account and category lists.
func NewSnapshot(accounts []*repository.Account, categories []*repository.Category) (*Snapshot, error) {
	s := &Snapshot{
		accounts:      accounts,
		categories:    categories,
		accountByName: make(map[string]*repository.Account, len(accounts)),
		categoryByKey: make(map[string]*repository.Category, len(categories)),
	}

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to build suggestion index: %w", err)
	}
	s.index = idx

	seen := make(map[string]bool)
	addName := func(name string) error {
		if seen[name] {
			return nil
		}
		seen[name] = true
		s.names = append(s.names, name)
		return s.index.Index(name, map[string]string{"name": strings.ToLower(name)})
	}

	for _, a := range accounts {
		s.accountByName[NormalizeName(a.Name)] = a
		if err := addName(a.Name); err != nil {
			return nil, fmt.Errorf("failed to index account %q: %w", a.Name, err)
		}
	}
	for _, c := range categories {
		s.categoryByKey[categoryKey(string(c.Type), c.Name)] = c
		if err := addName(c.Name); err != nil {
			return nil, fmt.Errorf("failed to index category %q: %w", c.Name, err)
		}
	}

	return s, nil
}

// Close releases the suggestion index.
func (s *Snapshot) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}

// Accounts returns the snapshot's accounts in creation order.
func (s *Snapshot) Accounts() []*repository.Account {
	return s.accounts
}

// PrimaryAccount returns the oldest account, the documented fallback for
// transfer rows with a single blank leg. Nil when no accounts exist.
func (s *Snapshot) PrimaryAccount() *repository.Account {
	if len(s.accounts) == 0 {
		return nil
	}
	return s.accounts[0]
}

// CanonicalAccount matches a typed name against known accounts and returns
// the canonical stored name.
func (s *Snapshot) CanonicalAccount(name string) (string, bool) {
	a, ok := s.accountByName[NormalizeName(name)]
	if !ok {
		return "", false
	}
	return a.Name, true
}

// AccountID resolves a typed or canonical account name to its identifier.
func (s *Snapshot) AccountID(name string) (uuid.UUID, bool) {
	a, ok := s.accountByName[NormalizeName(name)]
	if !ok {
		return uuid.Nil, false
	}
	return a.ID, true
}

// CanonicalCategory matches a typed name against known categories of the
// given type and returns the canonical stored name.
func (s *Snapshot) CanonicalCategory(typ, name string) (string, bool) {
	c, ok := s.categoryByKey[categoryKey(typ, name)]
	if !ok {
		return "", false
	}
	return c.Name, true
}

// CategoryID resolves a (type, name) pair to the category identifier.
func (s *Snapshot) CategoryID(typ, name string) (uuid.UUID, bool) {
	c, ok := s.categoryByKey[categoryKey(typ, name)]
	if !ok {
		return uuid.Nil, false
	}
	return c.ID, true
}

// AccountNames returns the canonical account names, sorted, for validation
// messages that enumerate valid values.
func (s *Snapshot) AccountNames() []string {
	names := make([]string, 0, len(s.accounts))
	for _, a := range s.accounts {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}

// CategoryNames returns the canonical category names of the given type,
// sorted.
func (s *Snapshot) CategoryNames(typ string) []string {
	var names []string
	for _, c := range s.categories {
		if string(c.Type) == strings.ToLower(strings.TrimSpace(typ)) {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Suggest returns up to limit known names closest to the typed one. The
// search index answers first; fuzzy ranking over all names fills in when the
// index finds nothing.
func (s *Snapshot) Suggest(name string, limit int) []string {
	name = strings.TrimSpace(name)
	if name == "" || limit <= 0 {
		return nil
	}

	var out []string
	seen := make(map[string]bool)

	query := bleve.NewFuzzyQuery(strings.ToLower(name))
	query.SetFuzziness(2)
	req := bleve.NewSearchRequest(query)
	req.Size = limit
	if res, err := s.index.Search(req); err == nil {
		for _, hit := range res.Hits {
			if !seen[hit.ID] {
				seen[hit.ID] = true
				out = append(out, hit.ID)
			}
		}
	}

	if len(out) < limit {
		ranks := fuzzy.RankFindNormalizedFold(name, s.names)
		sort.Sort(ranks)
		for _, r := range ranks {
			if len(out) >= limit {
				break
			}
			if !seen[r.Target] {
				seen[r.Target] = true
				out = append(out, r.Target)
			}
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
