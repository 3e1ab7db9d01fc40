package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, name string) int64 {
	t.Helper()
	u := &model.User{Name: name, PasswordHash: "x"}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u.ID
}

type seed struct {
	name        string
	description string
	owner       int64
	public      bool
	tags        []string
	permitted   []int64
}

func seedSnippet(t *testing.T, db *DB, s seed) int64 {
	t.Helper()
	sn := &model.Snippet{
		Name:        s.name,
		Description: s.description,
		OwnerID:     s.owner,
		IsPublic:    s.public,
		Tags:        s.tags,
	}
	require.NoError(t, db.Create(context.Background(), sn, s.permitted))
	return sn.ID
}

func resultIDs(results []model.SnippetSummary) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func lexical(t *testing.T, db *DB, q repository.LexicalQuery) []model.SnippetSummary {
	t.Helper()
	out, err := db.SearchLexical(context.Background(), q)
	require.NoError(t, err)
	return out
}

func TestSearchLexical_VisibilityInvariant(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	pub := seedSnippet(t, db, seed{name: "sorting public", owner: alice, public: true})
	priv := seedSnippet(t, db, seed{name: "sorting private", owner: alice})
	shared := seedSnippet(t, db, seed{name: "sorting shared", owner: alice, permitted: []int64{carol}})

	q := repository.LexicalQuery{Terms: []string{"sorting"}}

	// Anonymous: public only.
	assert.ElementsMatch(t, []int64{pub}, resultIDs(lexical(t, db, q)))

	// Owner: everything of theirs.
	q.Viewer = model.ViewerFor(alice)
	assert.ElementsMatch(t, []int64{pub, priv, shared}, resultIDs(lexical(t, db, q)))

	// Grantee: public plus the grant.
	q.Viewer = model.ViewerFor(carol)
	assert.ElementsMatch(t, []int64{pub, shared}, resultIDs(lexical(t, db, q)))

	// Unrelated user: public only.
	q.Viewer = model.ViewerFor(bob)
	assert.ElementsMatch(t, []int64{pub}, resultIDs(lexical(t, db, q)))
}

func TestSearchLexical_OwnerOnlyMode(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	mine := seedSnippet(t, db, seed{name: "notes", owner: alice})
	seedSnippet(t, db, seed{name: "notes", owner: bob, public: true})
	seedSnippet(t, db, seed{name: "notes", owner: bob, permitted: []int64{alice}})

	// Owner-only ignores public snippets and incoming grants alike.
	got := lexical(t, db, repository.LexicalQuery{
		Terms:  []string{"notes"},
		Viewer: model.ViewerFor(alice),
		Mode:   model.AccessOwnerOnly,
	})
	assert.Equal(t, []int64{mine}, resultIDs(got))
}

func TestSearchLexical_NamePriorityFlag(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	byName := seedSnippet(t, db, seed{name: "Binary Search Tree", owner: alice, public: true})
	byDesc := seedSnippet(t, db, seed{
		name: "CSV parser", description: "uses binary search internally",
		owner: alice, public: true,
	})

	got := lexical(t, db, repository.LexicalQuery{Terms: []string{"binary"}})
	require.Len(t, got, 2)

	priorities := map[int64]int{}
	for _, s := range got {
		priorities[s.ID] = s.NamePriority
	}
	assert.Equal(t, 1, priorities[byName])
	assert.Equal(t, 0, priorities[byDesc])
}

func TestSearchLexical_TermsMatchAnyOf(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	a := seedSnippet(t, db, seed{name: "heap", owner: alice, public: true})
	b := seedSnippet(t, db, seed{name: "stack", owner: alice, public: true})
	seedSnippet(t, db, seed{name: "queue", owner: alice, public: true})

	got := lexical(t, db, repository.LexicalQuery{Terms: []string{"heap", "stack"}})
	assert.ElementsMatch(t, []int64{a, b}, resultIDs(got))
}

func TestSearchLexical_TagExactnessPriority(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	exact := seedSnippet(t, db, seed{name: "bst", owner: alice, public: true, tags: []string{"Python"}})
	seedSnippet(t, db, seed{name: "pandas intro", owner: alice, public: true, tags: []string{"Python3"}})

	// An exact (case-insensitive) use of "python" exists, so the prefix-only
	// "Python3" snippet is excluded.
	got := lexical(t, db, repository.LexicalQuery{IncludeTags: []string{"python"}})
	assert.Equal(t, []int64{exact}, resultIDs(got))
}

func TestSearchLexical_TagPrefixFallback(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	a := seedSnippet(t, db, seed{name: "bst", owner: alice, public: true, tags: []string{"Python"}})
	b := seedSnippet(t, db, seed{name: "pandas intro", owner: alice, public: true, tags: []string{"Python3"}})
	seedSnippet(t, db, seed{name: "sed tricks", owner: alice, public: true, tags: []string{"Shell"}})

	// No snippet is tagged exactly "pyth": both prefix matches qualify.
	got := lexical(t, db, repository.LexicalQuery{IncludeTags: []string{"pyth"}})
	assert.ElementsMatch(t, []int64{a, b}, resultIDs(got))
}

func TestSearchLexical_ExcludeTagBeatsNameMatch(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	seedSnippet(t, db, seed{name: "search helpers", owner: alice, public: true, tags: []string{"Python"}})
	kept := seedSnippet(t, db, seed{name: "search helpers", owner: alice, public: true, tags: []string{"Go"}})

	got := lexical(t, db, repository.LexicalQuery{
		Terms:       []string{"search"},
		ExcludeTags: []string{"python"},
	})
	assert.Equal(t, []int64{kept}, resultIDs(got))
}

func TestSearchLexical_AuthorExactThenContains(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	alicia := seedUser(t, db, "alicia")

	a := seedSnippet(t, db, seed{name: "one", owner: alice, public: true})
	b := seedSnippet(t, db, seed{name: "two", owner: alicia, public: true})

	// Exact handle: only that user's snippets.
	got := lexical(t, db, repository.LexicalQuery{Usernames: []string{"Alice"}})
	assert.Equal(t, []int64{a}, resultIDs(got))

	// No exact "alic" exists: contains fallback matches both users.
	got = lexical(t, db, repository.LexicalQuery{Usernames: []string{"alic"}})
	assert.ElementsMatch(t, []int64{a, b}, resultIDs(got))

	// Nothing matches at all: empty result, not an error.
	got = lexical(t, db, repository.LexicalQuery{Usernames: []string{"zzz"}})
	assert.Empty(t, got)
}

func TestSearchLexical_LikePatternsAreLiteral(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	seedSnippet(t, db, seed{name: "plain", owner: alice, public: true})
	pct := seedSnippet(t, db, seed{name: "100% coverage", owner: alice, public: true})

	// "%" in a term must match the literal character, not act as a wildcard.
	got := lexical(t, db, repository.LexicalQuery{Terms: []string{"100%"}})
	assert.Equal(t, []int64{pct}, resultIDs(got))

	got = lexical(t, db, repository.LexicalQuery{Terms: []string{"%"}})
	assert.Equal(t, []int64{pct}, resultIDs(got))
}

func TestSearchLexical_SummaryShape(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	require.NoError(t, db.UpdateProfile(context.Background(), alice, "gopher", "http://a/pic.png", nil))

	id := seedSnippet(t, db, seed{
		name: "bst", description: "a tree", owner: alice, public: true,
		tags: []string{"Go", "Trees"},
	})
	added, err := db.AddLike(context.Background(), id, bob)
	require.NoError(t, err)
	require.True(t, added)

	got := lexical(t, db, repository.LexicalQuery{
		Terms:  []string{"bst"},
		Viewer: model.ViewerFor(bob),
	})
	require.Len(t, got, 1)

	s := got[0]
	assert.Equal(t, "bst", s.Name)
	assert.Equal(t, 1, s.LikeCount)
	assert.True(t, s.LikedByViewer)
	assert.Equal(t, "alice", s.Author.Name)
	assert.Equal(t, "gopher", s.Author.Bio)
	assert.ElementsMatch(t, []string{"Go", "Trees"}, s.Tags)
}

func TestSummariesByIDs_FiltersAndPreservesOrder(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")

	pub1 := seedSnippet(t, db, seed{name: "one", owner: alice, public: true})
	priv := seedSnippet(t, db, seed{name: "two", owner: alice})
	pub2 := seedSnippet(t, db, seed{name: "three", owner: alice, public: true})

	// 999 never existed: vanished index entries are dropped silently.
	got, err := db.SummariesByIDs(context.Background(),
		[]int64{pub2, priv, 999, pub1}, model.Viewer{}, model.AccessPublicAndPermitted)
	require.NoError(t, err)
	assert.Equal(t, []int64{pub2, pub1}, resultIDs(got))
}

func TestSearchLexical_LimitApplied(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	for range 10 {
		seedSnippet(t, db, seed{name: "dup", owner: alice, public: true})
	}

	got := lexical(t, db, repository.LexicalQuery{Terms: []string{"dup"}, Limit: 4})
	assert.Len(t, got, 4)
}

func TestSearchLexical_LimitKeepsTopRanked(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	// More description-only matches than the limit admits.
	for range 55 {
		seedSnippet(t, db, seed{
			name: "misc", description: "a widget helper",
			owner: alice, public: true,
		})
	}
	top := seedSnippet(t, db, seed{name: "widget master", owner: alice, public: true})
	added, err := db.AddLike(context.Background(), top, bob)
	require.NoError(t, err)
	require.True(t, added)

	// The name-priority, liked snippet must survive the cap and rank first.
	got := lexical(t, db, repository.LexicalQuery{Terms: []string{"widget"}, Limit: 50})
	require.Len(t, got, 50)
	assert.Equal(t, top, got[0].ID)
	assert.Equal(t, 1, got[0].NamePriority)
	assert.Equal(t, 1, got[0].LikeCount)
}
