package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snippet-oracle/snippet-oracle/internal/apperror"
	"github.com/snippet-oracle/snippet-oracle/internal/model"
)

func TestDeleteCommentTree_RemovesSubtreeOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	id := seedSnippet(t, db, seed{name: "s", owner: alice, public: true})

	root := &model.Comment{SnippetID: id, UserID: alice, Content: "root"}
	require.NoError(t, db.AddComment(ctx, root))
	reply := &model.Comment{SnippetID: id, UserID: alice, ParentID: &root.ID, Content: "reply"}
	require.NoError(t, db.AddComment(ctx, reply))
	nested := &model.Comment{SnippetID: id, UserID: alice, ParentID: &reply.ID, Content: "nested"}
	require.NoError(t, db.AddComment(ctx, nested))
	other := &model.Comment{SnippetID: id, UserID: alice, Content: "unrelated"}
	require.NoError(t, db.AddComment(ctx, other))

	require.NoError(t, db.DeleteCommentTree(ctx, reply.ID))

	remaining, err := db.ListComments(ctx, id)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "root", remaining[0].Content)
	assert.Equal(t, "unrelated", remaining[1].Content)
}

func TestDeleteCommentTree_MissingIsNotFound(t *testing.T) {
	db := newTestDB(t)
	err := db.DeleteCommentTree(context.Background(), 12345)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
