package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReplyTree(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	replies := []Reply{
		{ID: "r1", PostID: "p1", Message: "top", CreatedAt: base},
		{ID: "r2", PostID: "p1", ParentReplyID: "r1", Message: "child", CreatedAt: base.Add(time.Minute)},
		{ID: "r3", PostID: "p1", Message: "second top", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "r4", PostID: "p1", ParentReplyID: "r2", Message: "grandchild", CreatedAt: base.Add(3 * time.Minute)},
		{ID: "r5", PostID: "p1", ParentReplyID: "gone", Message: "orphan", CreatedAt: base.Add(4 * time.Minute)},
	}

	tree := BuildReplyTree(replies)

	require.Len(t, tree, 3)
	assert.Equal(t, "r1", tree[0].ID)
	assert.Equal(t, "r3", tree[1].ID)
	assert.Equal(t, "r5", tree[2].ID)

	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "r2", tree[0].Children[0].ID)
	require.Len(t, tree[0].Children[0].Children, 1)
	assert.Equal(t, "r4", tree[0].Children[0].Children[0].ID)
	assert.Empty(t, tree[1].Children)
}

func TestBuildReplyTree_Empty(t *testing.T) {
	assert.Empty(t, BuildReplyTree(nil))
}

func TestPostExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p := Post{ExpiresAt: now}
	assert.True(t, p.Expired(now))
	p.ExpiresAt = now.Add(time.Second)
	assert.False(t, p.Expired(now))
}
