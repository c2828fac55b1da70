package checkpoint

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/jobmatchassistant/internal/database"
	"github.com/muhammadolammi/jobmatchassistant/internal/memory"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	return map[string]Store{
		"memory": NewMemory(),
		"sql":    NewSQL(db),
	}
}

func conversation() []memory.Message {
	return []memory.Message{
		{ID: "1", Role: memory.RoleUser, Content: "腾讯怎么样？"},
		{ID: "2", Role: memory.RoleAssistant, ToolCalls: []memory.ToolCall{
			{ID: "call-1", Name: "search_company_info", Arguments: map[string]any{"company_name": "腾讯"}},
		}},
		{ID: "3", Role: memory.RoleTool, Name: "search_company_info", ToolCallID: "call-1", Content: "企业信息查询结果：..."},
		{ID: "4", Role: memory.RoleAssistant, Content: "腾讯是一家互联网公司。"},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.NewString()
			require.NoError(t, store.Create(ctx, id, "u1"))

			fresh, err := store.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "u1", fresh.UserID)
			assert.Equal(t, StatusActive, fresh.Status)
			assert.Empty(t, fresh.Messages)

			require.NoError(t, store.Save(ctx, id, conversation()))
			require.NoError(t, store.SetStatus(ctx, id, StatusProcessing))

			got, err := store.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, conversation(), got.Messages)
			assert.Equal(t, StatusProcessing, got.Status)
		})
	}
}

func TestStoreUnknownSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.NewString()

			_, err := store.Load(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = store.Load(ctx, "not-a-uuid")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.ErrorIs(t, store.AttachResume(ctx, id, Resume{ObjectKey: "a.pdf"}), ErrNotFound)
			assert.ErrorIs(t, store.SetStatus(ctx, id, StatusActive), ErrNotFound)
		})
	}
}

func TestStoreDeleteRemovesEverything(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.NewString()
			require.NoError(t, store.Create(ctx, id, "u1"))
			require.NoError(t, store.Save(ctx, id, conversation()))
			require.NoError(t, store.AttachResume(ctx, id, Resume{Filename: "cv.pdf", Mime: "application/pdf", ObjectKey: "uploads/cv.pdf"}))

			require.NoError(t, store.Delete(ctx, id))

			_, err := store.Load(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreResumes(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.NewString()
			require.NoError(t, store.Create(ctx, id, "u1"))
			require.NoError(t, store.AttachResume(ctx, id, Resume{Filename: "cv.pdf", Mime: "application/pdf", ObjectKey: "uploads/cv.pdf"}))

			resumes, err := store.Resumes(ctx, id)
			require.NoError(t, err)
			require.Len(t, resumes, 1)
			assert.Equal(t, "uploads/cv.pdf", resumes[0].ObjectKey)
			assert.Equal(t, "cv.pdf", resumes[0].Filename)
			assert.NotEmpty(t, resumes[0].ID)
		})
	}
}

func TestMemoryLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Create(ctx, "s1", "u1"))
	require.NoError(t, store.Save(ctx, "s1", conversation()))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	got.Messages[0].Content = "changed"

	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "腾讯怎么样？", again.Messages[0].Content)
}
