//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/bissquit/post-scheduler/internal/domain"
	"github.com/bissquit/post-scheduler/internal/posts"
	"github.com/bissquit/post-scheduler/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosts_CRUD(t *testing.T) {
	client := newTestClient(t)
	targetID := testutil.RandomTargetID("crud")
	at := time.Now().Add(48 * time.Hour).Truncate(time.Second)

	created := createTestPost(t, client, postPayload(targetID, at, "facebook", "instagram", "facebook"))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, domain.StatusNotSent, created.Status)
	assert.Equal(t, []domain.Channel{domain.ChannelFacebook, domain.ChannelInstagram}, created.Channels)
	assert.Equal(t, at.UTC().Format(domain.DateLayout), created.ScheduleDate)
	assert.Equal(t, at.UTC().Format(domain.TimeLayout), created.ScheduleTime)
	assert.Empty(t, created.DeliveredChannels)

	resp, err := client.GET("/api/v1/posts/" + created.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched postEnvelope
	testutil.DecodeJSON(t, resp, &fetched)
	assert.Equal(t, created.ID, fetched.Data.ID)
	assert.True(t, at.Equal(fetched.Data.ScheduleDateTime))

	update := postPayload(targetID, at.Add(time.Hour), "instagram")
	update["content"] = "Updated result"
	resp, err = client.PUT("/api/v1/posts/"+created.ID, update)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated postEnvelope
	testutil.DecodeJSON(t, resp, &updated)
	assert.Equal(t, "Updated result", updated.Data.Content)
	assert.Equal(t, []domain.Channel{domain.ChannelInstagram}, updated.Data.Channels)
	assert.Equal(t, at.Add(time.Hour).UTC().Format(domain.TimeLayout), updated.Data.ScheduleTime)

	resp, err = client.DELETE("/api/v1/posts/" + created.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var deleted postEnvelope
	testutil.DecodeJSON(t, resp, &deleted)
	assert.Equal(t, created.ID, deleted.Data.ID)

	resp, err = client.GET("/api/v1/posts/" + created.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPosts_LocalizedMessage(t *testing.T) {
	client := newTestClient(t)
	client.AcceptLanguage = "es-ES,es;q=0.9"

	resp, err := client.POST("/api/v1/posts", postPayload(testutil.RandomTargetID("es"), time.Now().Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result postEnvelope
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, "Publicación creada con éxito", result.Message)
}

func TestPosts_Validation(t *testing.T) {
	client := newTestClientWithoutValidation()
	future := time.Now().Add(24 * time.Hour)

	tests := []struct {
		name   string
		modify func(map[string]interface{})
	}{
		{"unknown data type", func(p map[string]interface{}) { p["data_type"] = "team" }},
		{"unknown channel", func(p map[string]interface{}) { p["channels"] = []string{"myspace"} }},
		{"empty networks", func(p map[string]interface{}) { p["networks"] = []string{} }},
		{"missing content", func(p map[string]interface{}) { delete(p, "content") }},
		{"date in the past", func(p map[string]interface{}) {
			p["schedule_date_time"] = time.Now().AddDate(0, 0, -2).UTC().Format(time.RFC3339)
		}},
		{"inconsistent display date", func(p map[string]interface{}) {
			p["schedule_date"] = future.AddDate(0, 0, 1).UTC().Format(domain.DateLayout)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := postPayload(testutil.RandomTargetID("invalid"), future)
			tt.modify(payload)

			resp, err := client.POST("/api/v1/posts", payload)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestPosts_NotFound(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.GET("/api/v1/posts/4e1f8f7c-2b1d-4d8e-9a57-1c2b3d4e5f60")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type pageEnvelope struct {
	Message string               `json:"message"`
	Data    []domain.Post        `json:"data"`
	Meta    posts.PaginationMeta `json:"meta"`
}

func TestPosts_Filter(t *testing.T) {
	resetPosts(t)
	client := newTestClient(t)
	targetID := testutil.RandomTargetID("filter")
	at := time.Now().UTC().Add(72 * time.Hour).Truncate(24 * time.Hour).Add(14*time.Hour + 30*time.Minute)

	for i := 0; i < 3; i++ {
		createTestPost(t, client, postPayload(targetID, at.Add(time.Duration(i)*time.Minute), "facebook"))
	}
	createTestPost(t, client, postPayload(targetID, at, "instagram"))
	createTestPost(t, client, postPayload(testutil.RandomTargetID("other"), at, "facebook"))

	t.Run("set membership and pagination", func(t *testing.T) {
		resp, err := client.POST("/api/v1/posts/filter?page=1&limit=2", map[string]interface{}{
			"filters": map[string]interface{}{
				"target_id": targetID,
				"channels":  []string{"facebook"},
			},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result pageEnvelope
		testutil.DecodeJSON(t, resp, &result)
		assert.Len(t, result.Data, 2)
		assert.Equal(t, 3, result.Meta.TotalCount)
		assert.Equal(t, 2, result.Meta.TotalPages)
		assert.True(t, result.Meta.HasNext)
		assert.False(t, result.Meta.HasPrev)
	})

	t.Run("last page", func(t *testing.T) {
		resp, err := client.POST("/api/v1/posts/filter?page=2&limit=2", map[string]interface{}{
			"filters": map[string]interface{}{"target_id": targetID, "channels": "facebook"},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result pageEnvelope
		testutil.DecodeJSON(t, resp, &result)
		assert.Len(t, result.Data, 1)
		assert.False(t, result.Meta.HasNext)
		assert.True(t, result.Meta.HasPrev)
	})

	t.Run("schedule date and time prefix", func(t *testing.T) {
		resp, err := client.POST("/api/v1/posts/filter", map[string]interface{}{
			"filters": map[string]interface{}{
				"target_id":     targetID,
				"schedule_date": at.Format(domain.DateLayout),
				"schedule_time": "14:30",
			},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result pageEnvelope
		testutil.DecodeJSON(t, resp, &result)
		assert.Equal(t, 2, result.Meta.TotalCount)
	})

	t.Run("exact instant", func(t *testing.T) {
		resp, err := client.POST("/api/v1/posts/filter", map[string]interface{}{
			"filters": map[string]interface{}{
				"schedule_date_time": at.Format(time.RFC3339),
			},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result pageEnvelope
		testutil.DecodeJSON(t, resp, &result)
		assert.Equal(t, 3, result.Meta.TotalCount)
	})

	t.Run("no match", func(t *testing.T) {
		resp, err := client.POST("/api/v1/posts/filter", map[string]interface{}{
			"filters": map[string]interface{}{"target_id": "nobody"},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result pageEnvelope
		testutil.DecodeJSON(t, resp, &result)
		assert.Empty(t, result.Data)
		assert.Equal(t, 0, result.Meta.TotalCount)
		assert.False(t, result.Meta.HasNext)
	})
}

func TestPosts_FilterRejectsBadInput(t *testing.T) {
	client := newTestClientWithoutValidation()

	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{"unknown filter key", "/api/v1/posts/filter", map[string]interface{}{"filters": map[string]interface{}{"$where": "1"}}},
		{"zero page", "/api/v1/posts/filter?page=0", nil},
		{"non numeric limit", "/api/v1/posts/filter?limit=ten", nil},
		{"unknown status value", "/api/v1/posts/filter", map[string]interface{}{"filters": map[string]interface{}{"status": "queued"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.POST(tt.path, tt.body)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}
