//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bissquit/post-scheduler/internal/domain"
	"github.com/bissquit/post-scheduler/internal/testutil"
	"github.com/stretchr/testify/require"
)

// postPayload returns a valid create request scheduled at at.
func postPayload(targetID string, at time.Time, channels ...string) map[string]interface{} {
	if len(channels) == 0 {
		channels = []string{"facebook"}
	}
	return map[string]interface{}{
		"data_type":          "match",
		"target_id":          targetID,
		"action":             "match_result",
		"networks":           []string{"social-media"},
		"channels":           channels,
		"content":            "Result for " + targetID,
		"image":              map[string]string{"url": "https://cdn.example.com/" + targetID + ".png"},
		"schedule_date_time": at.UTC().Format(time.RFC3339),
	}
}

type postEnvelope struct {
	Message string      `json:"message"`
	Data    domain.Post `json:"data"`
}

// createTestPost creates a post through the API and returns it.
func createTestPost(t *testing.T, client *testutil.Client, payload map[string]interface{}) domain.Post {
	t.Helper()

	resp, err := client.POST("/api/v1/posts", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result postEnvelope
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// insertDuePost stores a not-sent post scheduled at at directly, bypassing
// the API rule that rejects past dates.
func insertDuePost(t *testing.T, at time.Time, channels ...domain.Channel) *domain.Post {
	t.Helper()

	if len(channels) == 0 {
		channels = []domain.Channel{domain.ChannelFacebook}
	}
	targetID := testutil.RandomTargetID("due")
	post := &domain.Post{
		DataType:          domain.DataTypePlayer,
		TargetID:          targetID,
		Action:            domain.ActionPlayerBirthday,
		Networks:          []domain.Network{domain.NetworkSocialMedia},
		Channels:          channels,
		DeliveredChannels: []domain.Channel{},
		Status:            domain.StatusNotSent,
		Content:           "Happy birthday " + targetID,
		Image:             domain.Image{URL: "https://cdn.example.com/" + targetID + ".png"},
	}
	post.SetSchedule(at, time.UTC)

	require.NoError(t, testRepo.Create(context.Background(), post))
	return post
}

// resetPosts removes every post and the fake Graph API state.
func resetPosts(t *testing.T) {
	t.Helper()
	_, err := testDB.Exec(context.Background(), "TRUNCATE TABLE scheduled_posts")
	require.NoError(t, err)
	testGraph.Reset()
}

// getPost loads a post from the store.
func getPost(t *testing.T, id string) *domain.Post {
	t.Helper()
	post, err := testRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return post
}
