package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/maauso/reelchain-api/internal/luma"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockLumaClient is a simple mock for testing LumaAdapter.
type mockLumaClient struct {
	mock.Mock
}

func (m *mockLumaClient) Create(ctx context.Context, req luma.GenerationRequest) (luma.Generation, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(luma.Generation), args.Error(1)
}

func (m *mockLumaClient) Get(ctx context.Context, generationID string) (luma.Generation, error) {
	args := m.Called(ctx, generationID)
	return args.Get(0).(luma.Generation), args.Error(1)
}

func TestLumaAdapter_Submit(t *testing.T) {
	ctx := context.Background()
	client := &mockLumaClient{}
	adapter := NewLumaAdapter(client, WithCallbackURL("https://api.example.com/api/webhooks/luma"))

	req := Request{
		Prompt:        "a lighthouse at dusk",
		Motion:        "waves crash against the rocks",
		Camera:        "crane_up + handheld",
		Style:         "cinematic",
		StartFrameURL: "https://img/0.png",
	}

	client.On("Create", ctx, mock.MatchedBy(func(r luma.GenerationRequest) bool {
		return r.Prompt == "a lighthouse at dusk\n\nACTION: waves crash against the rocks\n\nStyle: cinematic\nNatural, fluid motion with realistic physics. Smooth continuous movement." &&
			r.StartFrameURL == "https://img/0.png" &&
			assert.ObjectsAreEqual([]string{"crane_up", "handheld"}, r.Concepts) &&
			r.CallbackURL == "https://api.example.com/api/webhooks/luma"
	})).Return(luma.Generation{ID: "gen-456", State: luma.StateQueued}, nil)

	id, err := adapter.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "gen-456", id)
	client.AssertExpectations(t)
}

func TestLumaAdapter_Submit_Error(t *testing.T) {
	ctx := context.Background()
	client := &mockLumaClient{}
	adapter := NewLumaAdapter(client)

	client.On("Create", ctx, mock.Anything).Return(luma.Generation{}, errors.New("create failed"))

	_, err := adapter.Submit(ctx, Request{StartFrameURL: "https://img/0.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "luma adapter submit")
	client.AssertExpectations(t)
}

func TestLumaAdapter_Poll(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		generation     luma.Generation
		expectedStatus Status
	}{
		{"queued", luma.Generation{State: luma.StateQueued}, StatusQueued},
		{"dreaming", luma.Generation{State: luma.StateDreaming}, StatusProcessing},
		{"completed", luma.Generation{State: luma.StateCompleted, VideoURL: "https://cdn/v.mp4", ImageURL: "https://cdn/t.jpg"}, StatusCompleted},
		{"failed", luma.Generation{State: luma.StateFailed, FailureReason: "nsfw"}, StatusFailed},
		{"unknown", luma.Generation{State: luma.State("paused")}, Status("paused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockLumaClient{}
			adapter := NewLumaAdapter(client)

			client.On("Get", ctx, "gen-1").Return(tt.generation, nil)

			res, err := adapter.Poll(ctx, "gen-1")
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, res.Status)
			assert.Equal(t, tt.generation.VideoURL, res.VideoURL)
			assert.Equal(t, tt.generation.ImageURL, res.ThumbnailURL)
			assert.Equal(t, tt.generation.FailureReason, res.Error)
			client.AssertExpectations(t)
		})
	}
}

func TestLumaAdapter_Poll_Error(t *testing.T) {
	ctx := context.Background()
	client := &mockLumaClient{}
	adapter := NewLumaAdapter(client)

	client.On("Get", ctx, "gen-1").Return(luma.Generation{}, errors.New("poll failed"))

	_, err := adapter.Poll(ctx, "gen-1")
	require.Error(t, err)
	client.AssertExpectations(t)
}

func TestCameraConcepts(t *testing.T) {
	assert.Equal(t, []string{"push_in", "handheld"}, cameraConcepts("push_in + handheld"))
	assert.Equal(t, []string{"static"}, cameraConcepts(" static "))
	assert.Nil(t, cameraConcepts(""))
}
