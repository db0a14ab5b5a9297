package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-bridge-go/internal/config"
	"talent-bridge-go/internal/types"
)

func sampleBatch() types.NotificationBatch {
	return types.NotificationBatch{
		JobID: "job-1",
		RelevantTalents: []types.MatchResult{
			{
				TalentID:    "talent-1",
				UserID:      "user-1",
				Username:    "ada@example.com",
				Points:      4,
				CVMatches:   1,
				MatchByForm: 133.33,
				MatchByCV:   33.33,
			},
		},
	}
}

// TestDispatchSuccess 分发服务2xx时不报错，请求体为JSON批次
func TestDispatchSuccess(t *testing.T) {
	var received types.NotificationBatch
	var contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewDispatchClient(&config.NotifierConfig{DispatchURL: srv.URL, TimeoutSeconds: 5})
	err := client.Dispatch(context.Background(), sampleBatch())
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "job-1", received.JobID)
	require.Len(t, received.RelevantTalents, 1)
	assert.Equal(t, "talent-1", received.RelevantTalents[0].TalentID)
	assert.InDelta(t, 133.33, received.RelevantTalents[0].MatchByForm, 0.001)
}

// TestDispatchNon2xx 非2xx状态码返回包含响应内容的错误
func TestDispatchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	client := NewDispatchClient(&config.NotifierConfig{DispatchURL: srv.URL, TimeoutSeconds: 5})
	err := client.Dispatch(context.Background(), sampleBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream unavailable")
}

// TestDispatchMissingURL URL未配置时直接失败，不发起请求
func TestDispatchMissingURL(t *testing.T) {
	client := NewDispatchClient(&config.NotifierConfig{TimeoutSeconds: 5})
	err := client.Dispatch(context.Background(), sampleBatch())
	assert.Error(t, err)
}

// TestDispatchContextCancelled 上下文取消时请求中断
func TestDispatchContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	client := NewDispatchClient(&config.NotifierConfig{DispatchURL: srv.URL, TimeoutSeconds: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Dispatch(ctx, sampleBatch())
	assert.Error(t, err)
}
