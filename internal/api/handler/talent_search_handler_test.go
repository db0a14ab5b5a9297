package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"talent-bridge-go/internal/api/handler"
	"talent-bridge-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInvalidateTestEngine(t *testing.T, store *storage.Storage) *server.Hertz {
	t.Helper()
	h := handler.NewTalentSearchHandler(nil, store, nil)
	engine := server.New(server.WithHostPorts("127.0.0.1:0"))
	rg := engine.Group("/api/v1")
	rg.DELETE("/jobs/:job_id/requirements-cache", func(c context.Context, appCtx *app.RequestContext) {
		h.HandleInvalidateRequirementsCache(c, appCtx)
	})
	return engine
}

// Redis未配置时删除缓存是幂等的成功操作，没有可删的内容
func TestInvalidateRequirementsCacheWithoutRedis(t *testing.T) {
	engine := newInvalidateTestEngine(t, &storage.Storage{})

	resp := ut.PerformRequest(engine.Engine, "DELETE", "/api/v1/jobs/job-123/requirements-cache", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Result().Body(), &body))
	assert.Equal(t, "缓存未启用", body["message"])
	assert.Equal(t, "job-123", body["job_id"])
}
