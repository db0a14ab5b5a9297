package router

import (
	"context"

	"talent-bridge-go/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, searchHandler *handler.TalentSearchHandler, cvHandler *handler.CVUploadHandler) {
	api := h.Group("/api/v1")

	// 岗位人才匹配
	api.GET("/jobs/:job_id/talents/search", searchHandler.HandleSearchTalentsByJobID)

	// 岗位要求缓存失效（岗位更新后调用）
	api.DELETE("/jobs/:job_id/requirements-cache", searchHandler.HandleInvalidateRequirementsCache)

	// CV上传
	api.POST("/talents/:talent_id/cv", cvHandler.HandleCVUpload)

	// 添加健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}
