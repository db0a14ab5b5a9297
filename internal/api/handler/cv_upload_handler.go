package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"talent-bridge-go/internal/config"
	"talent-bridge-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// CVUploadHandler 负责处理人才CV上传。
// 只做存储和引用登记，不做解析流水线，文本提取在匹配运行时按需进行。
type CVUploadHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	logger  *log.Logger
}

// NewCVUploadHandler 创建一个新的 CVUploadHandler 实例。
func NewCVUploadHandler(cfg *config.Config, storage *storage.Storage) *CVUploadHandler {
	return &CVUploadHandler{
		cfg:     cfg,
		storage: storage,
		logger:  log.New(os.Stdout, "[CVUploadHandler] ", log.LstdFlags|log.Lshortfile),
	}
}

// HandleCVUpload 上传CV文件并记录到人才档案。
// POST /api/v1/talents/:talent_id/cv
func (h *CVUploadHandler) HandleCVUpload(ctx context.Context, c *app.RequestContext) {
	talentID := c.Param("talent_id")
	if talentID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "talent_id 不能为空"})
		return
	}

	// 获取上传的文件
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "文件未找到"})
		return
	}

	// 先确认人才存在，避免孤儿对象
	if _, err := h.storage.MySQL.GetTalentByID(ctx, talentID); err != nil {
		if errors.Is(err, storage.ErrTalentNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": fmt.Sprintf("人才 %s 不存在", talentID)})
			return
		}
		h.logger.Printf("查询人才 %s 失败: %v", talentID, err)
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询人才失败"})
		return
	}

	// 打开文件
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "打开文件失败"})
		return
	}
	defer file.Close()

	fileExt := filepath.Ext(fileHeader.Filename)
	objectKey, err := h.storage.MinIO.UploadCVFile(ctx, talentID, fileExt, file, fileHeader.Size)
	if err != nil {
		h.logger.Printf("上传CV文件失败 (talent=%s): %v", talentID, err)
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "上传CV文件失败"})
		return
	}

	// 记录对象引用；同一人才再次上传会覆盖旧引用（对象键按talent_id固定）
	if err := h.storage.MySQL.UpdateTalentCV(ctx, talentID, objectKey, fileHeader.Filename); err != nil {
		h.logger.Printf("更新CV引用失败 (talent=%s): %v", talentID, err)
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "更新CV引用失败"})
		return
	}

	h.logger.Printf("CV上传成功 (talent=%s, object=%s)", talentID, objectKey)
	c.JSON(consts.StatusOK, map[string]interface{}{
		"message":       "CV上传成功",
		"talent_id":     talentID,
		"cv_object_key": objectKey,
		"cv_file_name":  fileHeader.Filename,
	})
}
