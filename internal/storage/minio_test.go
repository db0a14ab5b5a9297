package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMinIONilAdapterReads 未初始化的适配器读操作返回错误而不是panic。
// NewStorage容忍MinIO初始化失败，指针经接口传递后调用方无法用==nil兜底。
func TestMinIONilAdapterReads(t *testing.T) {
	var m *MinIO

	data, err := m.GetCVFile(context.Background(), "cv/talent-1/original.pdf")
	assert.Error(t, err)
	assert.Nil(t, data)

	data, err = m.DownloadFile(context.Background(), "cv/talent-1/original.pdf")
	assert.Error(t, err)
	assert.Nil(t, data)
}

// TestGetContentType 按扩展名推断内容类型，未知扩展名回退到二进制流
func TestGetContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", getContentType(".pdf"))
	assert.Equal(t, "application/pdf", getContentType(".PDF"))
	assert.Equal(t, "text/plain", getContentType(".txt"))
	assert.Equal(t, "application/octet-stream", getContentType(".xyz"))
	assert.Equal(t, "application/octet-stream", getContentType(""))
}
