package parser

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"talent-bridge-go/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(t *testing.T) *CVTextExtractor {
	t.Helper()
	extractor, err := NewCVTextExtractor(context.Background(),
		WithExtractorLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, err)
	return extractor
}

// TestExtractTextPlainText 非PDF文件按纯文本处理并小写化
func TestExtractTextPlainText(t *testing.T) {
	extractor := newTestExtractor(t)

	text := extractor.ExtractText(context.Background(), []byte("Experienced PYTHON Developer"), "cv.txt")
	assert.Equal(t, "experienced python developer", text)
}

// TestExtractTextEmptyContent 空内容降级为空串
func TestExtractTextEmptyContent(t *testing.T) {
	extractor := newTestExtractor(t)

	assert.Empty(t, extractor.ExtractText(context.Background(), nil, "cv.txt"))
	assert.Empty(t, extractor.ExtractText(context.Background(), []byte{}, "cv.txt"))
}

// TestExtractTextBinaryGarbage 非UTF-8的二进制内容无法匹配，降级为空串
func TestExtractTextBinaryGarbage(t *testing.T) {
	extractor := newTestExtractor(t)

	text := extractor.ExtractText(context.Background(), []byte{0xff, 0xfe, 0x00, 0x81}, "cv.doc")
	assert.Empty(t, text)
}

// TestExtractTextInvalidPDF 损坏的PDF解析失败时降级为空串，不返回错误
func TestExtractTextInvalidPDF(t *testing.T) {
	extractor := newTestExtractor(t)

	text := extractor.ExtractText(context.Background(), []byte("not a real pdf"), "cv.pdf")
	assert.Empty(t, text)
}

// TestExtractTextNilExtractor nil提取器直接短路
func TestExtractTextNilExtractor(t *testing.T) {
	var extractor *CVTextExtractor
	assert.Empty(t, extractor.ExtractText(context.Background(), []byte("text"), "cv.txt"))
}

type fakeBlobFetcher struct {
	data map[string][]byte
}

func (f *fakeBlobFetcher) GetCVFile(_ context.Context, objectKey string) ([]byte, error) {
	data, ok := f.data[objectKey]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

// TestExtractFromObject 从对象存储读取并提取，缺失对象降级为空串
func TestExtractFromObject(t *testing.T) {
	extractor := newTestExtractor(t)
	fetcher := &fakeBlobFetcher{data: map[string][]byte{
		"cv/t1/original.txt": []byte("Fluent in SQL and Docker"),
	}}

	text := extractor.ExtractFromObject(context.Background(), fetcher, "cv/t1/original.txt", "original.txt")
	assert.Equal(t, "fluent in sql and docker", text)

	assert.Empty(t, extractor.ExtractFromObject(context.Background(), fetcher, "cv/missing/original.txt", "original.txt"))
	assert.Empty(t, extractor.ExtractFromObject(context.Background(), fetcher, "", "original.txt"), "空对象键不触发I/O")
	assert.Empty(t, extractor.ExtractFromObject(context.Background(), nil, "cv/t1/original.txt", "original.txt"))
}

// TestExtractFromObjectTypedNilAdapter MinIO初始化失败时Storage里是typed-nil指针，
// 经接口传入后不等于nil，提取必须降级为空串而不是panic中断整次匹配运行
func TestExtractFromObjectTypedNilAdapter(t *testing.T) {
	extractor := newTestExtractor(t)

	var fetcher BlobFetcher = (*storage.MinIO)(nil)
	assert.False(t, fetcher == nil, "typed-nil指针装进接口后绕过nil判断")

	text := extractor.ExtractFromObject(context.Background(), fetcher, "cv/t1/original.txt", "original.txt")
	assert.Empty(t, text)
}
