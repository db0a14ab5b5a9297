package parser

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"talent-bridge-go/internal/constants"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
)

// CVTextExtractor 从CV文件中提取可匹配的纯文本。
// PDF走 Eino PDF Parser，其余格式按纯文本处理。
// 提取是尽力而为的：任何失败都降级为空文本，评分继续只用表单字段。
type CVTextExtractor struct {
	parser *pdf.PDFParser
	logger *log.Logger
}

// CVExtractorOption CV提取器的配置选项
type CVExtractorOption func(*CVTextExtractor)

// WithExtractorLogger 配置自定义日志记录器
func WithExtractorLogger(logger *log.Logger) CVExtractorOption {
	return func(e *CVTextExtractor) {
		e.logger = logger
	}
}

// NewCVTextExtractor 初始化CV文本提取器
// PDF解析配置为不按页面分割，以获取整个文档的连续文本
func NewCVTextExtractor(ctx context.Context, options ...CVExtractorOption) (*CVTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false, // 非常重要：我们希望获取整个PDF的文本作为单个字符串
	})
	if err != nil {
		return nil, err
	}

	extractor := &CVTextExtractor{
		parser: p,
		logger: log.New(os.Stderr, "[CV解析器] ", log.LstdFlags),
	}

	// 应用选项
	for _, option := range options {
		option(extractor)
	}

	return extractor, nil
}

// BlobFetcher 按对象键读取CV原始内容，由MinIO适配器实现
type BlobFetcher interface {
	GetCVFile(ctx context.Context, objectKey string) ([]byte, error)
}

// ExtractFromObject 从对象存储中读取CV并提取文本。
// 对象键为空或读取失败时降级为空串。
func (e *CVTextExtractor) ExtractFromObject(ctx context.Context, fetcher BlobFetcher, objectKey, fileName string) string {
	if e == nil || fetcher == nil || objectKey == "" {
		return ""
	}
	data, err := fetcher.GetCVFile(ctx, objectKey)
	if err != nil {
		e.logger.Printf("读取CV对象 %s 失败: %v", objectKey, err)
		return ""
	}
	return e.ExtractText(ctx, data, fileName)
}

// ExtractText 从CV文件内容中提取小写纯文本。
// fileName用于按扩展名选择解析路径。提取器为nil、内容为空或解析失败时都返回空串。
func (e *CVTextExtractor) ExtractText(ctx context.Context, data []byte, fileName string) string {
	if e == nil {
		return ""
	}
	if len(data) == 0 {
		e.logger.Printf("CV文件内容为空: %s", fileName)
		return ""
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == ".pdf" {
		return e.extractPDFText(ctx, data, fileName)
	}

	// 非PDF格式按纯文本处理；二进制内容无法匹配，直接降级
	if !utf8.Valid(data) {
		e.logger.Printf("CV文件 %s 不是有效的UTF-8文本，跳过CV匹配", fileName)
		return ""
	}
	return strings.ToLower(string(data))
}

// extractPDFText 通过Eino PDF Parser提取PDF文本
func (e *CVTextExtractor) extractPDFText(ctx context.Context, data []byte, fileName string) string {
	startTime := time.Now()

	// 创建带超时的上下文
	ctx, cancel := context.WithTimeout(ctx, constants.CVExtractionTimeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(fileName),
	)

	duration := time.Since(startTime)
	if err != nil {
		e.logger.Printf("PDF提取失败: %s (文件: %s, 用时 %.2f秒)", err, fileName, duration.Seconds())
		return ""
	}

	if len(docs) == 0 {
		e.logger.Printf("PDF解析无结果 (文件: %s, 用时 %.2f秒)", fileName, duration.Seconds())
		return ""
	}

	// 合并所有文档的内容（以防万一返回了多个）
	var sb strings.Builder
	for i, doc := range docs {
		sb.WriteString(doc.Content)
		if i < len(docs)-1 {
			sb.WriteString("\n")
		}
	}

	e.logger.Printf("PDF提取完成: 提取了 %d 个字符 (文件: %s, 用时 %.2f秒)", sb.Len(), fileName, duration.Seconds())
	return strings.ToLower(sb.String())
}
