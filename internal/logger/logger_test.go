package logger

import (
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

// TestInitAppliesLevel 配置的级别同时作用于全局级别和全局日志器
func TestInitAppliesLevel(t *testing.T) {
	Init(Config{Level: "warn", Format: "json"})

	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.Equal(t, zerolog.WarnLevel, Logger.GetLevel())
	assert.Equal(t, Logger.GetLevel(), zlog.Logger.GetLevel(), "全局zerolog与包级Logger保持同一实例")
}

// TestInitInvalidLevelFallsBack 无法解析的级别名回退到Info
func TestInitInvalidLevelFallsBack(t *testing.T) {
	Init(Config{Level: "loud", Format: "json"})

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	assert.Equal(t, zerolog.InfoLevel, Logger.GetLevel())
}

// TestInitTimeFormat 自定义时间格式写入zerolog全局设置
func TestInitTimeFormat(t *testing.T) {
	Init(Config{Level: "info", Format: "json", TimeFormat: "15:04:05"})

	assert.Equal(t, "15:04:05", zerolog.TimeFieldFormat)
}
