package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/fit_go_server/config"
)

// Log 全局日志实例，未调用 Init 时也可直接使用
var Log = logrus.New()

func init() {
	Log.Out = os.Stdout
	Log.SetFormatter(&logrus.JSONFormatter{})
	Log.SetLevel(logrus.InfoLevel)
}

// Init 按配置初始化日志级别和格式
func Init(cfg config.LogConfig) {
	if strings.EqualFold(cfg.Format, "text") {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		Log.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)
}

// SetOutput 替换输出目标，测试中用于捕获日志
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}
