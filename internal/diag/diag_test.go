package diag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"testing"

	"go.uber.org/zap/zapcore"

	"reelsync/pkg/contract"
)

// 错误分类
func TestClassify(t *testing.T) {
	if CodeCancel != Classify(context.Canceled) {
		t.Fatalf("取消分类错误")
	}
	if CodeTimeout != Classify(context.DeadlineExceeded) {
		t.Fatalf("超时分类错误")
	}
	if CodeTimeout != Classify(fmt.Errorf("capture: %w", contract.ErrSurfaceNotReady)) {
		t.Fatalf("就绪超时分类错误")
	}
	if CodeInvariant != Classify(contract.ErrTimelineInvalid) {
		t.Fatalf("时间线分类错误")
	}
	if CodeInvariant != Classify(contract.ErrInvalidInput) {
		t.Fatalf("输入分类错误")
	}
	if CodeIO != Classify(contract.ErrBrowserLaunch) {
		t.Fatalf("浏览器启动分类错误")
	}
	err := &fs.PathError{Op: "open", Path: "/", Err: errors.New("x")}
	if CodeIO != Classify(err) {
		t.Fatalf("IO 分类错误")
	}
	nerr := &net.DNSError{Err: "x"}
	if CodeNetwork != Classify(nerr) {
		t.Fatalf("网络分类错误")
	}
	if CodeUnknown != Classify(errors.New("other")) {
		t.Fatalf("未知分类错误")
	}
	if CodeUnknown != Classify(nil) {
		t.Fatalf("nil 分类错误")
	}
}

// 包装链上的哨兵仍可分类
func TestClassifyWrapped(t *testing.T) {
	err := fmt.Errorf("render: %w", fmt.Errorf("parse: %w", contract.ErrTimelineInvalid))
	if CodeInvariant != Classify(err) {
		t.Fatalf("包装后分类错误")
	}
}

// 级别解析：非法值回退 info
func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"  WARN ": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

// 构造日志器不失败
func TestNewLogger(t *testing.T) {
	l := NewLogger("debug")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debug("ok")
	_ = l.Sync()
}

// NowUTC
func TestNowUTC(t *testing.T) {
	if NowUTC() == "" {
		t.Fatalf("应返回时间字符串")
	}
}
