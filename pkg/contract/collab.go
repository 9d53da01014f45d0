package contract

import (
	"context"
	"io"
)

// CueParser: 字幕解析协作方。产出按 StartTime 升序的只读 Cue 序列。
// 核心不关心具体文本格式；插件实现（如 SRT）负责格式校验并快速失败。
type CueParser interface {
	Parse(ctx context.Context, r io.Reader) ([]Cue, error)
}

// Generated: 生成协作方的产物——完整 HTML 文档与整条布局时间线。
// 时间线整体替换当前合成的时间线；替换使所有派生缓存失效。
type Generated struct {
	HTMLDocument string
	Steps        []LayoutStep
}

// Generator: AI 生成协作方（提示词构造、schema 校验均在实现内部）。
// 单次调用、同步返回；应尊重 ctx 取消。
type Generator interface {
	Generate(ctx context.Context, transcript []Cue, duration float64) (Generated, error)
}
