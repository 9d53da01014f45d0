// Package compose 按单次时钟 tick 派生渲染态：区间索引查询字幕与布局，
// 布局解析与字幕分片合成 RenderState。每个 tick 重算、不缓存、无副作用。
package compose

import (
	"reelsync/internal/caption"
	"reelsync/internal/layout"
	"reelsync/internal/timeline"
	"reelsync/pkg/contract"
)

// Options: 派生参数。零值可用。
type Options struct {
	// CaptionWindowSize: 字幕词窗大小；<=0 取 caption.DefaultWindowSize。
	CaptionWindowSize int
}

// Derive 计算时刻 t 的完整渲染态。
// 必须是 (t, cues, steps) 的确定性纯函数：两次相同输入产出相同结果，
// 不得引入任何隐藏可变状态。
func Derive(t float64, cues []contract.Cue, steps []contract.LayoutStep, opts Options) contract.RenderState {
	st := contract.RenderState{
		Time:   t,
		Layout: layout.ResolveAt(t, steps),
	}
	// 字幕沿用索引的统一回退：间隙/起始前无活动条目；越过末条粘滞保持
	// （进度钳制为 1，整窗 spoken），与布局一致地避免收尾空白。
	if cue, ok := timeline.FindActive(t, cues); ok {
		st.HasCue = true
		st.Caption = caption.Chunk(cue, t, opts.CaptionWindowSize)
	}
	return st
}
