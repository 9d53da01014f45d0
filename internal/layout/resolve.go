// Package layout 将布局时间线解析为某一时刻的具体几何：
// 面板高度、z 序、字幕锚点，以及步边界处的平滑过渡插值。
package layout

import (
	"math"

	"reelsync/internal/timeline"
	"reelsync/pkg/contract"
)

// TransitionSeconds: 步边界高度/锚点过渡时长。
// 过渡由派生函数按 ease-out 曲线插值，保证边界不产生跳切。
const TransitionSeconds = 0.5

// 全屏模式下 captionPosition 对应的纵向百分比。
const (
	anchorTop    = 15.0
	anchorCenter = 50.0
	anchorBottom = 80.0
)

// Resolve 返回单个布局步的稳态几何（不含过渡）。
// pip-html 无专属分支：按声明比例退化为 split 几何。
func Resolve(step contract.LayoutStep) contract.Geometry {
	g := contract.Geometry{OverlayZ: 10, MediaZ: 10, CaptionVisible: true}

	switch step.LayoutMode {
	case contract.LayoutFullVideo:
		g.OverlayHeightPct = 0
		g.MediaHeightPct = 100
		g.OverlayZ = 0
	case contract.LayoutFullHTML:
		// 媒体面板保持全高并垫在动画层之下：即使被完全遮挡，
		// 音视频仍作为底景继续播放。
		g.OverlayHeightPct = 100
		g.MediaHeightPct = 100
		g.MediaZ = 0
	default: // split 与 pip-html
		r := step.Ratio()
		g.OverlayHeightPct = r * 100
		g.MediaHeightPct = (1 - r) * 100
	}

	g.CaptionAnchorPct, g.CaptionVisible = anchor(step)
	return g
}

// anchor 计算字幕锚点。hidden 在任何模式下优先；split 模式钉在分界线上，
// 其余模式按声明位置取固定纵向百分比（空值按 bottom）。
func anchor(step contract.LayoutStep) (pct float64, visible bool) {
	if step.CaptionPosition == contract.CaptionHidden {
		return anchorCenter, false
	}
	if step.LayoutMode == contract.LayoutSplit {
		return step.Ratio() * 100, true
	}
	switch step.CaptionPosition {
	case contract.CaptionTop:
		return anchorTop, true
	case contract.CaptionCenter:
		return anchorCenter, true
	default:
		return anchorBottom, true
	}
}

// ResolveAt 返回时刻 t 的几何：含区间回退与边界过渡插值。
// 回退规则：miss（首步前或中部间隙）→ DefaultStep；越过末步 end → 粘滞末步。
// 过渡规则：t 距当前步 start 不足 TransitionSeconds 时，数值字段自前一状态
// 向目标 ease-out 插值；可见性取当前步，不插值。
// 纯函数：相同 (t, steps) 必得相同输出。
func ResolveAt(t float64, steps []contract.LayoutStep) contract.Geometry {
	cur, ok := timeline.FindActive(t, steps)
	if !ok {
		cur = contract.DefaultStep()
	}
	target := Resolve(cur)

	// 仅在常规命中（t 落于 [start,end)）的步入口处过渡；
	// 粘滞保持与默认回退均为稳态。
	if !ok || t < cur.StartTime || t >= cur.EndTime {
		return target
	}
	dt := t - cur.StartTime
	if dt >= TransitionSeconds {
		return target
	}

	prev, pok := timeline.FindActive(math.Nextafter(cur.StartTime, math.Inf(-1)), steps)
	if !pok {
		prev = contract.DefaultStep()
	}
	from := Resolve(prev)
	k := easeOut(dt / TransitionSeconds)

	g := target
	g.OverlayHeightPct = lerp(from.OverlayHeightPct, target.OverlayHeightPct, k)
	g.MediaHeightPct = lerp(from.MediaHeightPct, target.MediaHeightPct, k)
	if from.CaptionVisible && target.CaptionVisible {
		g.CaptionAnchorPct = lerp(from.CaptionAnchorPct, target.CaptionAnchorPct, k)
	}
	return g
}

// easeOut: 三次 ease-out（快出缓停）。
func easeOut(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	inv := 1 - x
	return 1 - inv*inv*inv
}

func lerp(a, b, k float64) float64 { return a + (b-a)*k }
