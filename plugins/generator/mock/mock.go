// Package mock 提供确定性的布局/动画生成器：无网络、无模型，
// 用于测试与离线联调。相同输入永远产出相同结果。
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reelsync/pkg/contract"
)

// Options: 最小调试配置（可选）。
type Options struct {
	// SegmentSeconds: 单个布局步时长，默认 8s。
	SegmentSeconds float64 `json:"segment_seconds"`
	// SplitRatio: split 步的比例，默认 0.5。
	SplitRatio float64 `json:"split_ratio"`
}

// Generator 实现 contract.Generator。
type Generator struct {
	segment float64
	ratio   float64
}

// New 创建 mock Generator。
func New(raw json.RawMessage) (*Generator, error) {
	var o Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("mock generator: options: %w", err)
		}
	}
	if o.SegmentSeconds <= 0 {
		o.SegmentSeconds = 8
	}
	if o.SplitRatio <= 0 || o.SplitRatio > 1 {
		o.SplitRatio = 0.5
	}
	return &Generator{segment: o.SegmentSeconds, ratio: o.SplitRatio}, nil
}

// 布局步模式按固定序轮换，保证结果确定。
var modeCycle = []contract.LayoutMode{
	contract.LayoutSplit,
	contract.LayoutFullVideo,
	contract.LayoutSplit,
	contract.LayoutFullHTML,
}

// Generate 依时长均匀切步，并产出与字幕对应的静态 HTML 文档。
func (g *Generator) Generate(ctx context.Context, transcript []contract.Cue, duration float64) (contract.Generated, error) {
	if err := ctx.Err(); err != nil {
		return contract.Generated{}, err
	}
	if duration <= 0 {
		return contract.Generated{}, fmt.Errorf("%w: duration must be > 0", contract.ErrInvalidInput)
	}

	var steps []contract.LayoutStep
	ratio := g.ratio
	for start, i := 0.0, 0; start < duration; i++ {
		end := start + g.segment
		if end > duration {
			end = duration
		}
		step := contract.LayoutStep{
			StartTime:  start,
			EndTime:    end,
			LayoutMode: modeCycle[i%len(modeCycle)],
			Note:       fmt.Sprintf("segment %d", i+1),
		}
		if step.LayoutMode == contract.LayoutSplit {
			step.SplitRatio = &ratio
			step.CaptionPosition = contract.CaptionCenter
		} else {
			step.CaptionPosition = contract.CaptionBottom
		}
		steps = append(steps, step)
		start = end
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html><html><body><div class=\"scene\">")
	for _, cue := range transcript {
		sb.WriteString(fmt.Sprintf("<p data-start=\"%.3f\" data-end=\"%.3f\">%s</p>",
			cue.StartTime, cue.EndTime, cue.Text))
	}
	sb.WriteString("</div></body></html>")

	return contract.Generated{HTMLDocument: sb.String(), Steps: steps}, nil
}
