package layout

import (
	"bytes"
	"encoding/json"
	"fmt"

	"reelsync/pkg/contract"
)

var validModes = map[contract.LayoutMode]struct{}{
	contract.LayoutSplit:     {},
	contract.LayoutFullVideo: {},
	contract.LayoutFullHTML:  {},
	contract.LayoutPipHTML:   {},
}

var validPositions = map[contract.CaptionPosition]struct{}{
	"":                     {},
	contract.CaptionTop:    {},
	contract.CaptionBottom: {},
	contract.CaptionCenter: {},
	contract.CaptionHidden: {},
}

// ParseTimeline 在编辑边界解析手工编辑/生成替换的布局时间线 JSON。
// 严格拒绝未知字段；任何错误整体拒绝，绝不部分应用（调用方保留原状态）。
func ParseTimeline(data []byte) ([]contract.LayoutStep, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var steps []contract.LayoutStep
	if err := dec.Decode(&steps); err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrTimelineInvalid, err)
	}
	if err := ValidateTimeline(steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// ValidateTimeline 校验时间线不变量：模式/锚点枚举合法、比例在 [0,1]、
// 每步 start < end 且 start >= 0、整体按 start 非降序。
func ValidateTimeline(steps []contract.LayoutStep) error {
	prev := -1.0
	for i, s := range steps {
		if _, ok := validModes[s.LayoutMode]; !ok {
			return fmt.Errorf("%w: step %d: unknown layoutMode %q", contract.ErrTimelineInvalid, i, s.LayoutMode)
		}
		if _, ok := validPositions[s.CaptionPosition]; !ok {
			return fmt.Errorf("%w: step %d: unknown captionPosition %q", contract.ErrTimelineInvalid, i, s.CaptionPosition)
		}
		if s.SplitRatio != nil && (*s.SplitRatio < 0 || *s.SplitRatio > 1) {
			return fmt.Errorf("%w: step %d: splitRatio %v out of [0,1]", contract.ErrTimelineInvalid, i, *s.SplitRatio)
		}
		if s.StartTime < 0 || s.EndTime <= s.StartTime {
			return fmt.Errorf("%w: step %d: bad bounds [%v,%v)", contract.ErrTimelineInvalid, i, s.StartTime, s.EndTime)
		}
		if s.StartTime < prev {
			return fmt.Errorf("%w: step %d: startTime %v before previous %v", contract.ErrTimelineInvalid, i, s.StartTime, prev)
		}
		prev = s.StartTime
	}
	return nil
}
