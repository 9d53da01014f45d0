package layout

import (
	"errors"
	"testing"

	"reelsync/pkg/contract"
)

func ratio(v float64) *float64 { return &v }

// TestResolveSplit split 0.6 → 动画 60%、媒体 40%
func TestResolveSplit(t *testing.T) {
	g := Resolve(contract.LayoutStep{LayoutMode: contract.LayoutSplit, SplitRatio: ratio(0.6)})
	if g.OverlayHeightPct != 60 || g.MediaHeightPct != 40 {
		t.Fatalf("unexpected heights %v/%v", g.OverlayHeightPct, g.MediaHeightPct)
	}
	if g.CaptionAnchorPct != 60 || !g.CaptionVisible {
		t.Fatalf("caption should pin to split boundary, got %v", g.CaptionAnchorPct)
	}
}

// TestResolveFullHTML 媒体面板保持全高且垫底，不是隐藏
func TestResolveFullHTML(t *testing.T) {
	g := Resolve(contract.LayoutStep{LayoutMode: contract.LayoutFullHTML})
	if g.MediaHeightPct != 100 || g.OverlayHeightPct != 100 {
		t.Fatalf("unexpected heights %v/%v", g.OverlayHeightPct, g.MediaHeightPct)
	}
	if g.MediaZ >= g.OverlayZ {
		t.Fatalf("media must render beneath overlay: mediaZ=%d overlayZ=%d", g.MediaZ, g.OverlayZ)
	}
}

// TestResolveFullVideo 动画面板高度 0 且 z 序在媒体之下
func TestResolveFullVideo(t *testing.T) {
	g := Resolve(contract.LayoutStep{LayoutMode: contract.LayoutFullVideo})
	if g.OverlayHeightPct != 0 || g.MediaHeightPct != 100 {
		t.Fatalf("unexpected heights %v/%v", g.OverlayHeightPct, g.MediaHeightPct)
	}
	if g.OverlayZ >= g.MediaZ {
		t.Fatalf("overlay must sit beneath media")
	}
}

// TestResolvePipFallsBackToSplit pip-html 退化为声明比例的 split 几何
func TestResolvePipFallsBackToSplit(t *testing.T) {
	g := Resolve(contract.LayoutStep{LayoutMode: contract.LayoutPipHTML, SplitRatio: ratio(0.3)})
	if g.OverlayHeightPct != 30 || g.MediaHeightPct != 70 {
		t.Fatalf("unexpected heights %v/%v", g.OverlayHeightPct, g.MediaHeightPct)
	}
}

// TestAnchorPositions 全屏模式下锚点固定分数；hidden 任何模式优先
func TestAnchorPositions(t *testing.T) {
	cases := []struct {
		pos  contract.CaptionPosition
		want float64
	}{
		{contract.CaptionTop, 15},
		{contract.CaptionCenter, 50},
		{contract.CaptionBottom, 80},
		{"", 80},
	}
	for _, c := range cases {
		g := Resolve(contract.LayoutStep{LayoutMode: contract.LayoutFullVideo, CaptionPosition: c.pos})
		if g.CaptionAnchorPct != c.want || !g.CaptionVisible {
			t.Fatalf("pos %q: got %v visible=%v", c.pos, g.CaptionAnchorPct, g.CaptionVisible)
		}
	}
	g := Resolve(contract.LayoutStep{LayoutMode: contract.LayoutSplit, CaptionPosition: contract.CaptionHidden})
	if g.CaptionVisible {
		t.Fatalf("hidden must suppress caption in split mode too")
	}
}

// TestResolveAtFallbacks 间隙→默认步；越过末步→粘滞
func TestResolveAtFallbacks(t *testing.T) {
	steps := []contract.LayoutStep{
		{StartTime: 2, EndTime: 4, LayoutMode: contract.LayoutFullVideo},
	}
	g := ResolveAt(0.0, steps)
	if g.OverlayHeightPct != 50 || g.MediaHeightPct != 50 || g.CaptionAnchorPct != 50 {
		t.Fatalf("before-first must resolve default split: %+v", g)
	}
	g = ResolveAt(100.0, steps)
	if g.MediaHeightPct != 100 || g.OverlayHeightPct != 0 {
		t.Fatalf("past-end must hold last step: %+v", g)
	}
}

// TestResolveAtTransition 边界后插值介于两步之间，过渡完成后达到稳态
func TestResolveAtTransition(t *testing.T) {
	steps := []contract.LayoutStep{
		{StartTime: 0, EndTime: 5, LayoutMode: contract.LayoutSplit, SplitRatio: ratio(0.5)},
		{StartTime: 5, EndTime: 10, LayoutMode: contract.LayoutSplit, SplitRatio: ratio(0.8)},
	}
	mid := ResolveAt(5.25, steps)
	if mid.OverlayHeightPct <= 50 || mid.OverlayHeightPct >= 80 {
		t.Fatalf("mid-transition height must interpolate, got %v", mid.OverlayHeightPct)
	}
	done := ResolveAt(5.0+TransitionSeconds, steps)
	if done.OverlayHeightPct != 80 {
		t.Fatalf("transition must settle at target, got %v", done.OverlayHeightPct)
	}
	// ease-out：前半程进度应超过线性
	if k := (mid.OverlayHeightPct - 50) / 30; k <= 0.5 {
		t.Fatalf("ease-out should front-load progress, k=%v", k)
	}
}

// TestResolveAtDeterministic 相同输入两次调用输出一致
func TestResolveAtDeterministic(t *testing.T) {
	steps := []contract.LayoutStep{
		{StartTime: 0, EndTime: 3, LayoutMode: contract.LayoutSplit, SplitRatio: ratio(0.4)},
		{StartTime: 3, EndTime: 6, LayoutMode: contract.LayoutFullHTML},
	}
	for _, tt := range []float64{0, 1.5, 3.1, 3.4, 6, 99} {
		if a, b := ResolveAt(tt, steps), ResolveAt(tt, steps); a != b {
			t.Fatalf("t=%v: non-deterministic resolve %+v vs %+v", tt, a, b)
		}
	}
}

// TestParseTimelineStrict 未知字段整体拒绝
func TestParseTimelineStrict(t *testing.T) {
	_, err := ParseTimeline([]byte(`[{"startTime":0,"endTime":5,"layoutMode":"split","bogus":1}]`))
	if !errors.Is(err, contract.ErrTimelineInvalid) {
		t.Fatalf("expect timeline invalid, got %v", err)
	}
}

// TestParseTimelineValid 合法文档与缺省比例
func TestParseTimelineValid(t *testing.T) {
	steps, err := ParseTimeline([]byte(`[{"startTime":0,"endTime":5,"layoutMode":"split"},{"startTime":5,"endTime":9,"layoutMode":"full-html","captionPosition":"top","note":"intro"}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(steps) != 2 || steps[0].Ratio() != 0.5 {
		t.Fatalf("unexpected steps %+v", steps)
	}
}

// TestValidateTimelineErrors 各不变量违例
func TestValidateTimelineErrors(t *testing.T) {
	bad := [][]contract.LayoutStep{
		{{StartTime: 0, EndTime: 1, LayoutMode: "diagonal"}},
		{{StartTime: 0, EndTime: 1, LayoutMode: contract.LayoutSplit, SplitRatio: ratio(1.5)}},
		{{StartTime: 2, EndTime: 2, LayoutMode: contract.LayoutSplit}},
		{{StartTime: 5, EndTime: 6, LayoutMode: contract.LayoutSplit}, {StartTime: 1, EndTime: 2, LayoutMode: contract.LayoutSplit}},
		{{StartTime: 0, EndTime: 1, LayoutMode: contract.LayoutSplit, CaptionPosition: "middle"}},
	}
	for i, steps := range bad {
		if err := ValidateTimeline(steps); !errors.Is(err, contract.ErrTimelineInvalid) {
			t.Fatalf("case %d: expect invalid, got %v", i, err)
		}
	}
}
