package contract

// Cue: 字幕条目（外部解析协作方产出，核心只读消费）。
// 约束：
// - 按 StartTime 升序；
// - 允许间隙（静默段），不应有语义性重叠；
// - 解析后不可变；装载新源文件时整体丢弃。
type Cue struct {
	ID        int     `json:"id"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

// Bounds 返回 [start, end) 区间边界（供区间索引使用）。
func (c Cue) Bounds() (start, end float64) { return c.StartTime, c.EndTime }

// LayoutMode: 布局模式枚举（与时间线 JSON 的 layoutMode 字段一致）。
type LayoutMode string

const (
	LayoutSplit     LayoutMode = "split"
	LayoutFullVideo LayoutMode = "full-video"
	LayoutFullHTML  LayoutMode = "full-html"
	LayoutPipHTML   LayoutMode = "pip-html"
)

// CaptionPosition: 字幕锚点枚举；空值按 bottom 处理（全屏模式下的默认锚点）。
type CaptionPosition string

const (
	CaptionTop    CaptionPosition = "top"
	CaptionBottom CaptionPosition = "bottom"
	CaptionCenter CaptionPosition = "center"
	CaptionHidden CaptionPosition = "hidden"
)

// LayoutStep: 布局时间线的单步。
// 约束：按 StartTime 升序；通常连续但允许间隙（解析器不填补，消费侧定义回退）。
// SplitRatio 缺省时按 0.5 解释（见 Ratio）。
type LayoutStep struct {
	StartTime       float64         `json:"startTime"`
	EndTime         float64         `json:"endTime"`
	LayoutMode      LayoutMode      `json:"layoutMode"`
	SplitRatio      *float64        `json:"splitRatio,omitempty"`
	CaptionPosition CaptionPosition `json:"captionPosition,omitempty"`
	Note            string          `json:"note,omitempty"`
}

// Bounds 返回 [start, end) 区间边界。
func (s LayoutStep) Bounds() (start, end float64) { return s.StartTime, s.EndTime }

// Ratio 返回归一化的分屏比例；未声明时为 0.5。
func (s LayoutStep) Ratio() float64 {
	if s.SplitRatio == nil {
		return 0.5
	}
	return *s.SplitRatio
}

// DefaultStep 返回布局间隙/起始前的硬编码回退步（split 0.5，字幕居中）。
func DefaultStep() LayoutStep {
	return LayoutStep{LayoutMode: LayoutSplit, CaptionPosition: CaptionCenter}
}

// WordState: 窗口内单词的时序状态。
type WordState int

const (
	WordSpoken WordState = iota
	WordLive
	WordPending
)

// Word: 当前窗口内的一个词及其状态。
type Word struct {
	Text  string
	State WordState
}

// CaptionView: 字幕分片器在某一时刻的输出。
// LiveIndex 为全局词下标（floor(progress*wordCount)，不截断）；
// 当它越过窗口右界时窗口内全部为 spoken、无 live 词。
type CaptionView struct {
	CueID       int
	Words       []Word
	WindowIndex int
	LiveIndex   int
}

// Geometry: 布局解析器产出的具体几何。
// 高度为 0..100 的百分比；z 序数值大者在上。
type Geometry struct {
	OverlayHeightPct float64
	MediaHeightPct   float64
	OverlayZ         int
	MediaZ           int
	// CaptionAnchorPct: 字幕锚点纵向百分比（split 模式钉在分界线上）。
	CaptionAnchorPct float64
	// CaptionVisible: hidden 锚点时为 false，完全抑制字幕渲染。
	CaptionVisible bool
}

// RenderState: 单次时钟 tick 的派生渲染态。
// 不持久、无身份；必须是 (t, cues, steps) 的确定性纯函数结果。
type RenderState struct {
	Time    float64
	Layout  Geometry
	Caption CaptionView
	// HasCue: 当前时刻是否存在活动字幕（false 时 Caption 为零值）。
	HasCue bool
}
