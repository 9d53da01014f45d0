// Package mediasync 以主媒体元素为唯一时钟源，驱动副音轨对齐、
// 渲染态派生与时钟广播。两个媒体元素只归本包所有；其余组件
// 一律经广播通道订阅，不得直接改写播放位置。
package mediasync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"reelsync/internal/broadcast"
	"reelsync/internal/compose"
	"reelsync/pkg/contract"
)

// State 为主元素状态机取值。
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateEnded
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "idle"
	}
}

// DefaultDriftTolerance: 副音轨与主时钟的最大容忍偏差（秒）。
// 超出即硬对齐；两元素的内部时钟互不协调，周期纠偏为上界保证。
const DefaultDriftTolerance = 0.2

// DefaultTickInterval: 对齐循环周期。近似逐帧（30fps）。
const DefaultTickInterval = 33 * time.Millisecond

// Options: 同步器可选配置。零值取各缺省。
type Options struct {
	// DriftTolerance: 偏差阈值（秒）；<=0 取 DefaultDriftTolerance。
	DriftTolerance float64
	// TickInterval: 循环周期；<=0 取 DefaultTickInterval。
	TickInterval time.Duration
	// CaptionWindowSize: 透传给派生的词窗大小。
	CaptionWindowSize int
}

// Synchronizer 单写者：所有方法须在同一 goroutine 调用
// （Run 自身即该写者）。广播端可多读。
type Synchronizer struct {
	primary   contract.MediaElement
	secondary contract.MediaElement
	bc        *broadcast.Broadcaster
	log       *zap.Logger

	state State
	cues  []contract.Cue
	steps []contract.LayoutStep

	drift  float64
	tick   time.Duration
	window int

	onTick func(contract.RenderState)
}

// New 创建同步器。secondary 可为 nil（无背景音轨）；
// log 为 nil 时使用 zap.NewNop()。
func New(primary, secondary contract.MediaElement, bc *broadcast.Broadcaster, log *zap.Logger, opts Options) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	d := opts.DriftTolerance
	if d <= 0 {
		d = DefaultDriftTolerance
	}
	tk := opts.TickInterval
	if tk <= 0 {
		tk = DefaultTickInterval
	}
	return &Synchronizer{
		primary:   primary,
		secondary: secondary,
		bc:        bc,
		log:       log,
		drift:     d,
		tick:      tk,
		window:    opts.CaptionWindowSize,
	}
}

// SetTimelines 整体替换字幕与布局时间线。派生无缓存，替换即生效。
func (s *Synchronizer) SetTimelines(cues []contract.Cue, steps []contract.LayoutStep) {
	s.cues = cues
	s.steps = steps
}

// OnTick 注册每次对齐后的渲染态回调（可为 nil）。
func (s *Synchronizer) OnTick(fn func(contract.RenderState)) {
	s.onTick = fn
}

// State 返回当前状态机取值。
func (s *Synchronizer) State() State { return s.state }

// Play 显式播放：广播 play 并启动副音轨。
// 副音轨的自动播放拒绝只记日志，绝不中断主播放。
func (s *Synchronizer) Play() error {
	if err := s.primary.Play(); err != nil {
		return err
	}
	s.state = StatePlaying
	s.bc.Play()
	if s.secondary != nil {
		if err := s.secondary.Play(); err != nil {
			s.log.Warn("mediasync: secondary autoplay rejected", zap.Error(err))
		}
	}
	return nil
}

// Pause 显式暂停：广播 pause 并暂停副音轨。
func (s *Synchronizer) Pause() {
	s.primary.Pause()
	if s.secondary != nil {
		s.secondary.Pause()
	}
	s.state = StatePaused
	s.bc.Pause()
}

// Seek 暂停态拖动：主副同步定位，立即重算并广播 timeupdate。
func (s *Synchronizer) Seek(t float64) contract.RenderState {
	s.primary.Seek(t)
	if s.secondary != nil {
		s.secondary.Seek(t)
	}
	s.bc.Timeupdate(t)
	st := compose.Derive(t, s.cues, s.steps, compose.Options{CaptionWindowSize: s.window})
	if s.onTick != nil {
		s.onTick(st)
	}
	return st
}

// Tick 执行一轮对齐：读主时钟、广播、纠偏副音轨、派生渲染态。
// 自然结束转入 ended：副音轨停止并归零，广播 pause。
func (s *Synchronizer) Tick() contract.RenderState {
	t := s.primary.CurrentTime()

	if s.primary.Ended() && s.state != StateEnded {
		s.state = StateEnded
		if s.secondary != nil {
			s.secondary.Pause()
			s.secondary.Seek(0)
		}
		s.bc.Pause()
	} else if s.state == StatePlaying {
		s.bc.Timeupdate(t)
		s.reconcileSecondary(t)
	}

	st := compose.Derive(t, s.cues, s.steps, compose.Options{CaptionWindowSize: s.window})
	if s.onTick != nil {
		s.onTick(st)
	}
	return st
}

// reconcileSecondary 纠偏副音轨：偏差超阈值硬对齐；
// 主在播且已缓冲足够、副却意外暂停时强制续播。
func (s *Synchronizer) reconcileSecondary(t float64) {
	if s.secondary == nil {
		return
	}
	d := s.secondary.CurrentTime() - t
	if d < 0 {
		d = -d
	}
	if d > s.drift {
		s.log.Debug("mediasync: drift corrected", zap.Float64("drift", d), zap.Float64("time", t))
		s.secondary.Seek(t)
	}
	if s.secondary.Paused() && s.primary.ReadyState() >= contract.ReadyFutureData {
		if err := s.secondary.Play(); err != nil {
			s.log.Warn("mediasync: secondary resume rejected", zap.Error(err))
		}
	}
}

// Run 以固定周期运行对齐循环直到 ctx 取消。
// 每轮派生只依赖最新观测到的时钟值，不排队陈旧 tick。
func (s *Synchronizer) Run(ctx context.Context) error {
	tk := time.NewTicker(s.tick)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tk.C:
			s.Tick()
		}
	}
}
