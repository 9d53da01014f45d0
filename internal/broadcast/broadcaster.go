package broadcast

import (
	"sync"

	"go.uber.org/zap"
)

// Sink 为单个广播接收端。实现方自行保证 Send 的并发安全；
// Send 返回错误视为该端已不可用，由调用方负责摘除。
type Sink interface {
	// Send 投递一条消息。不得阻塞广播主路径过久。
	Send(m Message) error
}

// Broadcaster 将主控时钟状态扇出到全部已挂载的接收端。
// 投递是尽力而为：单端失败只记日志并摘除，不影响其余端，
// 也绝不反向影响主控播放。
type Broadcaster struct {
	mu    sync.Mutex
	sinks map[string]Sink

	// 最近一次广播的完整状态，供后到端回放。
	lastTime float64
	playing  bool

	log *zap.Logger
}

// New 创建空扇出器。log 为 nil 时使用 zap.NewNop()。
func New(log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{sinks: make(map[string]Sink), log: log}
}

// Attach 挂载接收端并立即回放当前完整状态：
// 先 timeupdate(最近时刻)，再按播放态补 play 或 pause。
// 后到端因此无需等待下一个自然 tick 即可对齐。
func (b *Broadcaster) Attach(id string, s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks[id] = s
	replay := []Message{Timeupdate(b.lastTime)}
	if b.playing {
		replay = append(replay, Play())
	} else {
		replay = append(replay, Pause())
	}
	for _, m := range replay {
		if err := s.Send(m); err != nil {
			b.log.Warn("broadcast: replay failed, dropping sink",
				zap.String("sink", id), zap.Error(err))
			delete(b.sinks, id)
			return
		}
	}
	b.log.Debug("broadcast: sink attached", zap.String("sink", id), zap.Int("total", len(b.sinks)))
}

// Detach 摘除接收端。未挂载的 id 为空操作。
func (b *Broadcaster) Detach(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sinks, id)
}

// Timeupdate 广播当前时刻并更新回放状态。
func (b *Broadcaster) Timeupdate(t float64) {
	b.mu.Lock()
	b.lastTime = t
	b.fanout(Timeupdate(t))
	b.mu.Unlock()
}

// Play 广播播放并更新回放状态。
func (b *Broadcaster) Play() {
	b.mu.Lock()
	b.playing = true
	b.fanout(Play())
	b.mu.Unlock()
}

// Pause 广播暂停并更新回放状态。
func (b *Broadcaster) Pause() {
	b.mu.Lock()
	b.playing = false
	b.fanout(Pause())
	b.mu.Unlock()
}

// State 返回回放状态快照（测试与诊断用）。
func (b *Broadcaster) State() (lastTime float64, playing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastTime, b.playing
}

// fanout 向全部端投递；失败端就地摘除。调用方持锁。
func (b *Broadcaster) fanout(m Message) {
	for id, s := range b.sinks {
		if err := s.Send(m); err != nil {
			b.log.Warn("broadcast: send failed, dropping sink",
				zap.String("sink", id), zap.String("type", m.Type), zap.Error(err))
			delete(b.sinks, id)
		}
	}
}
