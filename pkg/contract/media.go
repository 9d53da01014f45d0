package contract

// ReadyState: 媒体元素缓冲档位（与 HTMLMediaElement.readyState 对齐）。
// 同步器只关心 >= ReadyFutureData（可连续播放）这一档。
const (
	ReadyNothing     = 0
	ReadyMetadata    = 1
	ReadyCurrentData = 2
	ReadyFutureData  = 3
	ReadyEnoughData  = 4
)

// MediaElement: 同步器独占驱动的媒体元素最小抽象。
// 约束：
// - 位置与播放态仅经由同步器变更，其他组件不得直接驱动；
// - Play 返回的错误可能是自动播放策略拒绝，调用方自行决定吞没或上抛；
// - 所有方法同步返回，不阻塞等待缓冲。
type MediaElement interface {
	CurrentTime() float64
	Seek(t float64)
	Play() error
	Pause()
	Paused() bool
	Ended() bool
	Duration() float64
	ReadyState() int
}
