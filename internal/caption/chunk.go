// Package caption 将活动字幕条目切为定长词窗，并按线性时间进度
// 计算当前朗读词。窗口边界随每个 tick 重算（进度在条目内连续推进）。
package caption

import (
	"strings"

	"reelsync/pkg/contract"
)

// DefaultWindowSize: 单窗显示词数。避免长字幕挤成一行不可读。
const DefaultWindowSize = 5

// Chunk 计算时刻 t 下 cue 的可见词窗。
// 算法：
//  1. 按空白切词；
//  2. progress = clamp((t-start)/(end-start), 0, 1)；
//  3. liveIndex = floor(progress * wordCount)，不截断——progress 恰为 1 时
//     liveIndex == wordCount，末窗全部 spoken、无 live 词；
//  4. 窗序 = liveIndex / windowSize，仅渲染该窗。
func Chunk(cue contract.Cue, t float64, windowSize int) contract.CaptionView {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	words := strings.Fields(cue.Text)
	view := contract.CaptionView{CueID: cue.ID}
	if len(words) == 0 {
		return view
	}

	span := cue.EndTime - cue.StartTime
	progress := 0.0
	if span > 0 {
		progress = (t - cue.StartTime) / span
	}
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	live := int(progress * float64(len(words)))

	win := live / windowSize
	lo := win * windowSize
	hi := lo + windowSize
	if lo > len(words) {
		lo = len(words)
	}
	if hi > len(words) {
		hi = len(words)
	}

	view.WindowIndex = win
	view.LiveIndex = live
	view.Words = make([]contract.Word, 0, hi-lo)
	for i := lo; i < hi; i++ {
		w := contract.Word{Text: words[i]}
		switch {
		case i < live:
			w.State = contract.WordSpoken
		case i == live:
			w.State = contract.WordLive
		default:
			w.State = contract.WordPending
		}
		view.Words = append(view.Words, w)
	}
	return view
}
