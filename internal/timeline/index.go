// Package timeline 提供区间索引：在按起始时间排序的时间段序列上
// 查询某一时刻的活动区间。
package timeline

// Interval: 可被索引的时间段（半开区间 [start, end)）。
type Interval interface {
	Bounds() (start, end float64)
}

// FindActive 在按 start 升序的 xs 中查询时刻 t 的活动区间。
// 规则：
//   - 命中判定为 start <= t < end；两个区间同时命中（畸形/重叠输入）时，
//     序列中靠前者胜出，因此自头部线性扫描而非二分；
//   - 无命中且 t 已越过末区间的 end：返回末区间（粘滞保持最终状态，
//     避免内容结束后的视觉空白）；
//   - 其余无命中情形（t 在首区间之前，或落在中部间隙）：返回 miss，
//     回退语义由调用方定义（布局取默认步；字幕无活动条目）。
func FindActive[T Interval](t float64, xs []T) (active T, ok bool) {
	for _, x := range xs {
		s, e := x.Bounds()
		if t >= s && t < e {
			return x, true
		}
	}
	if n := len(xs); n > 0 {
		if _, e := xs[n-1].Bounds(); t >= e {
			return xs[n-1], true
		}
	}
	var zero T
	return zero, false
}
