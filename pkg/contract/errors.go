package contract

import (
	"errors"
	"fmt"
)

// 最小错误分类（用于上层策略判定与日志归类）。
var (
	// ErrInvalidInput: 输入非法（通用哨兵）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrTimelineInvalid: 布局时间线在编辑边界被拒绝（整体拒绝，绝不部分应用）。
	ErrTimelineInvalid = errors.New("timeline invalid")
	// ErrSurfaceNotReady: 捕获阶段在时限内未观察到渲染面就绪标记。
	ErrSurfaceNotReady = errors.New("surface not ready")
	// ErrBrowserLaunch: 无头浏览器启动失败。
	ErrBrowserLaunch = errors.New("browser launch failed")
)

// Phase: 导出流水线阶段标识。
type Phase string

const (
	PhasePrepare Phase = "prepare"
	PhaseUpload  Phase = "upload"
	PhaseCapture Phase = "capture"
	PhaseMux     Phase = "mux"
)

// PhaseError: 带阶段注解的流水线错误。
// 阶段 1–3（prepare/upload/capture）的失败是该请求的终止错误；
// mux 阶段失败由调用方降级为返回无声捕获件，不经由本类型上抛。
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string { return fmt.Sprintf("%s: %v", e.Phase, e.Err) }
func (e *PhaseError) Unwrap() error { return e.Err }
