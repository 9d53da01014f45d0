// Package capture 负责导出第三阶段：无头浏览器加载渲染面、
// 等待就绪标记、屏幕采集已知时长加尾部余量，产出无声视频。
package capture

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reelsync/pkg/contract"
)

// Payload 为推入渲染面的完整合成载荷（INIT_RENDER 事件体）。
type Payload struct {
	VideoURL     string  `json:"videoUrl"`
	SRTData      string  `json:"srtData"`
	HTMLContent  string  `json:"htmlContent"`
	LayoutConfig string  `json:"layoutConfig"`
	Duration     float64 `json:"duration"`
}

// Options: 采集参数。
type Options struct {
	Chrome         string
	FFmpeg         string
	ViewportWidth  int
	ViewportHeight int
	FPS            int
	// ReadyTimeout: 等待 #ready-to-record 标记的上限。
	ReadyTimeout time.Duration
	// TrailingBuffer: 时长之外的尾部录制余量。
	TrailingBuffer time.Duration
}

// readyMarkerID 是渲染面在媒体缓冲完成后追加的 DOM 标记。
// 这是采集与渲染面之间的私有契约，两侧必须一致。
const readyMarkerID = "ready-to-record"

// Recorder 驱动一次无头采集。
type Recorder struct {
	opts Options
	log  *zap.Logger
}

// New 创建 Recorder。log 为 nil 时使用 zap.NewNop()。
func New(opts Options, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Chrome == "" {
		opts.Chrome = "chromium"
	}
	if opts.FFmpeg == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 90 * time.Second
	}
	return &Recorder{opts: opts, log: log}
}

// Capture 在隔离的无头浏览器里录制 surfaceURL 的播放过程到 outPath。
// 流程：启动浏览器 → 导航 → 推载荷 → 等就绪 → 开始截帧 → 注入 play
// → 录满 duration+余量 → 停止并清理。任何阶段失败都先释放资源再返回。
func (r *Recorder) Capture(ctx context.Context, surfaceURL string, payload Payload, outPath string) error {
	port, err := freePort()
	if err != nil {
		return fmt.Errorf("%w: %v", contract.ErrBrowserLaunch, err)
	}

	profileDir, err := os.MkdirTemp("", "reelsync-chrome-*")
	if err != nil {
		return fmt.Errorf("%w: %v", contract.ErrBrowserLaunch, err)
	}
	defer os.RemoveAll(profileDir)

	browser := exec.CommandContext(ctx, r.opts.Chrome,
		"--headless=new",
		"--disable-gpu",
		"--no-sandbox",
		"--mute-audio",
		"--hide-scrollbars",
		"--remote-debugging-port="+strconv.Itoa(port),
		"--user-data-dir="+profileDir,
		fmt.Sprintf("--window-size=%d,%d", r.opts.ViewportWidth, r.opts.ViewportHeight),
		"about:blank",
	)
	if err := browser.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %v", contract.ErrBrowserLaunch, r.opts.Chrome, err)
	}
	defer func() {
		_ = browser.Process.Kill()
		_ = browser.Wait()
	}()

	discoverCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	wsURL, err := discoverTarget(discoverCtx, port)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: debug target: %v", contract.ErrBrowserLaunch, err)
	}

	cdp, err := dialCDP(ctx, wsURL, r.log)
	if err != nil {
		return fmt.Errorf("%w: %v", contract.ErrBrowserLaunch, err)
	}
	defer cdp.Close()

	for _, method := range []string{"Page.enable", "Runtime.enable"} {
		if _, err := cdp.Call(ctx, method, nil); err != nil {
			return err
		}
	}
	if _, err := cdp.Call(ctx, "Emulation.setDeviceMetricsOverride", map[string]any{
		"width": r.opts.ViewportWidth, "height": r.opts.ViewportHeight,
		"deviceScaleFactor": 1, "mobile": false,
	}); err != nil {
		return err
	}
	if _, err := cdp.Call(ctx, "Page.navigate", map[string]any{"url": surfaceURL}); err != nil {
		return fmt.Errorf("capture: navigate: %w", err)
	}

	if err := r.pushPayload(ctx, cdp, payload); err != nil {
		return err
	}
	if err := r.awaitReady(ctx, cdp); err != nil {
		return err
	}
	return r.record(ctx, cdp, payload.Duration, outPath)
}

// pushPayload 等文档可交互后经 INIT_RENDER 事件注入合成载荷。
func (r *Recorder) pushPayload(ctx context.Context, cdp *cdpClient, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("capture: marshal payload: %w", err)
	}
	deadline := time.Now().Add(15 * time.Second)
	for {
		if ready, _ := evalBool(ctx, cdp, `document.readyState === "interactive" || document.readyState === "complete"`); ready {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("capture: surface document never loaded")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	expr := fmt.Sprintf(
		`window.dispatchEvent(new CustomEvent("INIT_RENDER", { detail: %s })); true`, body)
	if _, err := evalBool(ctx, cdp, expr); err != nil {
		return fmt.Errorf("capture: push payload: %w", err)
	}
	r.log.Info("capture: payload pushed", zap.Float64("duration", payload.Duration))
	return nil
}

// awaitReady 轮询就绪标记；超时按阶段失败处理而非继续等待。
func (r *Recorder) awaitReady(ctx context.Context, cdp *cdpClient) error {
	deadline := time.Now().Add(r.opts.ReadyTimeout)
	expr := fmt.Sprintf(`document.getElementById(%q) !== null`, readyMarkerID)
	for {
		if ok, err := evalBool(ctx, cdp, expr); err == nil && ok {
			r.log.Info("capture: surface ready")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: no ready marker within %s", contract.ErrSurfaceNotReady, r.opts.ReadyTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// record 开启截帧、注入 play 广播，录满时长加余量后收尾。
func (r *Recorder) record(ctx context.Context, cdp *cdpClient, duration float64, outPath string) error {
	ff := exec.CommandContext(ctx, r.opts.FFmpeg,
		"-y",
		"-f", "image2pipe",
		"-framerate", strconv.Itoa(r.opts.FPS),
		"-i", "-",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(r.opts.FPS),
		outPath,
	)
	stdin, err := ff.StdinPipe()
	if err != nil {
		return fmt.Errorf("capture: ffmpeg stdin: %w", err)
	}
	if err := ff.Start(); err != nil {
		return fmt.Errorf("capture: start ffmpeg: %w", err)
	}

	if _, err := cdp.Call(ctx, "Page.startScreencast", map[string]any{
		"format":        "png",
		"everyNthFrame": 1,
		"maxWidth":      r.opts.ViewportWidth,
		"maxHeight":     r.opts.ViewportHeight,
	}); err != nil {
		_ = stdin.Close()
		_ = ff.Process.Kill()
		return fmt.Errorf("capture: start screencast: %w", err)
	}

	// 与渲染面的时钟广播同词汇：play 启动其内部时间线
	if _, err := evalBool(ctx, cdp, `window.postMessage({ type: "play" }, "*"); true`); err != nil {
		r.log.Warn("capture: play broadcast failed", zap.Error(err))
	}

	recordFor := time.Duration(duration*float64(time.Second)) + r.opts.TrailingBuffer
	pumpCtx, stop := context.WithTimeout(ctx, recordFor)
	defer stop()

	g, gctx := errgroup.WithContext(pumpCtx)
	g.Go(func() error {
		frames := 0
		for {
			select {
			case <-gctx.Done():
				r.log.Info("capture: recording done", zap.Int("frames", frames))
				return nil
			case ev, ok := <-cdp.Events():
				if !ok {
					return fmt.Errorf("capture: cdp stream closed")
				}
				if ev.Method != "Page.screencastFrame" {
					continue
				}
				var frame struct {
					Data      string `json:"data"`
					SessionID int    `json:"sessionId"`
				}
				if err := json.Unmarshal(ev.Params, &frame); err != nil {
					continue
				}
				// 先应答再写帧，避免浏览器端截帧停滞
				_, _ = cdp.Call(gctx, "Page.screencastFrameAck", map[string]any{"sessionId": frame.SessionID})
				img, err := base64.StdEncoding.DecodeString(frame.Data)
				if err != nil {
					continue
				}
				if _, err := stdin.Write(img); err != nil {
					return fmt.Errorf("capture: write frame: %w", err)
				}
				frames++
			}
		}
	})
	pumpErr := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_, _ = cdp.Call(stopCtx, "Page.stopScreencast", nil)
	cancel()
	_ = stdin.Close()
	if err := ff.Wait(); err != nil && pumpErr == nil {
		return fmt.Errorf("capture: ffmpeg: %w", err)
	}
	return pumpErr
}

// evalBool 执行表达式并取布尔结果。
func evalBool(ctx context.Context, cdp *cdpClient, expr string) (bool, error) {
	res, err := cdp.Call(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expr,
		"returnByValue": true,
	})
	if err != nil {
		return false, err
	}
	var out struct {
		Result struct {
			Value bool `json:"value"`
		} `json:"result"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return false, err
	}
	return out.Result.Value, nil
}

// freePort 向内核要一个空闲 TCP 端口。
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
