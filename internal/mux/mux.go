// Package mux 负责导出第四阶段：将无声采集视频与音源合轨。
// 视频流直接拷贝不转码，仅音频转码；合轨失败降级返回原始采集。
package mux

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// AudioSource 为音源选择结果。
type AudioSource struct {
	// Path: 音源文件路径；None 为 true 时无意义。
	Path string
	// None: 无可用音源，输出保持无声（仍是成功结果）。
	None bool
	// FromMusic: 来自上传的背景音乐而非原视频音轨。
	FromMusic bool
}

// Toolset: 外部转码工具路径。
type Toolset struct {
	FFmpeg  string
	FFprobe string
}

// Muxer 封装 ffmpeg/ffprobe 调用。
type Muxer struct {
	tools Toolset
	log   *zap.Logger
}

// New 创建 Muxer。log 为 nil 时使用 zap.NewNop()。
func New(tools Toolset, log *zap.Logger) *Muxer {
	if log == nil {
		log = zap.NewNop()
	}
	if tools.FFmpeg == "" {
		tools.FFmpeg = "ffmpeg"
	}
	if tools.FFprobe == "" {
		tools.FFprobe = "ffprobe"
	}
	return &Muxer{tools: tools, log: log}
}

// ProbeDuration 用 ffprobe 读取媒体精确时长（秒）。
func (m *Muxer) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, m.tools.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse duration %q: %w", path, strings.TrimSpace(string(out)), err)
	}
	return d, nil
}

// HasAudioStream 用 ffprobe 判断文件是否含音频流。
func (m *Muxer) HasAudioStream(ctx context.Context, path string) bool {
	cmd := exec.CommandContext(ctx, m.tools.FFprobe,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	out, err := cmd.Output()
	if err != nil {
		m.log.Debug("mux: audio probe failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return strings.Contains(string(out), "audio")
}

// SelectAudioSource 按严格优先级挑选音源：
// 背景音乐 > 原视频自带音轨（经 ffprobe 验证） > 无（保持无声）。
func (m *Muxer) SelectAudioSource(ctx context.Context, musicPath, videoAudioPath string) AudioSource {
	if musicPath != "" {
		return AudioSource{Path: musicPath, FromMusic: true}
	}
	if videoAudioPath != "" && m.HasAudioStream(ctx, videoAudioPath) {
		return AudioSource{Path: videoAudioPath}
	}
	return AudioSource{None: true}
}

// Args 组装合轨参数：视频流拷贝、音频转 AAC、按最短流截断。
// 导出供测试校验线参数。
func Args(capturePath, audioPath, outPath string) []string {
	return []string{
		"-y",
		"-i", capturePath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		outPath,
	}
}

// Mux 将采集视频与已选音源合轨到 outPath。
// 返回最终可用的产物路径：
//   - 无音源：直接返回原始采集（无声成功）；
//   - 合轨失败：记日志并降级返回原始采集，err 为 nil。
func (m *Muxer) Mux(ctx context.Context, capturePath string, src AudioSource, outPath string) string {
	if src.None {
		m.log.Info("mux: no audio source, keeping silent capture", zap.String("capture", capturePath))
		return capturePath
	}
	cmd := exec.CommandContext(ctx, m.tools.FFmpeg, Args(capturePath, src.Path, outPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		m.log.Warn("mux: ffmpeg failed, returning raw capture",
			zap.String("capture", capturePath),
			zap.String("audio", src.Path),
			zap.ByteString("output", tail(out, 512)),
			zap.Error(err))
		return capturePath
	}
	m.log.Info("mux: done",
		zap.String("out", outPath),
		zap.Bool("from_music", src.FromMusic))
	return outPath
}

func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
