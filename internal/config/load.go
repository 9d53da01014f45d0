package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults 返回带有安全默认值的 Config 雏形。
// 视口与帧率按竖屏短视频固定比例给出。
func Defaults() Config {
	return Config{
		Listen:        ":8686",
		PublicBaseURL: "http://localhost:8686",
		DataDir:       "data",
		Tools: Tools{
			Chrome:  "chromium",
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Capture: Capture{
			ViewportWidth:     540,
			ViewportHeight:    960,
			FPS:               30,
			ReadyTimeoutSec:   90,
			TrailingBufferSec: 2,
		},
		Playback: Playback{
			DriftToleranceSec: 0.2,
			CaptionWindowSize: 5,
		},
		Logging: Logging{Level: "info"},
	}
}

// LoadYAML 从文件路径或原始 YAML 解析 Config（严格拒绝未知字段）。
func LoadYAML(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 标量为“非零即覆盖”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if strings.TrimSpace(over.Listen) != "" {
		out.Listen = strings.TrimSpace(over.Listen)
	}
	if strings.TrimSpace(over.PublicBaseURL) != "" {
		out.PublicBaseURL = strings.TrimSpace(over.PublicBaseURL)
	}
	if strings.TrimSpace(over.DataDir) != "" {
		out.DataDir = strings.TrimSpace(over.DataDir)
	}
	if over.Tools.Chrome != "" {
		out.Tools.Chrome = over.Tools.Chrome
	}
	if over.Tools.FFmpeg != "" {
		out.Tools.FFmpeg = over.Tools.FFmpeg
	}
	if over.Tools.FFprobe != "" {
		out.Tools.FFprobe = over.Tools.FFprobe
	}
	if over.Capture.ViewportWidth != 0 {
		out.Capture.ViewportWidth = over.Capture.ViewportWidth
	}
	if over.Capture.ViewportHeight != 0 {
		out.Capture.ViewportHeight = over.Capture.ViewportHeight
	}
	if over.Capture.FPS != 0 {
		out.Capture.FPS = over.Capture.FPS
	}
	if over.Capture.ReadyTimeoutSec != 0 {
		out.Capture.ReadyTimeoutSec = over.Capture.ReadyTimeoutSec
	}
	if over.Capture.TrailingBufferSec != 0 {
		out.Capture.TrailingBufferSec = over.Capture.TrailingBufferSec
	}
	if over.Playback.DriftToleranceSec != 0 {
		out.Playback.DriftToleranceSec = over.Playback.DriftToleranceSec
	}
	if over.Playback.CaptionWindowSize != 0 {
		out.Playback.CaptionWindowSize = over.Playback.CaptionWindowSize
	}
	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = strings.TrimSpace(over.Logging.Level)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 REELSYNC_；集合之外的键忽略。
func EnvOverlay(environ []string) Config {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, "REELSYNC_") {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len("REELSYNC_") {
			continue
		}
		key := strings.TrimPrefix(kv[:eq], "REELSYNC_")
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			continue
		}
		switch key {
		case "LISTEN":
			over.Listen = val
		case "PUBLIC_BASE_URL":
			over.PublicBaseURL = val
		case "DATA_DIR":
			over.DataDir = val
		case "CHROME":
			over.Tools.Chrome = val
		case "FFMPEG":
			over.Tools.FFmpeg = val
		case "FFPROBE":
			over.Tools.FFprobe = val
		case "VIEWPORT_WIDTH":
			if v, err := strconv.Atoi(val); err == nil {
				over.Capture.ViewportWidth = v
			}
		case "VIEWPORT_HEIGHT":
			if v, err := strconv.Atoi(val); err == nil {
				over.Capture.ViewportHeight = v
			}
		case "FPS":
			if v, err := strconv.Atoi(val); err == nil {
				over.Capture.FPS = v
			}
		case "READY_TIMEOUT_SEC":
			if v, err := strconv.Atoi(val); err == nil {
				over.Capture.ReadyTimeoutSec = v
			}
		case "TRAILING_BUFFER_SEC":
			if v, err := strconv.Atoi(val); err == nil {
				over.Capture.TrailingBufferSec = v
			}
		case "DRIFT_TOLERANCE_SEC":
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				over.Playback.DriftToleranceSec = v
			}
		case "CAPTION_WINDOW_SIZE":
			if v, err := strconv.Atoi(val); err == nil {
				over.Playback.CaptionWindowSize = v
			}
		case "LOG_LEVEL":
			over.Logging.Level = val
		}
	}
	return over
}

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Listen) == "" {
		return errors.New("config: listen empty")
	}
	if strings.TrimSpace(cfg.PublicBaseURL) == "" {
		return errors.New("config: public_base_url empty")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("config: data_dir empty")
	}
	if cfg.Tools.FFmpeg == "" || cfg.Tools.FFprobe == "" {
		return errors.New("config: ffmpeg/ffprobe path empty")
	}
	if cfg.Tools.Chrome == "" {
		return errors.New("config: chrome path empty")
	}
	if cfg.Capture.ViewportWidth <= 0 || cfg.Capture.ViewportHeight <= 0 {
		return fmt.Errorf("config: viewport %dx%d invalid", cfg.Capture.ViewportWidth, cfg.Capture.ViewportHeight)
	}
	if cfg.Capture.FPS <= 0 {
		return errors.New("config: fps must be > 0")
	}
	if cfg.Capture.ReadyTimeoutSec <= 0 {
		return errors.New("config: ready_timeout_sec must be > 0")
	}
	if cfg.Capture.TrailingBufferSec < 0 {
		return errors.New("config: trailing_buffer_sec must be >= 0")
	}
	if cfg.Playback.DriftToleranceSec <= 0 {
		return errors.New("config: drift_tolerance_sec must be > 0")
	}
	if cfg.Playback.CaptionWindowSize <= 0 {
		return errors.New("config: caption_window_size must be > 0")
	}
	return nil
}
