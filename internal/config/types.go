package config

// Config: 运行期只读配置（一次解析，运行期不变）。
// YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// Listen: HTTP 服务监听地址（host:port）。
	Listen string `yaml:"listen"`
	// PublicBaseURL: 对外可达的基础 URL，用于拼接 uploads/output 路径。
	// 采集阶段的浏览器按此 URL 跨源拉取媒体。
	PublicBaseURL string `yaml:"public_base_url"`
	// DataDir: uploads/ 与 output/ 的落盘根目录。
	DataDir string `yaml:"data_dir"`

	Tools    Tools    `yaml:"tools"`
	Capture  Capture  `yaml:"capture"`
	Playback Playback `yaml:"playback"`
	Logging  Logging  `yaml:"logging"`
}

// Tools: 外部工具可执行路径。
type Tools struct {
	Chrome  string `yaml:"chrome"`
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
}

// Capture: 无头采集参数。
type Capture struct {
	// ViewportWidth/Height: 固定视口（竖屏短视频比例）。
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`
	// FPS: 截帧率。
	FPS int `yaml:"fps"`
	// ReadyTimeoutSec: 等待就绪标记的上限（秒），超时该阶段失败。
	ReadyTimeoutSec int `yaml:"ready_timeout_sec"`
	// TrailingBufferSec: 已知时长之外的尾部录制余量（秒）。
	TrailingBufferSec int `yaml:"trailing_buffer_sec"`
}

// Playback: 同步与派生参数。
type Playback struct {
	// DriftToleranceSec: 副音轨允许偏差（秒），超出即硬对齐。
	DriftToleranceSec float64 `yaml:"drift_tolerance_sec"`
	// CaptionWindowSize: 字幕词窗大小。
	CaptionWindowSize int `yaml:"caption_window_size"`
}

// Logging: 仅保留日志等级可配置。
type Logging struct {
	Level string `yaml:"level"`
}
