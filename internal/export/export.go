// Package export 编排导出的客户端阶段：提取独立音轨（可降级）、
// 上传素材、发起服务端渲染请求。各阶段独立失败，错误带阶段标注。
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"reelsync/pkg/contract"
)

// UploadResult 为上传响应：公网可取 URL 与服务端本地路径成对返回。
// 采集阶段的浏览器用前者拉流，合轨阶段的转码器用后者读盘。
type UploadResult struct {
	VideoPath      string `json:"videoPath"`
	AudioPath      string `json:"audioPath"`
	LocalVideoPath string `json:"localVideoPath"`
	LocalAudioPath string `json:"localAudioPath"`
}

// RenderRequest 为渲染请求体。
type RenderRequest struct {
	VideoURL       string  `json:"videoUrl"`
	SRTData        string  `json:"srtData"`
	HTMLContent    string  `json:"htmlContent"`
	LayoutConfig   string  `json:"layoutConfig"`
	BgMusicURL     string  `json:"bgMusicUrl"`
	Duration       float64 `json:"duration"`
	LocalAudioPath string  `json:"localAudioPath"`
	LocalVideoPath string  `json:"localVideoPath"`
}

// RenderResult 为渲染成功响应。
type RenderResult struct {
	DownloadURL string `json:"downloadUrl"`
}

// Job 为一次导出的输入。
type Job struct {
	// VideoPath: 源视频本地路径。
	VideoPath string
	// MusicPath: 背景音乐本地路径（可空；优先于源视频音轨）。
	MusicPath string
	// SRTData / HTMLContent / LayoutConfig: 合成载荷原文。
	SRTData      string
	HTMLContent  string
	LayoutConfig string
	// Duration: 成片时长（秒）。
	Duration float64
}

// Client 驱动客户端导出阶段。
type Client struct {
	baseURL string
	http    *http.Client
	ffmpeg  string
	log     *zap.Logger
}

// NewClient 创建导出客户端。log 为 nil 时使用 zap.NewNop()。
func NewClient(baseURL, ffmpeg string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Minute},
		ffmpeg:  ffmpeg,
		log:     log,
	}
}

// ExtractAudio 从源视频解出无压缩音轨（WAV）。
// 失败不是硬错误：返回空路径，后续导出继续走无声/备选音源。
func (c *Client) ExtractAudio(ctx context.Context, videoPath string) string {
	out := filepath.Join(os.TempDir(),
		fmt.Sprintf("extract_%d.wav", time.Now().UnixNano()))
	cmd := exec.CommandContext(ctx, c.ffmpeg,
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		out,
	)
	if err := cmd.Run(); err != nil {
		c.log.Warn("export: audio extraction failed, continuing without",
			zap.String("video", videoPath), zap.Error(err))
		return ""
	}
	return out
}

// Upload 以 multipart 上传视频与可选音频，返回双路径对。
func (c *Client) Upload(ctx context.Context, videoPath, audioPath string) (UploadResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := attachFile(w, "video", videoPath); err != nil {
		return UploadResult{}, &contract.PhaseError{Phase: contract.PhaseUpload, Err: err}
	}
	if audioPath != "" {
		if err := attachFile(w, "audio", audioPath); err != nil {
			return UploadResult{}, &contract.PhaseError{Phase: contract.PhaseUpload, Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return UploadResult{}, &contract.PhaseError{Phase: contract.PhaseUpload, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return UploadResult{}, &contract.PhaseError{Phase: contract.PhaseUpload, Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return UploadResult{}, &contract.PhaseError{Phase: contract.PhaseUpload, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return UploadResult{}, &contract.PhaseError{
			Phase: contract.PhaseUpload,
			Err:   fmt.Errorf("upload: status %d: %s", resp.StatusCode, b),
		}
	}
	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UploadResult{}, &contract.PhaseError{Phase: contract.PhaseUpload, Err: err}
	}
	return out, nil
}

// Render 发起服务端渲染，失败按采集阶段标注。
func (c *Client) Render(ctx context.Context, r RenderRequest) (RenderResult, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return RenderResult{}, &contract.PhaseError{Phase: contract.PhaseCapture, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/render", bytes.NewReader(b))
	if err != nil {
		return RenderResult{}, &contract.PhaseError{Phase: contract.PhaseCapture, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return RenderResult{}, &contract.PhaseError{Phase: contract.PhaseCapture, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var fail struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&fail)
		if fail.Error == "" {
			fail.Error = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return RenderResult{}, &contract.PhaseError{
			Phase: contract.PhaseCapture,
			Err:   fmt.Errorf("render: %s", fail.Error),
		}
	}
	var out RenderResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return RenderResult{}, &contract.PhaseError{Phase: contract.PhaseCapture, Err: err}
	}
	return out, nil
}

// Export 依序执行三个客户端阶段。
// 音源顺位在此定型：背景音乐直接上传；否则上传提取出的音轨；
// 提取失败则两者皆空，交由服务端回落到源视频自带音轨或无声。
func (c *Client) Export(ctx context.Context, job Job) (RenderResult, error) {
	audioPath := job.MusicPath
	usingMusic := job.MusicPath != ""
	if !usingMusic {
		audioPath = c.ExtractAudio(ctx, job.VideoPath)
	}

	up, err := c.Upload(ctx, job.VideoPath, audioPath)
	if err != nil {
		return RenderResult{}, err
	}

	req := RenderRequest{
		VideoURL:       up.VideoPath,
		SRTData:        job.SRTData,
		HTMLContent:    job.HTMLContent,
		LayoutConfig:   job.LayoutConfig,
		Duration:       job.Duration,
		LocalAudioPath: up.LocalAudioPath,
		LocalVideoPath: up.LocalVideoPath,
	}
	if usingMusic {
		req.BgMusicURL = up.AudioPath
	}
	return c.Render(ctx, req)
}

func attachFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("attach %s: %w", field, err)
	}
	defer f.Close()
	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
