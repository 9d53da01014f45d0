// Package server 提供导出的 HTTP 边界：素材上传、渲染编排、
// 产物静态服务与内嵌的渲染面页面。
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"reelsync/internal/capture"
	"reelsync/internal/config"
	"reelsync/internal/export"
	"reelsync/internal/mux"
	"reelsync/pkg/contract"
)

// Capturer 抽象采集阶段，测试以桩替换真实浏览器。
type Capturer interface {
	Capture(ctx context.Context, surfaceURL string, payload capture.Payload, outPath string) error
}

// Server 聚合导出服务端的全部依赖。
type Server struct {
	cfg      config.Config
	log      *zap.Logger
	muxer    *mux.Muxer
	recorder Capturer
	router   chi.Router
}

// New 组装路由。recorder 为 nil 时使用按配置构造的真实采集器。
func New(cfg config.Config, recorder Capturer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = capture.New(capture.Options{
			Chrome:         cfg.Tools.Chrome,
			FFmpeg:         cfg.Tools.FFmpeg,
			ViewportWidth:  cfg.Capture.ViewportWidth,
			ViewportHeight: cfg.Capture.ViewportHeight,
			FPS:            cfg.Capture.FPS,
			ReadyTimeout:   time.Duration(cfg.Capture.ReadyTimeoutSec) * time.Second,
			TrailingBuffer: time.Duration(cfg.Capture.TrailingBufferSec) * time.Second,
		}, log.With(zap.String("comp", "capture")))
	}
	s := &Server{
		cfg:      cfg,
		log:      log,
		muxer:    mux.New(mux.Toolset{FFmpeg: cfg.Tools.FFmpeg, FFprobe: cfg.Tools.FFprobe}, log.With(zap.String("comp", "mux"))),
		recorder: recorder,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/api/upload", s.handleUpload)
	r.Post("/api/render", s.handleRender)
	r.Get("/render-view", s.handleSurface)
	r.Handle("/uploads/*", cors(http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(filepath.Join(cfg.DataDir, "uploads"))))))
	r.Handle("/output/*", cors(http.StripPrefix("/output/",
		http.FileServer(http.Dir(filepath.Join(cfg.DataDir, "output"))))))
	s.router = r
	return s
}

// Handler 暴露路由（测试与 main 共用）。
func (s *Server) Handler() http.Handler { return s.router }

// cors 为静态媒体放开跨源：采集浏览器从调试上下文拉取视频。
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleUpload 接收 multipart 视频与可选音频，返回双路径对：
// 公网 URL 供采集浏览器取流，本地路径供合轨读盘。
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(512 << 20); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("%w: multipart: %v", contract.ErrInvalidInput, err))
		return
	}
	dir := filepath.Join(s.cfg.DataDir, "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	var out export.UploadResult
	videoFile, videoHdr, err := r.FormFile("video")
	if err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("%w: video field required", contract.ErrInvalidInput))
		return
	}
	defer videoFile.Close()
	localVideo, err := s.saveUpload(dir, videoFile, videoHdr)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	out.LocalVideoPath = localVideo
	out.VideoPath = s.cfg.PublicBaseURL + "/uploads/" + filepath.Base(localVideo)

	if audioFile, audioHdr, err := r.FormFile("audio"); err == nil {
		defer audioFile.Close()
		localAudio, err := s.saveUpload(dir, audioFile, audioHdr)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, err)
			return
		}
		out.LocalAudioPath = localAudio
		out.AudioPath = s.cfg.PublicBaseURL + "/uploads/" + filepath.Base(localAudio)
	}

	s.log.Info("upload: stored",
		zap.String("video", out.LocalVideoPath),
		zap.String("audio", out.LocalAudioPath))
	s.ok(w, out)
}

func (s *Server) saveUpload(dir string, f multipart.File, hdr *multipart.FileHeader) (string, error) {
	name := uuid.NewString() + filepath.Ext(hdr.Filename)
	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("upload: create %s: %w", path, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, f); err != nil {
		return "", fmt.Errorf("upload: write %s: %w", path, err)
	}
	return path, nil
}

// handleRender 执行服务端阶段：采集，然后合轨。
// 采集失败（含就绪超时、浏览器启动失败）整单失败；
// 合轨失败降级返回原始采集，仍算成功。
// 并发渲染请求不做互斥：共享数据目录，产物名以 uuid 区分。
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req export.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("%w: body: %v", contract.ErrInvalidInput, err))
		return
	}
	if req.VideoURL == "" {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("%w: videoUrl required", contract.ErrInvalidInput))
		return
	}
	ctx := r.Context()

	duration := req.Duration
	if duration <= 0 && req.LocalVideoPath != "" {
		d, err := s.muxer.ProbeDuration(ctx, req.LocalVideoPath)
		if err != nil {
			s.fail(w, http.StatusBadRequest, fmt.Errorf("%w: duration unknown: %v", contract.ErrInvalidInput, err))
			return
		}
		duration = d
	}
	if duration <= 0 {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("%w: duration required", contract.ErrInvalidInput))
		return
	}

	outDir := filepath.Join(s.cfg.DataDir, "output")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	jobID := uuid.NewString()
	rawPath := filepath.Join(outDir, "capture_"+jobID+".mp4")

	payload := capture.Payload{
		VideoURL:     req.VideoURL,
		SRTData:      req.SRTData,
		HTMLContent:  req.HTMLContent,
		LayoutConfig: req.LayoutConfig,
		Duration:     duration,
	}
	if err := s.recorder.Capture(ctx, s.cfg.PublicBaseURL+"/render-view", payload, rawPath); err != nil {
		_ = os.Remove(rawPath)
		s.fail(w, http.StatusInternalServerError, &contract.PhaseError{Phase: contract.PhaseCapture, Err: err})
		return
	}

	// 音源顺位：bgMusicUrl 指明上传音频是背景音乐；否则该音频
	// （或原视频文件本身）作为“原声”候选交由探测判定。
	musicPath := ""
	videoAudio := req.LocalAudioPath
	if req.BgMusicURL != "" {
		musicPath = req.LocalAudioPath
		videoAudio = ""
	}
	if videoAudio == "" && musicPath == "" {
		videoAudio = req.LocalVideoPath
	}
	src := s.muxer.SelectAudioSource(ctx, musicPath, videoAudio)
	finalPath := s.muxer.Mux(ctx, rawPath, src, filepath.Join(outDir, "final_"+jobID+".mp4"))

	if finalPath != rawPath {
		_ = os.Remove(rawPath)
	}
	s.log.Info("render: done", zap.String("job", jobID), zap.String("artifact", finalPath))
	s.ok(w, export.RenderResult{
		DownloadURL: s.cfg.PublicBaseURL + "/output/" + filepath.Base(finalPath),
	})
}

func (s *Server) ok(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.log.Warn("http: request failed", zap.Int("status", status), zap.Error(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
