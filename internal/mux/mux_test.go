package mux

import (
	"context"
	"strings"
	"testing"
)

// 音源优先级：背景音乐最优先，无需探测
func TestSelectAudioSourceMusicFirst(t *testing.T) {
	m := New(Toolset{}, nil)
	src := m.SelectAudioSource(context.Background(), "/tmp/music.mp3", "/tmp/video.mp4")
	if src.None || !src.FromMusic || src.Path != "/tmp/music.mp3" {
		t.Fatalf("music must win: %+v", src)
	}
}

// 音源优先级：两者皆缺→无声
func TestSelectAudioSourceNone(t *testing.T) {
	m := New(Toolset{}, nil)
	src := m.SelectAudioSource(context.Background(), "", "")
	if !src.None {
		t.Fatalf("expect silent source: %+v", src)
	}
}

// 原视频音轨缺失（探测失败）时回落无声
func TestSelectAudioSourceProbeFailure(t *testing.T) {
	// 不存在的 ffprobe：探测必然失败，应回落 None 而非报错
	m := New(Toolset{FFprobe: "/nonexistent/ffprobe"}, nil)
	src := m.SelectAudioSource(context.Background(), "", "/tmp/video.mp4")
	if !src.None {
		t.Fatalf("probe failure must fall back to silent: %+v", src)
	}
}

// 线参数：视频拷贝、音频 AAC、显式映射、按最短流截断
func TestArgs(t *testing.T) {
	args := Args("cap.mp4", "audio.wav", "out.mp4")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-c:v copy",
		"-c:a aac",
		"-map 0:v:0",
		"-map 1:a:0",
		"-shortest",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %v", want, args)
		}
	}
	if args[len(args)-1] != "out.mp4" {
		t.Fatalf("output must be final arg: %v", args)
	}
}

// 无音源时直接返回原始采集
func TestMuxSilentPassthrough(t *testing.T) {
	m := New(Toolset{}, nil)
	got := m.Mux(context.Background(), "cap.mp4", AudioSource{None: true}, "out.mp4")
	if got != "cap.mp4" {
		t.Fatalf("silent mux must return capture: %q", got)
	}
}

// 合轨失败降级返回原始采集而非错误
func TestMuxDegradedFallback(t *testing.T) {
	m := New(Toolset{FFmpeg: "/nonexistent/ffmpeg"}, nil)
	got := m.Mux(context.Background(), "cap.mp4", AudioSource{Path: "a.wav"}, "out.mp4")
	if got != "cap.mp4" {
		t.Fatalf("failed mux must degrade to raw capture: %q", got)
	}
}
