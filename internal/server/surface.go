package server

import "net/http"

// handleSurface 返回渲染面页面：监听 INIT_RENDER 载荷与时钟广播词汇，
// 镜像布局/字幕派生，媒体缓冲完成后追加 #ready-to-record 标记。
// 标记 id 与采集端为私有契约，改动必须两侧同步。
func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(surfacePage))
}

const surfacePage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  html, body { margin: 0; padding: 0; width: 100%; height: 100%; overflow: hidden; background: #000; }
  #overlay { position: absolute; top: 0; left: 0; width: 100%; overflow: hidden;
             transition: height 0.5s ease-out; }
  #media-panel { position: absolute; bottom: 0; left: 0; width: 100%; overflow: hidden;
                 transition: height 0.5s ease-out; }
  #video { width: 100%; height: 100%; object-fit: cover; }
  #caption { position: absolute; left: 0; width: 100%; text-align: center;
             transition: top 0.5s ease-out; font: 700 28px/1.4 sans-serif; color: #fff;
             text-shadow: 0 2px 8px rgba(0,0,0,.8); pointer-events: none; }
  #caption .live { color: #ffd54a; }
  #caption .pending { opacity: 0.55; }
</style>
</head>
<body>
<div id="overlay"></div>
<div id="media-panel"><video id="video" playsinline muted></video></div>
<div id="caption"></div>
<script>
(function () {
  "use strict";
  var WINDOW_SIZE = 5;
  var video = document.getElementById("video");
  var overlay = document.getElementById("overlay");
  var mediaPanel = document.getElementById("media-panel");
  var captionEl = document.getElementById("caption");
  var cues = [];
  var steps = [];
  var playing = false;
  var readyMarked = false;

  function parseSRT(data) {
    if (!data) return [];
    var out = [];
    var blocks = data.replace(/\r/g, "").split(/\n\n+/);
    for (var i = 0; i < blocks.length; i++) {
      var lines = blocks[i].split("\n").filter(function (l) { return l.trim() !== ""; });
      if (lines.length < 2) continue;
      var m = lines[1].match(/(\d{2}):(\d{2}):(\d{2}),(\d{3}) --> (\d{2}):(\d{2}):(\d{2}),(\d{3})/);
      if (!m) continue;
      var start = (+m[1]) * 3600 + (+m[2]) * 60 + (+m[3]) + (+m[4]) / 1000;
      var end = (+m[5]) * 3600 + (+m[6]) * 60 + (+m[7]) + (+m[8]) / 1000;
      out.push({ id: parseInt(lines[0], 10) || out.length + 1, startTime: start, endTime: end,
                 text: lines.slice(2).join(" ") });
    }
    return out;
  }

  // 区间索引：首个命中的半开区间；越过末条粘滞；其余落空
  function findActive(t, xs) {
    if (!xs.length) return null;
    for (var i = 0; i < xs.length; i++) {
      if (xs[i].startTime <= t && t < xs[i].endTime) return xs[i];
    }
    if (t >= xs[xs.length - 1].endTime) return xs[xs.length - 1];
    return null;
  }

  function applyLayout(t) {
    var step = findActive(t, steps) ||
      { layoutMode: "split", splitRatio: 0.5, captionPosition: "center" };
    var ratio = (typeof step.splitRatio === "number") ? step.splitRatio : 0.5;
    var overlayH, mediaH, overlayZ = 10, mediaZ = 5;
    switch (step.layoutMode) {
      case "full-video":
        overlayH = 0; mediaH = 100; overlayZ = 0; mediaZ = 10;
        break;
      case "full-html":
        overlayH = 100; mediaH = 100; overlayZ = 10; mediaZ = 0;
        break;
      default: // split 与 pip-html 同几何
        overlayH = ratio * 100; mediaH = (1 - ratio) * 100;
    }
    overlay.style.height = overlayH + "%";
    overlay.style.zIndex = overlayZ;
    mediaPanel.style.height = mediaH + "%";
    mediaPanel.style.zIndex = mediaZ;

    if (step.captionPosition === "hidden") {
      captionEl.style.display = "none";
      return;
    }
    captionEl.style.display = "block";
    captionEl.style.zIndex = 20;
    var anchor;
    if (step.layoutMode !== "full-video" && step.layoutMode !== "full-html") {
      anchor = ratio * 100; // split 边界钉死
    } else {
      anchor = { top: 15, center: 50, bottom: 80 }[step.captionPosition] || 80;
    }
    captionEl.style.top = anchor + "%";
  }

  function applyCaption(t) {
    var cue = findActive(t, cues);
    if (!cue) { captionEl.textContent = ""; return; }
    var words = cue.text.split(/\s+/).filter(function (x) { return x !== ""; });
    if (!words.length) { captionEl.textContent = ""; return; }
    var span = cue.endTime - cue.startTime;
    var progress = span > 0 ? (t - cue.startTime) / span : 0;
    progress = Math.max(0, Math.min(1, progress));
    var live = Math.floor(progress * words.length);
    var win = Math.floor(live / WINDOW_SIZE);
    var lo = win * WINDOW_SIZE;
    var html = "";
    for (var i = lo; i < Math.min(lo + WINDOW_SIZE, words.length); i++) {
      var cls = i < live ? "spoken" : (i === live ? "live" : "pending");
      html += '<span class="' + cls + '">' + words[i] + "</span> ";
    }
    captionEl.innerHTML = html;
  }

  function tick() {
    var t = video.currentTime;
    applyLayout(t);
    applyCaption(t);
    if (playing) requestAnimationFrame(tick);
  }

  function markReady() {
    if (readyMarked) return;
    readyMarked = true;
    var marker = document.createElement("div");
    marker.id = "ready-to-record";
    marker.style.display = "none";
    document.body.appendChild(marker);
  }

  window.addEventListener("INIT_RENDER", function (ev) {
    var p = ev.detail || {};
    cues = parseSRT(p.srtData);
    try { steps = p.layoutConfig ? JSON.parse(p.layoutConfig) : []; } catch (e) { steps = []; }
    if (p.htmlContent) {
      var frame = document.createElement("iframe");
      frame.setAttribute("sandbox", "allow-scripts");
      frame.style.cssText = "width:100%;height:100%;border:0;";
      frame.srcdoc = p.htmlContent;
      overlay.appendChild(frame);
    }
    if (p.videoUrl) {
      video.src = p.videoUrl;
      video.load();
    }
    applyLayout(0);
    applyCaption(0);
  });

  // 时钟广播词汇：timeupdate / play / pause
  window.addEventListener("message", function (ev) {
    var msg = ev.data || {};
    switch (msg.type) {
      case "timeupdate":
        video.currentTime = msg.time || 0;
        applyLayout(video.currentTime);
        applyCaption(video.currentTime);
        break;
      case "play":
        playing = true;
        video.play().catch(function () {});
        requestAnimationFrame(tick);
        break;
      case "pause":
        playing = false;
        video.pause();
        break;
    }
  });

  video.addEventListener("canplaythrough", markReady);
  video.addEventListener("canplay", function () {
    if (video.readyState >= 3) markReady();
  });
  // 兜底：媒体事件不可靠时 15 秒后强制就绪
  setTimeout(markReady, 15000);
})();
</script>
</body>
</html>
`
