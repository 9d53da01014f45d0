// Package srt 将 SRT 字幕解析为字幕条目序列。
// 块结构：序号行、时间轴行、文本若干行，空行分隔；
// 多行文本以单个空格拼接（条目按词窗切分，换行无意义）。
package srt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"reelsync/pkg/contract"
)

// Options 为 SRT Parser 的可选配置（最小必要）。
type Options struct {
	// MaxTextBytes: 单条文本最大字节数。0 表示不限制。
	MaxTextBytes int `json:"max_text_bytes"`
}

// Parser 实现 contract.CueParser。
type Parser struct {
	maxBytes int
}

// New 创建 SRT Parser。
func New(opts *Options) *Parser {
	mb := 0
	if opts != nil && opts.MaxTextBytes > 0 {
		mb = opts.MaxTextBytes
	}
	return &Parser{maxBytes: mb}
}

var timeLineRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3}) --> (\d{2}):(\d{2}):(\d{2}),(\d{3})`)

// Parse 将 SRT 文档解析为条目切片。格式错误带块定位信息整体拒绝。
func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]contract.Cue, error) {
	br := bufio.NewReader(r)
	var cues []contract.Cue
	block := 0

	for {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}

		seqLine, eof, err := readTrimmedLine(br)
		if err != nil {
			return nil, err
		}
		if eof {
			break
		}
		if seqLine == "" { // 跳过多余空行
			continue
		}
		block++
		id, err := strconv.Atoi(seqLine)
		if err != nil {
			return nil, fmt.Errorf("%w: srt block %d: invalid sequence line: %q", contract.ErrInvalidInput, block, seqLine)
		}

		timeLine, _, err := readTrimmedLine(br)
		if err != nil {
			return nil, err
		}
		m := timeLineRe.FindStringSubmatch(timeLine)
		if m == nil {
			return nil, fmt.Errorf("%w: srt block %d: invalid time line: %q", contract.ErrInvalidInput, block, timeLine)
		}
		start := toSeconds(m[1], m[2], m[3], m[4])
		end := toSeconds(m[5], m[6], m[7], m[8])
		if end < start {
			return nil, fmt.Errorf("%w: srt block %d: end before start", contract.ErrInvalidInput, block)
		}

		// 收集文本行直到空行或 EOF
		var texts []string
		for {
			if err := ctxErr(ctx); err != nil {
				return nil, err
			}
			line, e, err := readTrimmedLine(br)
			if err != nil {
				return nil, err
			}
			if line == "" || e {
				break
			}
			texts = append(texts, line)
		}

		text := strings.Join(texts, " ")
		if !utf8.ValidString(text) {
			return nil, fmt.Errorf("%w: srt block %d: invalid UTF-8 in text", contract.ErrInvalidInput, block)
		}
		if p.maxBytes > 0 && len(text) > p.maxBytes {
			return nil, fmt.Errorf("%w: srt block %d: text too large: %d > %d", contract.ErrInvalidInput, block, len(text), p.maxBytes)
		}

		cues = append(cues, contract.Cue{
			ID:        id,
			StartTime: start,
			EndTime:   end,
			Text:      text,
		})
	}
	return cues, nil
}

func toSeconds(h, m, s, ms string) float64 {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.Atoi(s)
	mmm, _ := strconv.Atoi(ms)
	return float64(hh)*3600 + float64(mm)*60 + float64(ss) + float64(mmm)/1000
}

// readTrimmedLine 读取一行，归一 CRLF→LF，并去除结尾换行符；返回该行、是否 EOF。
func readTrimmedLine(br *bufio.Reader) (line string, eof bool, err error) {
	s, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			eof = true
		} else {
			return "", false, err
		}
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, eof && s == "", nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
