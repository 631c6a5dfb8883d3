package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/pkg/fsutil"
	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/pkg/speech"
	"github.com/kart-io/valuerag/pkg/utils/execx"
)

// CaptionStrategy downloads published or automatic subtitles with yt-dlp.
type CaptionStrategy struct {
	binary        string
	langs         []string
	commandRunner execx.Runner
}

// NewCaptionStrategy creates a CaptionStrategy. langs 按优先级排列，第一个是目标语言。
//
// 自动字幕包含 YouTube 机器翻译的轨道，西语视频通常也有 "en" 轨道，
// 因此默认优先英文，只有不存在任何英文轨道时才使用西语原文。
func NewCaptionStrategy(binary string, langs []string) *CaptionStrategy {
	if binary == "" {
		binary = "yt-dlp"
	}
	if len(langs) == 0 {
		langs = []string{"en", "es"}
	}
	return &CaptionStrategy{binary: binary, langs: langs}
}

// WithCommandRunner overrides how external commands are executed.
func (s *CaptionStrategy) WithCommandRunner(runner execx.Runner) {
	s.commandRunner = runner
}

// Name implements Strategy.
func (s *CaptionStrategy) Name() string { return "captions" }

// Acquire implements Strategy.
func (s *CaptionStrategy) Acquire(ctx context.Context, ref model.SourceRef) ([]model.Segment, error) {
	dir, err := os.MkdirTemp("", "valuerag-subs-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	// "en.*" 同时匹配 en、en-US 与 en-orig 等地区或原始轨道。
	patterns := make([]string, len(s.langs))
	for i, lang := range s.langs {
		patterns[i] = regexp.QuoteMeta(lang) + ".*"
	}
	args := []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", strings.Join(patterns, ","),
		"--sub-format", "vtt",
		"--quiet",
		"--no-warnings",
		"-o", filepath.Join(dir, ref.ID+".%(ext)s"),
		ref.Location,
	}
	if err := execx.OrDefault(s.commandRunner)(ctx, s.binary, args...); err != nil {
		return nil, err
	}

	tracks := captionTracks(dir, ref.ID)
	for _, lang := range s.langs {
		for _, track := range tracks {
			if track.lang != lang && !strings.HasPrefix(track.lang, lang+"-") {
				continue
			}
			data, err := os.ReadFile(track.path)
			if err != nil {
				continue
			}
			text := ParseVTT(string(data))
			if text == "" {
				continue
			}
			logger.Debugw("Captions found", "source_id", ref.ID, "lang", track.lang, "target", track.lang == s.langs[0])
			return []model.Segment{{
				Text:     text,
				Metadata: model.Metadata{SourceID: ref.ID, DocType: model.DocTypeCaption},
			}}, nil
		}
	}
	return nil, fmt.Errorf("no captions in %v: %w", s.langs, ErrNoText)
}

type captionTrack struct {
	lang string
	path string
}

// captionTracks 列出 yt-dlp 写出的 {id}.{lang}.vtt，按语言代码排序，
// 使精确匹配 "en" 排在 "en-US" 之前。
func captionTracks(dir, id string) []captionTrack {
	matches, _ := filepath.Glob(filepath.Join(dir, id+".*.vtt"))
	tracks := make([]captionTrack, 0, len(matches))
	for _, p := range matches {
		lang := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), id+"."), ".vtt")
		if lang == "" || strings.Contains(lang, ".") {
			continue
		}
		tracks = append(tracks, captionTrack{lang: lang, path: p})
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].lang < tracks[j].lang })
	return tracks
}

var (
	vttTagRe       = regexp.MustCompile(`<[^>]*>`)
	vttCueNumberRe = regexp.MustCompile(`^\d+$`)
)

// ParseVTT converts WebVTT subtitles into plain text.
//
// 自动字幕会在相邻 cue 中重复上一行，连续重复的行只保留一次。
func ParseVTT(vtt string) string {
	var (
		lines   []string
		last    string
		skipped bool
	)
	for _, raw := range strings.Split(strings.ReplaceAll(vtt, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			skipped = false
			continue
		case skipped:
			continue
		case strings.HasPrefix(line, "WEBVTT"),
			strings.HasPrefix(line, "Kind:"),
			strings.HasPrefix(line, "Language:"):
			continue
		case strings.HasPrefix(line, "NOTE"), strings.HasPrefix(line, "STYLE"), strings.HasPrefix(line, "REGION"):
			skipped = true
			continue
		case strings.Contains(line, "-->"), vttCueNumberRe.MatchString(line):
			continue
		}

		line = strings.TrimSpace(vttTagRe.ReplaceAllString(line, ""))
		line = strings.ReplaceAll(line, "&nbsp;", " ")
		line = strings.ReplaceAll(line, "&amp;", "&")
		if line == "" || line == last {
			continue
		}
		lines = append(lines, line)
		last = line
	}
	return strings.Join(strings.Fields(strings.Join(lines, " ")), " ")
}

// AudioTranscriptStrategy downloads the audio track and transcribes it.
//
// 已存在的音频与转写文件会被直接复用。
type AudioTranscriptStrategy struct {
	binary        string
	audioDir      string
	transcriptDir string
	transcriber   speech.Transcriber
	commandRunner execx.Runner
}

// NewAudioTranscriptStrategy creates an AudioTranscriptStrategy.
func NewAudioTranscriptStrategy(binary, audioDir, transcriptDir string, transcriber speech.Transcriber) *AudioTranscriptStrategy {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &AudioTranscriptStrategy{
		binary:        binary,
		audioDir:      audioDir,
		transcriptDir: transcriptDir,
		transcriber:   transcriber,
	}
}

// WithCommandRunner overrides how external commands are executed.
func (s *AudioTranscriptStrategy) WithCommandRunner(runner execx.Runner) {
	s.commandRunner = runner
}

// Name implements Strategy.
func (s *AudioTranscriptStrategy) Name() string { return "audio-transcript" }

// Acquire implements Strategy.
func (s *AudioTranscriptStrategy) Acquire(ctx context.Context, ref model.SourceRef) ([]model.Segment, error) {
	if ref.ID == "" {
		return nil, fmt.Errorf("video id is required")
	}
	transcriptPath := filepath.Join(s.transcriptDir, ref.ID+".txt")
	if fsutil.NonEmptyFile(transcriptPath) {
		data, err := os.ReadFile(transcriptPath)
		if err != nil {
			return nil, err
		}
		logger.Debugw("Reusing transcript", "source_id", ref.ID, "path", transcriptPath)
		return s.segments(ref, string(data))
	}

	audioPath := filepath.Join(s.audioDir, ref.ID+".mp3")
	if !fsutil.NonEmptyFile(audioPath) {
		if err := fsutil.EnsureDir(s.audioDir); err != nil {
			return nil, err
		}
		args := []string{
			"-f", "bestaudio/best",
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", "192K",
			"--quiet",
			"--no-warnings",
			"-o", filepath.Join(s.audioDir, ref.ID+".%(ext)s"),
			ref.Location,
		}
		if err := execx.OrDefault(s.commandRunner)(ctx, s.binary, args...); err != nil {
			return nil, fmt.Errorf("download audio: %w", err)
		}
	}

	if s.transcriber == nil {
		return nil, fmt.Errorf("no transcriber configured")
	}
	text, err := s.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	if err := fsutil.EnsureDir(s.transcriptDir); err != nil {
		return nil, err
	}
	if err := os.WriteFile(transcriptPath, []byte(text), 0o644); err != nil {
		logger.Warnw("Failed to cache transcript", "source_id", ref.ID, "error", err.Error())
	}
	return s.segments(ref, text)
}

func (s *AudioTranscriptStrategy) segments(ref model.SourceRef, text string) ([]model.Segment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoText
	}
	return []model.Segment{{
		Text:     text,
		Metadata: model.Metadata{SourceID: ref.ID, DocType: model.DocTypeCaption},
	}}, nil
}
