package zap

import "sync"

// Statistics accumulates per-run zap metrics (spec §4.7 "ZapStatistics
// invariants"; channel breakdown and detection-method histogram are
// supplemented from original_source/shared/src/lib/utils/zap_statistics.py).
type Statistics struct {
	mu sync.Mutex

	TotalIterations      int
	SuccessfulIterations int
	MotionDetectedCount      int
	SubtitlesDetectedCount   int
	ZappingDetectedCount     int
	AudioSpeechDetectedCount int

	DetectedLanguages []string
	AudioLanguages    []string

	ZappingDurationsS      []float64
	BlackscreenDurationsS  []float64
	AudioSilenceDurationsS []float64

	DetectedChannels   []string
	ChannelInfoResults []ChannelInfo

	DetectionMethodCounts map[string]int
	TotalExecutionTimeMS  int64
}

// NewStatistics returns an initialized, ready-to-use accumulator.
func NewStatistics() *Statistics {
	return &Statistics{DetectionMethodCounts: map[string]int{}}
}

// Record folds one iteration's outcome into the running totals.
func (s *Statistics) Record(r IterationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TotalIterations++
	if r.Success {
		s.SuccessfulIterations++
	}
	if r.MotionDetected {
		s.MotionDetectedCount++
	}
	if r.SubtitlesDetected {
		s.SubtitlesDetectedCount++
	}
	if r.ZappingDetected {
		s.ZappingDetectedCount++
	}
	if r.AudioSpeechDetected {
		s.AudioSpeechDetectedCount++
	}
	s.TotalExecutionTimeMS += int64(r.DurationSeconds * 1000)

	addUnique(&s.DetectedLanguages, r.DetectedLanguage)
	addUnique(&s.AudioLanguages, r.AudioLanguage)

	if r.DetectionMethod != "" {
		s.DetectionMethodCounts[r.DetectionMethod]++
	}

	if r.ZappingDetected {
		if r.TotalZapDurationS > 0 {
			s.ZappingDurationsS = append(s.ZappingDurationsS, r.TotalZapDurationS)
		}
		if r.BlackscreenDurationS > 0 {
			s.BlackscreenDurationsS = append(s.BlackscreenDurationsS, r.BlackscreenDurationS)
		}
		if r.AudioSilenceDurationS > 0 {
			s.AudioSilenceDurationsS = append(s.AudioSilenceDurationsS, r.AudioSilenceDurationS)
		}
		addUnique(&s.DetectedChannels, r.ChannelInfo.ChannelName)
		s.ChannelInfoResults = append(s.ChannelInfoResults, r.ChannelInfo)
	}
}

func addUnique(list *[]string, v string) {
	if v == "" {
		return
	}
	for _, existing := range *list {
		if existing == v {
			return
		}
	}
	*list = append(*list, v)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var total float64
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}

// SuccessRate is successful_iterations/total_iterations*100.
func (s *Statistics) SuccessRate() float64 { return s.rate(s.SuccessfulIterations) }

// MotionSuccessRate is motion_detected_count/total_iterations*100.
func (s *Statistics) MotionSuccessRate() float64 { return s.rate(s.MotionDetectedCount) }

// SubtitleSuccessRate is subtitles_detected_count/total_iterations*100.
func (s *Statistics) SubtitleSuccessRate() float64 { return s.rate(s.SubtitlesDetectedCount) }

// ZappingSuccessRate is zapping_detected_count/total_iterations*100.
func (s *Statistics) ZappingSuccessRate() float64 { return s.rate(s.ZappingDetectedCount) }

// AudioSpeechSuccessRate is audio_speech_detected_count/total_iterations*100.
func (s *Statistics) AudioSpeechSuccessRate() float64 { return s.rate(s.AudioSpeechDetectedCount) }

func (s *Statistics) rate(count int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TotalIterations == 0 {
		return 0
	}
	return float64(count) / float64(s.TotalIterations) * 100
}

// AverageZappingDuration is the plain mean of ZappingDurationsS.
func (s *Statistics) AverageZappingDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mean(s.ZappingDurationsS)
}

// AverageBlackscreenDuration is the plain mean of BlackscreenDurationsS.
func (s *Statistics) AverageBlackscreenDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mean(s.BlackscreenDurationsS)
}

// AverageExecutionTimeMS is total_execution_time/total_iterations.
func (s *Statistics) AverageExecutionTimeMS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TotalIterations == 0 {
		return 0
	}
	return float64(s.TotalExecutionTimeMS) / float64(s.TotalIterations)
}

// ChannelBreakdown is one channel's aggregate across a run (supplemented
// from zap_statistics.py's per-channel reporting, beyond the plain means
// spec.md §4.7 names).
type ChannelBreakdown struct {
	ChannelName         string
	Count               int
	AverageZapDurationS float64
}

// ByChannel groups ChannelInfoResults by channel name.
func (s *Statistics) ByChannel() []ChannelBreakdown {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := []string{}
	byName := map[string][]ChannelInfo{}
	for _, info := range s.ChannelInfoResults {
		if info.ChannelName == "" {
			continue
		}
		if _, seen := byName[info.ChannelName]; !seen {
			order = append(order, info.ChannelName)
		}
		byName[info.ChannelName] = append(byName[info.ChannelName], info)
	}

	out := make([]ChannelBreakdown, 0, len(order))
	for _, name := range order {
		infos := byName[name]
		var durations []float64
		for _, info := range infos {
			durations = append(durations, info.ZapDurationS)
		}
		out = append(out, ChannelBreakdown{ChannelName: name, Count: len(infos), AverageZapDurationS: mean(durations)})
	}
	return out
}
