package advice

import (
	"encoding/json"
	"regexp"
	"strings"
)

type Source string

const (
	SourceAI        Source = "ai"
	SourceExtracted Source = "extracted"
	SourceFallback  Source = "fallback"
)

type Recommendation struct {
	Category string `json:"category"`
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Impact   string `json:"impact"`
	Timeline string `json:"timeline"`
}

func general(action string) Recommendation {
	return Recommendation{
		Category: "general",
		Priority: "medium",
		Action:   action,
		Impact:   "positive",
		Timeline: "immediate",
	}
}

// Stage turns model output into recommendations. ok is false when the stage
// could not produce anything and the next stage should run.
type Stage interface {
	Source() Source
	Parse(text string) (recs []Recommendation, ok bool)
}

// DefaultStages is the parse pipeline: strict JSON, then sentence extraction.
func DefaultStages() []Stage {
	return []Stage{JSONStage{}, ExtractStage{}}
}

// JSONStage decodes the outermost [...] span of the text, so fenced or
// prose-wrapped arrays are accepted. Plain strings become general items.
type JSONStage struct{}

func (JSONStage) Source() Source { return SourceAI }

func (JSONStage) Parse(text string) ([]Recommendation, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
		return nil, false
	}
	var recs []Recommendation
	for _, raw := range items {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				recs = append(recs, general(s))
			}
			continue
		}
		var r Recommendation
		if err := json.Unmarshal(raw, &r); err != nil || strings.TrimSpace(r.Action) == "" {
			continue
		}
		recs = append(recs, r)
	}
	return recs, len(recs) > 0
}

var recommendationPattern = regexp.MustCompile(`(?i)(?:recommendation|advice|suggestion)[:\s]*([^.!?]*[.!?])`)

// ExtractStage scans for sentences introduced by recommendation, advice or suggestion.
type ExtractStage struct{}

func (ExtractStage) Source() Source { return SourceExtracted }

func (ExtractStage) Parse(text string) ([]Recommendation, bool) {
	var recs []Recommendation
	for _, m := range recommendationPattern.FindAllStringSubmatch(text, -1) {
		if action := strings.TrimSpace(m[1]); action != "" && action != "." {
			recs = append(recs, general(action))
		}
	}
	return recs, len(recs) > 0
}
