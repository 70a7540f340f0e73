package retrieval

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	jsonFence    = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	genericFence = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*(.*?)```")
)

type answerPayload struct {
	Answer      *string `json:"answer"`
	RelevantIDs []any   `json:"relevantIds"`
}

// ParseAnswer extracts {"answer", "relevantIds"} from raw model output. It
// tries, in order, a ```json fence, any fenced block, the trimmed text and
// the outermost braces. When none decodes to an object with a string
// "answer", it returns the trimmed raw text with no IDs and ok=false.
func ParseAnswer(raw string) (Answer, bool) {
	trimmed := strings.TrimSpace(raw)

	for _, candidate := range answerCandidates(trimmed) {
		if parsed, ok := decodeAnswer(candidate); ok {
			return parsed, true
		}
	}
	return Answer{Text: trimmed}, false
}

func answerCandidates(s string) []string {
	var out []string
	if m := jsonFence.FindStringSubmatch(s); m != nil {
		out = append(out, m[1])
	}
	if m := genericFence.FindStringSubmatch(s); m != nil {
		out = append(out, m[1])
	}
	out = append(out, s)
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		out = append(out, s[start:end+1])
	}
	return out
}

func decodeAnswer(s string) (Answer, bool) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(s)))
	dec.UseNumber()

	var p answerPayload
	if err := dec.Decode(&p); err != nil || p.Answer == nil {
		return Answer{}, false
	}

	ans := Answer{Text: strings.TrimSpace(*p.Answer)}
	for _, v := range p.RelevantIDs {
		switch id := v.(type) {
		case string:
			if id = strings.TrimSpace(id); id != "" {
				ans.RelevantIDs = append(ans.RelevantIDs, id)
			}
		case json.Number:
			ans.RelevantIDs = append(ans.RelevantIDs, id.String())
		}
	}
	return ans, true
}
