package analysis

import (
	"regexp"
	"strings"
)

// QuestionType buckets a user utterance for prompt shaping. The rules
// are ordered keyword predicates; the first match wins.
type QuestionType string

const (
	// QuestionGeneral covers no-question polling and open traffic questions.
	QuestionGeneral     QuestionType = "general"
	QuestionOffTopic    QuestionType = "off_topic"
	QuestionDirectional QuestionType = "directional"
	QuestionYesNo       QuestionType = "yes_no"
	QuestionVisual      QuestionType = "visual"
	QuestionTiming      QuestionType = "timing"
	QuestionBorderInfo  QuestionType = "border_info"
)

// domainKeywords mark an utterance as on-topic regardless of anything
// else it matches. Relevance always overrides apparent off-topicness.
var domainKeywords = []string{
	"traffic", "border", "bridge", "queue", "line", "crossing", "cross",
	"car", "truck", "bus", "vehicle", "busy", "wait", "backed up", "backup",
	"lesotho", "maseru", "south africa", "engen", "customs", "gate",
}

var offTopicKeywords = []string{
	"joke", "recipe", "story", "poem", "song", "weather", "football",
	"soccer", "movie", "news", "math", "riddle", "your name", "who are you",
	"meaning of life",
}

var directionalKeywords = []string{
	"to south africa", "to sa", "from lesotho", "leaving lesotho",
	"to lesotho", "to ls", "from south africa", "from sa", "into lesotho",
	"direction", "which way", "each way", "both ways", "towards",
}

var visualKeywords = []string{
	"see", "look", "show", "picture", "image", "photo", "screenshot",
	"visible", "camera",
}

var timingKeywords = []string{
	"when", "what time", "how long", "how much longer", "hours",
	"open", "close", "best time", "good time", "quiet", "peak",
}

var borderInfoKeywords = []string{
	"passport", "visa", "document", "permit", "declaration", "duty",
	"requirement", "allowed", "need to bring",
}

var yesNoPrefix = regexp.MustCompile(`^(is|are|was|were|am|can|could|should|shall|will|would|do|does|did|has|have|had|may|might)\b`)

// ClassifyQuestion maps raw question text to its type. Empty text is the
// unprompted general case.
func ClassifyQuestion(question string) QuestionType {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return QuestionGeneral
	}

	onTopic := containsAny(q, domainKeywords)
	if containsAny(q, offTopicKeywords) && !onTopic {
		return QuestionOffTopic
	}

	switch {
	case containsAny(q, directionalKeywords):
		return QuestionDirectional
	case yesNoPrefix.MatchString(q):
		return QuestionYesNo
	case containsAny(q, visualKeywords):
		return QuestionVisual
	case containsAny(q, timingKeywords):
		return QuestionTiming
	case containsAny(q, borderInfoKeywords):
		return QuestionBorderInfo
	default:
		return QuestionGeneral
	}
}

func containsAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// StructuredFormat reports whether the generated answer should use the
// two-direction status format. Only the no-question/general case gets
// it; everything else is answered conversationally.
func (qt QuestionType) StructuredFormat() bool {
	return qt == QuestionGeneral
}
