package analysis

import (
	"fmt"
	"strings"
	"time"

	"bridgewatch/internal/detector"
	"bridgewatch/internal/frame"
)

// Answer shape the model is instructed to produce for the structured
// general case. The reading parser on the logging path matches these
// exact labels, so prompt and parser move together.
const (
	labelLSToSA  = "Lesotho to South Africa"
	labelSAToLS  = "South Africa to Lesotho"
	labelSummary = "Summary"
	labelAdvice  = "Advice"
)

const basePersona = `You are a friendly assistant watching the live camera at the Maseru Bridge border crossing between Lesotho and South Africa. You help travellers decide when and how to cross.

Rules you must always follow:
- Speak plainly, as to a traveller. Never mention camera angles, presets, frames, detectors, classifiers, models, or any other internal machinery.
- Never invent vehicle counts. If exact numbers were provided to you below, use them verbatim; otherwise describe traffic qualitatively and make clear it is an estimate.
- Base what you say about the scene only on the attached images.
- Traffic levels are light, moderate, heavy or severe. Severe is reserved for backup extending beyond the visible lanes.`

const structuredFormat = `Format your answer exactly like this, one line each:
` + labelLSToSA + `: <level>. <one short sentence of detail>
` + labelSAToLS + `: <level>. <one short sentence of detail>
` + labelSummary + `: <one sentence overall>
` + labelAdvice + `: <one practical sentence for travellers>`

const conversationalFormat = `Answer conversationally in one short paragraph. Do not use the two-direction status format.`

// BuildSystemPrompt assembles the system instruction for one analysis
// request from the question type, the detector counts (nil when
// counting is unavailable) and the selected frames.
func BuildSystemPrompt(qt QuestionType, counts *detector.Counts, selected []frame.Selected, now time.Time) string {
	var b strings.Builder
	b.WriteString(basePersona)
	b.WriteString("\n\n")

	b.WriteString(describeFrames(selected, now))
	b.WriteString("\n\n")

	if counts.Usable() {
		fmt.Fprintf(&b, "Authoritative vehicle counts from the automated counting system for the bridge image:\n")
		fmt.Fprintf(&b, "- Lesotho to South Africa: %d vehicles (%d cars, %d trucks, %d buses) - traffic level %s\n",
			counts.LSToSA, counts.Breakdown.LSToSA.Cars, counts.Breakdown.LSToSA.Trucks, counts.Breakdown.LSToSA.Buses, detector.LevelFor(counts.LSToSA))
		fmt.Fprintf(&b, "- South Africa to Lesotho: %d vehicles (%d cars, %d trucks, %d buses) - traffic level %s\n",
			counts.SAToLS, counts.Breakdown.SAToLS.Cars, counts.Breakdown.SAToLS.Trucks, counts.Breakdown.SAToLS.Buses, detector.LevelFor(counts.SAToLS))
		b.WriteString("Use these exact numbers. Do not count vehicles in the images yourself.\n\n")
	} else {
		b.WriteString("No automated vehicle counts are available right now. Judge traffic qualitatively from the images and phrase amounts as estimates.\n\n")
	}

	if qt.StructuredFormat() {
		b.WriteString(structuredFormat)
	} else {
		b.WriteString(conversationalFormat)
	}
	return b.String()
}

// describeFrames tells the model what it is looking at without leaking
// angle terminology into the answer.
func describeFrames(selected []frame.Selected, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are given %d image(s) of the crossing, newest information first:", len(selected))
	for i, sel := range selected {
		age := sel.Frame.Age(now).Round(time.Second)
		note := ""
		if sel.Fallback {
			note = ", older backup view"
		}
		fmt.Fprintf(&b, "\nImage %d: %s of the crossing, taken %s ago%s.", i+1, viewDescription(sel.Frame.Angle), age, note)
	}
	return b.String()
}

func viewDescription(angle frame.Angle) string {
	switch angle {
	case frame.AngleBridge:
		return "the bridge lanes"
	case frame.AngleProcessing:
		return "the vehicle processing area"
	case frame.AngleWide:
		return "a wide view of the approach"
	default:
		return "a view"
	}
}

// BuildUserPrompt produces the user turn for the request.
func BuildUserPrompt(qt QuestionType, question string) string {
	switch qt {
	case QuestionOffTopic:
		return fmt.Sprintf("The traveller asked: %q. This is not about the border crossing. Gently steer back to border traffic in one or two sentences, offering the current situation if they want it.", question)
	case QuestionGeneral:
		if strings.TrimSpace(question) == "" {
			return "Describe the current traffic situation at the crossing."
		}
		return question
	default:
		return question
	}
}
