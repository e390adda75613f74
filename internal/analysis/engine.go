package analysis

import (
	"context"
	"log"
	"strings"
	"time"

	"bridgewatch/internal/detector"
	"bridgewatch/internal/frame"
	"bridgewatch/internal/imageutil"
	"bridgewatch/internal/vision"
)

// User-facing failure messages. Business-logic failures always surface
// as a structured result with one of these, never as a transport error.
const (
	msgCameraUnavailable = "The border camera is unavailable right now, so I can't see the crossing. Please try again in a few minutes."
	msgModelUnavailable  = "I'm temporarily unable to analyze the crossing. Please try again shortly."
)

// Result is the externally visible outcome of one analysis invocation.
type Result struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	FrameTime  time.Time `json:"frame_time,omitempty"`
	FrameCount int       `json:"frame_count"`
	Cached     bool      `json:"cached"`
	Error      string    `json:"error,omitempty"`
}

// Counter produces vehicle counts for a bridge frame, nil when counting
// is degraded.
type Counter interface {
	Count(ctx context.Context, image []byte, cameraView string) *detector.Counts
}

// ReadingRecord is what gets handed to the persistence sink after an
// analysis completes. Counts fields are nil when the detector was
// degraded for that request.
type ReadingRecord struct {
	Question     string
	QuestionType QuestionType
	Category     Category
	Message      string
	Reading      Reading
	Counts       *detector.Counts
	FramesUsed   int
	FrameTime    time.Time
	CreatedAt    time.Time
}

// Sink durably logs analysis readings. Optional; failures are logged
// and swallowed, never surfaced.
type Sink interface {
	SaveReading(rec *ReadingRecord) error
}

// Broadcaster pushes completed results to live subscribers. Optional.
type Broadcaster interface {
	Broadcast(v interface{})
}

// Engine orchestrates frame selection, vehicle counting and the
// generative call into one user-facing answer.
type Engine struct {
	selector    *frame.Selector
	model       vision.Generator
	counter     Counter     // may be nil
	sink        Sink        // may be nil
	broadcaster Broadcaster // may be nil
	respCache   *ResponseCache
	latest      *LatestHolder
	maxImageDim int
	logger      *log.Logger

	now func() time.Time
}

// EngineConfig wires an Engine. Counter, Sink and Broadcaster may be nil.
type EngineConfig struct {
	Selector         *frame.Selector
	Model            vision.Generator
	Counter          Counter
	Sink             Sink
	Broadcaster      Broadcaster
	ResponseCacheTTL time.Duration
	LatestResultTTL  time.Duration
	MaxImageDim      int
	Logger           *log.Logger
}

// NewEngine creates the analysis engine.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		selector:    cfg.Selector,
		model:       cfg.Model,
		counter:     cfg.Counter,
		sink:        cfg.Sink,
		broadcaster: cfg.Broadcaster,
		respCache:   NewResponseCache(cfg.ResponseCacheTTL),
		latest:      NewLatestHolder(cfg.LatestResultTTL),
		maxImageDim: cfg.MaxImageDim,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// CounterEnabled reports whether a vehicle counter is wired in.
func (e *Engine) CounterEnabled() bool {
	return e.counter != nil
}

// ModelConfigured reports whether the generative model is reachable in
// principle. Clients that expose their own readiness check are asked;
// anything else counts as configured by being present.
func (e *Engine) ModelConfigured() bool {
	if c, ok := e.model.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return e.model != nil
}

// Analyze answers a question about current traffic. An empty question is
// the unprompted status poll.
func (e *Engine) Analyze(ctx context.Context, question string) *Result {
	return e.analyze(ctx, question, nil)
}

// AnalyzeStream behaves like Analyze but delivers the answer token by
// token through emit. Cache hits are emitted as a single token. If the
// caller disconnects mid-stream the work still completes and the result
// is cached and logged identically.
func (e *Engine) AnalyzeStream(ctx context.Context, question string, emit func(token string)) *Result {
	return e.analyze(ctx, question, emit)
}

func (e *Engine) analyze(ctx context.Context, question string, emit func(token string)) *Result {
	question = strings.TrimSpace(question)
	unprompted := question == ""
	qt := ClassifyQuestion(question)

	// Fast paths: unprompted polling hits the single-slot holder,
	// recognized on-topic questions hit the category cache. Off-topic
	// questions can still match a category phrase ("best time for a
	// joke"), so they bypass the cache entirely: a steer-back reply must
	// never be served to a genuine traveller.
	var category Category
	var categorized bool
	if unprompted {
		if held, ok := e.latest.Get(); ok {
			res := *held
			res.Cached = true
			if emit != nil {
				emit(res.Message)
			}
			return &res
		}
	} else if qt != QuestionOffTopic {
		category, categorized = Categorize(question)
		if categorized {
			if message, frameTime, frames, ok := e.respCache.Get(category); ok {
				if emit != nil {
					emit(message)
				}
				return &Result{
					Success:    true,
					Message:    message,
					Timestamp:  e.now(),
					FrameTime:  frameTime,
					FrameCount: frames,
					Cached:     true,
				}
			}
		}
	}

	selected := e.selector.Select()
	if len(selected) == 0 {
		// No generative call is made on empty input.
		e.logger.Printf("[Analysis] No usable frames, reporting camera unavailable")
		return &Result{
			Success:   false,
			Message:   msgCameraUnavailable,
			Timestamp: e.now(),
		}
	}

	// The detector runs first because its counts seed the prompt.
	var counts *detector.Counts
	if e.counter != nil {
		for _, sel := range selected {
			if sel.Frame.Angle == frame.AngleBridge {
				counts = e.counter.Count(ctx, sel.Frame.Data, "bridge")
				break
			}
		}
	}

	system := BuildSystemPrompt(qt, counts, selected, e.now())
	user := BuildUserPrompt(qt, question)
	images := e.prepareImages(selected)

	var message string
	var err error
	if emit != nil {
		message, err = e.model.GenerateStream(ctx, system, images, user, emit)
	} else {
		message, err = e.model.Generate(ctx, system, images, user)
	}
	if err != nil {
		e.logger.Printf("[Analysis] Generative call failed: %v", err)
		return &Result{
			Success:   false,
			Message:   msgModelUnavailable,
			Timestamp: e.now(),
			Error:     err.Error(),
		}
	}

	newest, _ := frame.NewestTimestamp(selected)
	res := &Result{
		Success:    true,
		Message:    message,
		Timestamp:  e.now(),
		FrameTime:  newest.CapturedAt,
		FrameCount: len(selected),
	}

	if unprompted {
		e.latest.Set(res)
	} else if categorized {
		e.respCache.Put(category, message, newest.CapturedAt, len(selected))
	}

	if e.broadcaster != nil {
		e.broadcaster.Broadcast(res)
	}
	e.persist(question, qt, category, counts, res)

	return res
}

// prepareImages downscales the selected frames for upload; a frame that
// cannot be downscaled is sent as-is.
func (e *Engine) prepareImages(selected []frame.Selected) [][]byte {
	images := make([][]byte, 0, len(selected))
	for _, sel := range selected {
		data := sel.Frame.Data
		if scaled, err := imageutil.Downscale(data, e.maxImageDim); err == nil {
			data = scaled
		}
		images = append(images, data)
	}
	return images
}

// persist hands the reading to the sink without ever blocking or
// failing the response path.
func (e *Engine) persist(question string, qt QuestionType, category Category, counts *detector.Counts, res *Result) {
	if e.sink == nil {
		return
	}

	rec := &ReadingRecord{
		Question:     question,
		QuestionType: qt,
		Category:     category,
		Message:      res.Message,
		Reading:      ParseReading(res.Message),
		Counts:       counts,
		FramesUsed:   res.FrameCount,
		FrameTime:    res.FrameTime,
		CreatedAt:    res.Timestamp,
	}

	go func() {
		if err := e.sink.SaveReading(rec); err != nil {
			e.logger.Printf("[Analysis] Reading persistence failed: %v", err)
		}
	}()
}
