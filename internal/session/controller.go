// Package session holds the per-user state of one resume Q&A session.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"resumeqa/internal/domain"
	"resumeqa/internal/service"
)

var (
	ErrBusy              = errors.New("another request is still running")
	ErrNoResume          = errors.New("no resume loaded: upload a PDF or TXT file first")
	ErrNoQuestion        = errors.New("select a question or type your own")
	ErrNoAnswer          = errors.New("no answer to give feedback on")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 100")
)

const (
	UploadSuccessMessage = "Resume processed successfully!"
	NotHelpfulMessage    = "Thank you for your feedback. We'll work on improving our responses."
	SuggestionMessage    = "Thank you for your suggestion. We'll take it into account for future improvements."
	HelpfulMessage       = "Glad it helped."

	DefaultConfidence = 50
)

type State int

const (
	Idle State = iota
	Processing
	Ready
	Answering
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Ready:
		return "ready"
	case Answering:
		return "answering"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Pipeline is the indexing and answering backend of a session.
type Pipeline interface {
	BuildIndex(ctx context.Context, name string, data []byte) (*service.Index, error)
	Answer(ctx context.Context, idx *service.Index, question string) (*domain.Answer, error)
	Clear(ctx context.Context) error
}

// Feedback is what the user reports about the last answer. Confidence is the
// user's own rating, not something the model computed.
type Feedback struct {
	Confidence int
	Helpful    bool
	Suggestion string
}

// Acknowledgement is shown back to the user; feedback is never stored.
type Acknowledgement struct {
	Lines []string
}

func (a Acknowledgement) String() string { return strings.Join(a.Lines, "\n") }

// Controller moves a session through Idle, Processing, Ready and Answering.
// Only one upload or question runs at a time; overlapping calls get ErrBusy.
type Controller struct {
	pipeline Pipeline

	mu     sync.Mutex
	state  State
	index  *service.Index
	answer *domain.Answer
}

func NewController(p Pipeline) *Controller {
	return &Controller{pipeline: p}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Index returns the index of the loaded resume, or nil.
func (c *Controller) Index() *service.Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// LastAnswer returns the answer currently on display, or nil.
func (c *Controller) LastAnswer() *domain.Answer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answer
}

// Upload replaces the loaded resume. The previous document and answer are
// dropped before indexing starts, so a failed upload leaves the session Idle.
func (c *Controller) Upload(ctx context.Context, name string, data []byte) (*service.Index, error) {
	c.mu.Lock()
	if c.state == Processing || c.state == Answering {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.state = Processing
	c.index = nil
	c.answer = nil
	c.mu.Unlock()

	start := time.Now()
	idx, err := c.pipeline.BuildIndex(ctx, name, data)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = Idle
		log.Error().Err(err).Str("file", name).Msg("upload failed")
		return nil, err
	}
	c.index = idx
	c.state = Ready
	log.Info().Str("file", name).Int("chunks", len(idx.Chunks)).Dur("took", time.Since(start)).Msg("session ready")
	return idx, nil
}

// Ask answers the custom question if one was typed, otherwise the selected one.
// Without a question the pipeline is not called at all.
func (c *Controller) Ask(ctx context.Context, selected, custom string) (*domain.Answer, error) {
	question, ok := ResolveQuestion(selected, custom)
	if !ok {
		return nil, ErrNoQuestion
	}

	c.mu.Lock()
	switch c.state {
	case Idle:
		c.mu.Unlock()
		return nil, ErrNoResume
	case Processing, Answering:
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.state = Answering
	c.answer = nil
	idx := c.index
	c.mu.Unlock()

	start := time.Now()
	ans, err := c.pipeline.Answer(ctx, idx, question)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Ready
	if err != nil {
		log.Error().Err(err).Msg("answer failed")
		return nil, err
	}
	c.answer = ans
	log.Info().Int("sources", len(ans.Sources)).Dur("took", time.Since(start)).Msg("question answered")
	return ans, nil
}

// SubmitFeedback acknowledges feedback on the displayed answer.
func (c *Controller) SubmitFeedback(fb Feedback) (Acknowledgement, error) {
	c.mu.Lock()
	hasAnswer := c.answer != nil
	c.mu.Unlock()
	if !hasAnswer {
		return Acknowledgement{}, ErrNoAnswer
	}
	if fb.Confidence < 0 || fb.Confidence > 100 {
		return Acknowledgement{}, ErrInvalidConfidence
	}

	ack := Acknowledgement{Lines: []string{
		fmt.Sprintf("Your confidence rating: %d/100 (your own assessment, not computed by the model)", fb.Confidence),
	}}
	if fb.Helpful {
		ack.Lines = append(ack.Lines, HelpfulMessage)
	} else {
		ack.Lines = append(ack.Lines, NotHelpfulMessage)
		if strings.TrimSpace(fb.Suggestion) != "" {
			ack.Lines = append(ack.Lines, SuggestionMessage)
		}
	}
	log.Debug().Msg("feedback acknowledged")
	return ack, nil
}

// Close ends the session and discards the document, index and answer.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	c.state = Idle
	c.index = nil
	c.answer = nil
	c.mu.Unlock()
	return c.pipeline.Clear(ctx)
}

// UploadError renders an upload failure for the user.
func UploadError(err error) string {
	return fmt.Sprintf("Error processing resume: %v", err)
}

// AnswerError renders a question failure for the user.
func AnswerError(err error) string {
	return fmt.Sprintf("Error analyzing resume: %v", err)
}
