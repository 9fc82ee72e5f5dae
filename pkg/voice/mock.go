package voice

import (
	"context"
	"sync"
	"time"
)

// Mock implements Synthesizer for testing.
// All methods can be customized via function fields.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns a short silent WAV clip.
	SynthesizeFunc func(ctx context.Context, req Request) (*Clip, error)

	// SpeakersFunc is called when Speakers is invoked.
	// If nil, returns a single placeholder voice.
	SpeakersFunc func(ctx context.Context) ([]Speaker, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method  string
	Text    string
	Emotion EmotionTag
	Time    time.Time
}

// NewMock creates a mock synthesizer with sensible defaults.
func NewMock() *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, req Request) (*Clip, error) {
			return &Clip{
				Audio:      []byte("RIFF"),
				DurationMs: int(EstimateDuration(req.Text).Milliseconds()),
				CharCount:  len([]rune(req.Text)),
				Speaker:    req.Speaker,
			}, nil
		},
	}
}

// WithError returns a mock whose every method fails with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, req Request) (*Clip, error) {
			return nil, err
		},
		SpeakersFunc: func(ctx context.Context) ([]Speaker, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Synthesize calls SynthesizeFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, req Request) (*Clip, error) {
	m.recordCall("Synthesize", req.Text, req.Emotion)
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, req)
	}
	return nil, WrapError("mock", ErrEngineUnavailable)
}

// Speakers calls SpeakersFunc and records the call.
func (m *Mock) Speakers(ctx context.Context) ([]Speaker, error) {
	m.recordCall("Speakers", "", "")
	if m.SpeakersFunc != nil {
		return m.SpeakersFunc(ctx)
	}
	return []Speaker{{ID: 4, Name: "mock", Style: "normal"}}, nil
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.recordCall("Health", "", "")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", "", "")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *Mock) recordCall(method, text string, tag EmotionTag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Text: text, Emotion: tag, Time: time.Now()})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Verify Mock implements Synthesizer at compile time.
var _ Synthesizer = (*Mock)(nil)
