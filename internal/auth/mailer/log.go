package mailer

import (
	"context"
	"sync"

	"github.com/aussiebroadwan/storefront/pkg/slogx"
)

// LogMailer writes codes to the request logger instead of sending them.
// Only for development and end-to-end tests.
type LogMailer struct{}

var _ Mailer = LogMailer{}

func (LogMailer) SendOTP(ctx context.Context, to, code string) error {
	slogx.FromContext(ctx).Info("otp email suppressed", "to", to, "code", code)
	return nil
}

// Sent is one message captured by a Recorder.
type Sent struct {
	To   string
	Code string
}

// Recorder captures messages in memory. Setting Err makes every send fail.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent

	Err error
}

var _ Mailer = (*Recorder)(nil)

func (r *Recorder) SendOTP(_ context.Context, to, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, Sent{To: to, Code: code})
	return nil
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Last returns the most recent message to addr.
func (r *Recorder) Last(addr string) (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].To == addr {
			return r.sent[i], true
		}
	}
	return Sent{}, false
}
