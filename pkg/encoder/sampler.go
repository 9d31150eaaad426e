package encoder

import (
	"context"
	"sync"
	"time"

	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/gpioinput"
)

const samplingInterval = time.Millisecond

// Sampler polls the encoder lines at ~1kHz and feeds the classifier,
// pushing completed events onto the queue. It never touches the I2C bus.
type Sampler struct {
	input gpioinput.Interface
	queue *Queue
}

func NewSampler(input gpioinput.Interface, queue *Queue) *Sampler {
	return &Sampler{
		input: input,
		queue: queue,
	}
}

func (s *Sampler) Loop(ctx context.Context, done *sync.WaitGroup) {
	defer done.Done()

	clk, _, _ := s.input.Levels()
	classifier := NewClassifier(clk)

	ticker := time.NewTicker(samplingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			clk, dt, sw := s.input.Levels()
			for _, event := range classifier.Sample(clk, dt, sw, now) {
				s.queue.Push(event)
			}
		}
	}
}
