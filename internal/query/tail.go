package query

import (
	"sync"

	"github.com/runmat-org/otell/internal/model"
)

// TailBufferSize bounds each subscriber's backlog per spec.md §5;
// exceeding it closes the subscriber with an error rather than
// silently dropping or reordering.
const TailBufferSize = 1024

// ErrSubscriberLagged is delivered to a lagging subscriber's error
// channel before it is closed.
var ErrSubscriberLagged = subscriberLaggedError{}

type subscriberLaggedError struct{}

func (subscriberLaggedError) Error() string { return "tail subscriber lagged behind, connection closed" }

// Broker fans out newly-committed log records to SSE subscribers,
// grounded on ashita-ai-akashi's internal/server.Broker subscriber-map
// shape, adapted here to close a lagging subscriber with an explicit
// error frame instead of silently dropping its event — spec.md §5
// requires "no reordering, no silent drops".
type Broker struct {
	mu          sync.Mutex
	subscribers map[chan model.LogRecord]chan error
}

func NewBroker() *Broker {
	return &Broker{subscribers: make(map[chan model.LogRecord]chan error)}
}

// Subscribe returns a log channel and an error channel; the error
// channel receives exactly one value (ErrSubscriberLagged) and is
// closed when the subscriber falls behind. Callers must call
// Unsubscribe when done, from the same goroutine that drains errCh.
func (b *Broker) Subscribe() (logs <-chan model.LogRecord, errs <-chan error) {
	ch := make(chan model.LogRecord, TailBufferSize)
	errCh := make(chan error, 1)
	b.mu.Lock()
	b.subscribers[ch] = errCh
	b.mu.Unlock()
	return ch, errCh
}

// Unsubscribe removes and closes a subscriber's channels.
func (b *Broker) Unsubscribe(logs <-chan model.LogRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch, errCh := range b.subscribers {
		if (<-chan model.LogRecord)(ch) == logs {
			delete(b.subscribers, ch)
			close(ch)
			close(errCh)
			return
		}
	}
}

// Publish broadcasts every record in a committed batch, in order, to
// every live subscriber. A subscriber whose buffer is already full is
// considered lagged: it is notified once via its error channel and
// dropped from the subscriber set so the broadcaster never blocks on
// it. Publish is called from the logs writer's single goroutine, so
// records from one batch are always delivered in post-commit order.
func (b *Broker) Publish(recs []model.LogRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rec := range recs {
		for ch, errCh := range b.subscribers {
			select {
			case ch <- rec:
			default:
				delete(b.subscribers, ch)
				select {
				case errCh <- ErrSubscriberLagged:
				default:
				}
				close(ch)
				close(errCh)
			}
		}
	}
}

// SubscriberCount reports the number of live subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
