package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/clinica-estetica/turnos/libs/kafkax"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type memInbox struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (i *memInbox) Record(_ context.Context, id, _ string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.seen[id] {
		return false, nil
	}
	i.seen[id] = true
	return true, nil
}

func (i *memInbox) Forget(_ context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.seen, id)
	return nil
}

func message(offset int64, eventID string) kafka.Message {
	return kafka.Message{
		Topic:   "turnos.appointment.booked.v1",
		Offset:  offset,
		Headers: []kafka.Header{{Key: kafkax.HeaderEventID, Value: []byte(eventID)}},
	}
}

func run(t *testing.T, msgs []kafka.Message, handler Handler) (*fakeReader, *memInbox) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{msgs: msgs, cancel: cancel}
	inbox := &memInbox{seen: map[string]bool{}}
	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)), reader, inbox,
		Config{MaxAttempts: 3, Backoff: time.Millisecond}, handler)

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
	return reader, inbox
}

func TestDuplicatesAreHandledOnce(t *testing.T) {
	var calls []string
	reader, _ := run(t, []kafka.Message{message(1, "e-1"), message(2, "e-1"), message(3, "e-2")},
		func(_ context.Context, msg kafka.Message) error {
			calls = append(calls, kafkax.ExtractEventMeta(msg).EventID)
			return nil
		})

	if len(calls) != 2 || calls[0] != "e-1" || calls[1] != "e-2" {
		t.Fatalf("expected one call per event id, got %v", calls)
	}
	if len(reader.committed) != 3 {
		t.Fatalf("every message should be committed, got %v", reader.committed)
	}
}

func TestFailedHandlerIsRetriedThenDropped(t *testing.T) {
	attempts := 0
	_, inbox := run(t, []kafka.Message{message(7, "e-9")}, func(context.Context, kafka.Message) error {
		attempts++
		return errors.New("smtp down")
	})
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if inbox.seen["e-9"] {
		t.Fatal("failed event must not stay claimed")
	}
}

func TestRetrySucceeds(t *testing.T) {
	attempts := 0
	_, inbox := run(t, []kafka.Message{message(1, "e-3")}, func(context.Context, kafka.Message) error {
		attempts++
		if attempts < 2 {
			return errors.New("temporary")
		}
		return nil
	})
	if attempts != 2 || !inbox.seen["e-3"] {
		t.Fatalf("expected success on second attempt, attempts=%d seen=%v", attempts, inbox.seen)
	}
}
