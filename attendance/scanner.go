package attendance

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"
)

// Scanner is an NFC reader. Hardware integration lives behind this interface;
// events stop after Stop or when the context passed to Start ends.
type Scanner interface {
	Start(ctx context.Context) error
	Stop()
	Events() <-chan TagEvent
	Errors() <-chan error
}

var _ Scanner = (*ReaderScanner)(nil)

// ReaderScanner is a software scanner that reads one tag per line,
// optionally followed by NDEF text: "04A224B2C35E80 hello".
type ReaderScanner struct {
	r       io.Reader
	nowTime func() time.Time
	events  chan TagEvent
	errs    chan error

	lock   sync.Mutex
	cancel context.CancelFunc
}

func NewReaderScanner(r io.Reader) *ReaderScanner {
	return &ReaderScanner{
		r:       r,
		nowTime: time.Now,
		events:  make(chan TagEvent),
		errs:    make(chan error, 1),
	}
}

func (s *ReaderScanner) Events() <-chan TagEvent {
	return s.events
}

func (s *ReaderScanner) Errors() <-chan error {
	return s.errs
}

// Start begins reading. The events channel is closed at end of input.
func (s *ReaderScanner) Start(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		defer close(s.events)
		lines := bufio.NewScanner(s.r)
		for lines.Scan() {
			fields := strings.SplitN(strings.TrimSpace(lines.Text()), " ", 2)
			if fields[0] == "" {
				continue
			}
			ev := TagEvent{TagID: strings.ToUpper(fields[0]), ScannedAt: s.nowTime()}
			if len(fields) == 2 {
				ev.NDEF = strings.TrimSpace(fields[1])
			}
			select {
			case s.events <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := lines.Err(); err != nil {
			select {
			case s.errs <- err:
			default:
			}
		}
	}()
	return nil
}

func (s *ReaderScanner) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
