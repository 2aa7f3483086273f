package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/paulbellamy/ratecounter"
)

const rateWindow = 5 * time.Second

type stats struct {
	messageRate   *ratecounter.RateCounter
	byteRate      *ratecounter.RateCounter
	totalMessages int64
	totalBytes    int64
}

func newStats() *stats {
	return &stats{
		messageRate: ratecounter.NewRateCounter(rateWindow),
		byteRate:    ratecounter.NewRateCounter(rateWindow),
	}
}

func (s *stats) add(messages, bytes int) {
	s.messageRate.Incr(int64(messages))
	s.byteRate.Incr(int64(bytes))
	atomic.AddInt64(&s.totalMessages, int64(messages))
	atomic.AddInt64(&s.totalBytes, int64(bytes))
}

func (s *stats) messages() int64 {
	return atomic.LoadInt64(&s.totalMessages)
}

func (s *stats) total() string {
	return fmt.Sprintf("%s messages, %s", humanize.Comma(s.messages()), humanize.Bytes(uint64(atomic.LoadInt64(&s.totalBytes))))
}

func (s *stats) String() string {
	perSecond := float64(time.Second) / float64(rateWindow)
	return fmt.Sprintf("%s (%.0f messages/sec, %s/sec)",
		s.total(),
		float64(s.messageRate.Rate())*perSecond,
		humanize.Bytes(uint64(float64(s.byteRate.Rate())*perSecond)))
}
