package fakes

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"Lee_Moments/internal/pkg"
	"Lee_Moments/internal/service"
)

// Notifier 记录收到的所有通知
type Notifier struct {
	mu    sync.Mutex
	notes []service.Notification
	Err   error
}

func (n *Notifier) Notify(_ context.Context, notes ...service.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, notes...)
	return n.Err
}

func (n *Notifier) All() []service.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]service.Notification(nil), n.notes...)
}

func (n *Notifier) Of(kind service.NotificationKind) []service.Notification {
	var out []service.Notification
	for _, note := range n.All() {
		if note.Kind == kind {
			out = append(out, note)
		}
	}
	return out
}

func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = nil
}

// Clock 可手动推进的时钟
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Deps 用内存 store 拼出一套 service 依赖，锁用进程内 KeyedMutex
func Deps(s *Store, n *Notifier, clock *Clock) service.Deps {
	return service.Deps{
		Circles:       s.Circles,
		Members:       s.Members,
		Follows:       s.Follows,
		Moments:       s.Moments,
		Registrations: s.Registrations,
		Comments:      s.Comments,
		Users:         s.Users,
		Tx:            s,
		Locker:        pkg.NewKeyedMutex(),
		Notifier:      n,
		Logger:        DiscardLogger(),
		Now:           clock.Now,
	}
}
