package inbox

import (
	"context"
	"time"
)

// Default polling cadences used by the CRM frontend.
const (
	DefaultInboxInterval  = 10 * time.Second
	DefaultThreadInterval = 3 * time.Second
	DefaultTypingInterval = 2 * time.Second
)

// Watcher polls the API on behalf of one participant. The inbox and unread
// badge are always polled; the thread and typing indicator only when Other
// is set. Callbacks run on the Run goroutine, one at a time.
type Watcher struct {
	Client *Client
	Me     Participant
	Other  *Participant

	InboxInterval  time.Duration
	ThreadInterval time.Duration
	TypingInterval time.Duration

	OnInbox  func(conversations []Conversation, unread int64)
	OnThread func(messages []Message)
	OnTyping func(typing bool)
	OnError  func(err error)
}

// NewWatcher creates a watcher with the default cadences.
func NewWatcher(c *Client, me Participant) *Watcher {
	return &Watcher{
		Client:         c,
		Me:             me,
		InboxInterval:  DefaultInboxInterval,
		ThreadInterval: DefaultThreadInterval,
		TypingInterval: DefaultTypingInterval,
	}
}

// Run polls until ctx is canceled. Each poll fires once immediately.
// OnThread is only called when the thread changed and OnTyping only when
// the indicator flipped.
func (w *Watcher) Run(ctx context.Context) error {
	inbox := time.NewTicker(orDefault(w.InboxInterval, DefaultInboxInterval))
	defer inbox.Stop()

	var threadC, typingC <-chan time.Time
	if w.Other != nil {
		thread := time.NewTicker(orDefault(w.ThreadInterval, DefaultThreadInterval))
		defer thread.Stop()
		typing := time.NewTicker(orDefault(w.TypingInterval, DefaultTypingInterval))
		defer typing.Stop()
		threadC, typingC = thread.C, typing.C
	}

	var (
		lastThread threadState
		lastTyping bool
	)

	w.pollInbox(ctx)
	if w.Other != nil {
		lastThread = w.pollThread(ctx, lastThread)
		lastTyping = w.pollTyping(ctx, lastTyping, true)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-inbox.C:
			w.pollInbox(ctx)
		case <-threadC:
			lastThread = w.pollThread(ctx, lastThread)
		case <-typingC:
			lastTyping = w.pollTyping(ctx, lastTyping, false)
		}
	}
}

func (w *Watcher) pollInbox(ctx context.Context) {
	convs, err := w.Client.ListConversations(ctx, w.Me)
	if err != nil {
		w.fail(ctx, err)
		return
	}
	unread, err := w.Client.UnreadCount(ctx, w.Me)
	if err != nil {
		w.fail(ctx, err)
		return
	}
	if w.OnInbox != nil {
		w.OnInbox(convs, unread)
	}
}

// threadState is what a thread poll compares against to detect changes.
type threadState struct {
	count  int
	lastID int64
	seen   bool
}

func (w *Watcher) pollThread(ctx context.Context, prev threadState) threadState {
	msgs, err := w.Client.ListThread(ctx, w.Me, *w.Other)
	if err != nil {
		w.fail(ctx, err)
		return prev
	}

	next := threadState{count: len(msgs), seen: true}
	if len(msgs) > 0 {
		next.lastID = msgs[len(msgs)-1].ID
	}
	if next != prev && w.OnThread != nil {
		w.OnThread(msgs)
	}
	return next
}

func (w *Watcher) pollTyping(ctx context.Context, prev, first bool) bool {
	typing, err := w.Client.IsTyping(ctx, w.Me, *w.Other)
	if err != nil {
		w.fail(ctx, err)
		return prev
	}
	if (first || typing != prev) && w.OnTyping != nil {
		w.OnTyping(typing)
	}
	return typing
}

func (w *Watcher) fail(ctx context.Context, err error) {
	// Errors caused by shutdown are not worth reporting.
	if ctx.Err() != nil {
		return
	}
	if w.OnError != nil {
		w.OnError(err)
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
