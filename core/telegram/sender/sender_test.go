package sender

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/telegram/stage"
)

type fakeClient struct {
	mu       sync.Mutex
	sent     []interface{}
	opts     []*tele.SendOptions
	deleted  []tele.StoredMessage
	failures int
	err      error
}

func (f *fakeClient) Send(_ tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	}
	f.sent = append(f.sent, what)
	if len(opts) > 0 {
		if o, ok := opts[0].(*tele.SendOptions); ok {
			f.opts = append(f.opts, o)
		}
	}
	return &tele.Message{ID: 40 + len(f.sent)}, nil
}

func (f *fakeClient) Delete(msg tele.Editable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, chat := msg.MessageSig()
	f.deleted = append(f.deleted, tele.StoredMessage{MessageID: id, ChatID: chat})
	return f.err
}

func TestBotMessengerSendRetriesAndReturnsID(t *testing.T) {
	client := &fakeClient{failures: 1}
	m := NewBotMessenger(client, 2, time.Millisecond)

	id, err := m.Send(context.Background(), 5, stage.Outgoing{Text: "hi", Keyboard: [][]string{{"a", "b"}}})
	require.NoError(t, err)
	assert.Equal(t, 41, id)
	require.Len(t, client.opts, 1)
	require.NotNil(t, client.opts[0].ReplyMarkup)
	assert.Len(t, client.opts[0].ReplyMarkup.ReplyKeyboard, 1)
}

func TestBotMessengerSendsDocument(t *testing.T) {
	client := &fakeClient{}
	m := NewBotMessenger(client, 1, time.Millisecond)

	_, err := m.Send(context.Background(), 5, stage.Outgoing{
		Text:     "receipt",
		Document: &stage.Document{Name: "order.pdf", Data: []byte("%PDF")},
	})
	require.NoError(t, err)
	doc, ok := client.sent[0].(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, "order.pdf", doc.FileName)
	assert.Equal(t, "receipt", doc.Caption)
}

// uploadingClient drains the document body like the Bot API upload does.
type uploadingClient struct {
	fakeClient
	uploads []int
}

func (u *uploadingClient) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if doc, ok := what.(*tele.Document); ok && doc.File.FileReader != nil {
		body, err := io.ReadAll(doc.File.FileReader)
		if err != nil {
			return nil, err
		}
		u.uploads = append(u.uploads, len(body))
	}
	return u.fakeClient.Send(to, what, opts...)
}

func TestBotMessengerRetryUploadsWholeDocument(t *testing.T) {
	client := &uploadingClient{fakeClient: fakeClient{failures: 1}}
	m := NewBotMessenger(client, 2, time.Millisecond)
	data := []byte("%PDF-1.3 body")

	_, err := m.Send(context.Background(), 5, stage.Outgoing{
		Document: &stage.Document{Name: "receipt.pdf", Data: data},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{len(data), len(data)}, client.uploads)
}

func TestBotMessengerDelete(t *testing.T) {
	client := &fakeClient{err: errors.New("telegram: message to delete not found (400)")}
	m := NewBotMessenger(client, 3, time.Millisecond)

	err := m.Delete(context.Background(), 9, 77)
	require.Error(t, err)
	assert.Equal(t, []tele.StoredMessage{{MessageID: "77", ChatID: 9}}, client.deleted)
}

func TestDispatcherRunsJobsAndCountsFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, MaxRetries: 1, RetryBackoff: time.Millisecond})
	var mu sync.Mutex
	ran := 0
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Submit(context.Background(), Job{Action: "notify", Run: func(context.Context) error {
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		}}))
	}
	require.NoError(t, d.Submit(context.Background(), Job{Action: "notify", Run: func(context.Context) error {
		return errors.New("forbidden: bot was blocked by the user")
	}}))
	d.Close()

	assert.Equal(t, 3, ran)
	assert.EqualValues(t, 3, d.Completed())
	assert.EqualValues(t, 1, d.ErrorCount())
	assert.ErrorIs(t, d.Submit(context.Background(), Job{Run: func(context.Context) error { return nil }}), ErrQueueClosed)
}

func TestDispatcherIgnoresCallerCancellation(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var got error
	require.NoError(t, d.Submit(ctx, Job{Action: "notify", Run: func(jobCtx context.Context) error {
		close(started)
		got = jobCtx.Err()
		return nil
	}}))
	cancel()
	d.Close()
	<-started
	assert.NoError(t, got)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "http_4xx", classifyError(errors.New("telegram: chat not found (400)")))
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))
	assert.Equal(t, "token bot<redacted> leaked", sanitizeErrorMessage(errors.New("token bot123:ABC-def leaked")))
}
