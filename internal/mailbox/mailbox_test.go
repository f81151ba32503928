package mailbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_SendReceive(t *testing.T) {
	b := New(DefaultKey)
	require.NoError(t, b.Send(4, []byte("play")))

	got, err := b.Receive(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("play"), got)
	assert.Equal(t, 0, b.Len())
}

func TestMailbox_FIFOPerTag(t *testing.T) {
	b := New(DefaultKey)
	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, b.Send(7, []byte(p)))
	}
	ctx := context.Background()
	for _, want := range []string{"a", "b", "c"} {
		got, err := b.Receive(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestMailbox_OtherTagsStayQueued(t *testing.T) {
	b := New(DefaultKey)
	require.NoError(t, b.Send(1, []byte("join")))
	require.NoError(t, b.Send(99, []byte("private")))
	require.NoError(t, b.Send(4, []byte("play")))

	got, err := b.Receive(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, "private", string(got))
	assert.Equal(t, 2, b.Len())

	_, ok := b.TryReceive(99)
	assert.False(t, ok)
}

func TestMailbox_ReceiveAnyKeepsArrivalOrder(t *testing.T) {
	b := New(DefaultKey)
	require.NoError(t, b.Send(4, []byte("first")))
	require.NoError(t, b.Send(50, []byte("reply")))
	require.NoError(t, b.Send(1, []byte("second")))
	require.NoError(t, b.Send(3, []byte("third")))

	ctx := context.Background()
	for _, want := range []struct {
		tag     int64
		payload string
	}{{4, "first"}, {1, "second"}, {3, "third"}} {
		m, err := b.ReceiveAny(ctx, 1, 3, 4)
		require.NoError(t, err)
		assert.Equal(t, want.tag, m.Tag)
		assert.Equal(t, want.payload, string(m.Payload))
	}
	assert.Equal(t, 1, b.Len())
}

func TestMailbox_ReceiveBlocksUntilMatchingSend(t *testing.T) {
	b := New(DefaultKey)
	done := make(chan []byte, 1)
	go func() {
		p, err := b.Receive(context.Background(), 42)
		if err == nil {
			done <- p
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, b.Send(41, []byte("not mine")))

	select {
	case <-done:
		t.Fatal("receive returned for the wrong tag")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, b.Send(42, []byte("mine")))
	select {
	case p := <-done:
		assert.Equal(t, "mine", string(p))
	case <-time.After(time.Second):
		t.Fatal("receive did not wake up")
	}
}

func TestMailbox_ReceiveHonoursContext(t *testing.T) {
	b := New(DefaultKey)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Receive(ctx, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMailbox_CloseDrainsThenFails(t *testing.T) {
	b := New(DefaultKey)
	require.NoError(t, b.Send(9, []byte("end")))
	b.Close()
	b.Close()

	assert.ErrorIs(t, b.Send(9, []byte("late")), ErrClosed)

	ctx := context.Background()
	got, err := b.Receive(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "end", string(got))

	_, err = b.Receive(ctx, 9)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMailbox_CloseWakesWaiters(t *testing.T) {
	b := New(DefaultKey)
	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(tag int64) {
			defer wg.Done()
			_, err := b.Receive(context.Background(), tag)
			errs <- err
		}(int64(10 + i))
	}
	time.Sleep(10 * time.Millisecond)
	b.Close()
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.ErrorIs(t, err, ErrClosed)
	}
}

func TestMailbox_SendCopiesPayload(t *testing.T) {
	b := New(DefaultKey)
	p := []byte("abc")
	require.NoError(t, b.Send(6, p))
	p[0] = 'x'

	got, err := b.Receive(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
