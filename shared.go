package modbus

import "context"

// SharedClient lets multiple goroutines take turns driving one Client.
// Acquire blocks until no other holder is active (or ctx is done), and
// returns a release func that must be called exactly once. Grounded on the
// original implementation's SharedContext, which serializes access to one
// connection behind a tokio Mutex so several logical callers can share a
// single physical link.
type SharedClient struct {
	sem chan struct{}
	c   *Client
}

// NewSharedClient wraps c for use by multiple concurrent callers.
func NewSharedClient(c *Client) *SharedClient {
	s := &SharedClient{sem: make(chan struct{}, 1), c: c}
	s.sem <- struct{}{}
	return s
}

// Acquire waits for exclusive access to the underlying Client and returns
// it along with a release func. The caller must invoke release before the
// next Acquire can proceed.
func (s *SharedClient) Acquire(ctx context.Context) (*Client, func(), error) {
	select {
	case <-s.sem:
		return s.c, func() { s.sem <- struct{}{} }, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// Call acquires the client, performs one exchange, and releases it.
func (s *SharedClient) Call(ctx context.Context, slave Slave, req Request) (Response, error) {
	c, release, err := s.Acquire(ctx)
	if err != nil {
		return Response{}, err
	}
	defer release()
	return c.Call(ctx, slave, req)
}

// Disconnect closes the underlying Client. Callers should not use the
// SharedClient afterward.
func (s *SharedClient) Disconnect() error {
	return s.c.Disconnect()
}
