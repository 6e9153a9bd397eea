package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type static struct {
	id Identity
}

// Static returns a provider with a fixed identity.
func Static(userID string) Provider {
	return static{id: Identity{UserID: userID}}
}

func (s static) Subscribe(ctx context.Context) (<-chan Identity, error) {
	ch := make(chan Identity, 1)
	ch <- s.id
	close(ch)
	return ch, nil
}

// AnonymousProvider signs the user in with a random identity persisted on
// disk, so the same notes come back on the next run.
type AnonymousProvider struct {
	path string

	mu      sync.Mutex
	current Identity
	subs    map[chan Identity]struct{}
}

// Anonymous loads the identity stored at path, creating one if needed.
func Anonymous(path string) (*AnonymousProvider, error) {
	p := &AnonymousProvider{path: path, subs: make(map[chan Identity]struct{})}
	id, err := p.load()
	if err != nil {
		return nil, err
	}
	p.current = id
	return p, nil
}

func (p *AnonymousProvider) load() (Identity, error) {
	data, err := os.ReadFile(p.path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return Identity{UserID: id}, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Identity{}, fmt.Errorf("read identity: %w", err)
	}
	return p.create()
}

func (p *AnonymousProvider) create() (Identity, error) {
	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return Identity{}, fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(id+"\n"), 0o600); err != nil {
		return Identity{}, fmt.Errorf("write identity: %w", err)
	}
	return Identity{UserID: id}, nil
}

// Current returns the identity as of now.
func (p *AnonymousProvider) Current() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribe delivers the current identity and every later change.
func (p *AnonymousProvider) Subscribe(ctx context.Context) (<-chan Identity, error) {
	ch := make(chan Identity, 1)
	p.mu.Lock()
	ch <- p.current
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.subs, ch)
		close(ch)
		p.mu.Unlock()
	}()
	return ch, nil
}

// SignOut forgets the stored identity.
func (p *AnonymousProvider) SignOut() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove identity: %w", err)
	}
	p.publish(Identity{})
	return nil
}

// SignIn creates a fresh anonymous identity if nobody is signed in.
func (p *AnonymousProvider) SignIn() error {
	p.mu.Lock()
	present := p.current.Present()
	p.mu.Unlock()
	if present {
		return nil
	}
	id, err := p.create()
	if err != nil {
		return err
	}
	p.publish(id)
	return nil
}

// publish keeps only the latest identity in each subscriber's buffer.
func (p *AnonymousProvider) publish(id Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = id
	for ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- id
	}
}
