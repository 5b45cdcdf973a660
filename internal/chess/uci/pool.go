package uci

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
)

type PoolConfig struct {
	BinaryPath        string
	PerPresetCapacity int
}

// Pool keeps idle engine processes per option set so play and analysis never share one.
type Pool struct {
	binaryPath        string
	perPresetCapacity int

	mu       sync.Mutex
	buckets  map[Options]*sessionBucket
	sessions map[*Session]*sessionBucket
}

// NewPool resolves the binary through PATH; a missing engine is reported here, not at first use.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	resolved, err := exec.LookPath(cfg.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("stockfish binary check: %w", err)
	}

	capacity := cfg.PerPresetCapacity
	if capacity <= 0 {
		capacity = defaultPerPresetCapacity()
	}

	p := &Pool{
		binaryPath:        resolved,
		perPresetCapacity: capacity,
		buckets:           make(map[Options]*sessionBucket),
		sessions:          make(map[*Session]*sessionBucket),
	}
	return p, nil
}

func (p *Pool) Acquire(ctx context.Context, opt Options) (*Session, error) {
	bucket := p.bucketFor(opt)

	for {
		select {
		case session := <-bucket.idle:
			if s, ok := p.reuse(ctx, session, bucket); ok {
				return s, nil
			}
			continue
		default:
		}

		session, err := bucket.create(ctx)
		if err == nil {
			p.track(session, bucket)
			return session, nil
		}
		if !errors.Is(err, errBucketAtCapacity) {
			return nil, err
		}

		select {
		case session := <-bucket.idle:
			if s, ok := p.reuse(ctx, session, bucket); ok {
				return s, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Pool) reuse(ctx context.Context, session *Session, bucket *sessionBucket) (*Session, bool) {
	if session == nil {
		return nil, false
	}
	if !session.Healthy() {
		bucket.discard(session)
		return nil, false
	}
	if err := session.EnsureReady(ctx); err != nil {
		bucket.discard(session)
		return nil, false
	}
	p.track(session, bucket)
	return session, true
}

// Release returns a session to its bucket. A non-nil err or an unhealthy session is discarded.
func (p *Pool) Release(session *Session, err error) {
	if session == nil {
		return
	}

	p.mu.Lock()
	bucket, ok := p.sessions[session]
	if !ok {
		p.mu.Unlock()
		_ = session.Close()
		return
	}

	if err != nil || !session.Healthy() {
		delete(p.sessions, session)
		p.mu.Unlock()
		bucket.discard(session)
		return
	}
	delete(p.sessions, session)
	p.mu.Unlock()

	if !bucket.put(session) {
		bucket.discard(session)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	buckets := make([]*sessionBucket, 0, len(p.buckets))
	for _, b := range p.buckets {
		buckets = append(buckets, b)
	}
	inUse := make([]*Session, 0, len(p.sessions))
	for s := range p.sessions {
		inUse = append(inUse, s)
	}
	p.sessions = make(map[*Session]*sessionBucket)
	p.mu.Unlock()

	var errs []error
	for _, s := range inUse {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, bucket := range buckets {
		errs = append(errs, bucket.drain()...)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Idle reports the number of parked sessions for opt.
func (p *Pool) Idle(opt Options) int {
	p.mu.Lock()
	bucket, ok := p.buckets[opt.normalized()]
	p.mu.Unlock()
	if !ok {
		return 0
	}
	return len(bucket.idle)
}

func (p *Pool) track(session *Session, bucket *sessionBucket) {
	p.mu.Lock()
	p.sessions[session] = bucket
	p.mu.Unlock()
}

// bucketFor returns the bucket for opt, creating it on first use. Option sets that
// configure the engine the same way share a bucket.
func (p *Pool) bucketFor(opt Options) *sessionBucket {
	opt = opt.normalized()
	p.mu.Lock()
	defer p.mu.Unlock()
	if bucket, ok := p.buckets[opt]; ok {
		return bucket
	}
	bucket := newSessionBucket(p.binaryPath, opt, p.perPresetCapacity)
	p.buckets[opt] = bucket
	return bucket
}

type sessionBucket struct {
	opt        Options
	capacity   int
	binaryPath string

	mu    sync.Mutex
	total int
	idle  chan *Session
}

var errBucketAtCapacity = errors.New("session bucket at capacity")

func newSessionBucket(binaryPath string, opt Options, capacity int) *sessionBucket {
	if capacity <= 0 {
		capacity = 1
	}
	return &sessionBucket{
		opt:        opt,
		capacity:   capacity,
		binaryPath: binaryPath,
		idle:       make(chan *Session, capacity),
	}
}

// create starts a new process unless the bucket already owns capacity sessions.
func (b *sessionBucket) create(ctx context.Context) (*Session, error) {
	b.mu.Lock()
	if b.total >= b.capacity {
		b.mu.Unlock()
		return nil, errBucketAtCapacity
	}
	b.total++
	b.mu.Unlock()

	session, err := NewSession(ctx, b.binaryPath, b.opt)
	if err != nil {
		b.decrement()
		return nil, err
	}
	return session, nil
}

func (b *sessionBucket) put(session *Session) bool {
	select {
	case b.idle <- session:
		return true
	default:
		return false
	}
}

func (b *sessionBucket) discard(session *Session) {
	if session != nil {
		_ = session.Close()
	}
	b.decrement()
}

// drain closes every parked session and returns the close errors.
func (b *sessionBucket) drain() []error {
	var errs []error
	for {
		select {
		case session := <-b.idle:
			if session == nil {
				continue
			}
			if err := session.Close(); err != nil {
				errs = append(errs, err)
			}
			b.decrement()
		default:
			return errs
		}
	}
}

func (b *sessionBucket) decrement() {
	b.mu.Lock()
	if b.total > 0 {
		b.total--
	}
	b.mu.Unlock()
}

func defaultPerPresetCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 4 {
		return 4
	}
	return cpu
}
