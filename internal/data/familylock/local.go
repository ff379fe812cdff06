package familylock

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/pkg/dbctx"
)

// Local is an in-process keyed lock. It serializes families inside one process only.
type Local struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

func NewLocal() *Local {
	return &Local{held: make(map[uuid.UUID]struct{})}
}

func (l *Local) TxScoped() bool { return false }

func (l *Local) Name() string { return "local" }

func (l *Local) TryLock(_ dbctx.Context, rootID uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[rootID]; busy {
		return nil, ErrBusy
	}
	l.held[rootID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, rootID)
			l.mu.Unlock()
		})
	}, nil
}

// Held reports whether rootID is currently locked.
func (l *Local) Held(rootID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[rootID]
	return ok
}
