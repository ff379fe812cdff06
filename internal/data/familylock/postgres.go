package familylock

import (
	"errors"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/pkg/dbctx"
)

const DefaultNamespace = "brief_family"

// Postgres takes a transaction-scoped advisory lock keyed by the family root. The lock is
// dropped by Postgres at commit or rollback.
type Postgres struct {
	namespace string
}

func NewPostgres(namespace string) *Postgres {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Postgres{namespace: namespace}
}

func (p *Postgres) TxScoped() bool { return true }

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) TryLock(dbc dbctx.Context, rootID uuid.UUID) (func(), error) {
	if dbc.Tx == nil {
		return nil, errors.New("postgres family lock requires a transaction")
	}
	var ok bool
	if err := dbc.Conn(nil).Raw("SELECT pg_try_advisory_xact_lock(?)", AdvisoryKey(p.namespace, rootID)).Scan(&ok).Error; err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {}, nil
}

func AdvisoryKey(namespace string, id uuid.UUID) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(namespace))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(id.String()))
	return int64(h.Sum64())
}
