package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rmax-ai/schemabuilder/pkg/graph"
	"github.com/rmax-ai/schemabuilder/pkg/logger"
	"github.com/rmax-ai/schemabuilder/pkg/store"
)

// MaterializeLock is the lock held for the duration of a pass when locking
// is configured.
const MaterializeLock = "materialize"

// SchemaStore is the persistence the materializer writes to.
type SchemaStore interface {
	FindSchemaByTitle(ctx context.Context, title string) (*store.Schema, error)
	CreateSchema(ctx context.Context, in store.SchemaInput) (int64, error)
	FindPropertyByName(ctx context.Context, name string) (*store.Property, error)
	CreateProperty(ctx context.Context, name, iri string) (int64, error)
	AddPropertyMeta(ctx context.Context, propertyID int64, key, value string) error
}

// RunGuard is the durable "already materialized" flag.
type RunGuard interface {
	IsSet(ctx context.Context) (bool, error)
	Set(ctx context.Context) error
}

// Result counts what one materialization pass did.
type Result struct {
	GuardSet          bool `json:"guard_set"`
	LockBusy          bool `json:"lock_busy"`
	SchemasCreated    int  `json:"schemas_created"`
	SchemasExisting   int  `json:"schemas_existing"`
	PropertiesCreated int  `json:"properties_created"`
	PropertiesReused  int  `json:"properties_reused"`
	Skipped           int  `json:"skipped"`
	Failures          int  `json:"failures"`
}

// Materializer writes class patterns to the store once per guard lifetime.
type Materializer struct {
	store SchemaStore
	guard RunGuard
	log   *logger.Logger

	locker  store.Locker
	holder  string
	lockTTL time.Duration
}

func NewMaterializer(st SchemaStore, guard RunGuard, log *logger.Logger) *Materializer {
	return &Materializer{
		store: st,
		guard: guard,
		log:   logger.OrNop(log).Named("materializer"),
	}
}

// SetLocker makes every pass hold MaterializeLock. A process that cannot
// take it skips the pass.
func (m *Materializer) SetLocker(l store.Locker, holder string, ttl time.Duration) {
	m.locker = l
	m.holder = holder
	m.lockTTL = ttl
}

// Materialize creates one schema per class entry and one property per
// property name referenced by a class or stub entry, then sets the run guard. Individual write
// failures are logged and counted and do not stop the pass.
func (m *Materializer) Materialize(ctx context.Context, patterns *graph.Patterns) (Result, error) {
	var res Result

	// The guard is read before locking so a settled store sees no writes at all.
	if set, err := m.guardSet(ctx); err != nil || set {
		res.GuardSet = set
		return res, err
	}

	if m.locker != nil {
		ok, err := m.locker.TryLock(ctx, MaterializeLock, m.holder, m.lockTTL)
		if err != nil {
			return res, fmt.Errorf("take lock: %w", err)
		}
		if !ok {
			m.log.Info("lock_busy", "lock", MaterializeLock)
			res.LockBusy = true
			return res, nil
		}
		var release func()
		ctx, release = m.holdLock(ctx)
		defer release()

		// A peer may have finished its pass between the read and the lock.
		if set, err := m.guardSet(ctx); err != nil || set {
			res.GuardSet = set
			return res, err
		}
	}

	vocab := patterns.Vocabulary()
	for _, id := range patterns.IDs() {
		if ctx.Err() != nil {
			return res, context.Cause(ctx)
		}
		entry, _ := patterns.Get(id)
		if entry.IsStub() {
			// A class referenced by domainIncludes but never defined gets no
			// schema; its properties still become terms.
			for _, propID := range entry.PropertyList() {
				m.ensureProperty(ctx, patterns, vocab, propID, &res)
			}
			res.Skipped++
			continue
		}
		if !entry.IsClass() {
			if !entry.IsDataType() && entry.Node.Type.List && entry.Node.Type.Has(vocab.ClassMarker) {
				m.log.Debug("list_class_tag_skipped", "id", id, "type", entry.Node.Type.String())
			}
			res.Skipped++
			continue
		}
		m.materializeEntry(ctx, patterns, vocab, entry, &res)
	}

	if err := m.guard.Set(ctx); err != nil {
		return res, fmt.Errorf("set run guard: %w", err)
	}

	m.log.Info("materialized",
		"schemas_created", res.SchemasCreated,
		"schemas_existing", res.SchemasExisting,
		"properties_created", res.PropertiesCreated,
		"properties_reused", res.PropertiesReused,
		"skipped", res.Skipped,
		"failures", res.Failures,
	)
	return res, nil
}

func (m *Materializer) guardSet(ctx context.Context) (bool, error) {
	set, err := m.guard.IsSet(ctx)
	if err != nil {
		return false, fmt.Errorf("read run guard: %w", err)
	}
	if set {
		m.log.Debug("guard_set_skip")
	}
	return set, nil
}

// holdLock extends the lock every third of its TTL. Losing it cancels the
// returned context with store.ErrLockLost. release stops the extender and
// unlocks.
func (m *Materializer) holdLock(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(max(m.lockTTL/3, time.Millisecond))
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				err := m.locker.Extend(ctx, MaterializeLock, m.holder, m.lockTTL)
				if errors.Is(err, store.ErrLockLost) {
					m.log.Error("lock_lost", "lock", MaterializeLock)
					cancel(err)
					return
				}
				if err != nil {
					m.log.Warn("lock_extend_failed", "error", err)
				}
			}
		}
	}()

	return ctx, func() {
		close(done)
		wg.Wait()
		cancel(nil)
		if err := m.locker.Unlock(context.WithoutCancel(parent), MaterializeLock, m.holder); err != nil {
			m.log.Warn("unlock_failed", "error", err)
		}
	}
}

func (m *Materializer) materializeEntry(ctx context.Context, patterns *graph.Patterns, vocab graph.Vocabulary, entry *graph.Entry, res *Result) {
	var propertyIDs []int64
	for _, propID := range entry.PropertyList() {
		id, ok := m.ensureProperty(ctx, patterns, vocab, propID, res)
		if ok {
			propertyIDs = append(propertyIDs, id)
		}
	}

	title := vocab.StripNamespace(entry.ID)
	_, err := m.store.FindSchemaByTitle(ctx, title)
	switch {
	case err == nil:
		res.SchemasExisting++
		return
	case !errors.Is(err, store.ErrNotFound):
		m.log.Error("schema_lookup_failed", "title", title, "error", err)
		res.Failures++
		return
	}

	_, err = m.store.CreateSchema(ctx, store.SchemaInput{
		Title:       title,
		Description: string(entry.Node.Comment),
		PropertyIDs: propertyIDs,
	})
	if err != nil {
		m.log.Error("schema_create_failed", "title", title, "error", err)
		res.Failures++
		return
	}
	res.SchemasCreated++
}

// ensureProperty finds or creates the property named by propID. Metadata is
// attached only on creation.
func (m *Materializer) ensureProperty(ctx context.Context, patterns *graph.Patterns, vocab graph.Vocabulary, propID string, res *Result) (int64, bool) {
	name := vocab.StripNamespace(propID)

	p, err := m.store.FindPropertyByName(ctx, name)
	if err == nil {
		res.PropertiesReused++
		return p.ID, true
	}
	if !errors.Is(err, store.ErrNotFound) {
		m.log.Error("property_lookup_failed", "name", name, "error", err)
		res.Failures++
		return 0, false
	}

	id, err := m.store.CreateProperty(ctx, name, propID)
	if err != nil {
		m.log.Error("property_create_failed", "name", name, "error", err)
		res.Failures++
		return 0, false
	}
	res.PropertiesCreated++

	if def, ok := patterns.Get(propID); ok {
		if types := def.AllowedTypeList(); len(types) > 0 {
			if err := m.store.AddPropertyMeta(ctx, id, store.MetaAllowedTypes, strings.Join(types, ",")); err != nil {
				m.log.Error("property_meta_failed", "name", name, "error", err)
				res.Failures++
			}
		}
	}
	return id, true
}
