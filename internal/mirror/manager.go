// Package mirror maintains live local mirrors of the remote collections: the
// option lists, the caller's permission record, the transactions the caller
// may read and, for admins, the user and permission directories. All change
// streams are funneled through one merge goroutine which owns the local
// state exclusively and publishes immutable snapshots downstream.
package mirror

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fsadev/suivifi/internal/config"
	"github.com/fsadev/suivifi/internal/ledger"
	"github.com/fsadev/suivifi/internal/perm"
	"github.com/fsadev/suivifi/internal/store"
)

type sourceKind int

const (
	srcOptions sourceKind = iota
	srcPermissions
	srcTransactions
	srcUsers
	srcAllPermissions
)

// sourceEvent is one change batch tagged with its origin. Transaction
// batches additionally carry the subscription generation that produced them
// so batches from a cancelled generation can be dropped.
type sourceEvent struct {
	kind  sourceKind
	gen   uint64
	batch []store.Event
}

// Manager runs the subscriptions for one signed-in user.
type Manager struct {
	st    store.Store
	log   zerolog.Logger
	paths config.Paths
	user  ledger.Identity
	admin bool

	ctx    context.Context
	cancel context.CancelFunc

	events    chan sourceEvent
	snapshots chan Snapshot
	done      chan struct{}

	startOnce  sync.Once
	stopOnce   sync.Once
	forwarders sync.WaitGroup

	// baseSubs are the subscriptions opened once at start (options, own
	// permissions, admin directories). Written in Start, read at teardown.
	baseSubs []store.Subscription

	// Everything below is owned by the run goroutine.
	txDocs  map[string]ledger.Transaction
	options ledger.OptionLists
	perms   ledger.Permissions
	users   map[string]User
	allPerm map[string]ledger.Permissions
	txGen   uint64
	txSubs  []store.Subscription
}

// New creates a manager for the given user session. isAdmin grants the
// unfiltered transaction subscription and the directory mirrors.
func New(st store.Store, log zerolog.Logger, paths config.Paths, user ledger.Identity, isAdmin bool) *Manager {
	return &Manager{
		st:        st,
		log:       log.With().Str("component", "mirror").Str("uid", user.UID).Logger(),
		paths:     paths,
		user:      user,
		admin:     isAdmin,
		events:    make(chan sourceEvent, 64),
		snapshots: make(chan Snapshot, 1),
		done:      make(chan struct{}),
		txDocs:    make(map[string]ledger.Transaction),
		users:     make(map[string]User),
		allPerm:   make(map[string]ledger.Permissions),
	}
}

// Snapshots delivers the latest published state. Only the most recent
// snapshot is retained; a slow consumer skips intermediate states, never
// sees stale ones. The channel closes after Stop.
func (m *Manager) Snapshots() <-chan Snapshot { return m.snapshots }

// Start opens the base subscriptions and starts the merge goroutine. The
// transaction subscriptions are opened from the merge goroutine once the
// permission record arrives, because the query filter depends on it.
func (m *Manager) Start(ctx context.Context) error {
	var startErr error
	m.startOnce.Do(func() {
		m.ctx, m.cancel = context.WithCancel(ctx)

		optSub, err := m.st.Subscribe(m.ctx, store.Query{Collection: m.paths.Options})
		if err != nil {
			startErr = fmt.Errorf("mirror: subscribe options: %w", err)
			return
		}
		m.track(optSub, srcOptions, 0)

		permSub, err := m.st.SubscribeDoc(m.ctx, m.paths.Permissions, m.user.UID)
		if err != nil {
			startErr = fmt.Errorf("mirror: subscribe permissions: %w", err)
			return
		}
		m.track(permSub, srcPermissions, 0)

		if m.admin {
			userSub, err := m.st.Subscribe(m.ctx, store.Query{Collection: m.paths.Users})
			if err != nil {
				startErr = fmt.Errorf("mirror: subscribe users: %w", err)
				return
			}
			m.track(userSub, srcUsers, 0)

			allPermSub, err := m.st.Subscribe(m.ctx, store.Query{Collection: m.paths.Permissions})
			if err != nil {
				startErr = fmt.Errorf("mirror: subscribe all permissions: %w", err)
				return
			}
			m.track(allPermSub, srcAllPermissions, 0)
		}

		go m.run()
	})
	if startErr != nil {
		// The run goroutine never launched, so its teardown duties fall
		// here; Stop must still return promptly after a failed Start.
		m.cancel()
		m.teardown()
		close(m.snapshots)
		close(m.done)
	}
	return startErr
}

// Stop cancels every open subscription and waits for the merge goroutine to
// drain. Idempotent; safe to call before Start or more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel == nil {
			return
		}
		m.cancel()
		<-m.done
	})
}

func (m *Manager) track(sub store.Subscription, kind sourceKind, gen uint64) {
	m.baseSubs = append(m.baseSubs, sub)
	m.forward(sub, kind, gen)
}

// forward pumps one subscription's batches onto the shared event queue.
func (m *Manager) forward(sub store.Subscription, kind sourceKind, gen uint64) {
	m.forwarders.Add(1)
	go func() {
		defer m.forwarders.Done()
		for batch := range sub.Events() {
			select {
			case m.events <- sourceEvent{kind: kind, gen: gen, batch: batch}:
			case <-m.ctx.Done():
				return
			}
		}
		// A closed channel with an error means the feed died; the mirror
		// keeps its last-known-good state.
		if err := sub.Err(); err != nil && m.ctx.Err() == nil {
			m.log.Error().Err(err).Int("source", int(kind)).Msg("subscription failed")
		}
	}()
}

func (m *Manager) teardown() {
	for _, sub := range m.baseSubs {
		sub.Stop()
	}
	for _, sub := range m.txSubs {
		sub.Stop()
	}
}

// run is the single merge routine. It is the only goroutine that mutates the
// local collections, so the "last applied per id" semantics hold without
// further locking.
func (m *Manager) run() {
	defer func() {
		m.teardown()
		m.forwarders.Wait()
		close(m.snapshots)
		close(m.done)
	}()
	for {
		select {
		case <-m.ctx.Done():
			return
		case ev := <-m.events:
			m.apply(ev)
		}
	}
}

func (m *Manager) apply(ev sourceEvent) {
	switch ev.kind {
	case srcOptions:
		for _, e := range ev.batch {
			if e.Kind == store.Removed {
				m.options.DecodeOptionList(e.ID, map[string]any{})
				continue
			}
			m.options.DecodeOptionList(e.ID, e.Data)
		}
		m.publish()

	case srcPermissions:
		for _, e := range ev.batch {
			if e.Kind == store.Removed {
				m.perms = ledger.Permissions{}
			} else {
				m.perms = ledger.DecodePermissions(e.Data)
			}
		}
		// The transaction query filter depends on the readable set, so
		// every permission change reopens the transaction subscriptions.
		m.reopenTransactions()
		m.publish()

	case srcTransactions:
		if ev.gen != m.txGen {
			// Late batch from a cancelled subscription generation.
			return
		}
		for _, e := range ev.batch {
			if e.Kind == store.Removed {
				delete(m.txDocs, e.ID)
				continue
			}
			tx, err := ledger.DecodeTransaction(e.ID, e.Data)
			if err != nil {
				m.log.Warn().Err(err).Str("id", e.ID).Msg("skipping undecodable transaction")
				continue
			}
			m.txDocs[e.ID] = tx
		}
		m.publish()

	case srcUsers:
		for _, e := range ev.batch {
			if e.Kind == store.Removed {
				delete(m.users, e.ID)
				continue
			}
			m.users[e.ID] = decodeUser(e.ID, e.Data)
		}
		m.publish()

	case srcAllPermissions:
		for _, e := range ev.batch {
			if e.Kind == store.Removed {
				delete(m.allPerm, e.ID)
				continue
			}
			m.allPerm[e.ID] = ledger.DecodePermissions(e.Data)
		}
		m.publish()
	}
}

// reopenTransactions cancels the current transaction subscriptions and opens
// a fresh generation matching the readable-account set. Non-admins get one
// filtered subscription per chunk of at most store.MaxInValues account
// names, running concurrently; admins get a single unfiltered one.
func (m *Manager) reopenTransactions() {
	for _, sub := range m.txSubs {
		sub.Stop()
	}
	m.txSubs = nil
	m.txGen++
	m.txDocs = make(map[string]ledger.Transaction)

	readable := perm.ReadableAccounts(m.perms, m.admin, m.options.Comptes)
	if !m.admin && len(readable) == 0 {
		// Nothing to subscribe to; the empty set is the published truth.
		return
	}

	var queries []store.Query
	if m.admin {
		queries = []store.Query{{Collection: m.paths.Transactions}}
	} else {
		for _, chunk := range chunkStrings(readable, store.MaxInValues) {
			queries = append(queries, store.Query{
				Collection: m.paths.Transactions,
				Field:      "compte",
				In:         chunk,
			})
		}
	}

	for _, q := range queries {
		sub, err := m.st.Subscribe(m.ctx, q)
		if err != nil {
			m.log.Error().Err(err).Strs("chunk", q.In).Msg("transaction subscription failed to open")
			continue
		}
		m.txSubs = append(m.txSubs, sub)
		m.forward(sub, srcTransactions, m.txGen)
	}
}

// publish builds a fresh snapshot and places it in the latest-wins slot.
func (m *Manager) publish() {
	snap := Snapshot{
		Transactions: make([]ledger.Transaction, 0, len(m.txDocs)),
		Options:      m.options,
		Permissions:  m.perms,
	}
	for _, tx := range m.txDocs {
		snap.Transactions = append(snap.Transactions, tx)
	}
	sortTransactions(snap.Transactions)

	if m.admin {
		snap.Users = make([]User, 0, len(m.users))
		for _, u := range m.users {
			snap.Users = append(snap.Users, u)
		}
		sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].Email < snap.Users[j].Email })
		snap.AllPermissions = make(map[string]ledger.Permissions, len(m.allPerm))
		for uid, p := range m.allPerm {
			snap.AllPermissions[uid] = p
		}
	}

	for {
		select {
		case m.snapshots <- snap:
			return
		default:
		}
		select {
		case <-m.snapshots: // discard the stale snapshot
		default:
		}
	}
}

// sortTransactions orders descending by settlement date, newest first, with
// the id as a deterministic tie-break.
func sortTransactions(txs []ledger.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		di, dj := txs[i].SettlementDate(), txs[j].SettlementDate()
		if di != dj {
			return dj.Before(di)
		}
		return txs[i].ID < txs[j].ID
	})
}

func chunkStrings(values []string, size int) [][]string {
	var chunks [][]string
	for len(values) > size {
		chunks = append(chunks, values[:size])
		values = values[size:]
	}
	if len(values) > 0 {
		chunks = append(chunks, values)
	}
	return chunks
}
