package callgraph

import (
	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/logging"
	"github.com/tscg-project/tscg/internal/model"
	"github.com/tscg-project/tscg/internal/registry"
	"github.com/tscg-project/tscg/internal/store"
)

// defaultExtendsDepth bounds the DB-Bridge extends walk: a type's own
// persisted implementers, then its implementers' implementers, and so on,
// up to this many hops before giving up rather than resolving.
const defaultExtendsDepth = 5

// dbBridgeCache memoizes store round-trips within one run, keyed by
// (snapshot id, name) for type lookups, (type id) for member lookups, and
// (snapshot id, interface id) for implementer sets - the three lookup
// shapes Stage 8 repeats across many call sites against the same handful
// of cross-package types.
type dbBridgeCache struct {
	typeByName   map[string][]store.TypeRow
	membersOf    map[string][]store.MemberRow
	implementers map[string][]store.TypeRow
}

func newDBBridgeCache() *dbBridgeCache {
	return &dbBridgeCache{
		typeByName:   make(map[string][]store.TypeRow),
		membersOf:    make(map[string][]store.MemberRow),
		implementers: make(map[string][]store.TypeRow),
	}
}

// RunStage8 resolves residual method calls whose receiver type was never
// declared in the current project - it lives in a package analyzed into an
// earlier, separately-stored snapshot. This is the engine's only stage that
// reads persisted state rather than the in-memory type graph, so it runs
// last: every candidate it sees has already failed CHA, RTA, the external
// recognizer, and callback-pattern matching. Candidates are filtered against
// reg, the current run's Function Registry, before an edge is emitted: a
// function id that only existed in the prior snapshot (deleted or renamed
// since) is not a valid callee in this run and must not be written.
func RunStage8(db *store.Store, priorSnapshotID string, state *State, reg *registry.Registry, logger *zap.Logger) error {
	timer := logging.NewStageTimer(logger)

	if db == nil || priorSnapshotID == "" {
		timer.Done("stage8.db_bridge", zap.Int("edges", 0), zap.String("skipped", "no prior snapshot configured"))
		return nil
	}

	pending := state.UnresolvedAfterCHA
	state.UnresolvedAfterCHA = nil

	cache := newDBBridgeCache()
	var stillUnresolved []MethodCandidate
	emitted := 0

	for _, mc := range pending {
		if mc.ReceiverType == "" {
			stillUnresolved = append(stillUnresolved, mc)
			continue
		}

		candidateIDs, err := resolveAcrossSnapshot(db, priorSnapshotID, mc.ReceiverType, mc.MethodName, cache)
		if err != nil {
			logging.Recoverable(logger, "db_bridge lookup failed", err, zap.String("receiver_type", mc.ReceiverType))
			stillUnresolved = append(stillUnresolved, mc)
			continue
		}
		candidateIDs = filterLiveInRegistry(candidateIDs, reg)
		if len(candidateIDs) == 0 {
			stillUnresolved = append(stillUnresolved, mc)
			continue
		}

		state.AddEdge(model.CallEdge{
			ID:         modelEdgeID(mc.CallerID, candidateIDs[0], mc.File, mc.Line, mc.Col),
			CallerID:   mc.CallerID,
			CalleeID:   candidateIDs[0],
			CalleeName: mc.MethodName,
			Candidates: candidateIDs,
			File:       mc.File, Line: mc.Line, Col: mc.Col,
			CallType:   model.CallMethod,
			Context:    mc.Context,
			Resolution: model.ResolutionDBBridge,
			Confidence: 0.95,
			IsAsync:    mc.IsAsync,
		})
		emitted++
	}

	state.UnresolvedAfterCHA = stillUnresolved
	timer.Done("stage8.db_bridge", zap.Int("edges", emitted), zap.Int("unresolved", len(stillUnresolved)))
	return nil
}

// filterLiveInRegistry drops candidate ids the prior snapshot resolved to
// but that reg, built from the sources this run actually loaded, does not
// recognize. A nil reg (not expected outside tests) leaves ids unfiltered.
func filterLiveInRegistry(candidateIDs []string, reg *registry.Registry) []string {
	if reg == nil {
		return candidateIDs
	}
	live := candidateIDs[:0]
	for _, id := range candidateIDs {
		if reg.ByID(id) != nil {
			live = append(live, id)
		}
	}
	return live
}

// resolveAcrossSnapshot finds typeName in the prior snapshot's persisted
// type system, then walks its transitive implementer set (depth-bounded)
// looking for methodName declared directly on each. Unlike Stage 3, it does
// not follow extends chains for members: an implementer that only inherits
// methodName contributes no candidate.
func resolveAcrossSnapshot(db *store.Store, snapshotID, typeName, methodName string, cache *dbBridgeCache) ([]string, error) {
	types, err := cachedTypeByName(db, snapshotID, typeName, cache)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, nil
	}

	var ids []string
	seen := make(map[string]bool)

	for _, td := range types {
		if m := memberMatch(db, td.ID, methodName, cache); m != "" && !seen[m] {
			seen[m] = true
			ids = append(ids, m)
		}

		frontier := []string{td.ID}
		for depth := 0; depth < defaultExtendsDepth && len(frontier) > 0; depth++ {
			var next []string
			for _, id := range frontier {
				implementers, err := cachedImplementers(db, snapshotID, id, cache)
				if err != nil {
					return nil, err
				}
				for _, impl := range implementers {
					if m := memberMatch(db, impl.ID, methodName, cache); m != "" && !seen[m] {
						seen[m] = true
						ids = append(ids, m)
					}
					next = append(next, impl.ID)
				}
			}
			frontier = next
		}
	}
	return ids, nil
}

func memberMatch(db *store.Store, typeID, methodName string, cache *dbBridgeCache) string {
	members, ok := cache.membersOf[typeID]
	if !ok {
		var err error
		members, err = db.MembersOf(typeID)
		if err != nil {
			return ""
		}
		cache.membersOf[typeID] = members
	}
	for _, m := range members {
		if m.Name == methodName && m.FunctionID != "" {
			return m.FunctionID
		}
	}
	return ""
}

func cachedTypeByName(db *store.Store, snapshotID, name string, cache *dbBridgeCache) ([]store.TypeRow, error) {
	key := snapshotID + "\x1f" + name
	if rows, ok := cache.typeByName[key]; ok {
		return rows, nil
	}
	rows, err := db.TypeByName(snapshotID, name)
	if err != nil {
		return nil, err
	}
	cache.typeByName[key] = rows
	return rows, nil
}

func cachedImplementers(db *store.Store, snapshotID, typeID string, cache *dbBridgeCache) ([]store.TypeRow, error) {
	key := snapshotID + "\x1f" + typeID
	if rows, ok := cache.implementers[key]; ok {
		return rows, nil
	}
	rows, err := db.ImplementersOf(snapshotID, typeID)
	if err != nil {
		return nil, err
	}
	cache.implementers[key] = rows
	return rows, nil
}
