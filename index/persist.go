package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rushteam/procurekit/core"
)

func (ix *Index) entriesKey() string   { return ix.prefix + "entries" }
func (ix *Index) signatureKey() string { return ix.prefix + "signature" }

func (ix *Index) persist(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return core.WrapError(core.ModuleIndex, core.ErrorCodeInvalidInput, "encode entry "+entry.ID(), err)
	}
	if err := ix.store.HSet(ctx, ix.entriesKey(), entry.ID(), data); err != nil {
		return core.WrapError(core.ModuleIndex, core.ErrorCodeExternalService,
			fmt.Sprintf("persist entry %s to %s", entry.ID(), ix.store.Name()), err)
	}
	return nil
}

// Load 从 store 恢复索引，返回恢复的记录数。
//
// 持久化的特征只有在 Space 签名一致时才直接复用；
// 签名变化（Space 声明或模型变更）时按原始属性重新计算特征。
// 未配置 store 时为空操作。
func (ix *Index) Load(ctx context.Context) (int, error) {
	if ix.store == nil {
		return 0, nil
	}
	sig := ix.spaces.Signature()
	stored, err := ix.store.Get(ctx, ix.signatureKey())
	if err != nil && !core.IsStoreNotFound(err) {
		return 0, core.WrapError(core.ModuleIndex, core.ErrorCodeExternalService, "read index signature", err)
	}
	reuse := err == nil && string(stored) == sig

	raw, err := ix.store.HGetAll(ctx, ix.entriesKey())
	if err != nil {
		return 0, core.WrapError(core.ModuleIndex, core.ErrorCodeExternalService, "read index entries", err)
	}

	var (
		stale []*core.Entity
		errs  []error
		n     int
	)
	for id, data := range raw {
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			errs = append(errs, fmt.Errorf("decode entry %s: %w", id, err))
			continue
		}
		if entry.Entity == nil || entry.Entity.ID != id {
			errs = append(errs, fmt.Errorf("decode entry %s: %w", id, errMalformed))
			continue
		}
		if err := ix.catalog.Check(entry.Entity); err != nil {
			errs = append(errs, err)
			continue
		}
		if !reuse || !ix.complete(&entry) {
			stale = append(stale, entry.Entity)
			continue
		}
		ix.advanceClock(entry.Version)
		if ok, _ := ix.publish(ctx, &entry, false); ok {
			n++
		}
	}

	if len(stale) > 0 {
		ix.logger.Info("recomputing features for stored entries", "count", len(stale), "signature_match", reuse)
		if err := ix.UpsertBatch(ctx, stale); err != nil {
			errs = append(errs, err)
		}
		for _, e := range stale {
			if _, ok := ix.Entry(e.ID); ok {
				n++
			}
		}
	}

	if err := ix.store.Set(ctx, ix.signatureKey(), []byte(sig)); err != nil {
		errs = append(errs, core.WrapError(core.ModuleIndex, core.ErrorCodeExternalService, "write index signature", err))
	}
	ix.logger.Info("index loaded", "store", ix.store.Name(), "entries", ix.Len())
	return n, errors.Join(errs...)
}

var errMalformed = errors.New("malformed entry")

// complete 判断持久化的 Entry 是否包含当前所有 Space 的特征。
func (ix *Index) complete(entry *Entry) bool {
	for _, name := range ix.spaces.Names() {
		if _, ok := entry.Features[name]; !ok {
			return false
		}
	}
	return true
}

func (ix *Index) advanceClock(v uint64) {
	for {
		cur := ix.clock.Load()
		if cur >= v || ix.clock.CompareAndSwap(cur, v) {
			return
		}
	}
}
