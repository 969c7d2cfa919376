package engine

import (
	"errors"

	"github.com/clawscli/mesa/internal/log"
	"github.com/clawscli/mesa/internal/state"
	"github.com/clawscli/mesa/internal/store"
)

// SaveState writes the persistable state to the configured store. The state
// calls it after sort, search and column changes.
func (e *Engine) SaveState() error {
	if e.opts.Store == nil {
		return nil
	}
	p := e.st.Persisted()
	p.Hash = e.opts.StorageHash
	p.BodyHeight = e.bodyHeight
	value, err := store.Encode(p)
	if err != nil {
		return err
	}
	return e.opts.Store.Save(e.opts.StorageKey, value)
}

func (e *Engine) save(reason string) {
	if e.opts.Store == nil {
		return
	}
	if err := e.SaveState(); err != nil {
		log.Warn("failed to persist view state", "reason", reason, "error", err)
	}
}

func (e *Engine) restore() {
	key := e.opts.StorageKey
	raw, err := e.opts.Store.Load(key)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		log.Warn("failed to load view state", "key", key, "error", err)
		return
	}

	var p state.Persisted
	if err := store.Decode(raw, &p); err != nil {
		log.Warn("discarding unreadable view state", "key", key, "error", err)
		return
	}
	if p.Hash != e.opts.StorageHash {
		log.Info("discarding view state saved under another hash", "key", key, "saved", p.Hash, "want", e.opts.StorageHash)
		return
	}

	e.st.Restore(p)
	if p.BodyHeight > 0 && !e.opts.FillHeight {
		e.bodyHeight = p.BodyHeight
	}
	log.Debug("restored view state", "key", key, "sorts", len(p.SortOrder), "terms", len(p.SearchTerms))
}
