package study

import (
	"sync"
)

// ResultTable is the ordered configuration -> policy -> record table of a
// sweep. Slots are registered up front from the catalog and each is written
// once; distinct slots may be written concurrently.
type ResultTable struct {
	mu             sync.RWMutex
	keys           []Key
	configurations []string
	policies       map[string][]string
	slots          map[Key]*slot
}

type slot struct {
	record  ConfigurationRecord
	written bool
}

// NewResultTable registers one empty slot per catalog cell
func NewResultTable(c *Catalog) *ResultTable {
	t := &ResultTable{
		keys:           c.Keys(),
		configurations: c.Configurations(),
		policies:       make(map[string][]string),
		slots:          make(map[Key]*slot, c.Len()),
	}
	for _, cfg := range t.configurations {
		t.policies[cfg] = c.Policies(cfg)
	}
	for _, k := range t.keys {
		t.slots[k] = &slot{}
	}
	return t
}

// Put writes an augmented record into its slot
func (t *ResultTable) Put(key Key, rec ConfigurationRecord) error {
	if rec.Key() != key {
		return &UnknownCellError{Key: key}
	}
	if !rec.Augmented() {
		return &NotAugmentedError{Key: key}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[key]
	if !ok {
		return &UnknownCellError{Key: key}
	}
	if s.written {
		return &AlreadyWrittenError{Key: key, What: "result"}
	}
	s.record = rec
	s.written = true
	return nil
}

// Get returns the record written for key
func (t *ResultTable) Get(key Key) (ConfigurationRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.slots[key]
	if !ok || !s.written {
		return ConfigurationRecord{}, false
	}
	return s.record, true
}

// Configurations lists the table's configurations in catalog order
func (t *ResultTable) Configurations() []string {
	return append([]string(nil), t.configurations...)
}

// Policies lists the policies of configuration in catalog order
func (t *ResultTable) Policies(configuration string) []string {
	return append([]string(nil), t.policies[configuration]...)
}

// Keys lists every slot in catalog order, written or not
func (t *ResultTable) Keys() []Key {
	return append([]Key(nil), t.keys...)
}

// Len returns the number of written slots
func (t *ResultTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, s := range t.slots {
		if s.written {
			n++
		}
	}
	return n
}

// Complete reports whether every slot is written
func (t *ResultTable) Complete() bool { return t.Len() == len(t.keys) }

// Each calls fn for every written slot in catalog order until fn returns false
func (t *ResultTable) Each(fn func(key Key, rec ConfigurationRecord) bool) {
	for _, k := range t.keys {
		rec, ok := t.Get(k)
		if !ok {
			continue
		}
		if !fn(k, rec) {
			return
		}
	}
}
