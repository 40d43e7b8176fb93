package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"
)

// KV is the durable key-value storage a ledger is persisted to.
type KV interface {
	// Get returns the value under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// ledgerSchema describes the persisted form: the full ordered entry list.
const ledgerSchema = `{
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["route", "permitted", "required", "completed", "revisitAfterCompleted"],
    "properties": {
      "route": {"type": "string", "minLength": 1},
      "permitted": {"type": "boolean"},
      "required": {"type": "boolean"},
      "completed": {"type": "boolean"},
      "revisitAfterCompleted": {"type": "boolean"}
    }
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func ledgerValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(ledgerSchema), &doc); err != nil {
			compileErr = fmt.Errorf("parse ledger schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://route-ledger.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(url)
	})
	return compiled, compileErr
}

// Decode parses and validates a persisted ledger.
func Decode(raw []byte) (*Ledger, error) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	v, err := ledgerValidator()
	if err != nil {
		return nil, err
	}
	if err := v.Validate(parsed); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	var entries []RouteEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return New(entries)
}

// Encode serializes the full ordered entry list.
func Encode(l *Ledger) ([]byte, error) {
	return json.Marshal(l.entries)
}

// Adapter loads and saves one participant's ledger under a fixed key.
type Adapter struct {
	kv    KV
	key   string
	table []RouteEntry
	log   *zap.Logger
}

// NewAdapter creates an adapter. table is the route table fresh ledgers are
// built from; an empty key means StorageKey.
func NewAdapter(kv KV, key string, table []RouteEntry, log *zap.Logger) *Adapter {
	if key == "" {
		key = StorageKey
	}
	if len(table) == 0 {
		table = DefaultRoutes()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{kv: kv, key: key, table: table, log: log}
}

// Key returns the storage key.
func (a *Adapter) Key() string {
	return a.key
}

// Fresh returns a new ledger built from the adapter's route table.
func (a *Adapter) Fresh() *Ledger {
	l, err := Initial(a.table)
	if err != nil {
		a.log.Warn("invalid route table; using defaults", zap.Error(err))
		return Default()
	}
	return l
}

// Load rehydrates the ledger. A missing, unreadable, or malformed value, or
// one whose routes differ from the route table, yields a fresh ledger.
func (a *Adapter) Load(ctx context.Context) *Ledger {
	raw, ok, err := a.kv.Get(ctx, a.key)
	if err != nil {
		a.log.Warn("load ledger failed; starting fresh", zap.String("key", a.key), zap.Error(err))
		return a.Fresh()
	}
	if !ok {
		a.log.Debug("no stored ledger; starting fresh", zap.String("key", a.key))
		return a.Fresh()
	}
	l, err := Decode(raw)
	if err != nil {
		a.log.Warn("stored ledger rejected; starting fresh", zap.String("key", a.key), zap.Error(err))
		return a.Fresh()
	}
	if !sameRoutes(l, a.table) {
		a.log.Warn("stored ledger does not match route table; starting fresh", zap.String("key", a.key))
		return a.Fresh()
	}
	return l
}

// Save writes the whole ledger.
func (a *Adapter) Save(ctx context.Context, l *Ledger) error {
	raw, err := Encode(l)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := a.kv.Put(ctx, a.key, raw); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// Clear removes the stored ledger.
func (a *Adapter) Clear(ctx context.Context) error {
	return a.kv.Delete(ctx, a.key)
}

func sameRoutes(l *Ledger, table []RouteEntry) bool {
	if l.Len() != len(table) {
		return false
	}
	for i, e := range l.entries {
		if e.Route != table[i].Route {
			return false
		}
	}
	return true
}
