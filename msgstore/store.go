// Package msgstore archives simulation messages in a JetStream key-value
// bucket, so a simulation run can be inspected or replayed afterwards.
// Messages are keyed by simulation run, topic and message id.
package msgstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/simcesplatform/simulation-tools/errors"
	"github.com/simcesplatform/simulation-tools/message"
	"github.com/simcesplatform/simulation-tools/pkg/retry"
)

// DefaultBucket is the bucket name used when none is configured.
const DefaultBucket = "simulation_messages"

// KeyValue is the subset of the JetStream key-value bucket interface the
// store needs. jetstream.KeyValue satisfies it.
type KeyValue interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	ListKeys(ctx context.Context, opts ...jetstream.WatchOpt) (jetstream.KeyLister, error)
}

// Store archives messages for one simulation run.
type Store struct {
	bucket       KeyValue
	simulationID string
	timeout      time.Duration
	logger       *slog.Logger
}

// StoreOption is a functional option for configuring the Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	bucket  string
	history uint8
	timeout time.Duration
	logger  *slog.Logger
}

// WithBucket overrides the bucket name the messages are stored in.
func WithBucket(name string) StoreOption {
	return func(c *storeConfig) {
		c.bucket = name
	}
}

// WithTimeout sets the per-operation timeout.
func WithTimeout(d time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.timeout = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(c *storeConfig) {
		c.logger = logger
	}
}

// New creates a message store for the given simulation run, creating the
// key-value bucket when it does not exist yet.
func New(ctx context.Context, js jetstream.JetStream, simulationID string, opts ...StoreOption) (*Store, error) {
	if simulationID == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidValue, "Store", "New", "empty simulation id")
	}

	cfg := storeConfig{
		bucket:  DefaultBucket,
		history: 1,
		timeout: 5 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.bucket,
		Description: "simulation platform message archive",
		History:     cfg.history,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "Store", "New",
			fmt.Sprintf("open bucket '%s'", cfg.bucket))
	}

	return &Store{
		bucket:       bucket,
		simulationID: simulationID,
		timeout:      cfg.timeout,
		logger:       cfg.logger,
	}, nil
}

// sanitizeKeyPart maps a value onto the character set JetStream accepts
// in keys. The timestamp-formatted simulation ids carry ':' and '+'
// which are not valid in keys.
func sanitizeKeyPart(part string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.', r == '=':
			return r
		default:
			return '-'
		}
	}, part)
}

// Key returns the bucket key for a message on the given topic.
func (s *Store) Key(topic, messageID string) string {
	return fmt.Sprintf("%s.%s.%s",
		sanitizeKeyPart(s.simulationID),
		sanitizeKeyPart(topic),
		sanitizeKeyPart(messageID))
}

func (s *Store) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

// Put archives a message seen on the given topic.
func (s *Store) Put(ctx context.Context, topic string, msg message.Message) error {
	data, err := message.ToBytes(msg)
	if err != nil {
		return errors.WrapInvalid(err, "Store", "Put", "encode message")
	}
	return s.PutRaw(ctx, topic, msg.Meta().MessageID, data)
}

// PutRaw archives raw payload bytes under the given topic and message id.
// Used for payloads that did not decode to a typed message.
func (s *Store) PutRaw(ctx context.Context, topic, messageID string, data []byte) error {
	if topic == "" || messageID == "" {
		return errors.WrapInvalid(errors.ErrInvalidValue, "Store", "PutRaw", "empty topic or message id")
	}

	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	key := s.Key(topic, messageID)
	var rev uint64
	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		var putErr error
		rev, putErr = s.bucket.Put(ctx, key, data)
		return putErr
	})
	if err != nil {
		return errors.WrapTransient(err, "Store", "PutRaw",
			fmt.Sprintf("store message '%s'", key))
	}

	s.logger.Debug("message archived", "key", key, "revision", rev)
	return nil
}

// Get retrieves an archived message. The payload goes through the
// fail-soft decoder, so callers get a typed message when the payload
// still parses and the raw bytes otherwise.
func (s *Store) Get(ctx context.Context, topic, messageID string) (message.Decoded, error) {
	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	key := s.Key(topic, messageID)
	entry, err := s.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return message.Decoded{}, errors.WrapInvalid(err, "Store", "Get",
				fmt.Sprintf("message '%s' not found", key))
		}
		return message.Decoded{}, errors.WrapTransient(err, "Store", "Get",
			fmt.Sprintf("read message '%s'", key))
	}

	return message.FromBytes(entry.Value()), nil
}

// List returns the keys archived for this simulation run, optionally
// narrowed to one topic.
func (s *Store) List(ctx context.Context, topic string) ([]string, error) {
	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	lister, err := s.bucket.ListKeys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "Store", "List", "list keys")
	}

	prefix := sanitizeKeyPart(s.simulationID) + "."
	if topic != "" {
		prefix += sanitizeKeyPart(topic) + "."
	}

	var keys []string
	for key := range lister.Keys() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
