package billing

import (
	"github.com/bwmarrin/snowflake"
)

// Option configures the billing services.
type Option func(*options)

type options struct {
	clock    Clock
	policy   Policy
	locker   SessionLocker
	notifier Notifier
	ids      TransactionIDs
	codes    func() (string, error)
}

// WithClock replaces the UTC wall clock, mainly for tests.
func WithClock(c Clock) Option { return func(o *options) { o.clock = c } }

// WithPolicy overrides the billing windows.  Zero fields keep defaults.
func WithPolicy(p Policy) Option { return func(o *options) { o.policy = p } }

// WithLocker serializes settlements of one session, and entries of one
// plate into one lot, across processes.
func WithLocker(l SessionLocker) Option { return func(o *options) { o.locker = l } }

// WithNotifier receives events after their transaction committed.
func WithNotifier(n Notifier) Option { return func(o *options) { o.notifier = n } }

// WithTransactionIDs replaces the snowflake generator.
func WithTransactionIDs(ids TransactionIDs) Option { return func(o *options) { o.ids = ids } }

func buildOptions(opts []Option) options {
	o := options{
		clock:    systemClock,
		locker:   nopLocker{},
		notifier: nopNotifier{},
		codes:    newCouponCode,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.policy = o.policy.orDefault()
	if o.ids == nil {
		node, _ := snowflake.NewNode(1)
		o.ids = &SnowflakeIDs{node: node}
	}
	return o
}

// TransactionIDs produces globally unique, time-ordered transaction ids.
type TransactionIDs interface {
	Next(prefix string) string
}

// SnowflakeIDs derives ids from a snowflake node.  Each process sharing a
// database needs its own node number.
type SnowflakeIDs struct {
	node *snowflake.Node
}

// NewSnowflakeIDs returns a generator for node (0-1023).
func NewSnowflakeIDs(node int64) (*SnowflakeIDs, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}
	return &SnowflakeIDs{node: n}, nil
}

// Next returns prefix followed by a fresh snowflake id.
func (s *SnowflakeIDs) Next(prefix string) string {
	return prefix + s.node.Generate().String()
}
