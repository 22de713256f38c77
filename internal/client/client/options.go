package client

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/taxbox/internal/logging"
	"github.com/jonboulle/clockwork"
	"google.golang.org/grpc"
)

const (
	DefaultRequestTimeout  = 15 * time.Second
	DefaultRateLimit       = 10.0
	DefaultRateBurst       = 5
	DefaultBreakerFailures = 5
	DefaultBreakerTimeout  = 30 * time.Second
)

type options struct {
	log             logging.Logger
	clock           clockwork.Clock
	timeout         time.Duration
	rateLimit       float64
	rateBurst       int
	breakerFailures uint32
	breakerTimeout  time.Duration
	httpClient      *http.Client
	dialOptions     []grpc.DialOption
}

type Option func(*options)

func defaultOptions() options {
	return options{
		log:             logging.Nop{},
		clock:           clockwork.NewRealClock(),
		timeout:         DefaultRequestTimeout,
		rateLimit:       DefaultRateLimit,
		rateBurst:       DefaultRateBurst,
		breakerFailures: DefaultBreakerFailures,
		breakerTimeout:  DefaultBreakerTimeout,
	}
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock sets the clock used for token expiry checks.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRateLimit caps outgoing requests per second. A non-positive rate
// disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) { o.rateLimit, o.rateBurst = perSecond, burst }
}

// WithBreaker opens the REST circuit after maxFailures consecutive failures
// and keeps it open for timeout.
func WithBreaker(maxFailures uint32, timeout time.Duration) Option {
	return func(o *options) { o.breakerFailures, o.breakerTimeout = maxFailures, timeout }
}

// WithHTTPClient replaces the http.Client used by HTTPClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithDialOptions adds dial options for GRPCClient (tests use a bufconn dialer).
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOptions = append(o.dialOptions, opts...) }
}
