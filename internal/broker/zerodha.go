package broker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"go.uber.org/ratelimit"

	apperrors "kite-riskdesk/internal/errors"
	"kite-riskdesk/internal/fields"
	"kite-riskdesk/internal/logging"
	"kite-riskdesk/pkg/utils"
)

// kiteAPI is the subset of the Kite Connect client used here.
type kiteAPI interface {
	GetPositions() (kiteconnect.Positions, error)
	GetHoldings() (kiteconnect.Holdings, error)
	GetGTTs() (kiteconnect.GTTs, error)
	GetUserMargins() (kiteconnect.AllMargins, error)
}

// ZerodhaSource reads a live snapshot from Kite Connect.
type ZerodhaSource struct {
	client          kiteAPI
	limiter         ratelimit.Limiter
	retry           utils.RetryConfig
	includeHoldings bool
	logger          zerolog.Logger
}

// ZerodhaConfig holds configuration for the Kite source.
type ZerodhaConfig struct {
	APIKey      string
	AccessToken string
	// SessionFile is consulted when AccessToken is empty.
	SessionFile       string
	RequestsPerSecond int
	MaxRetries        int
	// IncludeHoldings adds delivery holdings to the net positions.
	IncludeHoldings bool
	Logger          zerolog.Logger
}

// NewZerodhaSource creates a Kite snapshot source. It needs an API key and
// an access token, either given directly or read from the session file.
func NewZerodhaSource(cfg ZerodhaConfig) (*ZerodhaSource, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.NewBrokerError("config", "kite api_key is not set", apperrors.ErrNotAuthenticated)
	}

	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" && cfg.SessionFile != "" {
		s, err := loadSession(cfg.SessionFile, time.Now())
		if err != nil {
			return nil, apperrors.NewBrokerError("session", err.Error(), apperrors.ErrNotAuthenticated)
		}
		token = s.AccessToken
	}
	if token == "" {
		return nil, apperrors.NewBrokerError("session", "no access token; set KITE_ACCESS_TOKEN or log in", apperrors.ErrNotAuthenticated)
	}

	client := kiteconnect.New(cfg.APIKey)
	client.SetAccessToken(token)
	return newZerodhaSource(client, cfg), nil
}

func newZerodhaSource(client kiteAPI, cfg ZerodhaConfig) *ZerodhaSource {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 3
	}
	retry := utils.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}
	retry.Retryable = retryable

	return &ZerodhaSource{
		client:          client,
		limiter:         ratelimit.New(rps),
		retry:           retry,
		includeHoldings: cfg.IncludeHoldings,
		logger:          cfg.Logger,
	}
}

// Positions returns open net positions, plus holdings when enabled.
// Flat positions are dropped.
func (z *ZerodhaSource) Positions(ctx context.Context) ([]fields.Record, error) {
	positions, err := call(ctx, z, "positions", z.client.GetPositions)
	if err != nil {
		return nil, err
	}
	recs, err := toRecords(positions.Net)
	if err != nil {
		return nil, err
	}

	if z.includeHoldings {
		holdings, err := call(ctx, z, "holdings", z.client.GetHoldings)
		if err != nil {
			return nil, err
		}
		hrecs, err := toRecords(holdings)
		if err != nil {
			return nil, err
		}
		for _, h := range hrecs {
			// Shares bought yesterday are still in T1 but already exposed.
			h["quantity"] = cast.ToFloat64(h["quantity"]) + cast.ToFloat64(h["t1_quantity"])
		}
		recs = append(hrecs, recs...)
	}

	open := recs[:0]
	for _, r := range recs {
		if cast.ToFloat64(r["quantity"]) != 0 {
			open = append(open, r)
		}
	}
	return mergePositions(open), nil
}

// ConditionalOrders returns every GTT on the account, whatever its status.
func (z *ZerodhaSource) ConditionalOrders(ctx context.Context) ([]fields.Record, error) {
	gtts, err := call(ctx, z, "gtt/triggers", z.client.GetGTTs)
	if err != nil {
		return nil, err
	}
	return toRecords(gtts)
}

// Capital returns net equity margin.
func (z *ZerodhaSource) Capital(ctx context.Context) (float64, error) {
	margins, err := call(ctx, z, "user/margins", z.client.GetUserMargins)
	if err != nil {
		return 0, err
	}
	return margins.Equity.Net, nil
}

// call runs one rate limited, retried Kite request.
func call[T any](ctx context.Context, z *ZerodhaSource, endpoint string, fn func() (T, error)) (T, error) {
	return utils.RetryWithResult(ctx, z.retry, func() (T, error) {
		z.limiter.Take()
		start := time.Now()
		v, err := fn()
		logging.LogAPICall(z.logger, "GET", endpoint, time.Since(start), err)
		if err != nil {
			return v, classify(endpoint, err)
		}
		return v, nil
	})
}

// classify maps Kite errors onto the application's sentinels.
func classify(endpoint string, err error) error {
	var kerr kiteconnect.Error
	if !errors.As(err, &kerr) {
		return apperrors.NewBrokerError(endpoint, err.Error(), apperrors.ErrConnectionFailed)
	}
	cause := err
	switch {
	case kerr.ErrorType == "TokenException":
		cause = apperrors.ErrNotAuthenticated
	case kerr.Code == 429:
		cause = apperrors.ErrRateLimited
	case kerr.ErrorType == "NetworkException" || kerr.Code >= 500:
		cause = apperrors.ErrConnectionFailed
	}
	be := apperrors.NewBrokerError(endpoint, kerr.Message, cause)
	be.Status, be.Kind = kerr.Code, kerr.ErrorType
	return be
}

func retryable(err error) bool {
	var be *apperrors.BrokerError
	return errors.As(err, &be) && be.Temporary()
}

// toRecords converts Kite structs to records through their JSON tags, so the
// aggregator sees Kite's own field names.
func toRecords(v any) ([]fields.Record, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, apperrors.Wrap(err, "encoding kite response")
	}
	var recs []fields.Record
	if err := sonic.Unmarshal(data, &recs); err != nil {
		return nil, apperrors.Wrap(err, "decoding kite response")
	}
	return recs, nil
}
