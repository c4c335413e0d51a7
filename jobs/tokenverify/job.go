package tokenverify

import (
	"context"
	"time"

	lock "github.com/bsm/redis-lock"
	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/jobs/common"
	"gitlab.com/socialfeed/worker/metrics"
	"gitlab.com/socialfeed/worker/store"
	"gitlab.com/socialfeed/worker/tokenex"
)

const lockKey = "socialfeed:worker:token-verify:run-lock"

type tokenSource interface {
	WithPageToken() ([]store.Provider, error)
}

type statusStore interface {
	SetError(providerID uint, message string) error
	SetPageTokenMeta(providerID uint, created, expires *time.Time) error
}

type verifier interface {
	DebugToken(ctx context.Context, pageToken, userToken, appSecret string) (*tokenex.TokenInfo, error)
	EnsureFreshToken(ctx context.Context, provider *store.Provider, force bool) (bool, error)
}

// Job periodically re-verifies stored page access tokens against the
// introspection endpoint, refreshing their expiry metadata and forcing
// a new token exchange for tokens that are invalid or close to expiry.
type Job struct {
	logger   *zap.Logger
	redis    *redis.Client
	source   tokenSource
	status   statusStore
	verifier verifier
	lead     time.Duration
}

func (j *Job) Name() string {
	return "token-verify"
}

func (j *Job) Interval() time.Duration {
	return 1 * time.Hour
}

func (j *Job) Start(params common.StartParameters) error {
	j.logger = params.Logger
	j.redis = params.Redis
	j.source = store.NewReader(params.DB)
	j.status = store.NewWriter(params.DB)
	j.verifier = params.Tokens
	j.lead = params.RefreshLeadTime

	return nil
}

func (j *Job) Stop(params common.StopParameters) error {
	return nil
}

func (j *Job) getRunLock() *lock.Locker {
	return lock.New(
		j.redis,
		lockKey,
		&lock.Options{
			LockTimeout: 30 * time.Minute,
			RetryCount:  0, // do not retry
		},
	)
}

func (j *Job) Run(run *common.Run) error {
	runLock := j.getRunLock()
	locked, err := runLock.LockWithContext(run.Context())
	if err != nil {
		return errors.Wrap(err, "error acquiring run lock")
	}
	if !locked {
		run.Logger().Debug("skipped run, another run is already in progress")
		return nil
	}
	defer runLock.Unlock() // nolint: errcheck

	records, err := j.source.WithPageToken()
	if err != nil {
		return errors.Wrap(err, "error listing providers with page tokens")
	}

	for i := range records {
		// one failing provider never stops the verification pass
		err = j.verify(run, &records[i])
		if err != nil {
			run.Except(err)

			err = j.status.SetError(records[i].ID, err.Error())
			if err != nil {
				run.Logger().Error("failure recording provider error",
					zap.Uint("provider_id", records[i].ID),
					zap.Error(err),
				)
			}
		}
	}

	return nil
}

func (j *Job) verify(run *common.Run, record *store.Provider) error {
	info, err := j.verifier.DebugToken(
		run.Context(), record.PageAccessToken, record.LongLivedToken, record.AppSecret,
	)
	if err != nil {
		return errors.Wrap(err, "error introspecting page token")
	}

	created := record.PageAccessTokenCreated
	if info.IssuedAt != nil {
		created = info.IssuedAt
	}

	err = j.status.SetPageTokenMeta(record.ID, created, info.ExpiresAt)
	if err != nil {
		return errors.Wrap(err, "error updating page token metadata")
	}

	if !j.needsRefresh(info) {
		return nil
	}

	run.Logger().Info("page token invalid or expiring, forcing a refresh",
		zap.Uint("provider_id", record.ID),
		zap.Bool("valid", info.Valid),
	)

	_, err = j.verifier.EnsureFreshToken(run.Context(), record, true)
	if err != nil {
		return errors.Wrap(err, "error refreshing page token")
	}

	metrics.TokenRefreshes.Add(1)
	return nil
}

// needsRefresh reports whether a token should be replaced now: it is
// invalid, or it expires within the configured lead time. A nil expiry
// means the token never expires.
func (j *Job) needsRefresh(info *tokenex.TokenInfo) bool {
	if !info.Valid {
		return true
	}
	if info.ExpiresAt == nil {
		return false
	}

	return time.Until(*info.ExpiresAt) <= j.lead
}
