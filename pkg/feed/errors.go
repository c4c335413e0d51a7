package feed

// UpstreamAuthError reports a failed token exchange with an upstream
// API, for example a response without an access_token field. It is
// recoverable, the next scheduled cycle retries.
type UpstreamAuthError struct {
	Message string
}

func (e *UpstreamAuthError) Error() string {
	return e.Message
}

// UpstreamFetchError reports a failed feed retrieval after credentials
// were valid. It is stored as the provider's last error and retried on
// the next cycle.
type UpstreamFetchError struct {
	Message string
	Err     error
}

func (e *UpstreamFetchError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports missing or invalid provider configuration,
// such as a missing page id or app id. It is not auto-recoverable and is
// surfaced to an administrator via the provider's error slot.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// ValidationError reports malformed administrative input. It is rejected
// synchronously and never persisted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TokenRefreshError wraps any lower-level failure of the token refresh
// orchestration into a single error surfaced to the caller.
type TokenRefreshError struct {
	Err error
}

func (e *TokenRefreshError) Error() string {
	return "token refresh failed: " + e.Err.Error()
}

func (e *TokenRefreshError) Unwrap() error {
	return e.Err
}
