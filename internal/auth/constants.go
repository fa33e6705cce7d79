package auth

const (
	msgNoAuthenticator    = "login is not configured"
	msgIncompleteSession  = "identity service returned an incomplete session"
	msgUnusableProfile    = "identity service returned an unusable profile"
	msgPersistFailed      = "could not persist session"
	msgStoredTokenExpired = "auth: stored token expired, discarding session"
	msgClearExpiredFailed = "auth: clearing expired session failed"
	msgLoginFailed        = "auth: login failed"
	msgLoginSucceeded     = "auth: login succeeded"
	msgLogoutClearFailed  = "auth: clearing session on logout failed"
	msgTokenRejected      = "auth: backend rejected token, logging out"
	msgHydrated           = "auth: session hydrated"
)
