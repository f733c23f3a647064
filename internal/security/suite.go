package security

// SuiteConfig configures a Suite's three sub-services.
type SuiteConfig struct {
	Lockout LockoutConfig
	Audit   AuditConfig
}

// Suite bundles the three boundary-invariant state machines spec §4.7/§6
// describe together: account lockout, token revocation, and the audit
// trail. The core consults it only at its one specified boundary — graph
// and memory internals never import this package.
type Suite struct {
	Lockout   *AccountLockoutService
	Blacklist *TokenBlacklist
	Audit     *AuditService
}

// NewSuite constructs a Suite from config.
func NewSuite(cfg SuiteConfig) *Suite {
	return &Suite{
		Lockout:   NewAccountLockoutService(cfg.Lockout),
		Blacklist: NewTokenBlacklist(),
		Audit:     NewAuditService(cfg.Audit),
	}
}
