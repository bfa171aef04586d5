package events

// Topics emitted by the domain services.
const (
	TopicOrderCreated        = "order.created"
	TopicReferralRegistered  = "referral.registered"
	TopicWithdrawalRequested = "withdrawal.requested"
)
