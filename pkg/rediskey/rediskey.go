package rediskey

import "fmt"

const (
	SequencePrefix      = "seq"
	RedeemAttemptPrefix = "topup:redeem:attempts"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildSequenceKey returns "seq:{prefix}:{day}"
func BuildSequenceKey(prefix, day string) string {
	return NamespaceKey(SequencePrefix, fmt.Sprintf("%s:%s", prefix, day))
}

// BuildRedeemAttemptKey returns "topup:redeem:attempts:{userID}"
func BuildRedeemAttemptKey(userID string) string {
	return NamespaceKey(RedeemAttemptPrefix, userID)
}
