package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

func CheckStatusKey(checkID uuid.UUID) string {
	return fmt.Sprintf("check:%s", checkID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

// AnalyticsPrefix scopes every analytics entry of a project, for invalidation.
func AnalyticsPrefix(projectID uuid.UUID) string {
	return fmt.Sprintf("analytics:%s:", projectID)
}

func BrandStatsKey(projectID uuid.UUID, brand, timeframe string) string {
	return fmt.Sprintf("%sbrand:%s:%s", AnalyticsPrefix(projectID), strings.ToLower(brand), timeframe)
}

// CompareKey is independent of the order brands are given in.
func CompareKey(projectID uuid.UUID, brands []string, timeframe string) string {
	norm := make([]string, len(brands))
	for i, b := range brands {
		norm[i] = strings.ToLower(strings.TrimSpace(b))
	}
	sort.Strings(norm)
	sum := sha256.Sum256([]byte(strings.Join(norm, "\x00")))
	return fmt.Sprintf("%scompare:%s:%s", AnalyticsPrefix(projectID), hex.EncodeToString(sum[:8]), timeframe)
}
