package common

import "fmt"

func RedisKeyRecommendation(userID string) string {
	return fmt.Sprintf("recommend:%s", userID)
}
