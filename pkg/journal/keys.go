package journal

import "fmt"

// redisOutcomesKey is the list holding the most recent interval outcomes, newest first.
func redisOutcomesKey(namespace string) string {
	return fmt.Sprintf("%s:JOURNAL:OUTCOMES", namespace)
}

// redisStatusCountKey is the hash mapping an outcome status to the number of intervals that ended
// with it.
func redisStatusCountKey(namespace string) string {
	return fmt.Sprintf("%s:JOURNAL:STATUS-COUNT", namespace)
}
