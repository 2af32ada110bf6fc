package redis

import "fmt"

// Key layout. Everything scoped to a session shares its code so that
// DeleteSession can cascade in one round trip.
func sessionKey(code string) string  { return "sess:" + code }
func chatKey(code string) string     { return "chat:" + code }
func notesKey(code string) string    { return "notes:" + code }
func typingKey(code, uid string) string {
	return fmt.Sprintf("typing:%s:%s", code, uid)
}
func typingChannel(code string) string { return "typing:" + code }
func presenceKey(code, uid string) string {
	return fmt.Sprintf("presence:%s:%s", code, uid)
}
func queueEntryKey(id string) string   { return "queue:entry:" + id }
func queueSessionKey(code string) string { return "queue:sess:" + code }

const (
	activeSetKey     = "sess:active"
	queuePendingKey  = "queue:pending"
	queueInflightKey = "queue:inflight"
)
