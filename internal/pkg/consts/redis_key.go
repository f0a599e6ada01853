package consts

const (
	TokenDenyKey = "auth:token:deny:"
)

const (
	ScheduledBroadcastLock = "lock:broadcast:scheduled"
)
