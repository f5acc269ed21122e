package signaling

import "errors"

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrNotFound          = errors.New("room not found")
	ErrDuplicateName     = errors.New("room name already taken")
	ErrForbidden         = errors.New("only the room creator may delete the room")
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrNotMember         = errors.New("not a member of the room")
)

// 回報給發起連線的錯誤文字
var publicErrors = []struct {
	err  error
	text string
}{
	{ErrUnauthenticated, "Authentication required"},
	{ErrNotFound, "Room does not exist"},
	{ErrDuplicateName, "Room already exists"},
	{ErrForbidden, "Only the room creator can delete the room"},
	{ErrNotMember, "You are not in this room"},
}

// publicMessage 不洩漏內部細節；儲存層失敗一律回報 "Failed to <action>"
func publicMessage(err error, action string) string {
	for _, known := range publicErrors {
		if errors.Is(err, known.err) {
			return known.text
		}
	}
	return "Failed to " + action
}
