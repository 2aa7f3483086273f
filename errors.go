package libkafka07

import "fmt"

// Broker error codes returned in the 2 byte header of Fetch and Offsets
// responses.
const (
	ERR_UNKNOWN             int16 = -1
	ERR_NONE                int16 = 0
	ERR_OFFSET_OUT_OF_RANGE int16 = 1
	ERR_INVALID_MESSAGE     int16 = 2
	ERR_WRONG_PARTITION     int16 = 3
	ERR_INVALID_FETCH_SIZE  int16 = 4
)

var Descriptions = map[int16]string{
	ERR_UNKNOWN:             "unexpected server error",
	ERR_NONE:                "no error",
	ERR_OFFSET_OUT_OF_RANGE: "requested offset is outside the range of offsets maintained by the server",
	ERR_INVALID_MESSAGE:     "message contents do not match its crc",
	ERR_WRONG_PARTITION:     "partition does not exist on this broker",
	ERR_INVALID_FETCH_SIZE:  "fetch size is smaller than the message being fetched",
}

// Error is a non zero error code returned by the broker. It is never used for
// socket or decoding failures.
type Error struct {
	Code int16
}

func (e *Error) Error() string {
	d, ok := Descriptions[e.Code]
	if !ok {
		d = "unknown error code"
	}
	return fmt.Sprintf("broker error %d: %s", e.Code, d)
}

// Is matches any *Error with the same code, so that callers can write
// errors.Is(err, &libkafka07.Error{Code: libkafka07.ERR_OFFSET_OUT_OF_RANGE}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ErrorFromCode returns nil for ERR_NONE and *Error otherwise.
func ErrorFromCode(code int16) error {
	if code == ERR_NONE {
		return nil
	}
	return &Error{Code: code}
}
