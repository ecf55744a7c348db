package minimqtt

// ReturnCode is the connect return code carried in the last byte of CONNACK.
type ReturnCode byte

// Connect return codes.
const (
	ConnectionAccepted         ReturnCode = 0x00
	RefusedProtocolVersion     ReturnCode = 0x01
	RefusedIdentifierRejected  ReturnCode = 0x02
	RefusedServerUnavailable   ReturnCode = 0x03
	RefusedBadUsernamePassword ReturnCode = 0x04
	RefusedNotAuthorized       ReturnCode = 0x05
)

var returnCodeText = map[ReturnCode]string{
	ConnectionAccepted:         "Connection Accepted",
	RefusedProtocolVersion:     "Connection Refused - Incorrect Protocol Version",
	RefusedIdentifierRejected:  "Connection Refused - ID Rejected",
	RefusedServerUnavailable:   "Connection Refused - Server unavailable",
	RefusedBadUsernamePassword: "Connection Refused - Incorrect username/password",
	RefusedNotAuthorized:       "Connection Refused - Unauthorized",
}

// String returns the human-readable reason for the return code.
// Codes outside the table report a generic refusal.
func (c ReturnCode) String() string {
	if s, ok := returnCodeText[c]; ok {
		return s
	}
	return "Connection Refused"
}

// Accepted reports whether the broker accepted the connection.
func (c ReturnCode) Accepted() bool {
	return c == ConnectionAccepted
}

// SUBACK return codes.
const (
	SubackMaxQoS0 byte = 0x00
	SubackMaxQoS1 byte = 0x01
	SubackMaxQoS2 byte = 0x02
	SubackFailure byte = 0x80
)
