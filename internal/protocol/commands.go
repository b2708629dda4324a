package protocol

import "fmt"

// Command codes accepted on the command characteristic. The wire layout is
// [code:u8][reference:u8][args...].
const (
	CmdHello       byte = 0
	CmdSubscribe   byte = 1
	CmdUnsubscribe byte = 2
	CmdFetchLog    byte = 3
	CmdInitOffline byte = 4
	CmdGetLogCount byte = 5
	CmdStopLogging byte = 6
)

// Response types sent on the data characteristic. Data frames carry a
// [offset:u32 LE] field after the reference when they belong to a log fetch.
const (
	RspCommandResult byte = 1
	RspData          byte = 2
	RspDataPart2     byte = 3
	RspDataPart3     byte = 4
)

// Status bytes used in CommandResult frames.
const (
	StatusOK              byte = 0x00
	StatusAccepted        byte = 200 & 0xFF
	InsufficientStorageHi byte = 0x01 // 507 big-endian, high byte
	InsufficientStorageLo byte = 0xFB // 507 big-endian, low byte
)

// Command is a parsed command characteristic write.
type Command struct {
	Code      byte
	Reference byte
	Args      []byte
}

// ParseCommand validates and splits a command characteristic write. It does
// not validate per-command argument shapes; see Validate.
func ParseCommand(data []byte) (Command, error) {
	if len(data) < 2 {
		return Command{}, fmt.Errorf("command write too short: %d bytes", len(data))
	}
	return Command{Code: data[0], Reference: data[1], Args: data[2:]}, nil
}

// Validate checks the argument payload shape for the given command code.
// Unknown codes are rejected here so the dispatcher has a single failure path.
func (c Command) Validate() error {
	switch c.Code {
	case CmdHello, CmdUnsubscribe, CmdInitOffline, CmdGetLogCount, CmdStopLogging:
		if len(c.Args) != 0 {
			return fmt.Errorf("command %d takes no arguments, got %d bytes", c.Code, len(c.Args))
		}
	case CmdSubscribe:
		if len(c.Args) == 0 {
			return fmt.Errorf("subscribe requires a resource path")
		}
		for _, b := range c.Args {
			if b == 0 {
				return fmt.Errorf("subscribe path contains a null byte")
			}
		}
	case CmdFetchLog:
		if len(c.Args) != 4 {
			return fmt.Errorf("fetch-log requires a 4-byte log id, got %d bytes", len(c.Args))
		}
	default:
		return fmt.Errorf("unknown command code: %d", c.Code)
	}
	return nil
}

// Path returns the subscribe argument as a resource path string.
func (c Command) Path() string {
	return string(c.Args)
}
