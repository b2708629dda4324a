package protocol

import "testing"

func TestParseCommand_SplitsCodeReferenceArgs(t *testing.T) {
	cmd, err := ParseCommand([]byte{3, 7, 0x2A, 0, 0, 0})
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if cmd.Code != CmdFetchLog {
		t.Errorf("Code = %d, want %d", cmd.Code, CmdFetchLog)
	}
	if cmd.Reference != 7 {
		t.Errorf("Reference = %d, want 7", cmd.Reference)
	}
	if len(cmd.Args) != 4 {
		t.Errorf("len(Args) = %d, want 4", len(cmd.Args))
	}
}

func TestParseCommand_TooShort(t *testing.T) {
	for _, data := range [][]byte{nil, {}, {1}} {
		if _, err := ParseCommand(data); err == nil {
			t.Errorf("ParseCommand(%v) succeeded, want error", data)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		wantErr bool
	}{
		{"hello no args", Command{Code: CmdHello}, false},
		{"hello with args", Command{Code: CmdHello, Args: []byte{1}}, true},
		{"subscribe path", Command{Code: CmdSubscribe, Args: []byte("/Meas/ECG/200")}, false},
		{"subscribe empty", Command{Code: CmdSubscribe}, true},
		{"subscribe null byte", Command{Code: CmdSubscribe, Args: []byte{'/', 0, 'x'}}, true},
		{"fetch 4 bytes", Command{Code: CmdFetchLog, Args: []byte{1, 0, 0, 0}}, false},
		{"fetch 3 bytes", Command{Code: CmdFetchLog, Args: []byte{1, 0, 0}}, true},
		{"fetch 5 bytes", Command{Code: CmdFetchLog, Args: []byte{1, 0, 0, 0, 0}}, true},
		{"stop with args", Command{Code: CmdStopLogging, Args: []byte{9}}, true},
		{"unknown code", Command{Code: 99}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
