package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:      PhaseSetup,
				Kind:       KindCapabilityFailed,
				Capability: CapabilityParse,
				Detail:     "libpostal_setup_parser failed",
			},
			contains: []string{"[setup]", "capability_failed", "(parse)", "libpostal_setup_parser failed"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseExpand,
				Kind:  KindNotReady,
			},
			contains: []string{"[expand]", "not_ready"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseConfig,
				Kind:   KindInvalidInput,
				Detail: "read config",
				Cause:  errors.New("permission denied"),
			},
			contains: []string{"[config]", "invalid_input", "read config", "caused by", "permission denied"},
		},
		{
			name:     "sentinel without phase",
			err:      ErrBusy,
			contains: []string{"busy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := InvalidConfig("parse yaml", cause)

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
	if err.Phase != PhaseConfig || err.Detail != "parse yaml" {
		t.Errorf("err = %+v", err)
	}
	if InvalidConfig("no cause", nil).Unwrap() != nil {
		t.Error("Unwrap without a cause should be nil")
	}
}

func TestError_Is(t *testing.T) {
	err := CapabilityFailed(CapabilityExpand, "")

	if !errors.Is(err, ErrEnableExpansion) {
		t.Error("should match expansion sentinel")
	}
	if errors.Is(err, ErrEnableParsing) {
		t.Error("should not match parsing sentinel")
	}
	if !errors.Is(err, &Error{Kind: KindCapabilityFailed}) {
		t.Error("should match kind without capability")
	}
	if !errors.Is(err, &Error{Phase: PhaseSetup, Kind: KindCapabilityFailed}) {
		t.Error("should match same phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseExpand, Kind: KindCapabilityFailed}) {
		t.Error("should not match different phase")
	}
	if errors.Is(err, ErrSetup) {
		t.Error("should not match different kind")
	}
	if err.Is(errors.New("capability_failed")) {
		t.Error("should not match foreign error types")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseParse, KindInvalidInput).
		Capability(CapabilityParse).
		Value("a\x00b").
		Cause(cause).
		Detail("NUL at %d", 1).
		Build()

	if err.Phase != PhaseParse {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseParse)
	}
	if err.Kind != KindInvalidInput {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidInput)
	}
	if err.Capability != CapabilityParse {
		t.Errorf("Capability = %v, want %v", err.Capability, CapabilityParse)
	}
	if err.Value != "a\x00b" {
		t.Errorf("Value = %q", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "NUL at 1" {
		t.Errorf("Detail = %q, want 'NUL at 1'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("SetupFailed", func(t *testing.T) {
		err := SetupFailed("")
		if !errors.Is(err, ErrSetup) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindSetupFailed)
		}
		if !strings.Contains(SetupFailed("/data").Detail, `"/data"`) {
			t.Error("detail should name the data directory")
		}
	})

	t.Run("CapabilityFailed", func(t *testing.T) {
		err := CapabilityFailed(CapabilityParse, "/data")
		if !errors.Is(err, ErrEnableParsing) {
			t.Errorf("err = %v, want parsing capability failure", err)
		}
		if !strings.Contains(err.Detail, "libpostal_setup_parser_datadir") {
			t.Errorf("Detail = %q", err.Detail)
		}
		if !strings.Contains(CapabilityFailed(CapabilityExpand, "").Detail, "language_classifier") {
			t.Error("expand capability should name the language classifier")
		}
	})

	t.Run("NotReady", func(t *testing.T) {
		err := NotReady(PhaseParse, CapabilityParse)
		if !errors.Is(err, ErrNotReady) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotReady)
		}
		if err.Capability != CapabilityParse {
			t.Errorf("Capability = %v", err.Capability)
		}
		if !strings.Contains(err.Detail, "with the parse capability") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("NulByte", func(t *testing.T) {
		err := NulByte(PhaseExpand, "address", "12\x00 Main")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidInput)
		}
		if !strings.Contains(err.Detail, "offset 2") {
			t.Errorf("Detail = %q, should name offset", err.Detail)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(PhaseDecode, 3, []byte{0xff, 0xfe})
		if !errors.Is(err, ErrInvalidUTF8) {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
		}
		if err.Value != 3 {
			t.Errorf("Value = %v, want 3", err.Value)
		}
		if !strings.Contains(err.Detail, "fffe") {
			t.Errorf("Detail = %q, should preview bytes", err.Detail)
		}
	})

	t.Run("InvalidUTF8 long preview", func(t *testing.T) {
		data := make([]byte, 64)
		for i := range data {
			data[i] = 0xff
		}
		err := InvalidUTF8(PhaseDecode, 0, data)
		if strings.Count(err.Detail, "ff") != 32 {
			t.Errorf("preview should be truncated to 32 bytes: %q", err.Detail)
		}
	})

	t.Run("Busy and Closed", func(t *testing.T) {
		if !errors.Is(Busy("engine claimed"), ErrBusy) {
			t.Error("Busy should match ErrBusy")
		}
		if !errors.Is(Closed(PhaseExpand), ErrClosed) {
			t.Error("Closed should match ErrClosed")
		}
	})
}
