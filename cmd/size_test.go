package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bimmerbailey/supportcleaner/internal/unitsize"
	"github.com/spf13/cobra"
)

func newSizeTestCmd(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{Use: "size"}
	cmd.SetOut(out)
	cmd.Flags().String("unit", "B", "unit")
	cmd.Flags().Bool("parse", false, "parse")
	return cmd
}

func TestSize(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]string
		arg   string
		want  string
	}{
		{name: "bytes", arg: "1000", want: "1000.0B\n"},
		{name: "kibibytes", arg: "2048", want: "2.0KiB\n"},
		{name: "custom unit", flags: map[string]string{"unit": "V"}, arg: "2376582746591", want: "2.2TiV\n"},
		{name: "parse", flags: map[string]string{"parse": "true"}, arg: "4.0KiB", want: "4096\n"},
		{name: "parse keeps unit", flags: map[string]string{"parse": "true"}, arg: "1KiV", want: "1024 V\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newSizeTestCmd(&out)
			for k, v := range tt.flags {
				if err := cmd.Flags().Set(k, v); err != nil {
					t.Fatalf("Set(%s) error = %v", k, err)
				}
			}
			if err := runSize(cmd, []string{tt.arg}); err != nil {
				t.Fatalf("runSize() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestSizeErrors(t *testing.T) {
	var out bytes.Buffer
	cmd := newSizeTestCmd(&out)
	if err := runSize(cmd, []string{"many"}); err == nil {
		t.Error("expected error for non-numeric value")
	}

	_ = cmd.Flags().Set("parse", "true")
	if err := runSize(cmd, []string{"KiB"}); !errors.Is(err, unitsize.ErrMalformedSize) {
		t.Errorf("runSize(--parse KiB) error = %v, want ErrMalformedSize", err)
	}
}
